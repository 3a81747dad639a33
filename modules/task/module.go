package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/todo-evolution/config"
	"github.com/example/todo-evolution/database"
	"github.com/example/todo-evolution/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

// TaskModule exposes the todo service to other modules (core domain).
type TaskModule struct {
	cfg      config.StoreConfig
	logger   types.Logger
	store    ScopedStorage
	db       *gorm.DB
	pool     *pgxpool.Pool
	eventBus mono.EventBus
}

var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)

// NewModule creates a TaskModule that opens the configured backend on Start.
func NewModule(cfg config.StoreConfig, logger types.Logger) *TaskModule {
	return &TaskModule{
		cfg:    cfg,
		logger: logger,
	}
}

// NewModuleWithStorage creates a TaskModule over an already opened store.
func NewModuleWithStorage(store ScopedStorage, logger types.Logger) *TaskModule {
	return &TaskModule{
		cfg:    config.StoreConfig{Driver: config.DriverMemory},
		store:  store,
		logger: logger,
	}
}

func (m *TaskModule) Name() string {
	return "task"
}

func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskStatusToggledV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
	}
}

func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateTask, json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateTask, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListTasks, json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListTasks, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetTask, json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetTask, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUpdateTask, json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceUpdateTask, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDeleteTask, json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDeleteTask, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceToggleStatus, json.Unmarshal, json.Marshal, m.toggleTaskStatus,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceToggleStatus, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCountTasks, json.Unmarshal, json.Marshal, m.countTasks,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCountTasks, err)
	}

	m.logger.Info("Registered task services",
		"services", []string{
			ServiceCreateTask, ServiceListTasks, ServiceGetTask, ServiceUpdateTask,
			ServiceDeleteTask, ServiceToggleStatus, ServiceCountTasks,
		})
	return nil
}

// Start opens the storage backend unless one was injected.
func (m *TaskModule) Start(ctx context.Context) error {
	if m.store == nil {
		store, err := m.openStorage(ctx)
		if err != nil {
			return err
		}
		m.store = store
	}
	if m.eventBus == nil {
		m.logger.Warn("Event bus not set, task events will not be published")
	}
	m.logger.Info("Task module started", "driver", m.cfg.Driver)
	return nil
}

func (m *TaskModule) openStorage(ctx context.Context) (ScopedStorage, error) {
	switch m.cfg.Driver {
	case config.DriverMemory:
		return NewMemoryStorage(), nil
	case config.DriverSQLite:
		db, err := database.OpenSQLite(m.cfg.DBPath, &TaskRecord{})
		if err != nil {
			return nil, err
		}
		m.db = db
		return NewGormStorage(db), nil
	case config.DriverPostgres:
		pool, err := database.OpenPostgres(ctx, m.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		m.pool = pool
		return NewPostgresStorage(pool), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", m.cfg.Driver)
}

func (m *TaskModule) Stop(_ context.Context) error {
	if m.db != nil {
		if err := database.CloseSQLite(m.db); err != nil {
			m.logger.Error("Failed to close database", "error", err)
		}
	}
	if m.pool != nil {
		m.pool.Close()
	}
	m.logger.Info("Task module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{Healthy: false, Message: "storage not initialized"}
	}

	var err error
	switch {
	case m.db != nil:
		err = database.PingSQLite(ctx, m.db)
	case m.pool != nil:
		err = m.pool.Ping(ctx)
	}
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.cfg.Driver,
		},
	}
}
