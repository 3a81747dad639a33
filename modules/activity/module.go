// Package activity records a per-user feed of task changes by consuming the
// task module's events.
package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/todo-evolution/config"
	"github.com/example/todo-evolution/domain/apperr"
	"github.com/example/todo-evolution/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// ActivityModule is a driven adapter: it listens for task events and serves
// the resulting feed.
type ActivityModule struct {
	redisCfg config.RedisConfig
	logger   types.Logger
	client   *redis.Client
	store    Store
}

var _ mono.Module = (*ActivityModule)(nil)
var _ mono.EventConsumerModule = (*ActivityModule)(nil)
var _ mono.ServiceProviderModule = (*ActivityModule)(nil)
var _ mono.HealthCheckableModule = (*ActivityModule)(nil)

// NewModule creates the module; the feed lives in Redis when redisCfg has an
// address and in memory otherwise.
func NewModule(redisCfg config.RedisConfig, logger types.Logger) *ActivityModule {
	return &ActivityModule{
		redisCfg: redisCfg,
		logger:   logger,
	}
}

// NewModuleWithStore creates the module over an existing store.
func NewModuleWithStore(store Store, logger types.Logger) *ActivityModule {
	return &ActivityModule{
		logger: logger,
		store:  store,
	}
}

func (m *ActivityModule) Name() string {
	return "activity"
}

func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskStatusToggledV1, m.handleTaskToggled, m); err != nil {
		return fmt.Errorf("failed to register TaskStatusToggled consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"TaskCreated", "TaskUpdated", "TaskStatusToggled", "TaskDeleted"})
	return nil
}

func (m *ActivityModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListActivity, json.Unmarshal, json.Marshal, m.listActivity,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListActivity, err)
	}
	return nil
}

func (m *ActivityModule) Start(ctx context.Context) error {
	if m.store == nil {
		if m.redisCfg.Enabled() {
			m.client = redis.NewClient(&redis.Options{
				Addr:     m.redisCfg.Addr,
				Password: m.redisCfg.Password,
				DB:       m.redisCfg.DB,
			})
			if err := m.client.Ping(ctx).Err(); err != nil {
				_ = m.client.Close()
				m.client = nil
				return fmt.Errorf("failed to connect to Redis: %w", err)
			}
			m.store = NewRedisStore(m.client)
		} else {
			m.store = NewMemoryStore()
		}
	}
	m.logger.Info("Activity module started - listening for task events", "redis", m.client != nil)
	return nil
}

func (m *ActivityModule) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Error("Error closing Redis connection", "error", err)
		}
	}
	m.logger.Info("Activity module stopped")
	return nil
}

func (m *ActivityModule) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{Healthy: false, Message: "store not initialized"}
	}
	if m.client != nil {
		if err := m.client.Ping(ctx).Err(); err != nil {
			return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
		}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

func (m *ActivityModule) handleTaskCreated(ctx context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	return m.record(ctx, event.UserID, Entry{
		TaskID: event.TaskID,
		Action: ActionCreated,
		Title:  event.Title,
		At:     event.CreatedAt,
	})
}

func (m *ActivityModule) handleTaskUpdated(ctx context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	return m.record(ctx, event.UserID, Entry{
		TaskID: event.TaskID,
		Action: ActionUpdated,
		Title:  event.Title,
		Fields: event.Fields,
		At:     event.UpdatedAt,
	})
}

func (m *ActivityModule) handleTaskToggled(ctx context.Context, event events.TaskStatusToggledEvent, _ *mono.Msg) error {
	action := ActionReopened
	if event.Status == "completed" {
		action = ActionCompleted
	}
	return m.record(ctx, event.UserID, Entry{
		TaskID: event.TaskID,
		Action: action,
		Title:  event.Title,
		At:     event.UpdatedAt,
	})
}

func (m *ActivityModule) handleTaskDeleted(ctx context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	return m.record(ctx, event.UserID, Entry{
		TaskID: event.TaskID,
		Action: ActionDeleted,
		At:     event.DeletedAt,
	})
}

// record drops events without an owner; a failed write is logged, not retried.
func (m *ActivityModule) record(ctx context.Context, userID string, entry Entry) error {
	if userID == "" {
		m.logger.Debug("Ignoring task event without owner", "task_id", entry.TaskID)
		return nil
	}
	if err := m.store.Record(ctx, userID, entry); err != nil {
		m.logger.Warn("Failed to record activity", "user_id", userID, "task_id", entry.TaskID, "error", err)
	}
	return nil
}

func (m *ActivityModule) listActivity(ctx context.Context, req ListActivityRequest, _ *mono.Msg) (ListActivityResponse, error) {
	if req.UserID == "" {
		return ListActivityResponse{Error: apperr.ToPayload(apperr.Validation("user_id is required"))}, nil
	}
	entries, err := m.store.Recent(ctx, req.UserID, req.Limit)
	if err != nil {
		m.logger.Error("Failed to read activity", "user_id", req.UserID, "error", err)
		return ListActivityResponse{Error: apperr.ToPayload(err)}, nil
	}
	return ListActivityResponse{Entries: entries}, nil
}
