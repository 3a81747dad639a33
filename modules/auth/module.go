package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/todo-evolution/config"
	"github.com/example/todo-evolution/database"
	domain "github.com/example/todo-evolution/domain/user"
	"github.com/example/todo-evolution/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

// AuthModule provides authentication services.
type AuthModule struct {
	store    config.StoreConfig
	jwtCfg   JWTConfig
	logger   types.Logger
	hasher   *PasswordHasher
	repo     domain.Repository
	db       *gorm.DB
	pool     *pgxpool.Pool
	service  *AuthService
	eventBus mono.EventBus
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)
var _ mono.EventEmitterModule = (*AuthModule)(nil)

// NewModule creates an AuthModule that opens the configured user store on Start.
func NewModule(store config.StoreConfig, jwtCfg config.JWTConfig, logger types.Logger) *AuthModule {
	return &AuthModule{
		store:  store,
		jwtCfg: JWTConfigFrom(jwtCfg),
		logger: logger,
		hasher: NewPasswordHasher(),
	}
}

// NewModuleWithRepository creates an AuthModule over an existing repository.
func NewModuleWithRepository(repo domain.Repository, hasher *PasswordHasher, jwtCfg JWTConfig, logger types.Logger) *AuthModule {
	return &AuthModule{
		store:  config.StoreConfig{Driver: config.DriverMemory},
		jwtCfg: jwtCfg,
		logger: logger,
		hasher: hasher,
		repo:   repo,
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

func (m *AuthModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *AuthModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserRegisteredV1.ToBase(),
	}
}

// Start initializes the auth module.
func (m *AuthModule) Start(ctx context.Context) error {
	if m.repo == nil {
		repo, err := m.openRepository(ctx)
		if err != nil {
			return err
		}
		m.repo = repo
	}

	m.service = NewAuthService(m.repo, m.hasher, NewJWTManager(m.jwtCfg))

	m.logger.Info("Auth module started", "driver", m.store.Driver, "algorithm", m.jwtCfg.Algorithm)
	return nil
}

func (m *AuthModule) openRepository(ctx context.Context) (domain.Repository, error) {
	switch m.store.Driver {
	case config.DriverMemory:
		return NewMemoryUserRepository(), nil
	case config.DriverSQLite:
		db, err := database.OpenSQLite(m.store.DBPath, &domain.User{})
		if err != nil {
			return nil, err
		}
		m.db = db
		return NewUserRepository(db), nil
	case config.DriverPostgres:
		pool, err := database.OpenPostgres(ctx, m.store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		m.pool = pool
		return NewPostgresUserRepository(pool), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", m.store.Driver)
}

// Stop shuts down the module.
func (m *AuthModule) Stop(_ context.Context) error {
	if m.db != nil {
		if err := database.CloseSQLite(m.db); err != nil {
			m.logger.Error("Failed to close database", "error", err)
		}
	}
	if m.pool != nil {
		m.pool.Close()
	}
	m.logger.Info("Auth module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(ctx context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "service not initialized",
		}
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
			"driver": m.store.Driver,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceRegister,
		json.Unmarshal,
		json.Marshal,
		m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceLogin,
		json.Unmarshal,
		json.Marshal,
		m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceValidateToken,
		json.Unmarshal,
		json.Marshal,
		m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceGetUser,
		json.Unmarshal,
		json.Marshal,
		m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceUpdateUser,
		json.Unmarshal,
		json.Marshal,
		m.handleUpdateUser,
	); err != nil {
		return fmt.Errorf("failed to register update-user service: %w", err)
	}

	m.logger.Info("Registered auth services",
		"services", []string{ServiceRegister, ServiceLogin, ServiceValidateToken, ServiceGetUser, ServiceUpdateUser})
	return nil
}
