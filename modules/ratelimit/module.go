package ratelimit

import (
	"context"
	"fmt"

	"github.com/example/todo-evolution/config"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// Module provides the request limiter as a mono module.
type Module struct {
	redisCfg   config.RedisConfig
	config     Config
	logger     types.Logger
	client     *redis.Client
	limiter    Limiter
	middleware *Middleware
}

var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new rate limiting module. Redis is used when redisCfg
// has an address.
func NewModule(redisCfg config.RedisConfig, limitCfg config.LimitConfig, logger types.Logger) *Module {
	return &Module{
		redisCfg: redisCfg,
		config:   ConfigFrom(limitCfg),
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "rate-limiter"
}

// Start connects to Redis when configured and builds the middleware.
func (m *Module) Start(ctx context.Context) error {
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
		m.limiter = NewSlidingWindowLimiter(m.client, m.config, keyPrefix)
		m.logger.Info("Rate limiter using Redis sliding window", "addr", m.redisCfg.Addr)
	} else {
		m.limiter = NewTokenBucketLimiter(m.config)
		m.logger.Info("Rate limiter using in-process token buckets")
	}

	m.middleware = NewMiddleware(m.limiter, m.config, m.logger)
	m.logger.Info("Rate limiter module started",
		"requests", m.config.RequestsPerWindow,
		"window", m.config.WindowSize.String())
	return nil
}

// Stop stops the module and closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.limiter != nil {
		_ = m.limiter.Close()
	}
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Error("Error closing Redis connection", "error", err)
		}
	}
	m.logger.Info("Rate limiter module stopped")
	return nil
}

// Health verifies the Redis connection when one is used.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.limiter == nil {
		return mono.HealthStatus{Healthy: false, Message: "limiter not initialized"}
	}
	backend := "memory"
	if m.client != nil {
		backend = "redis"
		if err := m.client.Ping(ctx).Err(); err != nil {
			return mono.HealthStatus{
				Healthy: false,
				Message: fmt.Sprintf("redis ping failed: %v", err),
			}
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"backend": backend},
	}
}

// GetMiddleware returns the rate limiting middleware. It is nil before Start.
func (m *Module) GetMiddleware() *Middleware {
	return m.middleware
}
