package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/example/todo-evolution/config"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/storage"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/storage/redis/v3"
)

const (
	// DefaultTTL bounds how stale a cached entry can get.
	DefaultTTL = 5 * time.Minute

	keyPrefix   = "todo:cache:"
	dialTimeout = 2 * time.Second
)

// Module owns the Redis-backed cache. Without a Redis address it stays
// disabled and Port returns nil.
type Module struct {
	redisCfg config.RedisConfig
	ttl      time.Duration
	logger   types.Logger
	storage  storage.Storage
	store    Store
}

var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

func NewModule(redisCfg config.RedisConfig, logger types.Logger) *Module {
	return &Module{
		redisCfg: redisCfg,
		ttl:      DefaultTTL,
		logger:   logger,
	}
}

func (m *Module) Name() string {
	return "cache"
}

func (m *Module) Start(_ context.Context) error {
	if !m.redisCfg.Enabled() {
		m.logger.Info("Cache disabled (no Redis address)")
		return nil
	}

	// The Redis storage panics when it cannot connect, so dial first.
	conn, err := net.DialTimeout("tcp", m.redisCfg.Addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("redis not reachable at %s: %w", m.redisCfg.Addr, err)
	}
	_ = conn.Close()

	host, port := parseRedisAddr(m.redisCfg.Addr)
	m.storage = redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: m.redisCfg.Password,
		Database: m.redisCfg.DB,
		PoolSize: 50,
	})
	m.store = NewStore(m.storage, keyPrefix, m.ttl)
	m.logger.Info("Cache started", "addr", m.redisCfg.Addr, "ttl", m.ttl.String())
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.storage == nil {
		return nil
	}
	if err := m.storage.Close(); err != nil {
		m.logger.Error("Error closing cache connection", "error", err)
		return fmt.Errorf("failed to close connection: %w", err)
	}
	m.logger.Info("Cache stopped")
	return nil
}

// Port returns the cache for consumers, or nil while the cache is disabled.
func (m *Module) Port() Store {
	return m.store
}

func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.storage == nil {
		return mono.HealthStatus{Healthy: true, Message: "disabled"}
	}
	if _, err := m.storage.GetWithContext(ctx, "__health_check__"); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("health check failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis_addr": m.redisCfg.Addr,
			"ttl":        m.ttl.String(),
		},
	}
}

// parseRedisAddr splits "host:port", falling back to 127.0.0.1:6379.
func parseRedisAddr(addr string) (string, int) {
	const defaultHost = "127.0.0.1"
	const defaultPort = 6379

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	if host == "" {
		host = defaultHost
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = defaultPort
	}
	return host, port
}
