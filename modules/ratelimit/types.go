// Package ratelimit limits request rates per client, backed by Redis when it
// is configured and by in-process token buckets otherwise.
package ratelimit

import (
	"context"
	"time"

	"github.com/example/todo-evolution/config"
)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerWindow is the maximum number of requests allowed in the window.
	RequestsPerWindow int
	// WindowSize is the duration of the window.
	WindowSize time.Duration
}

// DefaultConfig returns 100 requests per minute.
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: config.DefaultRateLimit,
		WindowSize:        config.DefaultRateWindow * time.Second,
	}
}

// ConfigFrom converts application settings, substituting defaults for
// non-positive values.
func ConfigFrom(cfg config.LimitConfig) Config {
	c := Config{RequestsPerWindow: cfg.Requests, WindowSize: cfg.Window}
	def := DefaultConfig()
	if c.RequestsPerWindow <= 0 {
		c.RequestsPerWindow = def.RequestsPerWindow
	}
	if c.WindowSize <= 0 {
		c.WindowSize = def.WindowSize
	}
	return c
}

// Result represents the outcome of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is allowed.
	Allowed bool
	// Remaining is the number of requests remaining in the current window.
	Remaining int
	// ResetAt is when the limit is fully replenished.
	ResetAt time.Time
	// RetryAfter is the duration to wait before retrying (only set when not allowed).
	RetryAfter time.Duration
}

// Limiter is the interface for rate limiting implementations.
type Limiter interface {
	// Allow checks if a request identified by key is allowed under the rate limit.
	Allow(ctx context.Context, key string) (*Result, error)

	// Close releases any resources held by the limiter.
	Close() error
}
