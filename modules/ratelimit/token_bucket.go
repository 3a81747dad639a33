package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	idleTimeout   = 3 * time.Minute
	sweepInterval = time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenBucketLimiter keeps one token bucket per key in process memory. The
// bucket holds RequestsPerWindow tokens and refills at
// RequestsPerWindow/WindowSize. Keys idle for three minutes are dropped.
type TokenBucketLimiter struct {
	config Config
	limit  rate.Limit

	mu      sync.Mutex
	buckets map[string]*bucket

	done      chan struct{}
	closeOnce sync.Once
}

var _ Limiter = (*TokenBucketLimiter)(nil)

// NewTokenBucketLimiter creates the limiter and starts its idle-key sweeper.
func NewTokenBucketLimiter(config Config) *TokenBucketLimiter {
	l := &TokenBucketLimiter{
		config:  config,
		limit:   rate.Limit(float64(config.RequestsPerWindow) / config.WindowSize.Seconds()),
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (*Result, error) {
	now := time.Now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.config.RequestsPerWindow)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	res := &Result{Allowed: true}

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.Allowed = false
		res.RetryAfter = delay
	}

	tokens := b.limiter.TokensAt(now)
	res.Remaining = max(int(math.Floor(tokens)), 0)
	missing := float64(l.config.RequestsPerWindow) - tokens
	res.ResetAt = now.Add(time.Duration(missing / float64(l.limit) * float64(time.Second)))
	return res, nil
}

func (l *TokenBucketLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			l.evictIdle(now)
		}
	}
}

func (l *TokenBucketLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= idleTimeout {
			delete(l.buckets, key)
		}
	}
}

// Close stops the sweeper.
func (l *TokenBucketLimiter) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}
