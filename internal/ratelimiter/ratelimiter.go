// Package ratelimiter throttles calls made to the upstream node.
package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

type Config struct {
	Key         string  `koanf:"key"`
	LimitPerSec float64 `koanf:"limit_per_sec"` // <= 0 disables limiting
	Burst       int     `koanf:"burst"`
}

type RateLimiter interface {
	Wait(ctx context.Context) error
}

type TokenBucketRateLimiter struct {
	limiter *rate.Limiter
}

// NewTokenBucket builds a limiter for cfg. A non-positive limit yields a
// limiter that never blocks.
func NewTokenBucket(cfg Config) *TokenBucketRateLimiter {
	limit := rate.Limit(cfg.LimitPerSec)
	if cfg.LimitPerSec <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &TokenBucketRateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

func (t *TokenBucketRateLimiter) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Manager hands out one limiter per key so that every component talking to
// the same upstream shares its budget.
type Manager struct {
	mu       sync.Mutex
	limiters map[string]*TokenBucketRateLimiter
}

func NewManager() *Manager {
	return &Manager{limiters: make(map[string]*TokenBucketRateLimiter)}
}

// GetRateLimiter retrieves or creates a rate limiter based on the key.
// The first configuration seen for a key wins.
func (m *Manager) GetRateLimiter(cfg Config) *TokenBucketRateLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.limiters[cfg.Key]; exists {
		return limiter
	}

	limiter := NewTokenBucket(cfg)
	m.limiters[cfg.Key] = limiter
	return limiter
}

// Unlimited is a RateLimiter that never waits.
var Unlimited RateLimiter = unlimited{}

type unlimited struct{}

func (unlimited) Wait(ctx context.Context) error { return ctx.Err() }
