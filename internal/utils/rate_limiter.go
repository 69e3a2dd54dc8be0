// internal/utils/rate_limiter.go
package utils

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key, such as a target host or a
// client address. Buckets idle for longer than the idle window are dropped.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	calls    int
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// pruneEvery is the number of lookups between idle sweeps.
const pruneEvery = 256

// NewRateLimiter allows requestsPerSecond per key with the given burst.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
		limiters: make(map[string]*keyedLimiter),
	}
}

// Wait blocks until key may proceed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.get(key).Wait(ctx)
}

// Allow reports whether key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.get(key).Allow()
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.calls++
	if rl.calls%pruneEvery == 0 {
		for k, l := range rl.limiters {
			if now.Sub(l.lastSeen) > rl.idle {
				delete(rl.limiters, k)
			}
		}
	}

	l, ok := rl.limiters[key]
	if !ok {
		l = &keyedLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = l
	}
	l.lastSeen = now
	return l.limiter
}
