package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter blocks until the rate limit allows another request or ctx ends
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket implements a token bucket rate limiter that refills completely
// once per period
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	now          func() time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
		now:          time.Now,
	}
}

// PerSecond returns a bucket admitting n requests per second. A throttle of
// zero or less disables limiting.
func PerSecond(n int) Limiter {
	if n <= 0 {
		return Unlimited{}
	}
	return NewTokenBucket(n, time.Second)
}

// take consumes a token if one is available
func (tb *TokenBucket) take() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.take() {
		tb.mu.Lock()
		timeUntilRefill := tb.refillPeriod - tb.now().Sub(tb.lastRefill)
		tb.mu.Unlock()

		if timeUntilRefill <= 0 {
			timeUntilRefill = 10 * time.Millisecond
		}

		timer := time.NewTimer(timeUntilRefill)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

// Registry hands out one shared limiter per throttle value, so every request
// made with the same throttle hint draws from the same bucket
type Registry struct {
	mu       sync.Mutex
	limiters map[int]Limiter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[int]Limiter)}
}

// Get returns the limiter for a throttle value, creating it on first use
func (r *Registry) Get(throttle int) Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[throttle]
	if !ok {
		l = PerSecond(throttle)
		r.limiters[throttle] = l
	}
	return l
}

// Wait blocks on the limiter for a throttle value
func (r *Registry) Wait(ctx context.Context, throttle int) error {
	return r.Get(throttle).Wait(ctx)
}
