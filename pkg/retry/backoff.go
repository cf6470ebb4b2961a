package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy decides how long to pause after the given consecutive
// failure (attempt starts at 1)
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with optional jitter
type ExponentialBackoff struct {
	// BaseDelay is the pause after the first failure
	BaseDelay time.Duration
	// MaxDelay caps every pause
	MaxDelay time.Duration
	// Multiplier is the factor by which the pause grows per failure
	Multiplier float64
	// JitterFactor adds randomness (0.0 to 1.0)
	JitterFactor float64
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	multiplier := eb.Multiplier
	if multiplier < 1 {
		multiplier = 2
	}

	delay := float64(eb.BaseDelay) * math.Pow(multiplier, float64(attempt-1))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ConstantBackoff pauses for the same duration after every failure
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// New builds the named strategy. "constant" pauses for base after every
// failure; "exponential" doubles the pause up to maxDelay.
func New(name string, base, maxDelay time.Duration) (BackoffStrategy, error) {
	switch name {
	case "", "constant":
		return &ConstantBackoff{Delay: base}, nil
	case "exponential":
		return &ExponentialBackoff{
			BaseDelay:    base,
			MaxDelay:     maxDelay,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		}, nil
	default:
		return nil, fmt.Errorf("unknown backoff strategy %q", name)
	}
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
