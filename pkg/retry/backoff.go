package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	errs "artgrab/pkg/errors"
)

// BackoffStrategy yields the delay before the given retry attempt
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0 to 1.0
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += rand.Float64()*2*jitter - jitter
	}

	return time.Duration(math.Max(delay, 0))
}

// ErrorTypeBackoff picks a strategy by error classification.
// Rate limiting backs off harder than transient network failures.
type ErrorTypeBackoff struct {
	RateLimit BackoffStrategy
	Server    BackoffStrategy
	Default   BackoffStrategy
}

// NewErrorTypeBackoff builds the strategies used for download retries
func NewErrorTypeBackoff(base time.Duration, multiplier float64) *ErrorTypeBackoff {
	if multiplier <= 1 {
		multiplier = 2
	}
	return &ErrorTypeBackoff{
		RateLimit: &ExponentialBackoff{BaseDelay: base * 5, MaxDelay: 2 * time.Minute, Multiplier: multiplier, JitterFactor: 0.3},
		Server:    &ExponentialBackoff{BaseDelay: base * 2, MaxDelay: time.Minute, Multiplier: multiplier, JitterFactor: 0.1},
		Default:   &ExponentialBackoff{BaseDelay: base, MaxDelay: 30 * time.Second, Multiplier: multiplier, JitterFactor: 0.2},
	}
}

// For returns the strategy for an error type
func (b *ErrorTypeBackoff) For(t errs.ErrorType) BackoffStrategy {
	switch t {
	case errs.ErrorTypeRateLimit:
		return b.RateLimit
	case errs.ErrorTypeServerError:
		return b.Server
	default:
		return b.Default
	}
}

// Wait sleeps for delay or until ctx is done
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
