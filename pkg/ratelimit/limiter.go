package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates outgoing transfers
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming a slot if so
	Allow() bool
	// Wait blocks until a slot is available or ctx is done
	Wait(ctx context.Context) error
	// Reset restores full capacity
	Reset()
}

// TokenBucket refills its tokens continuously
type TokenBucket struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	burst   int
	every   rate.Limit
	now     func() time.Time
}

// NewTokenBucket creates a bucket that allows burst requests at once and
// refills requestsPerMinute tokens per minute.
func NewTokenBucket(burst, requestsPerMinute int) *TokenBucket {
	every := rate.Limit(float64(requestsPerMinute) / 60)
	return &TokenBucket{
		limiter: rate.NewLimiter(every, burst),
		burst:   burst,
		every:   every,
		now:     time.Now,
	}
}

func (tb *TokenBucket) current() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter
}

func (tb *TokenBucket) Allow() bool {
	return tb.current().AllowN(tb.now(), 1)
}

// Wait blocks for a token. When none can arrive before ctx's deadline it
// blocks until the deadline so callers see ctx.Err().
func (tb *TokenBucket) Wait(ctx context.Context) error {
	err := tb.current().Wait(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, ok := ctx.Deadline(); ok {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.limiter = rate.NewLimiter(tb.every, tb.burst)
}
