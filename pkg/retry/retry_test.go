package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	errs "artgrab/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedBackoff time.Duration

func (f fixedBackoff) NextDelay(int) time.Duration { return time.Duration(f) }

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{9, time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
	}
}

func TestDoSucceedsAfterTransientErrors(t *testing.T) {
	var calls int32
	cfg := &Config{MaxAttempts: 4, Backoff: fixedBackoff(time.Millisecond)}

	err := Do(context.Background(), func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errs.New(errs.ErrorTypeNetwork, "reset")
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoStopsOnPermanentError(t *testing.T) {
	var calls int32
	cfg := &Config{MaxAttempts: 5, Backoff: fixedBackoff(time.Millisecond)}

	err := Do(context.Background(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errs.FromStatus(404, "gone")
	}, cfg)

	assert.True(t, errs.Is(err, errs.ErrorTypeNotFound))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoExhaustsAttempts(t *testing.T) {
	var retries []int
	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     fixedBackoff(time.Millisecond),
		OnRetry:     func(attempt int, err error, d time.Duration) { retries = append(retries, attempt) },
	}

	err := Do(context.Background(), func(ctx context.Context) error {
		return errs.FromStatus(503, "busy")
	}, cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
	assert.True(t, errs.Is(err, errs.ErrorTypeServerError))
	assert.Equal(t, []int{1, 2, 3}, retries)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxAttempts: 0, Backoff: fixedBackoff(time.Hour)}

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, func(ctx context.Context) error {
			return errs.New(errs.ErrorTypeNetwork, "down")
		}, cfg)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeMalformedData, "bad")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, "slow down")))
	assert.True(t, DefaultRetryIf(errors.New("unclassified")))
}

func TestErrorTypeBackoff(t *testing.T) {
	b := NewErrorTypeBackoff(100*time.Millisecond, 2)
	assert.Same(t, b.RateLimit, b.For(errs.ErrorTypeRateLimit))
	assert.Same(t, b.Server, b.For(errs.ErrorTypeServerError))
	assert.Same(t, b.Default, b.For(errs.ErrorTypeNetwork))
}

func TestDoWithResult(t *testing.T) {
	got, err := DoWithResult(context.Background(), func(ctx context.Context) (string, error) {
		return "ok", nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
