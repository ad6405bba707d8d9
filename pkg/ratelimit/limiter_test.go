package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurstAndRefill(t *testing.T) {
	tb := NewTokenBucket(2, 60)
	clock := time.Now()
	tb.now = func() time.Time { return clock }

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	clock = clock.Add(time.Second)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	tb.Reset()
	clock = time.Now()
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, tb.Wait(ctx), context.DeadlineExceeded)
}
