package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{429, ErrorTypeRateLimit},
		{403, ErrorTypeAuth},
		{404, ErrorTypeNotFound},
		{502, ErrorTypeServerError},
		{418, ErrorTypeDownload},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := FromStatus(tt.code, "fetch failed")
			assert.Equal(t, tt.want, err.Type)
			assert.Equal(t, tt.code, err.Code)
		})
	}
}

func TestTypeOfWrapped(t *testing.T) {
	base := Wrap(ErrorTypeTimeout, "part 2", context.DeadlineExceeded)
	wrapped := fmt.Errorf("download: %w", base)

	assert.Equal(t, ErrorTypeTimeout, TypeOf(wrapped))
	assert.True(t, Is(wrapped, ErrorTypeTimeout))
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
	assert.Equal(t, ErrorTypeUnknown, TypeOf(fmt.Errorf("plain")))
	assert.False(t, Is(nil, ErrorTypeTimeout))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "selector_miss error: anchor", New(ErrorTypeSelectorMiss, "anchor").Error())
	assert.Equal(t, "server_error error (code 503): busy", FromStatus(503, "busy").Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeMalformedData))
	assert.False(t, IsRetryable(ErrorTypeNavigationRace))

	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(599))
	assert.False(t, IsRetryableStatusCode(404))
	assert.False(t, IsRetryableStatusCode(400))
}
