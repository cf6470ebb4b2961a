package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusForbidden, ErrorTypeAuth},
		{http.StatusUnauthorized, ErrorTypeAuth},
		{http.StatusBadGateway, ErrorTypeServerError},
		{http.StatusServiceUnavailable, ErrorTypeServerError},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, "boom")
			require.Error(t, err)
			assert.Equal(t, tt.expected, Classify(err))

			var typed *Error
			require.True(t, stderrors.As(err, &typed))
			assert.Equal(t, tt.status, typed.Code)
		})
	}

	assert.NoError(t, FromStatus(http.StatusOK, "fine"))
}

func TestClassifyWrapped(t *testing.T) {
	inner := New(ErrorTypeParsing, "bad payload", stderrors.New("unexpected token"))
	wrapped := fmt.Errorf("fetch page 3: %w", inner)

	assert.Equal(t, ErrorTypeParsing, Classify(wrapped))
	assert.Contains(t, wrapped.Error(), "unexpected token")
	assert.Equal(t, ErrorTypeNetwork, Classify(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.Equal(t, ErrorTypeUnknown, Classify(stderrors.New("mystery")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeNotFound))
	assert.False(t, IsRetryable(ErrorTypeAuth))
	assert.False(t, IsRetryable(ErrorTypeParsing))
}
