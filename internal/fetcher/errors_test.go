package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusMultipleChoices, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := ClassifyHTTPError(tt.status)
			assert.Equal(t, ErrorTypeHTTP, err.Type)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Contains(t, err.Error(), fmt.Sprintf("status %d", tt.status))
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("account: %w", NewMalformedError("pool_id not found in response"))
	assert.Equal(t, ErrorTypeMalformed, KindOf(wrapped))
	assert.Equal(t, ErrorTypeHTTP, KindOf(NewHTTPError(404, "nope")))
	assert.Equal(t, ErrorTypeNetwork, KindOf(NewNetworkError(errors.New("refused"))))
	assert.Equal(t, ErrorTypeNetwork, KindOf(errors.New("plain")))
}

func TestFetchError_Unwrap(t *testing.T) {
	err := NewNetworkError(context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "network error: network request failed: context deadline exceeded", err.Error())
}

func TestOutcome(t *testing.T) {
	fail := Failure("k", NewMalformedError("x"))
	assert.False(t, fail.OK())
	assert.Equal(t, ErrorTypeMalformed, fail.Kind())

	ok := Outcome{Key: "k"}
	assert.True(t, ok.OK())
	assert.Equal(t, ErrorType(""), ok.Kind())
}
