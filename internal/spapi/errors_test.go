package spapi_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sellerops/amazon-connector/internal/spapi"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want spapi.Category
	}{
		{
			name: "nil",
			err:  nil,
			want: spapi.CategoryUnknown,
		},
		{
			name: "api error carries its category",
			err:  &spapi.APIError{Category: spapi.CategoryRateLimit, Status: 429},
			want: spapi.CategoryRateLimit,
		},
		{
			name: "wrapped api error",
			err:  fmt.Errorf("fetching page: %w", &spapi.APIError{Category: spapi.CategoryValidation, Status: 400}),
			want: spapi.CategoryValidation,
		},
		{
			name: "reconnect required is authentication",
			err:  spapi.ErrReconnectRequired,
			want: spapi.CategoryAuthentication,
		},
		{
			name: "deadline exceeded is network",
			err:  context.DeadlineExceeded,
			want: spapi.CategoryNetwork,
		},
		{
			name: "net error is network",
			err:  &net.DNSError{Err: "no such host", Name: "sellingpartnerapi-na.amazon.com"},
			want: spapi.CategoryNetwork,
		},
		{
			name: "plain error is unknown",
			err:  errors.New("something odd"),
			want: spapi.CategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, spapi.Classify(tt.err))
		})
	}
}

func TestAPIError_Retryable(t *testing.T) {
	t.Parallel()

	assert.False(t, (&spapi.APIError{Category: spapi.CategoryValidation}).Retryable())
	assert.True(t, (&spapi.APIError{Category: spapi.CategoryRateLimit}).Retryable())
	assert.True(t, (&spapi.APIError{Category: spapi.CategoryNetwork}).Retryable())
	assert.True(t, (&spapi.APIError{Category: spapi.CategoryServiceUnavailable}).Retryable())
}

func TestAPIError_ErrorString(t *testing.T) {
	t.Parallel()

	withCode := &spapi.APIError{
		Category: spapi.CategoryRateLimit,
		Status:   429,
		Code:     "TooManyRequests",
		Message:  "slow down",
	}
	assert.Contains(t, withCode.Error(), "TooManyRequests")
	assert.Contains(t, withCode.Error(), "429")

	wrapped := &spapi.APIError{
		Category: spapi.CategoryNetwork,
		Err:      errors.New("connection reset"),
	}
	assert.Contains(t, wrapped.Error(), "connection reset")
	assert.ErrorContains(t, fmt.Errorf("call: %w", wrapped), "network")
}
