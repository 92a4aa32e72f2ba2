package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindOther},
		{"fetch rate limited", NewFetchError(KindRateLimited, "yahoo", nil), KindRateLimited},
		{"wrapped fetch transport", fmt.Errorf("load: %w", NewFetchError(KindTransport, "yahoo", errors.New("reset"))), KindTransport},
		{"sentinel no data", fmt.Errorf("chart: %w", ErrNoData), KindNoData},
		{"plain", errors.New("boom"), KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestFetchErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("history: %w", NewFetchError(KindRateLimited, "yahoo", errors.New("status 429")))
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.False(t, errors.Is(err, ErrTransport))
	assert.Contains(t, err.Error(), "rate_limited")
}

func TestKindRetryable(t *testing.T) {
	assert.True(t, KindRateLimited.Retryable())
	assert.True(t, KindTransport.Retryable())
	assert.False(t, KindNoData.Retryable())
	assert.False(t, KindOther.Retryable())
}

func TestValidationErrorUnwrapsToInvalidInput(t *testing.T) {
	err := NewValidationError("option_price", 0, "must be positive")
	require.True(t, errors.Is(err, ErrInvalidInput))

	var ve *ValidationError
	require.True(t, As(err, &ve))
	assert.Equal(t, "option_price", ve.Field)
}
