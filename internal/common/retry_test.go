package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmather/budgetd/internal/service"
)

func fastOpts() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetry_SucceedsAfterConflicts(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return ErrConflict
		}
		return nil
	}, fastOpts())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_NonRetryableAbortsImmediately(t *testing.T) {
	permanent := errors.New("validation failed")
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return permanent
	}, fastOpts())
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_ExhaustionWrapsMaxRetries(t *testing.T) {
	err := WithRetry(context.Background(), func() error {
		return ErrConflict
	}, fastOpts())
	assert.ErrorIs(t, err, ErrMaxRetries)
}

func TestWithRetry_ContextCancelStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithRetry(ctx, func() error {
		return ErrConflict
	}, fastOpts())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrConflict))
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: true}))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(ErrNotFound))
}
