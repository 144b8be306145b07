package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/moneyplanner/internal/service"
)

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry(t *testing.T) {
	t.Run("retries rate limits until success", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return ErrPlaidRateLimit
			}
			return nil
		}, fastRetry(5))
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent errors return immediately", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return ErrInvalidInput
		}, fastRetry(5))
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return &RetryableError{Err: ErrPlaidConnection, Retryable: true}
		}, fastRetry(2))
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops when the context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetry(ctx, func() error {
			return ErrPlaidRateLimit
		}, fastRetry(3))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestErrorHelpers(t *testing.T) {
	err := NotFound("budget item", "b-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `"b-1"`)

	err = FeatureLocked("iin_rules")
	assert.ErrorIs(t, err, ErrFeatureLocked)
	assert.Contains(t, err.Error(), "iin_rules")

	err = NewUserError("Amount must be positive", ErrInvalidInput)
	var userErr *UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "Amount must be positive", userErr.UserMessage)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.False(t, IsRetryable(ErrNotFound))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
}

func TestSetupLogger(t *testing.T) {
	orig := slog.Default()
	defer slog.SetDefault(orig)

	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, SetupLogger(&buf, slog.LevelInfo, "json"))
	slog.Info("income logged", "amount", 2500)
	assert.Contains(t, buf.String(), `"msg":"income logged"`)

	assert.Error(t, SetupLogger(&buf, slog.LevelInfo, "xml"))
}
