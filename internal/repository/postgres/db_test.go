package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func serializationFailure() error {
	return fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40001"})
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	require.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	require.True(t, IsRetryable(serializationFailure()))

	require.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	require.False(t, IsRetryable(errors.New("broken pipe")))
	require.False(t, IsRetryable(nil))
}

func TestRetryTx(t *testing.T) {
	t.Run("retries serialization failures until success", func(t *testing.T) {
		calls := 0
		err := retryTx(context.Background(), 3, func(_ context.Context) error {
			calls++
			if calls < 3 {
				return serializationFailure()
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		calls := 0
		err := retryTx(context.Background(), 3, func(_ context.Context) error {
			calls++
			return serializationFailure()
		})
		require.True(t, IsRetryable(err))
		require.Equal(t, 3, calls)
	})

	t.Run("non-retryable errors fail immediately", func(t *testing.T) {
		calls := 0
		sentinel := errors.New("constraint violated")
		err := retryTx(context.Background(), 3, func(_ context.Context) error {
			calls++
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)
		require.Equal(t, 1, calls)
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := retryTx(ctx, 5, func(_ context.Context) error {
			calls++
			cancel()
			return serializationFailure()
		})
		require.Error(t, err)
		require.Equal(t, 1, calls)
	})
}
