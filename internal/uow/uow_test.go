package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// retryingTx re-runs fn like the postgres store does on a serialization
// failure, then commits.
type retryingTx struct {
	attempts int
}

func (r *retryingTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for i := 0; i < r.attempts; i++ {
		if err = fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

type failingTx struct{}

func (failingTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	return errors.New("commit failed")
}

func TestDo(t *testing.T) {
	t.Run("hooks run once per commit even when the tx restarts", func(t *testing.T) {
		u := New(&retryingTx{attempts: 3})

		fired := 0
		err := u.Do(context.Background(), func(_ context.Context, after func(AfterCommit)) error {
			after(func(_ context.Context) { fired++ })
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, fired)
	})

	t.Run("hooks never run when the commit fails", func(t *testing.T) {
		u := New(failingTx{})

		fired := 0
		err := u.Do(context.Background(), func(_ context.Context, after func(AfterCommit)) error {
			after(func(_ context.Context) { fired++ })
			return nil
		})
		require.Error(t, err)
		require.Zero(t, fired)
	})

	t.Run("hooks registered by a failed fn never run", func(t *testing.T) {
		u := New(&retryingTx{attempts: 1})

		fired := 0
		boom := errors.New("boom")
		err := u.Do(context.Background(), func(_ context.Context, after func(AfterCommit)) error {
			after(func(_ context.Context) { fired++ })
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Zero(t, fired)
	})
}
