package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type txKey struct{}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

const maxTxAttempts = 3

// WithTx runs fn inside a serializable transaction carried on the context.
// Repository methods called with that context join the transaction; a nested
// call reuses the transaction already in flight. Serialization failures and
// deadlocks restart the whole transaction, so fn must be safe to re-run.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	return retryTx(ctx, maxTxAttempts, func(ctx context.Context) error {
		return s.runTx(ctx, fn)
	})
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDBErr("postgres.Store.WithTx", fmt.Errorf("commit: %w", err))
	}

	return nil
}

// retryTx re-runs run while it fails with a retryable serialization error,
// up to attempts times. The last error wins when attempts are exhausted.
func retryTx(ctx context.Context, attempts int, run func(ctx context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = run(ctx); err == nil || !IsRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

func (s *Store) handle(ctx context.Context) DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

func (s *Store) Bookings() *BookingRepo   { return &BookingRepo{store: s} }
func (s *Store) Catalog() *CatalogRepo    { return &CatalogRepo{store: s} }
func (s *Store) Calendar() *CalendarRepo  { return &CalendarRepo{store: s} }
func (s *Store) Sequences() *SequenceRepo { return &SequenceRepo{store: s} }
func (s *Store) Settings() *SettingsRepo  { return &SettingsRepo{store: s} }
