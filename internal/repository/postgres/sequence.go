package postgres

import (
	"context"
)

// SequenceRepo mints per-(purpose, year) counters for booking references.
type SequenceRepo struct {
	store *Store
}

// Next atomically increments and returns the counter. The upsert makes the
// first call of a year create the row, so concurrent confirmations never see
// a duplicate value.
func (r *SequenceRepo) Next(ctx context.Context, purpose string, year int) (int64, error) {
	const op = "postgres.SequenceRepo.Next"

	var counter int64
	err := r.store.handle(ctx).QueryRow(ctx,
		`INSERT INTO sequences (purpose, year, counter)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (purpose, year)
		 DO UPDATE SET counter = sequences.counter + 1
		 RETURNING counter`,
		purpose, year,
	).Scan(&counter)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return counter, nil
}
