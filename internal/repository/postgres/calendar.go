package postgres

import (
	"context"
	"time"
)

// CalendarRepo reads exception-date closures and ad-hoc extra slots.
type CalendarRepo struct {
	store *Store
}

func (r *CalendarRepo) IsClosed(ctx context.Context, date time.Time) (bool, error) {
	const op = "postgres.CalendarRepo.IsClosed"

	var closed bool
	err := r.store.handle(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM closures WHERE closed_on = $1)`,
		date,
	).Scan(&closed)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return closed, nil
}

func (r *CalendarRepo) ExtraSlots(ctx context.Context, date time.Time) ([]string, error) {
	const op = "postgres.CalendarRepo.ExtraSlots"

	rows, err := r.store.handle(ctx).Query(ctx,
		`SELECT slot_time FROM extra_slots WHERE slot_date = $1`,
		date,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
