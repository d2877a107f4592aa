package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mgurran/servicebay/internal/domain"
)

type BookingRepo struct {
	store *Store
}

// Create inserts the booking and its lines. Lines go through a single batch.
func (r *BookingRepo) Create(ctx context.Context, b domain.Booking, lines []domain.BookingLine) error {
	const op = "postgres.BookingRepo.Create"

	db := r.store.handle(ctx)

	if _, err := db.Exec(ctx,
		`INSERT INTO bookings (id, owner_id, status, slot_date, slot_time, hold_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.OwnerID, b.Status, b.SlotDate, b.SlotTime, b.HoldID, b.CreatedAt,
	); err != nil {
		return wrapDBErr(op, err)
	}

	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(
			`INSERT INTO booking_lines (booking_id, service_id, engine_tier_id, unit_price_pence)
			 VALUES ($1, $2, $3, $4)`,
			b.ID, l.ServiceID, l.EngineTierID, l.UnitPricePence,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID, ownerID int64) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	var b domain.Booking
	err := r.store.handle(ctx).QueryRow(ctx,
		`SELECT id, owner_id, status, slot_date, slot_time, hold_id, reference, created_at
		 FROM bookings
		 WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&b.ID, &b.OwnerID, &b.Status, &b.SlotDate, &b.SlotTime, &b.HoldID, &b.Reference, &b.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

// GetForUpdate loads the booking row with a row lock, scoped to its owner.
func (r *BookingRepo) GetForUpdate(ctx context.Context, id uuid.UUID, ownerID int64) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.GetForUpdate"

	var b domain.Booking
	err := r.store.handle(ctx).QueryRow(ctx,
		`SELECT id, owner_id, status, slot_date, slot_time, hold_id, reference, created_at
		 FROM bookings
		 WHERE id = $1 AND owner_id = $2
		 FOR UPDATE`,
		id, ownerID,
	).Scan(&b.ID, &b.OwnerID, &b.Status, &b.SlotDate, &b.SlotTime, &b.HoldID, &b.Reference, &b.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

func (r *BookingRepo) Lines(ctx context.Context, bookingID uuid.UUID) ([]domain.BookingLine, error) {
	const op = "postgres.BookingRepo.Lines"

	rows, err := r.store.handle(ctx).Query(ctx,
		`SELECT id, booking_id, service_id, engine_tier_id, unit_price_pence
		 FROM booking_lines
		 WHERE booking_id = $1
		 ORDER BY id`,
		bookingID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var lines []domain.BookingLine
	for rows.Next() {
		var l domain.BookingLine
		if err := rows.Scan(&l.ID, &l.BookingID, &l.ServiceID, &l.EngineTierID, &l.UnitPricePence); err != nil {
			return nil, wrapDBErr(op, err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return lines, nil
}

// Confirm flips the booking to confirmed, records the reference and detaches
// the hold in one statement.
func (r *BookingRepo) Confirm(ctx context.Context, id uuid.UUID, reference string) error {
	const op = "postgres.BookingRepo.Confirm"

	tag, err := r.store.handle(ctx).Exec(ctx,
		`UPDATE bookings
		 SET status = $2, reference = $3, hold_id = NULL
		 WHERE id = $1`,
		id, domain.BookingConfirmed, reference,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

func (r *BookingRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error {
	const op = "postgres.BookingRepo.SetStatus"

	tag, err := r.store.handle(ctx).Exec(ctx,
		`UPDATE bookings SET status = $2, hold_id = NULL WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

// SlotOccupied reports whether a confirmed or held booking already owns the
// slot.
func (r *BookingRepo) SlotOccupied(ctx context.Context, date time.Time, t string) (bool, error) {
	const op = "postgres.BookingRepo.SlotOccupied"

	var occupied bool
	err := r.store.handle(ctx).QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE slot_date = $1 AND slot_time = $2 AND status IN ($3, $4)
		)`,
		date, t, domain.BookingConfirmed, domain.BookingHeld,
	).Scan(&occupied)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return occupied, nil
}

// BookedTimes returns the subset of times occupied on the date by confirmed
// or held bookings. Draft rows do not count.
func (r *BookingRepo) BookedTimes(ctx context.Context, date time.Time, times []string) ([]string, error) {
	const op = "postgres.BookingRepo.BookedTimes"

	rows, err := r.store.handle(ctx).Query(ctx,
		`SELECT slot_time FROM bookings
		 WHERE slot_date = $1 AND slot_time = ANY($2) AND status IN ($3, $4)`,
		date, times, domain.BookingConfirmed, domain.BookingHeld,
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
