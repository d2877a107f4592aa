package holds

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mgurran/servicebay/internal/clock"
	"github.com/mgurran/servicebay/internal/domain"
	"github.com/mgurran/servicebay/internal/lockstore"
	redisx "github.com/mgurran/servicebay/internal/redis"
)

const defaultHoldMinutes = 10

// SettingsSource supplies the live operator settings. It is consulted on
// every hold so TTL changes apply without a restart.
type SettingsSource interface {
	Get(ctx context.Context) (domain.Settings, error)
}

// SlotOccupancy answers whether a persisted booking already owns a slot.
type SlotOccupancy interface {
	SlotOccupied(ctx context.Context, date time.Time, t string) (bool, error)
}

// Service is the hold manager. All hold state lives in the lock store; the
// store's TTL eviction is the only expiry mechanism.
type Service struct {
	locks    lockstore.Store
	settings SettingsSource
	bookings SlotOccupancy
	clk      clock.Clock
}

func New(locks lockstore.Store, settings SettingsSource, bookings SlotOccupancy, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}

	return &Service{
		locks:    locks,
		settings: settings,
		bookings: bookings,
		clk:      clk,
	}
}

type holdPayload struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// CreateHold places an exclusive hold on the slot.
//
// Returns:
//   - *domain.Hold: the created hold with its expiry.
//   - error: holds.ErrSlotTaken when a hold or a confirmed/held booking
//     already occupies the slot.
func (s *Service) CreateHold(ctx context.Context, date time.Time, t string) (*domain.Hold, error) {
	const op = "service.holds.CreateHold"

	if _, err := time.Parse(domain.TimeLayout, t); err != nil {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidSlot)
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	minutes := cfg.HoldMinutes
	if minutes <= 0 {
		minutes = defaultHoldMinutes
	}
	ttl := time.Duration(minutes) * time.Minute

	dateKey := date.Format(domain.DateLayout)
	slotKey := redisx.KeySlot(dateKey, t)

	// Fast existence check before touching the database.
	if _, taken, err := s.locks.Get(ctx, slotKey); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	} else if taken {
		return nil, fmt.Errorf("%s:%w", op, ErrSlotTaken)
	}

	occupied, err := s.bookings.SlotOccupied(ctx, date, t)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if occupied {
		return nil, fmt.Errorf("%s:%w", op, ErrSlotTaken)
	}

	holdID := uuid.New()
	payload, _ := json.Marshal(holdPayload{Date: dateKey, Time: t})

	ok, err := s.locks.PutNX(ctx, ttl,
		lockstore.Entry{Key: redisx.KeyHold(holdID.String()), Value: string(payload)},
		lockstore.Entry{Key: slotKey, Value: holdID.String()},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !ok {
		// lost the race between the point read and the write
		return nil, fmt.Errorf("%s:%w", op, ErrSlotTaken)
	}

	return &domain.Hold{
		ID:        holdID,
		SlotDate:  dateKey,
		SlotTime:  t,
		ExpiresAt: s.clk.Now().Add(ttl),
	}, nil
}

// ReleaseHold removes the hold and its slot lock, returning the slot that
// was freed.
//
// Returns:
//   - error: holds.ErrHoldNotFound when the hold is absent (already released
//     or expired), which callers racing a natural expiry must treat as
//     non-fatal.
func (s *Service) ReleaseHold(ctx context.Context, holdID uuid.UUID) (*domain.Hold, error) {
	const op = "service.holds.ReleaseHold"

	holdKey := redisx.KeyHold(holdID.String())

	raw, ok, err := s.locks.Get(ctx, holdKey)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrHoldNotFound)
	}

	var p holdPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.locks.Delete(ctx, holdKey, redisx.KeySlot(p.Date, p.Time)); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &domain.Hold{ID: holdID, SlotDate: p.Date, SlotTime: p.Time}, nil
}

// HeldSlots returns the times currently under an active hold for the date,
// ascending. Expired entries are already gone from the store.
func (s *Service) HeldSlots(ctx context.Context, date time.Time) ([]string, error) {
	const op = "service.holds.HeldSlots"

	prefix := redisx.PrefixSlotDate(date.Format(domain.DateLayout))

	entries, err := s.locks.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	times := make([]string, 0, len(entries))
	for k := range entries {
		times = append(times, k[len(prefix):])
	}
	sort.Strings(times)

	return times, nil
}
