package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mgurran/servicebay/internal/domain"
)

type SettingsSource interface {
	Get(ctx context.Context) (domain.Settings, error)
}

type Calendar interface {
	IsClosed(ctx context.Context, date time.Time) (bool, error)
	ExtraSlots(ctx context.Context, date time.Time) ([]string, error)
}

type BookingTimes interface {
	BookedTimes(ctx context.Context, date time.Time, times []string) ([]string, error)
}

type HoldLister interface {
	HeldSlots(ctx context.Context, date time.Time) ([]string, error)
}

// Service computes the bookable times for a date by merging slot templates,
// extra slots, closures, live bookings and active holds.
type Service struct {
	settings SettingsSource
	calendar Calendar
	bookings BookingTimes
	holds    HoldLister
}

func New(settings SettingsSource, calendar Calendar, bookings BookingTimes, holds HoldLister) *Service {
	return &Service{
		settings: settings,
		calendar: calendar,
		bookings: bookings,
		holds:    holds,
	}
}

// GetDay returns the available slots for the date, ascending by time.
// Unavailable times are omitted, never reported as unavailable entries.
func (s *Service) GetDay(ctx context.Context, date time.Time) ([]domain.SlotAvailability, error) {
	const op = "service.availability.GetDay"

	// Closures are absolute overrides.
	closed, err := s.calendar.IsClosed(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if closed {
		return []domain.SlotAvailability{}, nil
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	candidates := make(map[string]struct{})
	for _, t := range cfg.TemplateFor(date) {
		candidates[t] = struct{}{}
	}

	extras, err := s.calendar.ExtraSlots(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	for _, t := range extras {
		candidates[t] = struct{}{}
	}

	if len(candidates) == 0 {
		return []domain.SlotAvailability{}, nil
	}

	times := make([]string, 0, len(candidates))
	for t := range candidates {
		times = append(times, t)
	}

	booked, err := s.bookings.BookedTimes(ctx, date, times)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	for _, t := range booked {
		delete(candidates, t)
	}

	held, err := s.holds.HeldSlots(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	for _, t := range held {
		delete(candidates, t)
	}

	free := make([]string, 0, len(candidates))
	for t := range candidates {
		free = append(free, t)
	}
	sort.Strings(free)

	out := make([]domain.SlotAvailability, 0, len(free))
	for _, t := range free {
		out = append(out, domain.SlotAvailability{Time: t, Available: true})
	}

	return out, nil
}
