package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mgurran/servicebay/internal/domain"
)

type fakeSettings struct {
	settings domain.Settings
}

func (f *fakeSettings) Get(_ context.Context) (domain.Settings, error) {
	return f.settings, nil
}

type fakeCalendar struct {
	closed map[string]bool
	extras map[string][]string
}

func (f *fakeCalendar) IsClosed(_ context.Context, date time.Time) (bool, error) {
	return f.closed[date.Format(domain.DateLayout)], nil
}

func (f *fakeCalendar) ExtraSlots(_ context.Context, date time.Time) ([]string, error) {
	return f.extras[date.Format(domain.DateLayout)], nil
}

type fakeBookings struct {
	booked  map[string][]string
	queries int
}

func (f *fakeBookings) BookedTimes(_ context.Context, date time.Time, times []string) ([]string, error) {
	f.queries++
	allowed := make(map[string]struct{}, len(times))
	for _, t := range times {
		allowed[t] = struct{}{}
	}
	var out []string
	for _, t := range f.booked[date.Format(domain.DateLayout)] {
		if _, ok := allowed[t]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeHolds struct {
	held    map[string][]string
	queries int
}

func (f *fakeHolds) HeldSlots(_ context.Context, date time.Time) ([]string, error) {
	f.queries++
	return f.held[date.Format(domain.DateLayout)], nil
}

// 2025-06-02 is a Monday, 2025-06-07 a Saturday, 2025-06-08 a Sunday.
var (
	monday   = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	saturday = time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC)
	sunday   = time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
)

func newService(settings domain.Settings, cal *fakeCalendar, bk *fakeBookings, hd *fakeHolds) *Service {
	if cal == nil {
		cal = &fakeCalendar{closed: map[string]bool{}, extras: map[string][]string{}}
	}
	if bk == nil {
		bk = &fakeBookings{booked: map[string][]string{}}
	}
	if hd == nil {
		hd = &fakeHolds{held: map[string][]string{}}
	}
	return New(&fakeSettings{settings: settings}, cal, bk, hd)
}

func weekdayTemplate(times ...string) domain.Settings {
	return domain.Settings{SlotTemplates: domain.SlotTemplates{Weekday: times}}
}

func times(t *testing.T, slots []domain.SlotAvailability) []string {
	t.Helper()
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		require.True(t, s.Available, "the engine never reports unavailable entries")
		out = append(out, s.Time)
	}
	return out
}

func TestGetDay(t *testing.T) {
	t.Parallel()

	t.Run("returns the full template when nothing blocks", func(t *testing.T) {
		svc := newService(weekdayTemplate("09:00", "10:00", "11:00"), nil, nil, nil)

		slots, err := svc.GetDay(context.Background(), monday)
		require.NoError(t, err)
		require.Equal(t, []string{"09:00", "10:00", "11:00"}, times(t, slots))
	})

	t.Run("a confirmed booking removes exactly its slot", func(t *testing.T) {
		bk := &fakeBookings{booked: map[string][]string{"2025-06-02": {"10:00"}}}
		svc := newService(weekdayTemplate("09:00", "10:00", "11:00"), nil, bk, nil)

		slots, err := svc.GetDay(context.Background(), monday)
		require.NoError(t, err)
		require.Equal(t, []string{"09:00", "11:00"}, times(t, slots))
	})

	t.Run("a held slot is removed as well", func(t *testing.T) {
		bk := &fakeBookings{booked: map[string][]string{"2025-06-02": {"10:00"}}}
		hd := &fakeHolds{held: map[string][]string{"2025-06-02": {"09:00"}}}
		svc := newService(weekdayTemplate("09:00", "10:00", "11:00"), nil, bk, hd)

		slots, err := svc.GetDay(context.Background(), monday)
		require.NoError(t, err)
		require.Equal(t, []string{"11:00"}, times(t, slots))
	})

	t.Run("closure overrides templates and extras", func(t *testing.T) {
		cal := &fakeCalendar{
			closed: map[string]bool{"2025-06-02": true},
			extras: map[string][]string{"2025-06-02": {"13:00"}},
		}
		bk := &fakeBookings{booked: map[string][]string{}}
		hd := &fakeHolds{held: map[string][]string{}}
		svc := newService(weekdayTemplate("09:00", "10:00"), cal, bk, hd)

		slots, err := svc.GetDay(context.Background(), monday)
		require.NoError(t, err)
		require.Empty(t, slots)
		require.Zero(t, bk.queries)
		require.Zero(t, hd.queries)
	})

	t.Run("saturday and sunday use their own templates", func(t *testing.T) {
		settings := domain.Settings{SlotTemplates: domain.SlotTemplates{
			Weekday:  []string{"09:00"},
			Saturday: []string{"10:30"},
			Sunday:   []string{},
		}}

		svc := newService(settings, nil, nil, nil)

		slots, err := svc.GetDay(context.Background(), saturday)
		require.NoError(t, err)
		require.Equal(t, []string{"10:30"}, times(t, slots))

		slots, err = svc.GetDay(context.Background(), sunday)
		require.NoError(t, err)
		require.Empty(t, slots)
	})

	t.Run("extra slots union into the candidate set", func(t *testing.T) {
		cal := &fakeCalendar{
			closed: map[string]bool{},
			extras: map[string][]string{"2025-06-02": {"17:30", "09:00"}},
		}
		svc := newService(weekdayTemplate("09:00", "10:00"), cal, nil, nil)

		slots, err := svc.GetDay(context.Background(), monday)
		require.NoError(t, err)
		require.Equal(t, []string{"09:00", "10:00", "17:30"}, times(t, slots))
	})

	t.Run("empty candidates skip booking and hold queries", func(t *testing.T) {
		bk := &fakeBookings{booked: map[string][]string{}}
		hd := &fakeHolds{held: map[string][]string{}}
		svc := newService(domain.Settings{}, nil, bk, hd)

		slots, err := svc.GetDay(context.Background(), monday)
		require.NoError(t, err)
		require.Empty(t, slots)
		require.Zero(t, bk.queries)
		require.Zero(t, hd.queries)
	})

	t.Run("output is sorted ascending regardless of input order", func(t *testing.T) {
		svc := newService(weekdayTemplate("11:00", "09:00", "10:00"), nil, nil, nil)

		slots, err := svc.GetDay(context.Background(), monday)
		require.NoError(t, err)
		require.Equal(t, []string{"09:00", "10:00", "11:00"}, times(t, slots))
	})
}
