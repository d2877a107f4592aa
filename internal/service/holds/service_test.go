package holds

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mgurran/servicebay/internal/clock"
	"github.com/mgurran/servicebay/internal/domain"
	"github.com/mgurran/servicebay/internal/lockstore"
)

// memLockStore is an in-memory lockstore.Store with the same atomicity
// guarantees as the Redis implementation.
type memLockStore struct {
	mu       sync.Mutex
	entries  map[string]string
	lastTTL  time.Duration
	putCalls int
}

func newMemLockStore() *memLockStore {
	return &memLockStore{entries: map[string]string{}}
}

func (m *memLockStore) PutNX(_ context.Context, ttl time.Duration, entries ...lockstore.Entry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.putCalls++
	for _, e := range entries {
		if _, ok := m.entries[e.Key]; ok {
			return false, nil
		}
	}
	for _, e := range entries {
		m.entries[e.Key] = e.Value
	}
	m.lastTTL = ttl
	return true, nil
}

func (m *memLockStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memLockStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *memLockStore) ScanPrefix(_ context.Context, prefix string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[string]string{}
	for k, v := range m.entries {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

type fakeSettings struct {
	holdMinutes int
}

func (f *fakeSettings) Get(_ context.Context) (domain.Settings, error) {
	return domain.Settings{HoldMinutes: f.holdMinutes}, nil
}

type fakeOccupancy struct {
	occupied map[string]bool
}

func (f *fakeOccupancy) SlotOccupied(_ context.Context, date time.Time, t string) (bool, error) {
	return f.occupied[date.Format(domain.DateLayout)+" "+t], nil
}

var testDay = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func newService(locks lockstore.Store, holdMinutes int, occ *fakeOccupancy) *Service {
	if occ == nil {
		occ = &fakeOccupancy{occupied: map[string]bool{}}
	}
	return New(locks, &fakeSettings{holdMinutes: holdMinutes}, occ, clock.NewFixed(testDay))
}

func TestCreateHold(t *testing.T) {
	t.Run("creates hold with configured ttl", func(t *testing.T) {
		store := newMemLockStore()
		svc := newService(store, 15, nil)

		hold, err := svc.CreateHold(context.Background(), testDay, "09:00")
		require.NoError(t, err)
		require.Equal(t, "2025-06-02", hold.SlotDate)
		require.Equal(t, "09:00", hold.SlotTime)
		require.Equal(t, testDay.Add(15*time.Minute), hold.ExpiresAt)
		require.Equal(t, 15*time.Minute, store.lastTTL)

		// Both directions of the mapping must exist in the store.
		require.Len(t, store.entries, 2)
	})

	t.Run("falls back to default ttl when unconfigured", func(t *testing.T) {
		store := newMemLockStore()
		svc := newService(store, 0, nil)

		hold, err := svc.CreateHold(context.Background(), testDay, "09:00")
		require.NoError(t, err)
		require.Equal(t, testDay.Add(defaultHoldMinutes*time.Minute), hold.ExpiresAt)
	})

	t.Run("rejects malformed slot time", func(t *testing.T) {
		svc := newService(newMemLockStore(), 10, nil)

		_, err := svc.CreateHold(context.Background(), testDay, "9am")
		require.ErrorIs(t, err, ErrInvalidSlot)
	})

	t.Run("conflicts with an existing hold", func(t *testing.T) {
		store := newMemLockStore()
		svc := newService(store, 10, nil)

		_, err := svc.CreateHold(context.Background(), testDay, "09:00")
		require.NoError(t, err)

		_, err = svc.CreateHold(context.Background(), testDay, "09:00")
		require.ErrorIs(t, err, ErrSlotTaken)

		// The point read short-circuits before a second write attempt.
		require.Equal(t, 1, store.putCalls)
	})

	t.Run("conflicts with a persisted booking", func(t *testing.T) {
		occ := &fakeOccupancy{occupied: map[string]bool{"2025-06-02 10:00": true}}
		svc := newService(newMemLockStore(), 10, occ)

		_, err := svc.CreateHold(context.Background(), testDay, "10:00")
		require.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("different slots do not conflict", func(t *testing.T) {
		store := newMemLockStore()
		svc := newService(store, 10, nil)

		_, err := svc.CreateHold(context.Background(), testDay, "09:00")
		require.NoError(t, err)
		_, err = svc.CreateHold(context.Background(), testDay, "10:00")
		require.NoError(t, err)
	})

	t.Run("concurrent attempts yield exactly one winner", func(t *testing.T) {
		store := newMemLockStore()
		svc := newService(store, 10, nil)

		const workers = 16
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.CreateHold(context.Background(), testDay, "09:00")
			}(i)
		}
		wg.Wait()

		won := 0
		for _, err := range errs {
			if err == nil {
				won++
				continue
			}
			require.ErrorIs(t, err, ErrSlotTaken)
		}
		require.Equal(t, 1, won)
	})
}

func TestReleaseHold(t *testing.T) {
	t.Run("releases both entries and reports the freed slot", func(t *testing.T) {
		store := newMemLockStore()
		svc := newService(store, 10, nil)

		hold, err := svc.CreateHold(context.Background(), testDay, "09:00")
		require.NoError(t, err)

		released, err := svc.ReleaseHold(context.Background(), hold.ID)
		require.NoError(t, err)
		require.Equal(t, hold.ID, released.ID)
		require.Equal(t, "2025-06-02", released.SlotDate)
		require.Equal(t, "09:00", released.SlotTime)
		require.Empty(t, store.entries)

		// The slot is immediately holdable again.
		_, err = svc.CreateHold(context.Background(), testDay, "09:00")
		require.NoError(t, err)
	})

	t.Run("unknown hold reports not found", func(t *testing.T) {
		svc := newService(newMemLockStore(), 10, nil)

		_, err := svc.ReleaseHold(context.Background(), uuid.New())
		require.ErrorIs(t, err, ErrHoldNotFound)
	})

	t.Run("double release reports not found", func(t *testing.T) {
		svc := newService(newMemLockStore(), 10, nil)

		hold, err := svc.CreateHold(context.Background(), testDay, "09:00")
		require.NoError(t, err)

		_, err = svc.ReleaseHold(context.Background(), hold.ID)
		require.NoError(t, err)
		_, err = svc.ReleaseHold(context.Background(), hold.ID)
		require.ErrorIs(t, err, ErrHoldNotFound)
	})
}

func TestHeldSlots(t *testing.T) {
	store := newMemLockStore()
	svc := newService(store, 10, nil)

	otherDay := testDay.AddDate(0, 0, 1)
	for _, slot := range []struct {
		date time.Time
		t    string
	}{
		{testDay, "11:00"},
		{testDay, "09:00"},
		{otherDay, "10:00"},
	} {
		_, err := svc.CreateHold(context.Background(), slot.date, slot.t)
		require.NoError(t, err)
	}

	held, err := svc.HeldSlots(context.Background(), testDay)
	require.NoError(t, err)
	require.Equal(t, []string{"09:00", "11:00"}, held)

	held, err = svc.HeldSlots(context.Background(), otherDay)
	require.NoError(t, err)
	require.Equal(t, []string{"10:00"}, held)
}
