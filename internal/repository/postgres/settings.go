package postgres

import (
	"context"
	"encoding/json"

	"github.com/mgurran/servicebay/internal/domain"
)

// SettingsRepo reads the single operator settings row. Callers fetch it per
// operation so runtime edits by administrators apply immediately.
type SettingsRepo struct {
	store *Store
}

func (r *SettingsRepo) Get(ctx context.Context) (domain.Settings, error) {
	const op = "postgres.SettingsRepo.Get"

	var (
		s        domain.Settings
		weekday  []byte
		saturday []byte
		sunday   []byte
	)

	err := r.store.handle(ctx).QueryRow(ctx,
		`SELECT hold_minutes, vat_rate_percent, reference_prefix, org_code,
		        weekday_slots, saturday_slots, sunday_slots
		 FROM settings
		 WHERE id = true`,
	).Scan(
		&s.HoldMinutes, &s.VATRatePercent, &s.ReferencePrefix, &s.OrgCode,
		&weekday, &saturday, &sunday,
	)
	if err != nil {
		return domain.Settings{}, wrapDBErr(op, err)
	}

	if err := json.Unmarshal(weekday, &s.SlotTemplates.Weekday); err != nil {
		return domain.Settings{}, wrapDBErr(op, err)
	}
	if err := json.Unmarshal(saturday, &s.SlotTemplates.Saturday); err != nil {
		return domain.Settings{}, wrapDBErr(op, err)
	}
	if err := json.Unmarshal(sunday, &s.SlotTemplates.Sunday); err != nil {
		return domain.Settings{}, wrapDBErr(op, err)
	}

	return s, nil
}
