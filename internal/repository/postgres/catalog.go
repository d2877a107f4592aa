package postgres

import (
	"context"

	"github.com/mgurran/servicebay/internal/domain"
)

// CatalogRepo reads the service catalog: services, engine tiers and the
// (service, tier) price grid. The catalog is administered elsewhere; this
// side only ever reads it.
type CatalogRepo struct {
	store *Store
}

func (r *CatalogRepo) Service(ctx context.Context, id int64) (*domain.Service, error) {
	const op = "postgres.CatalogRepo.Service"

	var s domain.Service
	err := r.store.handle(ctx).QueryRow(ctx,
		`SELECT id, name, pricing_mode, fixed_price_pence
		 FROM services WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Name, &s.PricingMode, &s.FixedPricePence)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &s, nil
}

// Price returns the price row for (service, tier), or nil when no row is
// mapped. Absence is a normal outcome for the resolver chain, not an error.
func (r *CatalogRepo) Price(ctx context.Context, serviceID, engineTierID int64) (*domain.ServicePrice, error) {
	const op = "postgres.CatalogRepo.Price"

	rows, err := r.store.handle(ctx).Query(ctx,
		`SELECT service_id, engine_tier_id, amount_pence
		 FROM service_prices
		 WHERE service_id = $1 AND engine_tier_id = $2`,
		serviceID, engineTierID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, wrapDBErr(op, err)
		}
		return nil, nil
	}

	var p domain.ServicePrice
	if err := rows.Scan(&p.ServiceID, &p.EngineTierID, &p.AmountPence); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &p, nil
}

// CheapestPrice returns the lowest-priced row for the service across all
// tiers, or nil when the service has no price rows at all.
func (r *CatalogRepo) CheapestPrice(ctx context.Context, serviceID int64) (*domain.ServicePrice, error) {
	const op = "postgres.CatalogRepo.CheapestPrice"

	rows, err := r.store.handle(ctx).Query(ctx,
		`SELECT service_id, engine_tier_id, amount_pence
		 FROM service_prices
		 WHERE service_id = $1
		 ORDER BY amount_pence ASC
		 LIMIT 1`,
		serviceID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, wrapDBErr(op, err)
		}
		return nil, nil
	}

	var p domain.ServicePrice
	if err := rows.Scan(&p.ServiceID, &p.EngineTierID, &p.AmountPence); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &p, nil
}

// ListTiers returns every engine tier ordered by sort_order ascending.
func (r *CatalogRepo) ListTiers(ctx context.Context) ([]domain.EngineTier, error) {
	const op = "postgres.CatalogRepo.ListTiers"

	rows, err := r.store.handle(ctx).Query(ctx,
		`SELECT id, name, sort_order, max_cc
		 FROM engine_tiers
		 ORDER BY sort_order ASC`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var tiers []domain.EngineTier
	for rows.Next() {
		var t domain.EngineTier
		if err := rows.Scan(&t.ID, &t.Name, &t.SortOrder, &t.MaxCc); err != nil {
			return nil, wrapDBErr(op, err)
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return tiers, nil
}

func (r *CatalogRepo) Tier(ctx context.Context, id int64) (*domain.EngineTier, error) {
	const op = "postgres.CatalogRepo.Tier"

	var t domain.EngineTier
	err := r.store.handle(ctx).QueryRow(ctx,
		`SELECT id, name, sort_order, max_cc FROM engine_tiers WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.SortOrder, &t.MaxCc)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}
