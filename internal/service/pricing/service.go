package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/mgurran/servicebay/internal/domain"
	"github.com/mgurran/servicebay/internal/repository"
)

type Catalog interface {
	Service(ctx context.Context, id int64) (*domain.Service, error)
	Price(ctx context.Context, serviceID, engineTierID int64) (*domain.ServicePrice, error)
	CheapestPrice(ctx context.Context, serviceID int64) (*domain.ServicePrice, error)
	ListTiers(ctx context.Context) ([]domain.EngineTier, error)
	Tier(ctx context.Context, id int64) (*domain.EngineTier, error)
}

// Service resolves unit prices. For tiered services it runs an ordered chain
// of lookup attempts: the engine-size recommendation is trusted over a
// caller-requested tier, and any resolvable price beats a hard failure.
type Service struct {
	catalog Catalog
}

func New(catalog Catalog) *Service {
	return &Service{catalog: catalog}
}

type Request struct {
	ServiceID       int64
	RequestedTierID *int64
	EngineSizeCc    *int
}

// resolution is the outcome of one chain attempt; nil means "no price found
// here, try the next attempt".
type resolution struct {
	price *domain.ServicePrice
}

type attempt func(ctx context.Context) (*resolution, error)

// Resolve returns the unit price for the request.
//
// Returns:
//   - *domain.PriceQuote: the resolved price, tier and presentation code.
//   - error: pricing.ErrServiceNotFound when the service does not exist.
//   - error: pricing.ErrInvalidConfiguration when no path yields a price.
func (s *Service) Resolve(ctx context.Context, req Request) (*domain.PriceQuote, error) {
	const op = "service.pricing.Resolve"

	svc, err := s.catalog.Service(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrServiceNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if svc.PricingMode == domain.PricingFixed {
		if svc.FixedPricePence == nil || *svc.FixedPricePence <= 0 {
			return nil, fmt.Errorf("%s:%w", op, ErrInvalidConfiguration)
		}
		return &domain.PriceQuote{UnitPricePence: *svc.FixedPricePence}, nil
	}

	attempts := []attempt{
		s.byRecommendedTier(req),
		s.byRequestedTier(req),
		s.byCheapest(req),
	}

	var res *resolution
	for _, try := range attempts {
		r, err := try(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if r != nil {
			res = r
			break
		}
	}

	if res == nil {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidConfiguration)
	}

	tierID := res.price.EngineTierID
	quote := &domain.PriceQuote{
		UnitPricePence: res.price.AmountPence,
		EngineTierID:   &tierID,
	}

	// Presentation only: a missing code never aborts pricing.
	if tier, err := s.catalog.Tier(ctx, tierID); err == nil {
		quote.EngineTierCode = tierCode(tier)
	}

	return quote, nil
}

// byRecommendedTier buckets the engine size into a tier and looks up its
// price row. The recommendation reflects the vehicle's real capacity, so it
// outranks the caller-requested tier.
func (s *Service) byRecommendedTier(req Request) attempt {
	return func(ctx context.Context) (*resolution, error) {
		if req.EngineSizeCc == nil {
			return nil, nil
		}

		tiers, err := s.catalog.ListTiers(ctx)
		if err != nil {
			return nil, err
		}

		tier := RecommendTier(tiers, *req.EngineSizeCc)
		if tier == nil {
			return nil, nil
		}

		price, err := s.catalog.Price(ctx, req.ServiceID, tier.ID)
		if err != nil {
			return nil, err
		}
		if price == nil {
			return nil, nil
		}

		return &resolution{price: price}, nil
	}
}

func (s *Service) byRequestedTier(req Request) attempt {
	return func(ctx context.Context) (*resolution, error) {
		if req.RequestedTierID == nil {
			return nil, nil
		}

		price, err := s.catalog.Price(ctx, req.ServiceID, *req.RequestedTierID)
		if err != nil {
			return nil, err
		}
		if price == nil {
			return nil, nil
		}

		return &resolution{price: price}, nil
	}
}

// byCheapest is the last resort: a misconfigured or unmapped tier must never
// block checkout.
func (s *Service) byCheapest(req Request) attempt {
	return func(ctx context.Context) (*resolution, error) {
		price, err := s.catalog.CheapestPrice(ctx, req.ServiceID)
		if err != nil {
			return nil, err
		}
		if price == nil {
			return nil, nil
		}

		return &resolution{price: price}, nil
	}
}

// RecommendTier buckets an engine size into the lowest tier whose ceiling
// covers it, falling back to the unbounded top tier. Tiers must be ordered
// by sort order ascending.
func RecommendTier(tiers []domain.EngineTier, engineCc int) *domain.EngineTier {
	for i := range tiers {
		if tiers[i].MaxCc != nil && engineCc <= *tiers[i].MaxCc {
			return &tiers[i]
		}
	}

	if n := len(tiers); n > 0 && tiers[n-1].MaxCc == nil {
		return &tiers[n-1]
	}

	return nil
}

// tierCode derives a short presentation code: the leading word of the tier
// name upper-cased, or T<sortOrder> when the name gives nothing.
func tierCode(t *domain.EngineTier) *string {
	if t == nil {
		return nil
	}

	name := strings.TrimSpace(t.Name)
	var b strings.Builder
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	if b.Len() > 0 {
		code := b.String()
		return &code
	}

	if t.SortOrder > 0 {
		code := fmt.Sprintf("T%d", t.SortOrder)
		return &code
	}

	return nil
}
