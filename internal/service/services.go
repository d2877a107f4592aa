package service

import (
	"log/slog"

	"github.com/mgurran/servicebay/internal/clock"
	"github.com/mgurran/servicebay/internal/lockstore"
	redisx "github.com/mgurran/servicebay/internal/redis"
	postgresrepo "github.com/mgurran/servicebay/internal/repository/postgres"
	redisrepo "github.com/mgurran/servicebay/internal/repository/redis"
	"github.com/mgurran/servicebay/internal/service/availability"
	"github.com/mgurran/servicebay/internal/service/booking"
	"github.com/mgurran/servicebay/internal/service/holds"
	"github.com/mgurran/servicebay/internal/service/pricing"
)

type Services struct {
	Holds        *holds.Service
	Availability *availability.Service
	Pricing      *pricing.Service
	Booking      *booking.Service
}

type Deps struct {
	Store     *postgresrepo.Store
	Locks     lockstore.Store
	Cache     *redisrepo.Cache
	PubSub    *redisx.SlotsPubSub
	Documents booking.DocumentIssuer
	Notifier  booking.Notifier
	Clock     clock.Clock
	Logger    *slog.Logger
}

func NewServices(d Deps) *Services {
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}

	holdSvc := holds.New(d.Locks, d.Store.Settings(), d.Store.Bookings(), d.Clock)
	pricingSvc := pricing.New(d.Store.Catalog())

	return &Services{
		Holds: holdSvc,
		Availability: availability.New(
			d.Store.Settings(),
			d.Store.Calendar(),
			d.Store.Bookings(),
			holdSvc,
		),
		Pricing: pricingSvc,
		Booking: booking.New(booking.Deps{
			Repo:      d.Store.Bookings(),
			Sequences: d.Store.Sequences(),
			Settings:  d.Store.Settings(),
			Prices:    pricingSvc,
			Holds:     holdSvc,
			Documents: d.Documents,
			Notifier:  d.Notifier,
			Cache:     d.Cache,
			Events:    d.PubSub,
			Tx:        d.Store,
			Clock:     d.Clock,
			Logger:    d.Logger,
		}),
	}
}
