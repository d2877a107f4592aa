package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mgurran/servicebay/internal/clock"
	"github.com/mgurran/servicebay/internal/domain"
	"github.com/mgurran/servicebay/internal/repository"
	"github.com/mgurran/servicebay/internal/service/holds"
	"github.com/mgurran/servicebay/internal/service/pricing"
	"github.com/mgurran/servicebay/internal/uow"
)

const sequencePurpose = "booking"

type Repository interface {
	Create(ctx context.Context, b domain.Booking, lines []domain.BookingLine) error
	Get(ctx context.Context, id uuid.UUID, ownerID int64) (*domain.Booking, error)
	GetForUpdate(ctx context.Context, id uuid.UUID, ownerID int64) (*domain.Booking, error)
	Lines(ctx context.Context, bookingID uuid.UUID) ([]domain.BookingLine, error)
	Confirm(ctx context.Context, id uuid.UUID, reference string) error
	SetStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error
}

type Sequences interface {
	Next(ctx context.Context, purpose string, year int) (int64, error)
}

type SettingsSource interface {
	Get(ctx context.Context) (domain.Settings, error)
}

type PriceResolver interface {
	Resolve(ctx context.Context, req pricing.Request) (*domain.PriceQuote, error)
}

type HoldReleaser interface {
	ReleaseHold(ctx context.Context, holdID uuid.UUID) (*domain.Hold, error)
}

// DocumentIssuer and Notifier are downstream collaborators. Their failures
// never affect the confirmation outcome.
type DocumentIssuer interface {
	IssueConfirmation(ctx context.Context, summary domain.ConfirmationSummary) error
}

type Notifier interface {
	BookingConfirmed(ctx context.Context, summary domain.ConfirmationSummary) error
}

// SlotInvalidator drops cached availability and announces the change.
type SlotInvalidator interface {
	InvalidateDate(ctx context.Context, date string) error
}

type SlotEvents interface {
	PublishSlotsChanged(ctx context.Context, date string) error
}

// Service drives the booking lifecycle: draft creation with prices fixed at
// creation time, and the confirmation transaction that mints references.
type Service struct {
	repo      Repository
	sequences Sequences
	settings  SettingsSource
	prices    PriceResolver
	holds     HoldReleaser
	documents DocumentIssuer
	notifier  Notifier
	cache     SlotInvalidator
	events    SlotEvents
	uow       *uow.UoW
	clk       clock.Clock
	log       *slog.Logger
}

type Deps struct {
	Repo      Repository
	Sequences Sequences
	Settings  SettingsSource
	Prices    PriceResolver
	Holds     HoldReleaser
	Documents DocumentIssuer
	Notifier  Notifier
	Cache     SlotInvalidator
	Events    SlotEvents
	Tx        uow.TxRunner
	Clock     clock.Clock
	Logger    *slog.Logger
}

func New(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	return &Service{
		repo:      d.Repo,
		sequences: d.Sequences,
		settings:  d.Settings,
		prices:    d.Prices,
		holds:     d.Holds,
		documents: d.Documents,
		notifier:  d.Notifier,
		cache:     d.Cache,
		events:    d.Events,
		uow:       uow.New(d.Tx),
		clk:       d.Clock,
		log:       d.Logger,
	}
}

type LineInput struct {
	ServiceID       int64
	RequestedTierID *int64
	EngineSizeCc    *int
}

type CreateInput struct {
	OwnerID  int64
	SlotDate time.Time
	SlotTime string
	HoldID   *uuid.UUID
	Lines    []LineInput
}

// CreateDraft creates a DRAFT booking with every line's unit price resolved
// and fixed now. A draft does not own its slot; only the hold does.
func (s *Service) CreateDraft(ctx context.Context, in CreateInput) (*domain.Booking, error) {
	const op = "service.booking.CreateDraft"

	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidState)
	}

	lines := make([]domain.BookingLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		quote, err := s.prices.Resolve(ctx, pricing.Request{
			ServiceID:       l.ServiceID,
			RequestedTierID: l.RequestedTierID,
			EngineSizeCc:    l.EngineSizeCc,
		})
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		lines = append(lines, domain.BookingLine{
			ServiceID:      l.ServiceID,
			EngineTierID:   quote.EngineTierID,
			UnitPricePence: quote.UnitPricePence,
		})
	}

	b := domain.Booking{
		ID:        uuid.New(),
		OwnerID:   in.OwnerID,
		Status:    domain.BookingDraft,
		SlotDate:  in.SlotDate,
		SlotTime:  in.SlotTime,
		HoldID:    in.HoldID,
		CreatedAt: s.clk.Now(),
	}

	err := s.uow.Do(ctx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		return s.repo.Create(ctx, b, lines)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &b, nil
}

// Confirm transitions the booking to CONFIRMED in one transaction: status
// check, line total, VAT, reference assignment and the status flip are
// all-or-nothing. Hold release and downstream fan-out run after commit and
// are never fatal.
//
// Returns:
//   - *domain.ConfirmationSummary: the confirmed totals and reference.
//   - error: booking.ErrBookingNotFound, booking.ErrInvalidState.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, ownerID int64) (*domain.ConfirmationSummary, error) {
	const op = "service.booking.Confirm"

	var summary domain.ConfirmationSummary

	err := s.uow.Do(ctx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		b, err := s.repo.GetForUpdate(ctx, id, ownerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if !b.Status.Confirmable() {
			return fmt.Errorf("%s:%w", op, ErrInvalidState)
		}

		lines, err := s.repo.Lines(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		if len(lines) == 0 {
			return fmt.Errorf("%s:%w", op, ErrInvalidState)
		}

		var gross int64
		for _, l := range lines {
			gross += l.UnitPricePence
		}

		cfg, err := s.settings.Get(ctx)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		vat := ComputeVAT(gross, cfg.VATRatePercent)

		// References are permanent: a retry after a partial failure reuses
		// the one already assigned instead of burning another counter.
		reference := ""
		if b.Reference != nil {
			reference = *b.Reference
		} else {
			year := s.clk.Now().Year()
			n, err := s.sequences.Next(ctx, sequencePurpose, year)
			if err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
			reference = FormatReference(cfg.ReferencePrefix, cfg.OrgCode, year, n)
		}

		if err := s.repo.Confirm(ctx, b.ID, reference); err != nil {
			// Two drafts may race for one slot; the partial unique index
			// on live bookings lets only the first confirmation through.
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s:%w", op, ErrSlotConflict)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		summary = domain.ConfirmationSummary{
			BookingID:  b.ID,
			Reference:  reference,
			SlotDate:   b.SlotDate,
			SlotTime:   b.SlotTime,
			GrossPence: gross,
			VATPence:   vat,
			NetPence:   gross - vat,
		}

		holdID := b.HoldID
		date := b.SlotDate.Format(domain.DateLayout)

		after(func(ctx context.Context) {
			s.releaseHold(ctx, holdID)
			s.fanOut(ctx, summary, date)
		})

		return nil
	})
	if err != nil {
		// A rival confirmation may also surface as a conflict on commit.
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrSlotConflict)
		}
		return nil, err
	}

	return &summary, nil
}

// Cancel is the administrative exit: the booking stops owning its slot and
// any hold is released opportunistically rather than left to expire.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, ownerID int64) error {
	const op = "service.booking.Cancel"

	return s.uow.Do(ctx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		b, err := s.repo.GetForUpdate(ctx, id, ownerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		switch b.Status {
		case domain.BookingCancelled, domain.BookingCompleted, domain.BookingNoShow:
			return fmt.Errorf("%s:%w", op, ErrInvalidState)
		}

		if err := s.repo.SetStatus(ctx, b.ID, domain.BookingCancelled); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		holdID := b.HoldID
		date := b.SlotDate.Format(domain.DateLayout)

		after(func(ctx context.Context) {
			s.releaseHold(ctx, holdID)
			s.invalidate(ctx, date)
		})

		return nil
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, ownerID int64) (*domain.Booking, []domain.BookingLine, error) {
	const op = "service.booking.Get"

	b, err := s.repo.Get(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, nil, fmt.Errorf("%s:%w", op, err)
	}

	lines, err := s.repo.Lines(ctx, b.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s:%w", op, err)
	}

	return b, lines, nil
}

// releaseHold frees the slot before the TTL would. A hold that already
// expired is fine; any other failure is logged and swallowed because the
// TTL is the backstop.
func (s *Service) releaseHold(ctx context.Context, holdID *uuid.UUID) {
	if holdID == nil || s.holds == nil {
		return
	}

	if _, err := s.holds.ReleaseHold(ctx, *holdID); err != nil && !errors.Is(err, holds.ErrHoldNotFound) {
		s.log.Warn("failed to release hold", "hold_id", holdID.String(), "error", err)
	}
}

func (s *Service) fanOut(ctx context.Context, summary domain.ConfirmationSummary, date string) {
	if s.documents != nil {
		if err := s.documents.IssueConfirmation(ctx, summary); err != nil {
			s.log.Warn("failed to issue confirmation document", "booking_id", summary.BookingID.String(), "error", err)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.BookingConfirmed(ctx, summary); err != nil {
			s.log.Warn("failed to send confirmation notification", "booking_id", summary.BookingID.String(), "error", err)
		}
	}

	s.invalidate(ctx, date)
}

func (s *Service) invalidate(ctx context.Context, date string) {
	if s.cache != nil {
		if err := s.cache.InvalidateDate(ctx, date); err != nil {
			s.log.Warn("failed to invalidate availability cache", "date", date, "error", err)
		}
	}

	if s.events != nil {
		if err := s.events.PublishSlotsChanged(ctx, date); err != nil {
			s.log.Warn("failed to publish slots change", "date", date, "error", err)
		}
	}
}
