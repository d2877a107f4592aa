package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the canonical wire and key format for slot dates.
const DateLayout = "2006-01-02"

// TimeLayout is the canonical format for slot times.
const TimeLayout = "15:04"

type BookingStatus string

const (
	BookingDraft     BookingStatus = "draft"
	BookingHeld      BookingStatus = "held"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
	BookingNoShow    BookingStatus = "no_show"
)

// Confirmable reports whether a booking in this status may still be confirmed.
func (s BookingStatus) Confirmable() bool {
	return s == BookingDraft || s == BookingHeld
}

type PricingMode string

const (
	PricingFixed  PricingMode = "fixed"
	PricingTiered PricingMode = "tiered"
)

type Booking struct {
	ID        uuid.UUID
	OwnerID   int64
	Status    BookingStatus
	SlotDate  time.Time
	SlotTime  string
	HoldID    *uuid.UUID
	Reference *string
	CreatedAt time.Time
}

type BookingLine struct {
	ID             int64
	BookingID      uuid.UUID
	ServiceID      int64
	EngineTierID   *int64
	UnitPricePence int64
}

type Service struct {
	ID              int64
	Name            string
	PricingMode     PricingMode
	FixedPricePence *int64
}

// EngineTier is a pricing bracket keyed by engine displacement. Tiers are
// ordered by SortOrder; the top tier carries no MaxCc ceiling.
type EngineTier struct {
	ID        int64
	Name      string
	SortOrder int
	MaxCc     *int
}

type ServicePrice struct {
	ServiceID    int64
	EngineTierID int64
	AmountPence  int64
}

type Hold struct {
	ID        uuid.UUID
	SlotDate  string
	SlotTime  string
	ExpiresAt time.Time
}

type SlotTemplates struct {
	Weekday  []string `json:"weekday"`
	Saturday []string `json:"saturday"`
	Sunday   []string `json:"sunday"`
}

// Settings is the operator-mutable configuration snapshot. It is fetched per
// operation so that admin changes take effect without a restart.
type Settings struct {
	HoldMinutes     int
	VATRatePercent  float64
	ReferencePrefix string
	OrgCode         string
	SlotTemplates   SlotTemplates
}

// TemplateFor selects the slot template for the given date's weekday.
func (s Settings) TemplateFor(date time.Time) []string {
	switch date.Weekday() {
	case time.Saturday:
		return s.SlotTemplates.Saturday
	case time.Sunday:
		return s.SlotTemplates.Sunday
	default:
		return s.SlotTemplates.Weekday
	}
}

type SlotAvailability struct {
	Time      string
	Available bool
}

type PriceQuote struct {
	UnitPricePence int64
	EngineTierID   *int64
	EngineTierCode *string
}

type ConfirmationSummary struct {
	BookingID  uuid.UUID
	Reference  string
	SlotDate   time.Time
	SlotTime   string
	GrossPence int64
	VATPence   int64
	NetPence   int64
}
