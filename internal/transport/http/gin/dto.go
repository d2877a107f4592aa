package httpgin

import (
	"time"

	"github.com/mgurran/servicebay/internal/domain"
)

type CreateHoldRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

type CreateHoldResponse struct {
	HoldID    string `json:"hold_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	ExpiresAt string `json:"expires_at"`
}

type SlotDTO struct {
	Time      string `json:"time"`
	Available bool   `json:"is_available"`
}

type AvailabilityResponse struct {
	Date  string    `json:"date"`
	Slots []SlotDTO `json:"slots"`
}

type BookingLineInput struct {
	ServiceID    int64  `json:"service_id" binding:"required"`
	EngineTierID *int64 `json:"engine_tier_id"`
	EngineSizeCc *int   `json:"engine_size_cc"`
}

type CreateBookingRequest struct {
	OwnerID int64              `json:"owner_id" binding:"required"`
	Date    string             `json:"date" binding:"required"`
	Time    string             `json:"time" binding:"required"`
	HoldID  *string            `json:"hold_id"`
	Lines   []BookingLineInput `json:"lines" binding:"required,min=1,dive"`
}

type BookingLineDTO struct {
	ServiceID      int64  `json:"service_id"`
	EngineTierID   *int64 `json:"engine_tier_id,omitempty"`
	UnitPricePence int64  `json:"unit_price_pence"`
}

type BookingResponse struct {
	BookingID string           `json:"booking_id"`
	Status    string           `json:"status"`
	Date      string           `json:"date"`
	Time      string           `json:"time"`
	Reference *string          `json:"reference,omitempty"`
	Lines     []BookingLineDTO `json:"lines,omitempty"`
}

type OwnerRequest struct {
	OwnerID int64 `json:"owner_id" binding:"required"`
}

type ConfirmBookingResponse struct {
	BookingID  string `json:"booking_id"`
	Reference  string `json:"reference"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	GrossPence int64  `json:"gross_pence"`
	VATPence   int64  `json:"vat_pence"`
	NetPence   int64  `json:"net_pence"`
}

type PriceQuoteResponse struct {
	UnitPricePence int64   `json:"unit_price_pence"`
	EngineTierID   *int64  `json:"engine_tier_id,omitempty"`
	EngineTierCode *string `json:"engine_tier_code,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(domain.DateLayout, s)
}
