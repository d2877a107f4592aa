package booking

import "errors"

var (
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidState means the booking's status does not permit the
	// requested transition, or the booking has no service lines.
	ErrInvalidState = errors.New("booking state does not permit this transition")

	// ErrSlotConflict means another live booking claimed the slot first.
	// Two drafts may target the same slot; only one of them can confirm.
	ErrSlotConflict = errors.New("slot already taken by another booking")
)
