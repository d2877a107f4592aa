package holds

import "errors"

var (
	ErrSlotTaken    = errors.New("slot already taken")
	ErrHoldNotFound = errors.New("hold not found")
	ErrInvalidSlot  = errors.New("invalid slot time")
)
