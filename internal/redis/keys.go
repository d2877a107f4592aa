package redisx

import "fmt"

const ns = "servicebay:v1"

// KeyHold addresses the hold payload entry: hold id -> slot.
func KeyHold(holdID string) string {
	return fmt.Sprintf("%s:hold:%s", ns, holdID)
}

// KeySlot addresses the slot lock entry: slot -> hold id. Its presence is the
// fast existence check for conflicting hold attempts.
func KeySlot(date, t string) string {
	return fmt.Sprintf("%s:slot:%s:%s", ns, date, t)
}

// PrefixSlotDate matches every slot lock entry for a date.
func PrefixSlotDate(date string) string {
	return fmt.Sprintf("%s:slot:%s:", ns, date)
}

func KeyAvailability(date string) string {
	return fmt.Sprintf("%s:availability:%s", ns, date)
}

func ChannelSlotsChanged() string {
	return ns + ":slots:changed"
}
