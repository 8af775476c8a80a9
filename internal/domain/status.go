package domain

import "time"

// Status is the derived expiry state of an item.
// The string values are the ones persisted in the dedup marker.
type Status string

const (
	StatusActive  Status = "Active"
	StatusSoon    Status = "Expiring Soon"
	StatusExpired Status = "Expired"
)

// Alerting reports whether the status ever warrants a notification.
func (s Status) Alerting() bool {
	return s == StatusSoon || s == StatusExpired
}

// Evaluate computes the status of an item expiring on expiry with the
// given reminder lead time, as seen at now in loc (nil means time.Local).
//
// Both sides are compared as calendar dates so intra-day clock drift never
// shifts the result. Negative reminderDays are not clamped here.
func Evaluate(expiry Date, reminderDays int, now time.Time, loc *time.Location) Status {
	if loc == nil {
		loc = time.Local
	}
	today := DateOf(now.In(loc))

	if today.After(expiry) {
		return StatusExpired
	}
	if !today.Before(expiry.AddDays(-reminderDays)) {
		return StatusSoon
	}
	return StatusActive
}
