package domain

import "errors"

var (
	// ErrItemNotFound is returned when no item has the requested id.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidSnooze is returned for snooze durations under one day.
	ErrInvalidSnooze = errors.New("snooze must be at least one day")
)
