package domain

import (
	"strings"
	"time"
)

// Category groups items for store preferences and affiliate lookups.
type Category string

const (
	CategoryGrocery     Category = "Grocery"
	CategoryMedicine    Category = "Medicine"
	CategoryCosmetics   Category = "Cosmetics"
	CategoryElectronics Category = "Electronics"
	CategoryOthers      Category = "Others"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryGrocery,
	CategoryMedicine,
	CategoryCosmetics,
	CategoryElectronics,
	CategoryOthers,
}

// ParseCategory matches s against the known categories (case-insensitive).
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Item is a tracked perishable.
//
// Items are owned by the store. The notification engine only touches
// LastNotifiedStatus, and only through the store's compare-and-set.
type Item struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is a stable unique identifier (UUID for items created here,
	// anything non-empty for imported ones).
	ID string `json:"id"`

	// CreatedAt is set once by the add flow and preserved across edits.
	CreatedAt time.Time `json:"createdAt"`

	// Revision counts user edits. The notification engine uses it to
	// detect that an item changed between evaluation and delivery.
	Revision int `json:"revision,omitempty"`

	// ─────────────────────────────
	// User-editable description
	// ─────────────────────────────

	Name     string   `json:"name"`
	Category Category `json:"category"`
	Notes    string   `json:"notes,omitempty"`

	// ExpiryDate is a calendar date, time-of-day is never stored.
	ExpiryDate Date `json:"expiryDate"`

	// ReminderDays is the lead time before expiry at which the item
	// becomes "Expiring Soon". Never negative once normalized.
	ReminderDays int `json:"reminderDays"`

	// ─────────────────────────────
	// Notification state
	// ─────────────────────────────

	// LastNotifiedStatus is the dedup marker: the status an alert was
	// already delivered for. Unset means never notified (or edited since).
	LastNotifiedStatus Optional[Status] `json:"lastNotifiedStatus,omitzero"`

	// SnoozedUntil suppresses notifications while now is before it.
	SnoozedUntil Optional[time.Time] `json:"snoozedUntil,omitzero"`
}

// Normalize applies the write-boundary rules: trimmed name, known
// category (Others when unrecognised) and non-negative reminder days.
func (i *Item) Normalize() {
	i.Name = strings.TrimSpace(i.Name)
	i.Notes = strings.TrimSpace(i.Notes)
	if c, ok := ParseCategory(string(i.Category)); ok {
		i.Category = c
	} else {
		i.Category = CategoryOthers
	}
	if i.ReminderDays < 0 {
		i.ReminderDays = 0
	}
}

// Status evaluates the item at now, using loc to decide what "today" is.
func (i Item) Status(now time.Time, loc *time.Location) Status {
	return Evaluate(i.ExpiryDate, i.ReminderDays, now, loc)
}

// Snoozed reports whether the item is inside its snooze window at now.
func (i Item) Snoozed(now time.Time) bool {
	until, ok := i.SnoozedUntil.Get()
	return ok && now.Before(until)
}

// AffiliateKey is the cache key for the item's reorder link.
func (i Item) AffiliateKey() string {
	return AffiliateKey(i.Name, i.Category)
}
