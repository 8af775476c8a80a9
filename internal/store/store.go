// Package store defines the persistence contract for items, settings and
// the affiliate link cache. Implementations live in subpackages.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/google/uuid"
)

// Items is the item collection. Every write normalizes the item first.
type Items interface {
	// GetItems returns every item, seeding the sample dataset on the very
	// first read. Order is creation time, then id.
	GetItems(ctx context.Context) ([]domain.Item, error)

	// GetItem returns one item or domain.ErrItemNotFound.
	GetItem(ctx context.Context, id string) (domain.Item, error)

	// SaveItems replaces the whole collection (used by backup import).
	SaveItems(ctx context.Context, items []domain.Item) error

	// AddItem stores a new item. ID and CreatedAt are filled in when empty.
	AddItem(ctx context.Context, item domain.Item) (domain.Item, error)

	// UpdateItem overwrites the user-editable fields of an existing item.
	// CreatedAt is preserved, and LastNotifiedStatus is cleared so the new
	// state is re-evaluated from scratch.
	UpdateItem(ctx context.Context, item domain.Item) (domain.Item, error)

	DeleteItem(ctx context.Context, id string) error

	// SnoozeItem sets SnoozedUntil to now plus days (days >= 1).
	SnoozeItem(ctx context.Context, id string, days int) (domain.Item, error)

	// MarkNotified records status as delivered for seen.ID, but only if
	// the stored item is still the one seen was evaluated from (see
	// Unchanged) and its marker is not already status. It reports whether
	// the marker changed.
	MarkNotified(ctx context.Context, seen domain.Item, status domain.Status) (bool, error)
}

// Settings is the single settings record.
type Settings interface {
	// GetAppSettings returns the stored settings, or the defaults when none
	// (or an unreadable record) are stored.
	GetAppSettings(ctx context.Context) (domain.AppSettings, error)
	SaveAppSettings(ctx context.Context, s domain.AppSettings) error
}

// Affiliates is the reorder link cache keyed by "name|category".
type Affiliates interface {
	// GetAffiliate returns the entry and whether one exists. Freshness is
	// the caller's decision.
	GetAffiliate(ctx context.Context, key string) (domain.AffiliateCacheEntry, bool, error)
	PutAffiliate(ctx context.Context, key string, e domain.AffiliateCacheEntry) error

	// PurgeAffiliates drops entries cached before cutoff and returns how
	// many were removed.
	PurgeAffiliates(ctx context.Context, cutoff time.Time) (int, error)
}

// Store is everything the application persists.
type Store interface {
	Items
	Settings
	Affiliates
}

// SnoozeUntil computes the end of a snooze window.
func SnoozeUntil(now time.Time, days int) (time.Time, error) {
	if days < 1 {
		return time.Time{}, domain.ErrInvalidSnooze
	}
	return now.AddDate(0, 0, days), nil
}

// SeedFunc produces the sample dataset written on the first read.
type SeedFunc func() ([]domain.Item, error)

// PrepareNew fills the identity fields of a new item and normalizes it.
func PrepareNew(item domain.Item, now time.Time) domain.Item {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.LastNotifiedStatus = domain.None[domain.Status]()
	item.Normalize()
	return item
}

// ApplyUpdate merges an edit into the stored item: identity and snooze are
// kept, the notification marker is reset and the revision bumped.
func ApplyUpdate(existing, edit domain.Item) domain.Item {
	edit.ID = existing.ID
	edit.CreatedAt = existing.CreatedAt
	edit.SnoozedUntil = existing.SnoozedUntil
	edit.LastNotifiedStatus = domain.None[domain.Status]()
	edit.Revision = existing.Revision + 1
	edit.Normalize()
	return edit
}

// Unchanged reports whether stored still matches the snapshot seen on
// every field the notification decision depended on.
func Unchanged(stored, seen domain.Item) bool {
	return stored.Revision == seen.Revision &&
		stored.ExpiryDate.Equal(seen.ExpiryDate) &&
		stored.ReminderDays == seen.ReminderDays &&
		stored.LastNotifiedStatus == seen.LastNotifiedStatus
}

// SortItems orders items by creation time, then id.
func SortItems(items []domain.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
