// Package storetest is a behavioural suite every store.Store must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/MrSnakeDoc/shelfwatch/internal/store"
)

// Factory builds a fresh, empty store for one subtest.
type Factory func(t *testing.T, seed store.SeedFunc, now func() time.Time) store.Store

// Clock is a manually advanced time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var epoch = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newItem(name string) domain.Item {
	return domain.Item{
		Name:         name,
		Category:     domain.CategoryGrocery,
		ExpiryDate:   domain.NewDate(2025, 3, 20),
		ReminderDays: 3,
	}
}

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("seeds on first read only", func(t *testing.T) {
		calls := 0
		seed := func() ([]domain.Item, error) {
			calls++
			return []domain.Item{{ID: "seed-1", Name: "Milk", Category: domain.CategoryGrocery,
				ExpiryDate: domain.NewDate(2025, 3, 12), CreatedAt: epoch}}, nil
		}
		s := newStore(t, seed, NewClock(epoch).Now)
		ctx := context.Background()

		items, err := s.GetItems(ctx)
		if err != nil {
			t.Fatalf("GetItems() error = %v", err)
		}
		if len(items) != 1 || items[0].ID != "seed-1" {
			t.Fatalf("GetItems() = %+v, want seeded item", items)
		}

		if err := s.DeleteItem(ctx, "seed-1"); err != nil {
			t.Fatalf("DeleteItem() error = %v", err)
		}
		items, err = s.GetItems(ctx)
		if err != nil {
			t.Fatalf("GetItems() error = %v", err)
		}
		if len(items) != 0 {
			t.Errorf("emptied collection was re-seeded: %+v", items)
		}
		if calls != 1 {
			t.Errorf("seed called %d times, want 1", calls)
		}
	})

	t.Run("no seed after explicit add", func(t *testing.T) {
		seed := func() ([]domain.Item, error) {
			return []domain.Item{{ID: "seed-1", Name: "Milk"}}, nil
		}
		s := newStore(t, seed, NewClock(epoch).Now)
		ctx := context.Background()

		if _, err := s.AddItem(ctx, newItem("Bread")); err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		items, err := s.GetItems(ctx)
		if err != nil {
			t.Fatalf("GetItems() error = %v", err)
		}
		if len(items) != 1 || items[0].Name != "Bread" {
			t.Errorf("GetItems() = %+v, want only Bread", items)
		}
	})

	t.Run("add fills identity and normalizes", func(t *testing.T) {
		s := newStore(t, nil, NewClock(epoch).Now)
		ctx := context.Background()

		in := newItem("  Eggs ")
		in.Category = "dairy"
		in.ReminderDays = -2
		in.LastNotifiedStatus = domain.Some(domain.StatusExpired)

		got, err := s.AddItem(ctx, in)
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		if got.ID == "" {
			t.Error("ID should be generated")
		}
		if !got.CreatedAt.Equal(epoch) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, epoch)
		}
		if got.Revision != added.Revision+1 {
			t.Errorf("Revision = %d, want %d", got.Revision, added.Revision+1)
		}
		if got.Name != "Eggs" || got.Category != domain.CategoryOthers || got.ReminderDays != 0 {
			t.Errorf("item not normalized: %+v", got)
		}
		if got.LastNotifiedStatus.IsSet() {
			t.Error("new item must not carry a notification marker")
		}

		stored, err := s.GetItem(ctx, got.ID)
		if err != nil {
			t.Fatalf("GetItem() error = %v", err)
		}
		if stored.Name != "Eggs" {
			t.Errorf("stored name = %q", stored.Name)
		}
	})

	t.Run("items ordered by creation", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, nil, clock.Now)
		ctx := context.Background()

		for _, name := range []string{"first", "second", "third"} {
			if _, err := s.AddItem(ctx, newItem(name)); err != nil {
				t.Fatalf("AddItem() error = %v", err)
			}
			clock.Advance(time.Minute)
		}
		items, err := s.GetItems(ctx)
		if err != nil {
			t.Fatalf("GetItems() error = %v", err)
		}
		for i, want := range []string{"first", "second", "third"} {
			if items[i].Name != want {
				t.Errorf("items[%d] = %q, want %q", i, items[i].Name, want)
			}
		}
	})

	t.Run("update resets marker and keeps createdAt", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, nil, clock.Now)
		ctx := context.Background()

		added, err := s.AddItem(ctx, newItem("Cheese"))
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		if _, err := s.MarkNotified(ctx, added, domain.StatusSoon); err != nil {
			t.Fatalf("MarkNotified() error = %v", err)
		}

		edit := added
		edit.Name = "Blue cheese"
		edit.ExpiryDate = domain.NewDate(2025, 4, 1)
		edit.CreatedAt = epoch.Add(time.Hour)
		edit.LastNotifiedStatus = domain.Some(domain.StatusSoon)

		got, err := s.UpdateItem(ctx, edit)
		if err != nil {
			t.Fatalf("UpdateItem() error = %v", err)
		}
		if got.LastNotifiedStatus.IsSet() {
			t.Error("edit must reset the notification marker")
		}
		if !got.CreatedAt.Equal(epoch) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, epoch)
		}

		stored, err := s.GetItem(ctx, added.ID)
		if err != nil {
			t.Fatalf("GetItem() error = %v", err)
		}
		if stored.Name != "Blue cheese" || stored.LastNotifiedStatus.IsSet() {
			t.Errorf("stored = %+v", stored)
		}
	})

	t.Run("update and delete unknown item", func(t *testing.T) {
		s := newStore(t, nil, NewClock(epoch).Now)
		ctx := context.Background()

		ghost := newItem("Ghost")
		ghost.ID = "missing"
		if _, err := s.UpdateItem(ctx, ghost); !errors.Is(err, domain.ErrItemNotFound) {
			t.Errorf("UpdateItem() error = %v, want ErrItemNotFound", err)
		}
		if err := s.DeleteItem(ctx, "missing"); !errors.Is(err, domain.ErrItemNotFound) {
			t.Errorf("DeleteItem() error = %v, want ErrItemNotFound", err)
		}
		if _, err := s.GetItem(ctx, "missing"); !errors.Is(err, domain.ErrItemNotFound) {
			t.Errorf("GetItem() error = %v, want ErrItemNotFound", err)
		}
	})

	t.Run("snooze", func(t *testing.T) {
		s := newStore(t, nil, NewClock(epoch).Now)
		ctx := context.Background()

		added, err := s.AddItem(ctx, newItem("Yogurt"))
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		if _, err := s.SnoozeItem(ctx, added.ID, 0); !errors.Is(err, domain.ErrInvalidSnooze) {
			t.Errorf("SnoozeItem(0) error = %v, want ErrInvalidSnooze", err)
		}
		if _, err := s.SnoozeItem(ctx, "missing", 1); !errors.Is(err, domain.ErrItemNotFound) {
			t.Errorf("SnoozeItem(missing) error = %v, want ErrItemNotFound", err)
		}

		got, err := s.SnoozeItem(ctx, added.ID, 3)
		if err != nil {
			t.Fatalf("SnoozeItem() error = %v", err)
		}
		until, ok := got.SnoozedUntil.Get()
		if !ok || !until.Equal(epoch.AddDate(0, 0, 3)) {
			t.Errorf("SnoozedUntil = %v, want %v", until, epoch.AddDate(0, 0, 3))
		}

		stored, err := s.GetItem(ctx, added.ID)
		if err != nil {
			t.Fatalf("GetItem() error = %v", err)
		}
		if !stored.Snoozed(epoch.Add(time.Hour)) {
			t.Error("stored item should be snoozed")
		}
	})

	t.Run("mark notified is compare-and-set", func(t *testing.T) {
		s := newStore(t, nil, NewClock(epoch).Now)
		ctx := context.Background()

		added, err := s.AddItem(ctx, newItem("Butter"))
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}

		steps := []struct {
			status domain.Status
			want   bool
		}{
			{domain.StatusSoon, true},
			{domain.StatusSoon, false},
			{domain.StatusExpired, true},
			{domain.StatusExpired, false},
		}
		for i, step := range steps {
			current, err := s.GetItem(ctx, added.ID)
			if err != nil {
				t.Fatalf("step %d: GetItem() error = %v", i, err)
			}
			changed, err := s.MarkNotified(ctx, current, step.status)
			if err != nil {
				t.Fatalf("step %d: MarkNotified() error = %v", i, err)
			}
			if changed != step.want {
				t.Errorf("step %d: MarkNotified(%s) = %v, want %v", i, step.status, changed, step.want)
			}
		}

		ghost := newItem("Ghost")
		ghost.ID = "missing"
		changed, err := s.MarkNotified(ctx, ghost, domain.StatusExpired)
		if err != nil || changed {
			t.Errorf("MarkNotified(missing) = %v, %v; want false, nil", changed, err)
		}
	})

	t.Run("mark notified skips an item edited since evaluation", func(t *testing.T) {
		s := newStore(t, nil, NewClock(epoch).Now)
		ctx := context.Background()

		seen, err := s.AddItem(ctx, newItem("Cream"))
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}

		edit := seen
		edit.ExpiryDate = domain.NewDate(2025, 4, 1)
		if _, err := s.UpdateItem(ctx, edit); err != nil {
			t.Fatalf("UpdateItem() error = %v", err)
		}

		changed, err := s.MarkNotified(ctx, seen, domain.StatusSoon)
		if err != nil {
			t.Fatalf("MarkNotified() error = %v", err)
		}
		if changed {
			t.Error("MarkNotified() = true for a stale snapshot, want false")
		}

		current, err := s.GetItem(ctx, seen.ID)
		if err != nil {
			t.Fatalf("GetItem() error = %v", err)
		}
		if current.LastNotifiedStatus.IsSet() {
			t.Errorf("marker = %v, want unset", current.LastNotifiedStatus)
		}
		// A name-only edit still invalidates the snapshot.
		rename := current
		rename.Name = "Sour cream"
		if _, err := s.UpdateItem(ctx, rename); err != nil {
			t.Fatalf("UpdateItem() error = %v", err)
		}
		if changed, _ := s.MarkNotified(ctx, current, domain.StatusSoon); changed {
			t.Error("MarkNotified() accepted a snapshot older than the last edit")
		}
	})

	t.Run("save items replaces collection", func(t *testing.T) {
		s := newStore(t, nil, NewClock(epoch).Now)
		ctx := context.Background()

		if _, err := s.AddItem(ctx, newItem("Old")); err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		replacement := []domain.Item{
			{ID: "a", Name: "Apple", Category: domain.CategoryGrocery, ExpiryDate: domain.NewDate(2025, 3, 15), CreatedAt: epoch},
			{ID: "b", Name: "Aspirin", Category: domain.CategoryMedicine, ExpiryDate: domain.NewDate(2026, 1, 1), CreatedAt: epoch.Add(time.Second)},
		}
		if err := s.SaveItems(ctx, replacement); err != nil {
			t.Fatalf("SaveItems() error = %v", err)
		}
		items, err := s.GetItems(ctx)
		if err != nil {
			t.Fatalf("GetItems() error = %v", err)
		}
		if len(items) != 2 || items[0].ID != "a" || items[1].ID != "b" {
			t.Errorf("GetItems() = %+v, want [a b]", items)
		}
	})

	t.Run("settings default and round trip", func(t *testing.T) {
		s := newStore(t, nil, NewClock(epoch).Now)
		ctx := context.Background()

		got, err := s.GetAppSettings(ctx)
		if err != nil {
			t.Fatalf("GetAppSettings() error = %v", err)
		}
		if got.NotificationsEnabled || got.DigestModeEnabled {
			t.Error("notifications and digest must default to off")
		}
		if got.AffiliateLinkBase != domain.DefaultAffiliateLinkBase {
			t.Errorf("AffiliateLinkBase = %q", got.AffiliateLinkBase)
		}

		want := domain.AppSettings{
			NotificationsEnabled: true,
			DigestModeEnabled:    true,
			AffiliateLinkBase:    "https://shop.example/search?q=",
			CategoryStorePreferences: map[domain.Category]string{
				domain.CategoryMedicine: "https://pharmacy.example/?q=",
			},
		}
		if err := s.SaveAppSettings(ctx, want); err != nil {
			t.Fatalf("SaveAppSettings() error = %v", err)
		}
		got, err = s.GetAppSettings(ctx)
		if err != nil {
			t.Fatalf("GetAppSettings() error = %v", err)
		}
		if !got.NotificationsEnabled || !got.DigestModeEnabled ||
			got.AffiliateLinkBase != want.AffiliateLinkBase ||
			got.CategoryStorePreferences[domain.CategoryMedicine] != "https://pharmacy.example/?q=" {
			t.Errorf("GetAppSettings() = %+v, want %+v", got, want)
		}
	})

	t.Run("affiliate cache", func(t *testing.T) {
		s := newStore(t, nil, NewClock(epoch).Now)
		ctx := context.Background()

		if _, ok, err := s.GetAffiliate(ctx, "Milk|Grocery"); err != nil || ok {
			t.Fatalf("GetAffiliate() on empty cache = %v, %v", ok, err)
		}

		fresh := domain.AffiliateCacheEntry{URL: "https://shop.example/milk", Store: "Shop", CachedAt: epoch}
		stale := domain.AffiliateCacheEntry{URL: "https://shop.example/old", Store: "Shop", CachedAt: epoch.Add(-10 * 24 * time.Hour)}
		if err := s.PutAffiliate(ctx, "Milk|Grocery", fresh); err != nil {
			t.Fatalf("PutAffiliate() error = %v", err)
		}
		if err := s.PutAffiliate(ctx, "Old|Others", stale); err != nil {
			t.Fatalf("PutAffiliate() error = %v", err)
		}

		got, ok, err := s.GetAffiliate(ctx, "Milk|Grocery")
		if err != nil || !ok {
			t.Fatalf("GetAffiliate() = %v, %v", ok, err)
		}
		if got.URL != fresh.URL || got.Store != fresh.Store || !got.CachedAt.Equal(fresh.CachedAt) {
			t.Errorf("GetAffiliate() = %+v, want %+v", got, fresh)
		}

		removed, err := s.PurgeAffiliates(ctx, epoch.Add(-7*24*time.Hour))
		if err != nil {
			t.Fatalf("PurgeAffiliates() error = %v", err)
		}
		if removed != 1 {
			t.Errorf("PurgeAffiliates() removed %d, want 1", removed)
		}
		if _, ok, _ := s.GetAffiliate(ctx, "Old|Others"); ok {
			t.Error("stale entry should be purged")
		}
		if _, ok, _ := s.GetAffiliate(ctx, "Milk|Grocery"); !ok {
			t.Error("fresh entry should survive purge")
		}
	})
}
