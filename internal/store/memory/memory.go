// Package memory is an in-process Store used for development and tests,
// or when no Redis is available.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/MrSnakeDoc/shelfwatch/internal/store"
)

// Store keeps everything in maps guarded by a single RWMutex.
type Store struct {
	mu         sync.RWMutex
	items      map[string]domain.Item // ID -> Item
	settings   *domain.AppSettings    // nil until first save
	affiliates map[string]domain.AffiliateCacheEntry
	seeded     bool

	seed store.SeedFunc
	now  func() time.Time
}

// New creates an empty memory store. seed may be nil.
func New(seed store.SeedFunc, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		items:      make(map[string]domain.Item),
		affiliates: make(map[string]domain.AffiliateCacheEntry),
		seed:       seed,
		now:        now,
	}
}

var _ store.Store = (*Store)(nil)

// ─────────────────────────────────────────────────────────────────
// Items
// ─────────────────────────────────────────────────────────────────

func (s *Store) GetItems(_ context.Context) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.seedLocked(); err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, it)
	}
	store.SortItems(items)
	return items, nil
}

// seedLocked writes the sample dataset once. Callers hold the write lock.
func (s *Store) seedLocked() error {
	if s.seeded {
		return nil
	}
	s.seeded = true
	if s.seed == nil || len(s.items) > 0 {
		return nil
	}
	items, err := s.seed()
	if err != nil {
		return err
	}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return nil
}

func (s *Store) GetItem(_ context.Context, id string) (domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return it, nil
}

func (s *Store) SaveItems(_ context.Context, items []domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]domain.Item, len(items))
	for _, it := range items {
		it.Normalize()
		s.items[it.ID] = it
	}
	s.seeded = true
	return nil
}

func (s *Store) AddItem(_ context.Context, item domain.Item) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item = store.PrepareNew(item, s.now())
	s.items[item.ID] = item
	s.seeded = true
	return item, nil
}

func (s *Store) UpdateItem(_ context.Context, item domain.Item) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.ID]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	item = store.ApplyUpdate(existing, item)
	s.items[item.ID] = item
	return item, nil
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) SnoozeItem(_ context.Context, id string, days int) (domain.Item, error) {
	until, err := store.SnoozeUntil(s.now(), days)
	if err != nil {
		return domain.Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	it.SnoozedUntil = domain.Some(until)
	s.items[id] = it
	return it, nil
}

func (s *Store) MarkNotified(_ context.Context, seen domain.Item, status domain.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[seen.ID]
	if !ok || !store.Unchanged(it, seen) {
		return false, nil
	}
	if prev, set := it.LastNotifiedStatus.Get(); set && prev == status {
		return false, nil
	}
	it.LastNotifiedStatus = domain.Some(status)
	s.items[seen.ID] = it
	return true, nil
}

// ─────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────

func (s *Store) GetAppSettings(_ context.Context) (domain.AppSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return domain.DefaultSettings(), nil
	}
	return cloneSettings(*s.settings), nil
}

func (s *Store) SaveAppSettings(_ context.Context, settings domain.AppSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneSettings(settings)
	s.settings = &cp
	return nil
}

func cloneSettings(in domain.AppSettings) domain.AppSettings {
	out := in
	out.CategoryStorePreferences = make(map[domain.Category]string, len(in.CategoryStorePreferences))
	for k, v := range in.CategoryStorePreferences {
		out.CategoryStorePreferences[k] = v
	}
	return out
}

// ─────────────────────────────────────────────────────────────────
// Affiliate cache
// ─────────────────────────────────────────────────────────────────

func (s *Store) GetAffiliate(_ context.Context, key string) (domain.AffiliateCacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.affiliates[key]
	return e, ok, nil
}

func (s *Store) PutAffiliate(_ context.Context, key string, e domain.AffiliateCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.affiliates[key] = e
	return nil
}

func (s *Store) PurgeAffiliates(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.affiliates {
		if e.CachedAt.Before(cutoff) {
			delete(s.affiliates, k)
			removed++
		}
	}
	return removed, nil
}
