package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/MrSnakeDoc/shelfwatch/internal/store"
	"github.com/redis/go-redis/v9"
)

// GetItems retrieves all items, seeding the sample dataset on first use
func (s *Store) GetItems(ctx context.Context) ([]domain.Item, error) {
	if err := s.seedOnce(ctx); err != nil {
		return nil, err
	}

	ids, err := s.client.SMembers(ctx, KeyAllItems).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get item IDs: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Item{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = ItemKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}

	items := make([]domain.Item, 0, len(ids))
	var stale []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var it domain.Item
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			s.log.Warn("dropping unreadable item record",
				logger.String("id", ids[i]),
				logger.Error(err))
			stale = append(stale, ids[i])
			continue
		}
		items = append(items, it)
	}

	if len(stale) > 0 {
		s.dropItems(ctx, stale)
	}

	store.SortItems(items)
	return items, nil
}

// seedOnce writes the sample dataset the first time the collection is read.
func (s *Store) seedOnce(ctx context.Context) error {
	if s.seed == nil {
		return nil
	}
	first, err := s.client.SetNX(ctx, KeySeeded, s.now().UTC().Format(time.RFC3339), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to check seed marker: %w", err)
	}
	if !first {
		return nil
	}

	count, err := s.client.SCard(ctx, KeyAllItems).Result()
	if err != nil {
		return fmt.Errorf("failed to count items: %w", err)
	}
	if count > 0 {
		return nil
	}

	items, err := s.seed()
	if err != nil {
		s.client.Del(ctx, KeySeeded)
		return fmt.Errorf("failed to build seed items: %w", err)
	}
	if err := s.saveMany(ctx, items); err != nil {
		// Release the marker so the next read retries the seed.
		s.client.Del(ctx, KeySeeded)
		return err
	}
	s.log.Info("seeded sample items", logger.Int("count", len(items)))
	return nil
}

func (s *Store) dropItems(ctx context.Context, ids []string) {
	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, ItemKey(id))
		pipe.SRem(ctx, KeyAllItems, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("failed to drop stale items", logger.Error(err))
	}
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// GetItem retrieves an item from Redis by ID
func (s *Store) GetItem(ctx context.Context, id string) (domain.Item, error) {
	return s.getItem(ctx, s.client, id)
}

func (s *Store) getItem(ctx context.Context, c getter, id string) (domain.Item, error) {
	data, err := c.Get(ctx, ItemKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("failed to get item: %w", err)
	}

	var it domain.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return domain.Item{}, fmt.Errorf("failed to unmarshal item %s: %w", id, err)
	}
	return it, nil
}

// SaveItems replaces the whole collection atomically
func (s *Store) SaveItems(ctx context.Context, items []domain.Item) error {
	ids := make([]string, len(items))
	records := make([][]byte, len(items))
	for i, it := range items {
		it.Normalize()
		data, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("failed to marshal item %s: %w", it.ID, err)
		}
		ids[i] = it.ID
		records[i] = data
	}

	txf := func(tx *redis.Tx) error {
		old, err := s.recordIDs(ctx, tx)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range old {
				pipe.Del(ctx, ItemKey(id))
			}
			pipe.Del(ctx, KeyAllItems)
			for i, id := range ids {
				pipe.Set(ctx, ItemKey(id), records[i], 0)
				pipe.SAdd(ctx, KeyAllItems, id)
			}
			pipe.Set(ctx, KeySeeded, "import", 0)
			return nil
		})
		return err
	}

	// Every add and delete touches KeyAllItems, so watching it is enough
	// to notice a write that lands between the scan and EXEC.
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, KeyAllItems)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to replace items: %w", err)
		}
		return nil
	}
	return fmt.Errorf("replace items: too much contention after %d attempts", maxTxRetries)
}

// recordIDs lists the ids of every stored item record, including records
// missing from KeyAllItems.
func (s *Store) recordIDs(ctx context.Context, tx *redis.Tx) ([]string, error) {
	var ids []string
	iter := tx.Scan(ctx, 0, KeyPrefixItem+"*", 100).Iterator()
	for iter.Next(ctx) {
		id, err := ExtractItemID(iter.Val())
		if err != nil {
			s.log.Warn("skipping malformed item key", logger.Error(err))
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan item keys: %w", err)
	}
	return ids, nil
}

// saveMany stores multiple items in one MULTI/EXEC
func (s *Store) saveMany(ctx context.Context, items []domain.Item) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, it := range items {
			data, err := json.Marshal(it)
			if err != nil {
				return fmt.Errorf("failed to marshal item %s: %w", it.ID, err)
			}
			pipe.Set(ctx, ItemKey(it.ID), data, 0)
			pipe.SAdd(ctx, KeyAllItems, it.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save items: %w", err)
	}
	return nil
}

// AddItem stores a new item
func (s *Store) AddItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	item = store.PrepareNew(item, s.now())
	if err := s.saveMany(ctx, []domain.Item{item}); err != nil {
		return domain.Item{}, err
	}
	// An explicit add counts as the first write; never seed over it.
	s.client.SetNX(ctx, KeySeeded, "add", 0)
	return item, nil
}

// UpdateItem replaces the editable fields and resets the notification marker
func (s *Store) UpdateItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	var out domain.Item
	err := s.mutate(ctx, item.ID, func(existing *domain.Item) bool {
		*existing = store.ApplyUpdate(*existing, item)
		out = *existing
		return true
	})
	return out, err
}

// DeleteItem removes an item from Redis
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, ItemKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if err := s.client.SRem(ctx, KeyAllItems, id).Err(); err != nil {
		return fmt.Errorf("failed to remove item from set: %w", err)
	}
	if n == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// SnoozeItem suppresses notifications for the given number of days
func (s *Store) SnoozeItem(ctx context.Context, id string, days int) (domain.Item, error) {
	until, err := store.SnoozeUntil(s.now(), days)
	if err != nil {
		return domain.Item{}, err
	}

	var out domain.Item
	err = s.mutate(ctx, id, func(it *domain.Item) bool {
		it.SnoozedUntil = domain.Some(until)
		out = *it
		return true
	})
	return out, err
}

// MarkNotified sets the dedup marker unless it already holds status
func (s *Store) MarkNotified(ctx context.Context, seen domain.Item, status domain.Status) (bool, error) {
	changed := false
	err := s.mutate(ctx, seen.ID, func(it *domain.Item) bool {
		if !store.Unchanged(*it, seen) {
			return false
		}
		if prev, ok := it.LastNotifiedStatus.Get(); ok && prev == status {
			return false
		}
		it.LastNotifiedStatus = domain.Some(status)
		changed = true
		return true
	})
	if errors.Is(err, domain.ErrItemNotFound) {
		// Deleted between evaluation and delivery.
		return false, nil
	}
	return changed, err
}

// mutate runs a read-modify-write on one item under WATCH. fn returns
// false to leave the record untouched.
func (s *Store) mutate(ctx context.Context, id string, fn func(*domain.Item) bool) error {
	key := ItemKey(id)

	txf := func(tx *redis.Tx) error {
		it, err := s.getItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if !fn(&it) {
			return nil
		}
		data, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("failed to marshal item %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("item %s: too much contention after %d attempts", id, maxTxRetries)
}
