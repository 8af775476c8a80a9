package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/redis/go-redis/v9"
)

// GetAffiliate retrieves a cached reorder link
func (s *Store) GetAffiliate(ctx context.Context, key string) (domain.AffiliateCacheEntry, bool, error) {
	data, err := s.client.Get(ctx, AffiliateKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.AffiliateCacheEntry{}, false, nil // Cache miss
		}
		return domain.AffiliateCacheEntry{}, false, fmt.Errorf("failed to get cached link: %w", err)
	}

	var e domain.AffiliateCacheEntry
	if err := json.Unmarshal(data, &e); err != nil {
		s.log.Warn("dropping unreadable cache entry", logger.String("key", key), logger.Error(err))
		s.client.Del(ctx, AffiliateKey(key))
		return domain.AffiliateCacheEntry{}, false, nil
	}
	return e, true, nil
}

// PutAffiliate stores a reorder link in cache
func (s *Store) PutAffiliate(ctx context.Context, key string, e domain.AffiliateCacheEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := s.client.Set(ctx, AffiliateKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to cache link: %w", err)
	}
	return nil
}

// PurgeAffiliates removes cached links older than cutoff
func (s *Store) PurgeAffiliates(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixAffiliate+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return removed, fmt.Errorf("failed to read cache key: %w", err)
		}

		var e domain.AffiliateCacheEntry
		if err := json.Unmarshal(data, &e); err == nil && !e.CachedAt.Before(cutoff) {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return removed, fmt.Errorf("failed to delete cache key: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan cache: %w", err)
	}
	return removed, nil
}
