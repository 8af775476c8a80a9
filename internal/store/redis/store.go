// Package redis implements store.Store on top of go-redis.
//
// Layout: one JSON record per item plus a set of all IDs, one settings
// record, and one JSON record per affiliate cache key.
package redis

import (
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/MrSnakeDoc/shelfwatch/internal/store"
	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic transaction retries under contention.
const maxTxRetries = 5

// Store handles Redis operations for items, settings and the link cache
type Store struct {
	client *redis.Client
	log    logger.Logger
	seed   store.SeedFunc
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// NewStore creates a new Redis store. seed and now may be nil.
func NewStore(client *redis.Client, log logger.Logger, seed store.SeedFunc, now func() time.Time) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		client: client,
		log:    log,
		seed:   seed,
		now:    now,
	}
}

// Client exposes the underlying connection (readiness checks, pub/sub).
func (s *Store) Client() *redis.Client {
	return s.client
}
