package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/MrSnakeDoc/shelfwatch/internal/metrics"
)

const (
	// DefaultJanitorInterval is how often stale cache entries are purged
	DefaultJanitorInterval = 24 * time.Hour
	// DefaultJanitorThreshold is the age after which a cached link is dropped
	DefaultJanitorThreshold = 7 * 24 * time.Hour
)

// AffiliatePurger is the cache operation the janitor needs.
type AffiliatePurger interface {
	PurgeAffiliates(ctx context.Context, cutoff time.Time) (int, error)
}

// CacheJanitor removes affiliate links that can no longer be served.
type CacheJanitor struct {
	store     AffiliatePurger
	logger    logger.Logger
	metrics   metrics.Recorder
	threshold time.Duration
	now       func() time.Time
}

// NewCacheJanitor creates a janitor. A zero threshold selects the default.
func NewCacheJanitor(
	store AffiliatePurger,
	log logger.Logger,
	rec metrics.Recorder,
	threshold time.Duration,
	now func() time.Time,
) *CacheJanitor {
	if threshold == 0 {
		threshold = DefaultJanitorThreshold
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if now == nil {
		now = time.Now
	}
	return &CacheJanitor{
		store:     store,
		logger:    log,
		metrics:   rec,
		threshold: threshold,
		now:       now,
	}
}

// Collect removes entries cached longer ago than the threshold.
func (cj *CacheJanitor) Collect(ctx context.Context) error {
	cutoff := cj.now().Add(-cj.threshold)

	removed, err := cj.store.PurgeAffiliates(ctx, cutoff)
	if removed > 0 {
		cj.metrics.RecordCachePurged(removed)
	}
	if err != nil {
		return err
	}

	if removed > 0 {
		cj.logger.Info("affiliate cache purged",
			logger.Int("removed", removed),
			logger.Time("cutoff", cutoff))
	} else {
		cj.logger.Debug("no stale affiliate links to purge")
	}
	return nil
}

// Job wraps the janitor in a periodic job.
func (cj *CacheJanitor) Job(interval time.Duration) *Job {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return NewJob("cache-janitor", cj.Collect, cj.logger, interval, nil)
}
