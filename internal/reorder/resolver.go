// Package reorder turns an item into a "buy again" link: a cached or
// freshly looked-up affiliate link, or a plain store search as fallback.
package reorder

import (
	"context"
	"errors"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/MrSnakeDoc/shelfwatch/internal/metrics"
)

const (
	// DefaultTTL is how long a looked-up link stays valid.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultTimeout bounds one remote lookup.
	DefaultTimeout = 1500 * time.Millisecond
)

// Where a result came from.
const (
	SourceCache    = "cache"
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

// Result is a resolved reorder link.
type Result struct {
	URL         string `json:"url"`
	IsAffiliate bool   `json:"isAffiliate"`
	Store       string `json:"store,omitempty"`
	Source      string `json:"source"`
}

// Cache is the affiliate link cache.
type Cache interface {
	GetAffiliate(ctx context.Context, key string) (domain.AffiliateCacheEntry, bool, error)
	PutAffiliate(ctx context.Context, key string, e domain.AffiliateCacheEntry) error
}

// Lookup is the remote affiliate service.
type Lookup interface {
	Lookup(ctx context.Context, name string, category domain.Category) (Link, error)
}

// SettingsSource provides the search templates for the fallback.
type SettingsSource interface {
	GetAppSettings(ctx context.Context) (domain.AppSettings, error)
}

// Resolver resolves reorder links. It never fails: every error path ends
// in the search fallback.
type Resolver struct {
	cache    Cache
	lookup   Lookup
	settings SettingsSource
	log      logger.Logger
	metrics  metrics.Recorder
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewResolver creates a resolver. Zero ttl/timeout select the defaults;
// rec and now may be nil.
func NewResolver(
	cache Cache,
	lookup Lookup,
	settings SettingsSource,
	log logger.Logger,
	rec metrics.Recorder,
	ttl time.Duration,
	timeout time.Duration,
	now func() time.Time,
) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		cache:    cache,
		lookup:   lookup,
		settings: settings,
		log:      log,
		metrics:  rec,
		ttl:      ttl,
		timeout:  timeout,
		now:      now,
	}
}

// Resolve returns the best reorder link for item.
func (r *Resolver) Resolve(ctx context.Context, item domain.Item) Result {
	key := item.AffiliateKey()

	entry, ok, err := r.cache.GetAffiliate(ctx, key)
	switch {
	case err != nil:
		r.log.Warn("affiliate cache read failed", logger.String("key", key), logger.Error(err))
	case ok && entry.ValidAt(r.now(), r.ttl):
		r.metrics.RecordResolve(SourceCache)
		return Result{URL: entry.URL, IsAffiliate: true, Store: entry.Store, Source: SourceCache}
	}

	if link, err := r.remote(ctx, item); err == nil {
		e := domain.AffiliateCacheEntry{URL: link.URL, Store: link.Store, CachedAt: r.now()}
		if err := r.cache.PutAffiliate(ctx, key, e); err != nil {
			r.log.Warn("affiliate cache write failed", logger.String("key", key), logger.Error(err))
		}
		r.metrics.RecordResolve(SourceRemote)
		return Result{URL: link.URL, IsAffiliate: true, Store: link.Store, Source: SourceRemote}
	}

	r.metrics.RecordResolve(SourceFallback)
	return Result{URL: r.fallback(ctx, item), Source: SourceFallback}
}

func (r *Resolver) remote(ctx context.Context, item domain.Item) (Link, error) {
	if r.lookup == nil {
		return Link{}, ErrNoEndpoint
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	link, err := r.lookup.Lookup(ctx, item.Name, item.Category)
	r.metrics.RecordLookupLatency(time.Since(start))
	if err != nil {
		if !errors.Is(err, ErrNoEndpoint) {
			r.log.Warn("affiliate lookup failed, using search fallback",
				logger.String("item", item.Name),
				logger.Error(err))
		}
		return Link{}, err
	}
	return link, nil
}

func (r *Resolver) fallback(ctx context.Context, item domain.Item) string {
	settings, err := r.settings.GetAppSettings(ctx)
	if err != nil {
		r.log.Warn("settings unavailable, using default search", logger.Error(err))
		settings = domain.DefaultSettings()
	}
	return FallbackURL(settings.SearchTemplate(item.Category), item.Name)
}

// FallbackURL appends the component-encoded name to a search template.
func FallbackURL(template, name string) string {
	return template + EncodeComponent(name)
}

// EncodeComponent percent-encodes s the way browsers' encodeURIComponent
// does: only letters, digits and -_.!~*'() are left as is.
func EncodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keepUnescaped(c) {
			b = append(b, c)
			continue
		}
		b = append(b, '%', hex[c>>4], hex[c&15])
	}
	return string(b)
}

func keepUnescaped(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
