package domain

import (
	"strings"
	"time"
)

// DefaultAffiliateLinkBase is the search template used when neither the
// cache, the remote lookup nor a category preference yields a link.
const DefaultAffiliateLinkBase = "https://www.amazon.in/s?k="

// AppSettings holds the user toggles and store preferences.
type AppSettings struct {
	NotificationsEnabled bool `json:"notificationsEnabled"`
	DigestModeEnabled    bool `json:"digestModeEnabled"`

	// AffiliateLinkBase is a search-URL template; the URL-encoded item
	// name is appended to it.
	AffiliateLinkBase string `json:"affiliateLinkBase"`

	// CategoryStorePreferences overrides AffiliateLinkBase per category.
	// An empty template means "use the default".
	CategoryStorePreferences map[Category]string `json:"categoryStorePreferences"`
}

// DefaultSettings returns the settings written on first use.
func DefaultSettings() AppSettings {
	return AppSettings{
		AffiliateLinkBase:        DefaultAffiliateLinkBase,
		CategoryStorePreferences: map[Category]string{},
	}
}

// SearchTemplate picks the per-category preference, else the default base.
func (s AppSettings) SearchTemplate(c Category) string {
	if tpl := strings.TrimSpace(s.CategoryStorePreferences[c]); tpl != "" {
		return tpl
	}
	if base := strings.TrimSpace(s.AffiliateLinkBase); base != "" {
		return base
	}
	return DefaultAffiliateLinkBase
}

// AffiliateCacheEntry is a resolved reorder link remembered for a while.
type AffiliateCacheEntry struct {
	URL      string    `json:"affiliate_url"`
	Store    string    `json:"store"`
	CachedAt time.Time `json:"cachedAt"`
}

// ValidAt reports whether the entry is still fresh at now.
func (e AffiliateCacheEntry) ValidAt(now time.Time, ttl time.Duration) bool {
	return e.URL != "" && now.Sub(e.CachedAt) < ttl
}

// AffiliateKey builds the "name|category" cache key.
func AffiliateKey(name string, c Category) string {
	return name + "|" + string(c)
}
