package redis

import (
	"fmt"
	"strings"
)

const (
	// KeyPrefixItem is the prefix for item records
	KeyPrefixItem = "shelfwatch:item:"
	// KeyPrefixAffiliate is the prefix for cached reorder links
	KeyPrefixAffiliate = "shelfwatch:affiliate:"
	// KeyAllItems is the set of all item IDs
	KeyAllItems = "shelfwatch:items:all"
	// KeySettings holds the single settings record
	KeySettings = "shelfwatch:settings"
	// KeySeeded marks that the sample dataset was offered once
	KeySeeded = "shelfwatch:seeded"
)

// ItemKey returns the Redis key for an item by ID
func ItemKey(id string) string {
	return KeyPrefixItem + id
}

// AffiliateKey returns the Redis key for a cached reorder link
func AffiliateKey(key string) string {
	return KeyPrefixAffiliate + key
}

// ExtractItemID extracts the item ID from a Redis key
func ExtractItemID(key string) (string, error) {
	if !strings.HasPrefix(key, KeyPrefixItem) || len(key) == len(KeyPrefixItem) {
		return "", fmt.Errorf("invalid item key: %s", key)
	}
	return key[len(KeyPrefixItem):], nil
}
