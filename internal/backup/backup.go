// Package backup exports the item collection as JSON and validates
// documents before they replace it.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidDocument is returned when an import is rejected.
var ErrInvalidDocument = errors.New("invalid backup document")

// importRecord holds the fields every imported entry must carry.
type importRecord struct {
	ID         string `json:"id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	ExpiryDate string `json:"expiryDate" validate:"required"`
}

var validate = validator.New()

// Filename names an export taken at now, e.g. expiry_backup_2025-03-10.json.
func Filename(now time.Time) string {
	return "expiry_backup_" + now.Format("2006-01-02") + ".json"
}

// Export renders items as an indented JSON array.
func Export(items []domain.Item) ([]byte, error) {
	if items == nil {
		items = []domain.Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backup: %w", err)
	}
	return data, nil
}

// Import parses and validates a backup. The document must be a JSON array
// whose entries each have a non-empty id, name and a parseable expiryDate,
// with no id repeated. Any violation rejects the whole document.
func Import(data []byte) ([]domain.Item, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidDocument)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	items := make([]domain.Item, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, entry := range raw {
		var rec importRecord
		if err := json.Unmarshal(entry, &rec); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidDocument, i, err)
		}
		if err := validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidDocument, i, err)
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("%w: entry %d: duplicate id %q", ErrInvalidDocument, i, rec.ID)
		}
		seen[rec.ID] = struct{}{}

		var it domain.Item
		if err := json.Unmarshal(entry, &it); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidDocument, i, err)
		}
		it.Normalize()
		items = append(items, it)
	}
	return items, nil
}
