package seed

import (
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/google/uuid"
)

// Mapper converts seed entries into domain items.
type Mapper struct {
	now func() time.Time
	loc *time.Location
}

// NewMapper creates a mapper. Relative expiry offsets are counted from
// today in loc, as reported by now.
func NewMapper(now func() time.Time, loc *time.Location) *Mapper {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Mapper{now: now, loc: loc}
}

// MapItems converts a seed file into normalized items. Entries without a
// name are skipped; an entry without any expiry is an error.
func (m *Mapper) MapItems(f File) ([]domain.Item, error) {
	now := m.now()
	today := domain.DateOf(now.In(m.loc))
	items := make([]domain.Item, 0, len(f.Items))

	for i, e := range f.Items {
		if e.Name == "" {
			continue
		}

		var expiry domain.Date
		switch {
		case e.ExpiryDate != "":
			d, err := domain.ParseDateIn(e.ExpiryDate, m.loc)
			if err != nil {
				return nil, fmt.Errorf("seed item %d (%s): %w", i, e.Name, err)
			}
			expiry = d
		case e.ExpiresInDays != nil:
			expiry = today.AddDays(*e.ExpiresInDays)
		default:
			return nil, fmt.Errorf("seed item %d (%s): expiryDate or expiresInDays is required", i, e.Name)
		}

		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}

		item := domain.Item{
			ID:           id,
			CreatedAt:    now.Add(time.Duration(i) * time.Millisecond),
			Name:         e.Name,
			Category:     domain.Category(e.Category),
			Notes:        e.Notes,
			ExpiryDate:   expiry,
			ReminderDays: e.ReminderDays,
		}
		item.Normalize()
		items = append(items, item)
	}

	return items, nil
}

// Source produces the seed items on demand. Stores call it on first read.
type Source func() ([]domain.Item, error)

// NewSource wires a loader and mapper together.
func NewSource(l *Loader, m *Mapper) Source {
	return func() ([]domain.Item, error) {
		f, err := l.Load()
		if err != nil {
			return nil, err
		}
		return m.MapItems(f)
	}
}
