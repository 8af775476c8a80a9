// Package notify decides which items need an alert and delivers them,
// either one message per item or a single digest.
package notify

import (
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
)

// Due is an item whose current alerting status has not been delivered yet.
type Due struct {
	Item   domain.Item
	Status domain.Status
}

// Decide returns the items that should be notified at now.
//
// An item is due when it is not snoozed, its status is Expiring Soon or
// Expired, and that status differs from its LastNotifiedStatus. Nothing is
// due while notifications are disabled. The input order is preserved.
func Decide(items []domain.Item, settings domain.AppSettings, now time.Time, loc *time.Location) []Due {
	if !settings.NotificationsEnabled {
		return nil
	}

	var due []Due
	for _, it := range items {
		if it.Snoozed(now) {
			continue
		}
		status := it.Status(now, loc)
		if !status.Alerting() {
			continue
		}
		if last, ok := it.LastNotifiedStatus.Get(); ok && last == status {
			continue
		}
		due = append(due, Due{Item: it, Status: status})
	}
	return due
}

// CountByStatus tallies items by their status at now.
func CountByStatus(items []domain.Item, now time.Time, loc *time.Location) map[domain.Status]int {
	counts := map[domain.Status]int{
		domain.StatusActive:  0,
		domain.StatusSoon:    0,
		domain.StatusExpired: 0,
	}
	for _, it := range items {
		counts[it.Status(now, loc)]++
	}
	return counts
}
