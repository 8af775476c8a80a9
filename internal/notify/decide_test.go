package notify

import (
	"testing"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
)

func TestDecide(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	on := domain.AppSettings{NotificationsEnabled: true}

	item := func(expiry domain.Date, lead int) domain.Item {
		return domain.Item{ID: "x", Name: "x", ExpiryDate: expiry, ReminderDays: lead}
	}
	marked := func(it domain.Item, s domain.Status) domain.Item {
		it.LastNotifiedStatus = domain.Some(s)
		return it
	}
	snoozed := func(it domain.Item, until time.Time) domain.Item {
		it.SnoozedUntil = domain.Some(until)
		return it
	}

	soon := item(domain.NewDate(2025, 3, 11), 3)
	expired := item(domain.NewDate(2025, 3, 9), 0)
	active := item(domain.NewDate(2025, 4, 1), 3)

	tests := []struct {
		name     string
		item     domain.Item
		settings domain.AppSettings
		want     domain.Status
		wantDue  bool
	}{
		{name: "soon, never notified", item: soon, settings: on, want: domain.StatusSoon, wantDue: true},
		{name: "expired, never notified", item: expired, settings: on, want: domain.StatusExpired, wantDue: true},
		{name: "active never due", item: active, settings: on},
		{name: "soon already notified", item: marked(soon, domain.StatusSoon), settings: on},
		{name: "expired after soon", item: marked(expired, domain.StatusSoon), settings: on, want: domain.StatusExpired, wantDue: true},
		{name: "snoozed", item: snoozed(expired, now.Add(time.Hour)), settings: on},
		{name: "snooze ended", item: snoozed(expired, now), settings: on, want: domain.StatusExpired, wantDue: true},
		{name: "notifications off", item: expired, settings: domain.AppSettings{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := Decide([]domain.Item{tt.item}, tt.settings, now, time.UTC)
			if !tt.wantDue {
				if len(due) != 0 {
					t.Errorf("Decide() = %+v, want nothing due", due)
				}
				return
			}
			if len(due) != 1 || due[0].Status != tt.want {
				t.Errorf("Decide() = %+v, want one due with %q", due, tt.want)
			}
		})
	}
}

func TestDigestTagIsOrderIndependent(t *testing.T) {
	a := Due{Item: domain.Item{ID: "a"}, Status: domain.StatusSoon}
	b := Due{Item: domain.Item{ID: "b"}, Status: domain.StatusExpired}

	if DigestMessage([]Due{a, b}).Tag != DigestMessage([]Due{b, a}).Tag {
		t.Error("digest tag must not depend on order")
	}
	c := Due{Item: domain.Item{ID: "b"}, Status: domain.StatusSoon}
	if DigestMessage([]Due{a, b}).Tag == DigestMessage([]Due{a, c}).Tag {
		t.Error("digest tag must change when a status changes")
	}
}

func TestCountByStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	items := []domain.Item{
		{ExpiryDate: domain.NewDate(2025, 3, 1)},
		{ExpiryDate: domain.NewDate(2025, 3, 10)},
		{ExpiryDate: domain.NewDate(2025, 5, 1), ReminderDays: 3},
		{ExpiryDate: domain.NewDate(2025, 6, 1), ReminderDays: 3},
	}
	got := CountByStatus(items, now, time.UTC)
	if got[domain.StatusExpired] != 1 || got[domain.StatusSoon] != 1 || got[domain.StatusActive] != 2 {
		t.Errorf("CountByStatus() = %v", got)
	}
}
