package domain

import (
	"testing"
	"time"
)

func TestEvaluate(t *testing.T) {
	expiry := NewDate(2025, time.March, 10)
	at := func(d int, hour int) time.Time {
		return time.Date(2025, time.March, d, hour, 30, 0, 0, time.UTC)
	}

	tests := []struct {
		name         string
		reminderDays int
		now          time.Time
		want         Status
	}{
		{name: "zero lead, day before expiry", reminderDays: 0, now: at(9, 23), want: StatusActive},
		{name: "zero lead, expiry day", reminderDays: 0, now: at(10, 0), want: StatusSoon},
		{name: "zero lead, late on expiry day", reminderDays: 0, now: at(10, 23), want: StatusSoon},
		{name: "zero lead, day after expiry", reminderDays: 0, now: at(11, 0), want: StatusExpired},
		{name: "three days lead, reminder start", reminderDays: 3, now: at(7, 8), want: StatusSoon},
		{name: "three days lead, day before reminder", reminderDays: 3, now: at(6, 8), want: StatusActive},
		{name: "far future", reminderDays: 3, now: at(1, 8), want: StatusActive},
		{name: "long past", reminderDays: 3, now: at(28, 8), want: StatusExpired},
		{name: "negative lead is never soon", reminderDays: -2, now: at(10, 8), want: StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(expiry, tt.reminderDays, tt.now, time.UTC)
			if got != tt.want {
				t.Errorf("Evaluate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	expiry := NewDate(2025, time.June, 1)
	now := time.Date(2025, time.May, 30, 12, 0, 0, 0, time.UTC)

	first := Evaluate(expiry, 2, now, time.UTC)
	for i := 0; i < 5; i++ {
		if got := Evaluate(expiry, 2, now, time.UTC); got != first {
			t.Fatalf("Evaluate() call %d = %q, first call = %q", i, got, first)
		}
	}
}

func TestEvaluateUsesLocationForToday(t *testing.T) {
	expiry := NewDate(2025, time.March, 10)
	// 23:30 UTC on the 10th is already the 11th in Tokyo.
	now := time.Date(2025, time.March, 10, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*60*60)

	if got := Evaluate(expiry, 0, now, time.UTC); got != StatusSoon {
		t.Errorf("Evaluate(UTC) = %q, want %q", got, StatusSoon)
	}
	if got := Evaluate(expiry, 0, now, tokyo); got != StatusExpired {
		t.Errorf("Evaluate(JST) = %q, want %q", got, StatusExpired)
	}
}

func TestStatusAlerting(t *testing.T) {
	if StatusActive.Alerting() {
		t.Error("Active should not alert")
	}
	if !StatusSoon.Alerting() || !StatusExpired.Alerting() {
		t.Error("Soon and Expired should alert")
	}
}
