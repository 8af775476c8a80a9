package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisNotifier(t *testing.T, allow bool) (*miniredis.Miniredis, *redis.Client, *RedisNotifier) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client, NewRedisNotifier(client, "test:notifications", allow, time.Hour, logger.NewNop())
}

func TestRedisNotifierPermission(t *testing.T) {
	tests := []struct {
		name  string
		allow bool
	}{
		{name: "allowed", allow: true},
		{name: "denied", allow: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, n := newRedisNotifier(t, tt.allow)
			ctx := context.Background()

			if n.PermissionGranted(ctx) {
				t.Fatal("permission must start ungranted")
			}
			granted, err := n.RequestPermission(ctx)
			if err != nil {
				t.Fatalf("RequestPermission() error = %v", err)
			}
			if granted != tt.allow || n.PermissionGranted(ctx) != tt.allow {
				t.Errorf("granted = %v, PermissionGranted = %v, want %v", granted, n.PermissionGranted(ctx), tt.allow)
			}
		})
	}
}

func TestRedisNotifierPublishesOncePerTag(t *testing.T) {
	mr, client, n := newRedisNotifier(t, true)
	ctx := context.Background()

	sub := client.Subscribe(ctx, "test:notifications")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	msg := Message{Title: "Item Expired!", Body: "Milk has expired. Buy a fresh one now.", Tag: "expired-1",
		Metadata: map[string]string{"url": ItemsURL}}
	for i := 0; i < 2; i++ {
		if err := n.Deliver(ctx, msg); err != nil {
			t.Fatalf("Deliver() #%d error = %v", i, err)
		}
	}

	select {
	case got := <-sub.Channel():
		var decoded Message
		if err := json.Unmarshal([]byte(got.Payload), &decoded); err != nil {
			t.Fatalf("payload is not a message: %v", err)
		}
		if decoded.Tag != "expired-1" || decoded.Metadata["url"] != ItemsURL {
			t.Errorf("published = %+v", decoded)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}

	select {
	case extra := <-sub.Channel():
		t.Errorf("duplicate tag was published again: %s", extra.Payload)
	case <-time.After(100 * time.Millisecond):
	}

	payload, _ := json.Marshal(msg)
	if ttl := mr.TTL(sentKey(msg.Tag, payload)); ttl != time.Hour {
		t.Errorf("dedup ttl = %v, want 1h", ttl)
	}
}

func TestRedisNotifierRepublishesChangedContent(t *testing.T) {
	_, client, n := newRedisNotifier(t, true)
	ctx := context.Background()

	sub := client.Subscribe(ctx, "test:notifications")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	msg := Message{Title: "Expiring Soon!", Body: "Milk is expiring soon. Tap to reorder.", Tag: "expiring-soon-1",
		Metadata: map[string]string{"expiry_date": "2026-03-12"}}
	if err := n.Deliver(ctx, msg); err != nil {
		t.Fatal(err)
	}
	msg.Metadata = map[string]string{"expiry_date": "2026-03-14"}
	if err := n.Deliver(ctx, msg); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-sub.Channel():
		case <-time.After(2 * time.Second):
			t.Fatalf("message %d not published", i+1)
		}
	}
}
