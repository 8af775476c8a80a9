package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	keyPermission    = "shelfwatch:notify:permission"
	keyPrefixSentTag = "shelfwatch:notify:sent:"

	permissionGranted = "granted"
	permissionDenied  = "denied"
)

// RedisNotifier publishes messages on a pub/sub channel for any number of
// subscribers (push gateways, desktop agents).
//
// Each message is claimed with SET NX (tag plus content hash) before
// publishing, so identical content already published within dedupTTL is
// dropped even if the engine's marker write was lost. An edited item
// produces different content and is published again.
type RedisNotifier struct {
	client   *redis.Client
	channel  string
	allow    bool
	dedupTTL time.Duration
	log      logger.Logger
}

// NewRedisNotifier creates a pub/sub notifier.
func NewRedisNotifier(client *redis.Client, channel string, allow bool, dedupTTL time.Duration, log logger.Logger) *RedisNotifier {
	if dedupTTL <= 0 {
		dedupTTL = 24 * time.Hour
	}
	return &RedisNotifier{
		client:   client,
		channel:  channel,
		allow:    allow,
		dedupTTL: dedupTTL,
		log:      log,
	}
}

// RequestPermission grants when the host policy allows it and Redis is
// reachable. The outcome is persisted so every replica agrees.
func (n *RedisNotifier) RequestPermission(ctx context.Context) (bool, error) {
	decision := permissionDenied
	if n.allow {
		if err := n.client.Ping(ctx).Err(); err != nil {
			return false, fmt.Errorf("notification channel unavailable: %w", err)
		}
		decision = permissionGranted
	}
	if err := n.client.Set(ctx, keyPermission, decision, 0).Err(); err != nil {
		return false, fmt.Errorf("failed to store permission: %w", err)
	}
	return decision == permissionGranted, nil
}

func (n *RedisNotifier) PermissionGranted(ctx context.Context) bool {
	v, err := n.client.Get(ctx, keyPermission).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			n.log.Warn("failed to read notification permission", logger.Error(err))
		}
		return false
	}
	return v == permissionGranted
}

func (n *RedisNotifier) Deliver(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := sentKey(msg.Tag, payload)
	fresh, err := n.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), n.dedupTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to claim tag %s: %w", msg.Tag, err)
	}
	if !fresh {
		n.log.Debug("notification already published, skipping", logger.String("tag", msg.Tag))
		return nil
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		// Release the claim so the next run can retry.
		n.client.Del(ctx, key)
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func sentKey(tag string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return keyPrefixSentTag + tag + ":" + hex.EncodeToString(sum[:6])
}
