package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper filters webhook redeliveries by provider message id. Seen is the
// read-only check; MarkSeen records the id once the message was accepted for
// processing. Keeping the two apart means a crash between receipt and
// enqueue does not suppress the gateway's redelivery.
type Deduper interface {
	Seen(ctx context.Context, businessID, providerID string) (bool, error)
	MarkSeen(ctx context.Context, businessID, providerID string) error
}

// RedisDeduper implements Deduper with one key per provider message id.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper. ttl bounds how long a redelivery is
// still recognized.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func dedupKey(businessID, providerID string) string {
	return fmt.Sprintf("inbound:%s:%s", businessID, providerID)
}

func (d *RedisDeduper) Seen(ctx context.Context, businessID, providerID string) (bool, error) {
	if providerID == "" {
		// No provider id means no dedup handle; process the message.
		return false, nil
	}
	n, err := d.client.Exists(ctx, dedupKey(businessID, providerID)).Result()
	if err != nil {
		return false, fmt.Errorf("conversation: dedup check: %w", err)
	}
	return n > 0, nil
}

func (d *RedisDeduper) MarkSeen(ctx context.Context, businessID, providerID string) error {
	if providerID == "" {
		return nil
	}
	if err := d.client.Set(ctx, dedupKey(businessID, providerID), 1, d.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: dedup mark: %w", err)
	}
	return nil
}

// NopDeduper never reports a duplicate. Useful in tests and when Redis is
// not configured.
type NopDeduper struct{}

func (NopDeduper) Seen(context.Context, string, string) (bool, error) { return false, nil }
func (NopDeduper) MarkSeen(context.Context, string, string) error     { return nil }
