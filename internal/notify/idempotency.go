package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore guards the Notifier stage against re-sending the same
// progress notification twice when a message is redelivered.
type IdempotencyStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	MarkSent(ctx context.Context, key string, ttl time.Duration) error
}

// RedisStore pings on construction so a bad NOTIFY_DEDUP_REDIS_URL fails
// at startup rather than on the first notification.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("notify: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("notify: redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("notify: exists: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) MarkSent(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("notify: set: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

// NoopStore is used when NOTIFY_DEDUP_REDIS_URL is unset: every notification
// is treated as unseen. Deduplication is an enrichment, not a hard
// requirement of the Notifier stage.
type NoopStore struct{}

func (NoopStore) Seen(ctx context.Context, key string) (bool, error) { return false, nil }
func (NoopStore) MarkSent(ctx context.Context, key string, ttl time.Duration) error { return nil }
