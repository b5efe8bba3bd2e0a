package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore dedupes with SET NX and a TTL.
type RedisStore struct {
	client    redis.Cmdable
	prefix    string
	retention time.Duration
}

var _ Deduper = (*RedisStore)(nil)

func NewRedisStore(client redis.Cmdable, retention time.Duration) *RedisStore {
	if client == nil {
		panic("events: redis client required")
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisStore{client: client, prefix: "processed:", retention: retention}
}

func (s *RedisStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+provider+":"+eventID, time.Now().UTC().Unix(), s.retention).Result()
	if err != nil {
		return false, fmt.Errorf("events: redis mark processed: %w", err)
	}
	return ok, nil
}
