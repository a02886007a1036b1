package delivery

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lease grants exclusive claim on a message for one dispatch pass. It closes
// the window where an interval tick and an enqueue-triggered pass could both
// send the same still-pending message.
type Lease interface {
	Acquire(ctx context.Context, messageID string) (bool, error)
	Release(ctx context.Context, messageID string) error
}

const leaseKeyPrefix = "triage:dispatch:lease:"

// RedisLease implements Lease with SET NX and a TTL guard against worker death.
type RedisLease struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLease builds a lease manager.
func NewRedisLease(client *redis.Client, ttl time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLease{client: client, ttl: ttl}
}

func (l *RedisLease) Acquire(ctx context.Context, messageID string) (bool, error) {
	return l.client.SetNX(ctx, leaseKeyPrefix+messageID, "1", l.ttl).Result()
}

func (l *RedisLease) Release(ctx context.Context, messageID string) error {
	return l.client.Del(ctx, leaseKeyPrefix+messageID).Err()
}
