package services

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Locker guards a key across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewLocker returns a Redis-backed locker, or one that always succeeds when
// client is nil.
func NewLocker(client *redis.Client) Locker {
	if client == nil {
		return noopLocker{}
	}
	return &RedisLocker{client: client, prefix: "nebula:lock:"}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+key, 1, ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (noopLocker) Release(context.Context, string) error                       { return nil }
