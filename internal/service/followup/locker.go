package followup

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Locker claims a key for ttl. Acquire reports false when another process
// already holds it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}

// MemoryLocker is the single-process fallback used when no redis is
// configured. Claims do not survive a restart.
type MemoryLocker struct {
	c *cache.Cache
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{c: cache.New(cache.NoExpiration, time.Hour)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := l.c.Add(key, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (l *MemoryLocker) Release(ctx context.Context, key string) error {
	l.c.Delete(key)
	return nil
}
