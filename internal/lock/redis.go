package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLocker serializes generations per account across multiple API
// instances using SET NX with a TTL. The TTL is a liveness backstop for
// crashed holders and must exceed the longest possible generate call.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLocker constructs a distributed locker. A zero ttl defaults to six
// minutes, which covers the 300-second poll budget with slack.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 6 * time.Minute
	}
	return &RedisLocker{rdb: rdb, prefix: "neuroforge:genlock:", ttl: ttl}
}

// Acquire implements AccountLocker.
func (l *RedisLocker) Acquire(ctx context.Context, userID int64) (func(), error) {
	key := fmt.Sprintf("%s%d", l.prefix, userID)
	ok, err := l.rdb.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock: redis setnx: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// The request context may already be done; releasing must still
			// reach redis.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = l.rdb.Del(ctx, key).Err()
		})
	}
	return release, nil
}
