package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Deletes the key only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every worker process using the same redis.
// A lock expires after TTL so a crashed holder cannot block the key forever.
type RedisLocker struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker creates a RedisLocker.
func NewRedisLocker(rdb *goredis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if prefix == "" {
		prefix = "lock:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, retry: 100 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("redis setnx %s: %w", k, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	return func() {
		// Release must not depend on the caller's context still being alive.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// On failure the TTL frees the key.
		_ = releaseScript.Run(rctx, l.rdb, []string{k}, token).Err()
	}, nil
}
