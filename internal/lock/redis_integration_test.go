//go:build integration
// +build integration

package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *goredis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping integration test: failed to connect to redis: %v", err)
	}
	return rdb
}

func TestRedisLocker_Exclusive_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	rdb := setupTestRedis(t)
	defer rdb.Close()

	l := NewRedisLocker(rdb, "test-lock:"+uuid.NewString()+":", time.Minute)
	unlock, err := l.Lock(context.Background(), "artifact")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "artifact")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	again, err := l.Lock(context.Background(), "artifact")
	require.NoError(t, err)
	again()
}
