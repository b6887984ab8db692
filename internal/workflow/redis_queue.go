package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisQueue is a Queue stored in a redis list so that submitters and workers
// can live in different processes.
type RedisQueue struct {
	rdb         *goredis.Client
	key         string
	pollTimeout time.Duration
}

// NewRedisQueue wraps a connected client. The caller owns the connection
// check; an empty key uses pipeline:events.
func NewRedisQueue(rdb *goredis.Client, key string) *RedisQueue {
	if key == "" {
		key = "pipeline:events"
	}
	return &RedisQueue{rdb: rdb, key: key, pollTimeout: time.Second}
}

// Publish pushes the event onto the head of the list.
func (q *RedisQueue) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

// Receive pops the oldest event, polling until one arrives or ctx ends.
func (q *RedisQueue) Receive(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		res, err := q.rdb.BRPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if errors.Is(err, goredis.ErrClosed) {
			return Event{}, ErrQueueClosed
		}
		if err != nil {
			if ctx.Err() != nil {
				return Event{}, ctx.Err()
			}
			return Event{}, fmt.Errorf("redis brpop: %w", err)
		}
		// res is [key, value]
		if len(res) != 2 {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
			return Event{}, fmt.Errorf("bad event payload in %s: %w", q.key, err)
		}
		return ev, nil
	}
}

// Close closes the underlying redis client.
func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}
