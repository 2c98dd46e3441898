package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const wakeListKey = "uniqbot:jobs:wake"

// RedisQueue is a wake-up channel over a redis list. It carries job ids only
// as hints; the authoritative queue is the jobs table.
type RedisQueue struct {
	rdb *redis.Client
}

// NewRedisQueue wraps an existing redis client.
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

// Push appends a job id to the wake-up list.
func (q *RedisQueue) Push(ctx context.Context, jobID string) error {
	return q.rdb.LPush(ctx, wakeListKey, jobID).Err()
}

// Wait blocks up to timeout for a wake-up. Returns "" without error on
// timeout, which callers treat as a poll tick.
func (q *RedisQueue) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	vals, err := q.rdb.BRPop(ctx, timeout, wakeListKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	// BRPOP returns [key, value].
	if len(vals) != 2 {
		return "", nil
	}
	return vals[1], nil
}
