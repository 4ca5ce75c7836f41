// internal/historian/queue.go
package historian

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue yields raw journal payloads. Pop returns nil, nil when nothing arrived in time.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// RedisQueue pops from a Redis list with BLPOP.
type RedisQueue struct {
	rdb  *redis.Client
	name string
}

// NewRedisQueue reads from the named list.
func NewRedisQueue(rdb *redis.Client, name string) *RedisQueue {
	return &RedisQueue{rdb: rdb, name: name}
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res[0] is the list name, res[1] the payload
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}
