// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list the game journal is pushed to.
const DefaultQueueName = "rolecast_events"

// ConnectRedis opens a client and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// EventPublisher pushes game events onto the journal queue consumed by the historian.
type EventPublisher struct {
	rdb   *redis.Client
	queue string
}

// NewEventPublisher returns a publisher for queue, defaulting to DefaultQueueName.
func NewEventPublisher(rdb *redis.Client, queue string) *EventPublisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &EventPublisher{rdb: rdb, queue: queue}
}

// PublishGameEvent serializes ev to JSON and appends it to the queue.
func (p *EventPublisher) PublishGameEvent(ctx context.Context, ev models.GameEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal game event: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}
