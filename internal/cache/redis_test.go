package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventPublisherDefaultsQueue(t *testing.T) {
	p := NewEventPublisher(nil, "")
	assert.Equal(t, DefaultQueueName, p.queue)
	assert.Equal(t, "custom", NewEventPublisher(nil, "custom").queue)
}

func TestPublishReportsUnreachableRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	p := NewEventPublisher(rdb, "q")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := p.PublishGameEvent(ctx, models.NewGameEvent(uuid.New(), 1, models.EventGameStarted, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'q'")
}
