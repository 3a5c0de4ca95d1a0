package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends events to a stream and returns the entry id.
type Publisher interface {
	Publish(ctx context.Context, stream string, event FeedEvent) (messageID string, err error)
}

type RedisPublisher struct {
	client *redis.Client
	maxLen int64
}

func NewPublisher(client *redis.Client) Publisher {
	return &RedisPublisher{client: client, maxLen: StreamMaxLen}
}

func (p *RedisPublisher) Publish(ctx context.Context, stream string, event FeedEvent) (string, error) {
	start := time.Now()

	values, err := event.encode()
	if err != nil {
		return "", err
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		log.Printf("[Publisher] XADD %s type=%s failed: %v", stream, event.Type, err)
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}

	log.Printf("[Publisher] XADD %s type=%s id=%s in %v", stream, event.Type, id, time.Since(start))
	return id, nil
}

// NopPublisher discards events. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, FeedEvent) (string, error) {
	return "", nil
}
