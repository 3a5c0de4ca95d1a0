package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one stream entry. Event is zero when the entry could not be
// decoded; it still has to be acknowledged.
type Message struct {
	ID    string
	Event FeedEvent
}

// Consumer reads a stream through a consumer group.
type Consumer interface {
	EnsureGroup(ctx context.Context, stream, group string) error
	// Read blocks up to block for entries not yet delivered to the group.
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)
	// ReadPending returns entries delivered to consumer but never acknowledged.
	ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error)
	Ack(ctx context.Context, stream, group string, messageIDs ...string) error
}

// special XREADGROUP ids
const (
	undelivered = ">"
	ownPending  = "0"
)

type RedisConsumer struct {
	client *redis.Client
}

func NewConsumer(client *redis.Client) Consumer {
	return &RedisConsumer{client: client}
}

// EnsureGroup creates group at the start of stream, creating the stream if
// needed. An existing group is not an error.
func (c *RedisConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	switch {
	case err == nil:
		log.Printf("[Consumer] created group %s on %s", group, stream)
	case strings.Contains(err.Error(), "BUSYGROUP"):
		log.Printf("[Consumer] group %s on %s already exists", group, stream)
	default:
		return fmt.Errorf("xgroup create %s/%s: %w", stream, group, err)
	}
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	return c.read(ctx, stream, undelivered, group, consumer, count, block)
}

func (c *RedisConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error) {
	// a negative Block omits BLOCK so the pending read returns immediately
	return c.read(ctx, stream, ownPending, group, consumer, count, -1)
}

func (c *RedisConsumer) read(ctx context.Context, stream, from, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	res, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, from},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %s/%s: %w", stream, group, err)
	}

	var out []Message
	for _, s := range res {
		for _, entry := range s.Messages {
			event, err := decodeEvent(entry.Values)
			if err != nil {
				log.Printf("[Consumer] entry %s on %s is malformed: %v", entry.ID, stream, err)
			}
			out = append(out, Message{ID: entry.ID, Event: event})
		}
	}
	return out, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, stream, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("xack %s/%s: %w", stream, group, err)
	}
	return nil
}
