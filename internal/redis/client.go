package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Client is the single shared Redis connection pool used by the feed cache,
// the event publisher and the workers.
type Client struct {
	*redis.Client
}

// Connect parses redisURL, opens a pool and pings it so startup fails fast.
// URL format: redis://[:password@]host:port[/db]
func Connect(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := &Client{Client: redis.NewClient(opts)}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("Connected to redis at %s db=%d", opts.Addr, opts.DB)
	return client, nil
}
