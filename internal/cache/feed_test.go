package cache

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func scores(n int) []PostScore {
	out := make([]PostScore, n)
	for i := range out {
		out[i] = PostScore{PostID: fmt.Sprintf("p%04d", i), Timestamp: int64(i)}
	}
	return out
}

func TestRedisFeedCache(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	c := NewFeedCache(client)

	user := uuid.NewString()
	t.Cleanup(func() { _ = c.Delete(context.Background(), user) })

	t.Run("add to cold cache is a no-op", func(t *testing.T) {
		applied, err := c.AddPosts(ctx, user, PostScore{PostID: "x", Timestamp: 1})
		require.NoError(t, err)
		assert.False(t, applied)

		exists, err := c.Exists(ctx, user)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("warm then read newest first", func(t *testing.T) {
		require.NoError(t, c.WarmCache(ctx, user, scores(3)))

		ids, err := c.GetFeed(ctx, user, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"p0002", "p0001", "p0000"}, ids)

		ttl, err := client.TTL(ctx, feedKey(user)).Result()
		require.NoError(t, err)
		assert.Positive(t, ttl)
	})

	t.Run("add and remove on warm cache", func(t *testing.T) {
		applied, err := c.AddPosts(ctx, user, PostScore{PostID: "new", Timestamp: 100})
		require.NoError(t, err)
		assert.True(t, applied)

		ids, err := c.GetFeed(ctx, user, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"new"}, ids)

		require.NoError(t, c.RemovePosts(ctx, user, "new", "p0000"))
		ids, err = c.GetFeed(ctx, user, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"p0002", "p0001"}, ids)
	})

	t.Run("trimmed to cap", func(t *testing.T) {
		require.NoError(t, c.WarmCache(ctx, user, scores(FeedCacheCap+20)))
		n, err := client.ZCard(ctx, feedKey(user)).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(FeedCacheCap), n)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Delete(ctx, user))
		exists, err := c.Exists(ctx, user)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
