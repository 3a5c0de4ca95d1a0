package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	FeedCachePrefix = "feed:user:"
	// FeedCacheCap matches the feed page size so a warm cache can serve a
	// whole feed.
	FeedCacheCap = 500
	FeedCacheTTL = 24 * time.Hour
)

// PostScore is a sorted-set member scored by post creation time.
type PostScore struct {
	PostID    string // ObjectID hex
	Timestamp int64  // Unix milliseconds
}

// FeedCache holds, per user, the ids of the posts that belong in their feed.
// Post bodies are never cached.
type FeedCache interface {
	// AddPosts merges posts into a user's feed cache only if the cache already
	// exists, so a partial feed is never mistaken for a warm one. Reports
	// whether the cache existed.
	AddPosts(ctx context.Context, userID string, posts ...PostScore) (bool, error)

	// RemovePosts removes posts from a user's feed cache with a single ZREM.
	RemovePosts(ctx context.Context, userID string, postIDs ...string) error

	// GetFeed returns up to limit post IDs, newest first.
	GetFeed(ctx context.Context, userID string, limit int) ([]string, error)

	// WarmCache bulk-inserts posts into a user's feed cache.
	WarmCache(ctx context.Context, userID string, posts []PostScore) error

	// Exists checks if a user has a feed cache entry.
	// Service layer should warm the cache when this returns false.
	Exists(ctx context.Context, userID string) (bool, error)

	// Delete drops a user's feed cache entirely.
	Delete(ctx context.Context, userIDs ...string) error
}

// RedisFeedCache keeps one sorted set per user.
type RedisFeedCache struct {
	client *redis.Client
}

func NewFeedCache(client *redis.Client) FeedCache {
	return &RedisFeedCache{client: client}
}

func feedKey(userID string) string {
	return FeedCachePrefix + userID
}

// addIfExistsScript runs ZADD + ZREMRANGEBYRANK (trim to cap) + EXPIRE, but
// only when the key exists.
// ARGV: cap, ttl seconds, then score/member pairs.
var addIfExistsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
for i = 3, #ARGV, 2 do
	redis.call('ZADD', KEYS[1], ARGV[i], ARGV[i + 1])
end
redis.call('ZREMRANGEBYRANK', KEYS[1], 0, -tonumber(ARGV[1]) - 1)
redis.call('EXPIRE', KEYS[1], ARGV[2])
return 1
`)

func (c *RedisFeedCache) AddPosts(ctx context.Context, userID string, posts ...PostScore) (bool, error) {
	if len(posts) == 0 {
		return false, nil
	}
	startTime := time.Now()

	args := make([]interface{}, 0, 2+2*len(posts))
	args = append(args, FeedCacheCap, int64(FeedCacheTTL/time.Second))
	for _, p := range posts {
		args = append(args, p.Timestamp, p.PostID)
	}

	applied, err := addIfExistsScript.Run(ctx, c.client, []string{feedKey(userID)}, args...).Int()
	if err != nil {
		log.Printf("[FeedCache] AddPosts FAILED: user=%s posts=%d err=%v", userID, len(posts), err)
		return false, fmt.Errorf("add posts to feed: %w", err)
	}

	log.Printf("[FeedCache] AddPosts OK: user=%s posts=%d applied=%t duration=%v",
		userID, len(posts), applied == 1, time.Since(startTime))
	return applied == 1, nil
}

func (c *RedisFeedCache) RemovePosts(ctx context.Context, userID string, postIDs ...string) error {
	if len(postIDs) == 0 {
		return nil
	}

	members := make([]interface{}, len(postIDs))
	for i, id := range postIDs {
		members[i] = id
	}

	removed, err := c.client.ZRem(ctx, feedKey(userID), members...).Result()
	if err != nil {
		log.Printf("[FeedCache] RemovePosts FAILED: user=%s posts=%d err=%v", userID, len(postIDs), err)
		return fmt.Errorf("remove posts from feed: %w", err)
	}

	log.Printf("[FeedCache] RemovePosts OK: user=%s removed=%d", userID, removed)
	return nil
}

func (c *RedisFeedCache) GetFeed(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 || limit > FeedCacheCap {
		limit = FeedCacheCap
	}
	key := feedKey(userID)
	startTime := time.Now()

	ids, err := c.client.ZRevRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		log.Printf("[FeedCache] GetFeed FAILED: user=%s err=%v", userID, err)
		return nil, fmt.Errorf("get feed: %w", err)
	}

	// Refresh TTL on access
	c.client.Expire(ctx, key, FeedCacheTTL)

	log.Printf("[FeedCache] GetFeed OK: user=%s returned=%d duration=%v", userID, len(ids), time.Since(startTime))
	return ids, nil
}

// WarmCache bulk-inserts posts into a user's feed cache using a pipeline.
func (c *RedisFeedCache) WarmCache(ctx context.Context, userID string, posts []PostScore) error {
	if len(posts) == 0 {
		log.Printf("[FeedCache] WarmCache: user=%s posts=0 (nothing to warm)", userID)
		return nil
	}

	key := feedKey(userID)
	startTime := time.Now()

	members := make([]redis.Z, len(posts))
	for i, p := range posts {
		members[i] = redis.Z{Score: float64(p.Timestamp), Member: p.PostID}
	}

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))
	pipe.Expire(ctx, key, FeedCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedCache] WarmCache FAILED: user=%s posts=%d err=%v", userID, len(posts), err)
		return fmt.Errorf("warm cache: %w", err)
	}

	log.Printf("[FeedCache] WarmCache OK: user=%s posts=%d duration=%v", userID, len(posts), time.Since(startTime))
	return nil
}

func (c *RedisFeedCache) Exists(ctx context.Context, userID string) (bool, error) {
	exists, err := c.client.Exists(ctx, feedKey(userID)).Result()
	if err != nil {
		log.Printf("[FeedCache] Exists FAILED: user=%s err=%v", userID, err)
		return false, fmt.Errorf("check cache exists: %w", err)
	}
	return exists > 0, nil
}

func (c *RedisFeedCache) Delete(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = feedKey(id)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[FeedCache] Delete FAILED: users=%d err=%v", len(userIDs), err)
		return fmt.Errorf("delete feed caches: %w", err)
	}

	log.Printf("[FeedCache] Delete OK: users=%d", len(userIDs))
	return nil
}
