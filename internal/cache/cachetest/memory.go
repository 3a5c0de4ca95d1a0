// Package cachetest provides an in-memory FeedCache for tests.
package cachetest

import (
	"context"
	"sort"
	"sync"

	"connectly/internal/cache"
)

// FeedCache mirrors RedisFeedCache semantics on plain maps.
type FeedCache struct {
	mu    sync.Mutex
	feeds map[string]map[string]int64 // user -> post -> score
}

func NewFeedCache() *FeedCache {
	return &FeedCache{feeds: make(map[string]map[string]int64)}
}

var _ cache.FeedCache = (*FeedCache)(nil)

func (c *FeedCache) AddPosts(_ context.Context, userID string, posts ...cache.PostScore) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	feed, ok := c.feeds[userID]
	if !ok || len(posts) == 0 {
		return false, nil
	}
	for _, p := range posts {
		feed[p.PostID] = p.Timestamp
	}
	c.trim(userID)
	return true, nil
}

func (c *FeedCache) RemovePosts(_ context.Context, userID string, postIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	feed := c.feeds[userID]
	for _, id := range postIDs {
		delete(feed, id)
	}
	// Redis drops a sorted set once its last member is removed
	if feed != nil && len(feed) == 0 {
		delete(c.feeds, userID)
	}
	return nil
}

func (c *FeedCache) GetFeed(_ context.Context, userID string, limit int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.sorted(userID)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (c *FeedCache) WarmCache(_ context.Context, userID string, posts []cache.PostScore) error {
	if len(posts) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	feed, ok := c.feeds[userID]
	if !ok {
		feed = make(map[string]int64, len(posts))
		c.feeds[userID] = feed
	}
	for _, p := range posts {
		feed[p.PostID] = p.Timestamp
	}
	c.trim(userID)
	return nil
}

func (c *FeedCache) Exists(_ context.Context, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.feeds[userID]
	return ok, nil
}

func (c *FeedCache) Delete(_ context.Context, userIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range userIDs {
		delete(c.feeds, id)
	}
	return nil
}

// Contains reports whether postID is in userID's cached feed.
func (c *FeedCache) Contains(userID, postID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.feeds[userID][postID]
	return ok
}

// Size returns the number of cached posts for userID.
func (c *FeedCache) Size(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.feeds[userID])
}

// sorted returns post ids newest first. Callers hold mu.
func (c *FeedCache) sorted(userID string) []string {
	feed := c.feeds[userID]
	ids := make([]string, 0, len(feed))
	for id := range feed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if feed[ids[i]] != feed[ids[j]] {
			return feed[ids[i]] > feed[ids[j]]
		}
		return ids[i] > ids[j]
	})
	return ids
}

// trim keeps the newest FeedCacheCap entries. Callers hold mu.
func (c *FeedCache) trim(userID string) {
	ids := c.sorted(userID)
	for _, id := range ids[min(len(ids), cache.FeedCacheCap):] {
		delete(c.feeds[userID], id)
	}
}
