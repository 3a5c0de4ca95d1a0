package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/cache"
	"connectly/internal/queue"
)

// FollowerProvider looks up who follows a user.
type FollowerProvider interface {
	GetFollowerIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// RecentPostsProvider returns a user's posts as (postID, created) pairs, newest first.
type RecentPostsProvider interface {
	GetRecentPostsByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]cache.PostScore, error)
}

// Handler keeps the cached feeds in step with writes to the database.
// It only ever touches caches that already exist; a cold feed is rebuilt
// from the database on its next read.
type Handler struct {
	feeds     cache.FeedCache
	followers FollowerProvider
	posts     RecentPostsProvider

	routes map[string]func(context.Context, queue.FeedEvent) error
}

func NewHandler(feeds cache.FeedCache, followers FollowerProvider, posts RecentPostsProvider) *Handler {
	h := &Handler{feeds: feeds, followers: followers, posts: posts}
	h.routes = map[string]func(context.Context, queue.FeedEvent) error{
		queue.EventPostCreated:    h.postCreated,
		queue.EventPostDeleted:    h.postDeleted,
		queue.EventUserFollowed:   h.userFollowed,
		queue.EventUserUnfollowed: h.userUnfollowed,
		queue.EventUserDeleted:    h.userDeleted,
	}
	return h
}

// HandleEvent applies one event. Unknown types are an error.
func (h *Handler) HandleEvent(ctx context.Context, event queue.FeedEvent) error {
	route, ok := h.routes[event.Type]
	if !ok {
		return fmt.Errorf("unknown event type: %q", event.Type)
	}

	start := time.Now()
	if err := route(ctx, event); err != nil {
		log.Printf("[Worker] %s failed after %v: %v", event.Type, time.Since(start), err)
		return err
	}
	log.Printf("[Worker] %s applied in %v", event.Type, time.Since(start))
	return nil
}

// fanOut runs apply against the feed of every follower of authorHex.
// Per-follower failures are counted, not returned.
func (h *Handler) fanOut(ctx context.Context, authorHex string, apply func(feedOwner string) error) (followers, failed int, err error) {
	authorID, err := primitive.ObjectIDFromHex(authorHex)
	if err != nil {
		return 0, 0, fmt.Errorf("author id %q: %w", authorHex, err)
	}
	ids, err := h.followers.GetFollowerIDs(ctx, authorID)
	if err != nil {
		return 0, 0, fmt.Errorf("followers of %s: %w", authorHex, err)
	}

	for _, id := range ids {
		if err := apply(id.Hex()); err != nil {
			log.Printf("[Worker] feed %s: %v", id.Hex(), err)
			failed++
		}
	}
	return len(ids), failed, nil
}

// postCreated pushes the post into each follower's warm feed. Authors never
// see their own posts in their feed.
func (h *Handler) postCreated(ctx context.Context, ev queue.FeedEvent) error {
	entry := cache.PostScore{PostID: ev.PostID, Timestamp: ev.Created}
	cached := 0

	n, failed, err := h.fanOut(ctx, ev.AuthorID, func(owner string) error {
		applied, err := h.feeds.AddPosts(ctx, owner, entry)
		if applied {
			cached++
		}
		return err
	})
	if err != nil {
		return err
	}

	log.Printf("[Worker] post %s fanned out: followers=%d cached=%d failed=%d", ev.PostID, n, cached, failed)
	return nil
}

func (h *Handler) postDeleted(ctx context.Context, ev queue.FeedEvent) error {
	n, failed, err := h.fanOut(ctx, ev.AuthorID, func(owner string) error {
		return h.feeds.RemovePosts(ctx, owner, ev.PostID)
	})
	if err != nil {
		return err
	}

	log.Printf("[Worker] post %s retracted: followers=%d failed=%d", ev.PostID, n, failed)
	return nil
}

// recentPosts returns what the followee could have contributed to a feed.
func (h *Handler) recentPosts(ctx context.Context, followeeHex string) ([]cache.PostScore, error) {
	id, err := primitive.ObjectIDFromHex(followeeHex)
	if err != nil {
		return nil, fmt.Errorf("followee id %q: %w", followeeHex, err)
	}
	posts, err := h.posts.GetRecentPostsByUser(ctx, id, cache.FeedCacheCap)
	if err != nil {
		return nil, fmt.Errorf("recent posts of %s: %w", followeeHex, err)
	}
	return posts, nil
}

// userFollowed backfills the follower's feed with the followee's recent posts.
func (h *Handler) userFollowed(ctx context.Context, ev queue.FeedEvent) error {
	posts, err := h.recentPosts(ctx, ev.FolloweeID)
	if err != nil || len(posts) == 0 {
		return err
	}

	applied, err := h.feeds.AddPosts(ctx, ev.FollowerID, posts...)
	if err != nil {
		return fmt.Errorf("backfill %s: %w", ev.FollowerID, err)
	}
	log.Printf("[Worker] feed %s backfilled from %s: posts=%d cached=%t", ev.FollowerID, ev.FolloweeID, len(posts), applied)
	return nil
}

func (h *Handler) userUnfollowed(ctx context.Context, ev queue.FeedEvent) error {
	posts, err := h.recentPosts(ctx, ev.FolloweeID)
	if err != nil || len(posts) == 0 {
		return err
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.PostID)
	}
	if err := h.feeds.RemovePosts(ctx, ev.FollowerID, ids...); err != nil {
		return fmt.Errorf("purge %s from %s: %w", ev.FolloweeID, ev.FollowerID, err)
	}
	return nil
}

// userDeleted drops the deleted user's feed and those of everyone who
// followed them.
func (h *Handler) userDeleted(ctx context.Context, ev queue.FeedEvent) error {
	owners := make([]string, 0, len(ev.Followers)+1)
	owners = append(owners, ev.UserID)
	owners = append(owners, ev.Followers...)

	if err := h.feeds.Delete(ctx, owners...); err != nil {
		return fmt.Errorf("drop feeds: %w", err)
	}
	log.Printf("[Worker] user %s removed: dropped %d feeds", ev.UserID, len(owners))
	return nil
}
