package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/cache"
	"connectly/internal/model"
	"connectly/internal/repository"
)

type FeedService struct {
	feedCache cache.FeedCache // nil when Redis is not configured
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
}

func NewFeedService(
	feedCache cache.FeedCache,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
) *FeedService {
	return &FeedService{
		feedCache: feedCache,
		postRepo:  postRepo,
		userRepo:  userRepo,
	}
}

// GetFeed returns posts by everyone the user follows, newest first, capped at
// model.FeedMaxPosts.
//
// With a cache the flow is:
// 1. Cache miss -> warm it from the posts collection
// 2. Read post IDs from the cache
// 3. Hydrate the post bodies from the database
// Any cache failure falls back to querying the database directly.
func (s *FeedService) GetFeed(ctx context.Context, userID primitive.ObjectID) ([]model.Post, error) {
	startTime := time.Now()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(user.Following) == 0 {
		return []model.Post{}, nil
	}

	var posts []model.Post
	if s.feedCache != nil {
		posts, err = s.fromCache(ctx, user)
		if err != nil {
			log.Printf("[FeedService] Cache path failed for user=%s, falling back: %v", userID.Hex(), err)
			posts = nil
		}
	}
	if posts == nil {
		posts, err = s.postRepo.ListByAuthors(ctx, user.Following, model.FeedMaxPosts)
		if err != nil {
			return nil, fmt.Errorf("list feed posts: %w", err)
		}
	}

	if err := populateSlice(ctx, s.userRepo, posts); err != nil {
		return nil, err
	}

	log.Printf("[FeedService] GetFeed OK: user=%s posts=%d duration=%v",
		userID.Hex(), len(posts), time.Since(startTime))
	return posts, nil
}

func (s *FeedService) fromCache(ctx context.Context, user *model.User) ([]model.Post, error) {
	key := user.ID.Hex()

	exists, err := s.feedCache.Exists(ctx, key)
	if err != nil {
		return nil, err
	}

	var ids []string
	if exists {
		ids, err = s.feedCache.GetFeed(ctx, key, model.FeedMaxPosts)
		if err != nil {
			return nil, err
		}
	} else {
		log.Printf("[FeedService] Cache miss for user=%s, warming...", key)
		ids, err = s.warmCache(ctx, user)
		if err != nil {
			return nil, err
		}
	}

	return s.hydratePosts(ctx, user, ids)
}

// warmCache loads the feed membership from the database, stores it and
// returns the post IDs newest first.
func (s *FeedService) warmCache(ctx context.Context, user *model.User) ([]string, error) {
	scores, err := s.postRepo.GetFeedPostIDs(ctx, user.Following, cache.FeedCacheCap)
	if err != nil {
		return nil, fmt.Errorf("get feed post ids: %w", err)
	}

	if err := s.feedCache.WarmCache(ctx, user.ID.Hex(), scores); err != nil {
		// The IDs are still good for this request
		log.Printf("[FeedService] Cache warm failed for user=%s: %v", user.ID.Hex(), err)
	}

	ids := make([]string, len(scores))
	for i, sc := range scores {
		ids[i] = sc.PostID
	}
	return ids, nil
}

// hydratePosts fetches post bodies and drops any the cache still lists but
// that were deleted or whose author the user no longer follows.
func (s *FeedService) hydratePosts(ctx context.Context, user *model.User, ids []string) ([]model.Post, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			log.Printf("[FeedService] Skipping malformed cached id=%q", id)
			continue
		}
		oids = append(oids, oid)
	}

	fetched, err := s.postRepo.GetByIDs(ctx, oids)
	if err != nil {
		return nil, fmt.Errorf("get posts by ids: %w", err)
	}

	following := make(map[primitive.ObjectID]bool, len(user.Following))
	for _, id := range user.Following {
		following[id] = true
	}

	posts := make([]model.Post, 0, len(fetched))
	for _, p := range fetched {
		if following[p.AuthorID] {
			posts = append(posts, p)
		}
	}

	sort.SliceStable(posts, func(i, j int) bool { return posts[i].Created.After(posts[j].Created) })
	return posts, nil
}
