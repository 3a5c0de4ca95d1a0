package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/cache"
	"connectly/internal/cache/cachetest"
	"connectly/internal/model"
	"connectly/internal/repository/repotest"
)

// brokenCache fails every call.
type brokenCache struct{ cache.FeedCache }

var errCacheDown = errors.New("cache down")

func (brokenCache) Exists(context.Context, string) (bool, error) { return false, errCacheDown }

type feedFixture struct {
	users *repotest.Users
	posts *repotest.Posts
	ada   *model.User
	bob   *model.User
	carol *model.User
}

// newFeedFixture: ada follows bob; nobody follows carol.
func newFeedFixture(t *testing.T) *feedFixture {
	t.Helper()
	ctx := context.Background()
	f := &feedFixture{users: repotest.NewUsers(), posts: repotest.NewPosts()}

	f.ada = &model.User{Name: "Ada", Email: "ada@example.com"}
	f.bob = &model.User{Name: "Bob", Email: "bob@example.com"}
	f.carol = &model.User{Name: "Carol", Email: "carol@example.com"}
	for _, u := range []*model.User{f.ada, f.bob, f.carol} {
		require.NoError(t, f.users.Create(ctx, u))
	}
	require.NoError(t, f.users.AddFollowing(ctx, f.ada.ID, f.bob.ID))
	require.NoError(t, f.users.AddFollower(ctx, f.bob.ID, f.ada.ID))
	return f
}

func (f *feedFixture) post(t *testing.T, author *model.User, text string, age time.Duration) *model.Post {
	t.Helper()
	p := &model.Post{Text: text, AuthorID: author.ID, Created: time.Now().UTC().Add(-age)}
	require.NoError(t, f.posts.Create(context.Background(), p))
	return p
}

func texts(posts []model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Text
	}
	return out
}

func TestFeedService_GetFeed(t *testing.T) {
	caches := map[string]func() cache.FeedCache{
		"without cache": func() cache.FeedCache { return nil },
		"with cache":    func() cache.FeedCache { return cachetest.NewFeedCache() },
		"broken cache":  func() cache.FeedCache { return brokenCache{} },
	}

	for name, newCache := range caches {
		t.Run(name, func(t *testing.T) {
			f := newFeedFixture(t)
			f.post(t, f.bob, "old", 2*time.Hour)
			f.post(t, f.bob, "new", time.Minute)
			f.post(t, f.ada, "mine", 0)
			f.post(t, f.carol, "stranger", 0)

			svc := NewFeedService(newCache(), f.posts, f.users)
			posts, err := svc.GetFeed(context.Background(), f.ada.ID)
			require.NoError(t, err)

			assert.Equal(t, []string{"new", "old"}, texts(posts))
			for _, p := range posts {
				require.NotNil(t, p.Author)
				assert.Equal(t, "Bob", p.Author.Name)
			}
		})
	}
}

func TestFeedService_GetFeed_NoFollowing(t *testing.T) {
	f := newFeedFixture(t)
	f.post(t, f.carol, "mine", 0)

	svc := NewFeedService(cachetest.NewFeedCache(), f.posts, f.users)
	posts, err := svc.GetFeed(context.Background(), f.carol.ID)
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestFeedService_GetFeed_UnknownUser(t *testing.T) {
	f := newFeedFixture(t)
	svc := NewFeedService(nil, f.posts, f.users)

	_, err := svc.GetFeed(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestFeedService_WarmsCacheOnMiss(t *testing.T) {
	f := newFeedFixture(t)
	p := f.post(t, f.bob, "hello", 0)
	feedCache := cachetest.NewFeedCache()

	svc := NewFeedService(feedCache, f.posts, f.users)
	_, err := svc.GetFeed(context.Background(), f.ada.ID)
	require.NoError(t, err)

	assert.True(t, feedCache.Contains(f.ada.ID.Hex(), p.ID.Hex()))
}

func TestFeedService_DropsStaleCacheEntries(t *testing.T) {
	f := newFeedFixture(t)
	ctx := context.Background()
	kept := f.post(t, f.bob, "kept", time.Minute)
	deleted := f.post(t, f.bob, "deleted", 0)
	stranger := f.post(t, f.carol, "stranger", 0)

	feedCache := cachetest.NewFeedCache()
	require.NoError(t, feedCache.WarmCache(ctx, f.ada.ID.Hex(), []cache.PostScore{
		{PostID: kept.ID.Hex(), Timestamp: kept.Created.UnixMilli()},
		{PostID: deleted.ID.Hex(), Timestamp: deleted.Created.UnixMilli()},
		{PostID: stranger.ID.Hex(), Timestamp: stranger.Created.UnixMilli()},
		{PostID: "not-an-id", Timestamp: 1},
	}))
	require.NoError(t, f.posts.Delete(ctx, deleted.ID))

	svc := NewFeedService(feedCache, f.posts, f.users)
	posts, err := svc.GetFeed(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, texts(posts))
}

func TestFeedService_ReadsFromWarmCache(t *testing.T) {
	f := newFeedFixture(t)
	ctx := context.Background()
	cached := f.post(t, f.bob, "cached", time.Minute)
	f.post(t, f.bob, "not yet fanned out", 0)

	feedCache := cachetest.NewFeedCache()
	require.NoError(t, feedCache.WarmCache(ctx, f.ada.ID.Hex(), []cache.PostScore{
		{PostID: cached.ID.Hex(), Timestamp: cached.Created.UnixMilli()},
	}))

	svc := NewFeedService(feedCache, f.posts, f.users)
	posts, err := svc.GetFeed(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cached"}, texts(posts))
}

func TestFeedService_FollowShowsUpWithoutWorker(t *testing.T) {
	f := newFeedFixture(t)
	ctx := context.Background()
	feedCache := cachetest.NewFeedCache()
	pub := &recordingPublisher{err: errors.New("redis down")}

	users := NewUserService(f.users, f.posts, pub, feedCache, nil, "")
	feeds := NewFeedService(feedCache, f.posts, f.users)

	f.post(t, f.bob, "bob post", 2*time.Hour)
	f.post(t, f.carol, "carol post", time.Hour)

	got, err := feeds.GetFeed(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob post"}, texts(got))

	warm, err := feedCache.Exists(ctx, f.ada.ID.Hex())
	require.NoError(t, err)
	require.True(t, warm)

	_, err = users.Follow(ctx, f.ada.ID, f.carol.ID)
	require.NoError(t, err)

	got, err = feeds.GetFeed(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol post", "bob post"}, texts(got))

	_, err = users.Unfollow(ctx, f.ada.ID, f.bob.ID)
	require.NoError(t, err)

	got, err = feeds.GetFeed(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol post"}, texts(got))
}
