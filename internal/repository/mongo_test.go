package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"connectly/internal/config"
	"connectly/internal/database"
	"connectly/internal/model"
	"connectly/internal/repository"
)

// testDB connects to TEST_MONGO_URI and returns a throwaway database.
func testDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	cfg := &config.Config{MongoURI: uri, MongoDB: "connectly_test_" + primitive.NewObjectID().Hex()}
	client, db, err := database.Connect(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, database.EnsureIndexes(ctx, db))

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestUserRepository_Mongo(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)

	ada := &model.User{Name: "Ada", Email: "ada@example.com", Password: "hash"}
	bob := &model.User{Name: "Bob", Email: "bob@example.com", Password: "hash"}
	require.NoError(t, users.Create(ctx, ada))
	require.NoError(t, users.Create(ctx, bob))

	t.Run("duplicate email", func(t *testing.T) {
		err := users.Create(ctx, &model.User{Name: "Ada 2", Email: "ada@example.com"})
		assert.ErrorIs(t, err, model.ErrUserExists)
	})

	t.Run("lookups", func(t *testing.T) {
		got, err := users.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, ada.ID, got.ID)
		assert.NotNil(t, got.Followers)

		_, err = users.GetByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, model.ErrUserNotFound)

		exists, err := users.ExistsByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.False(t, exists)

		refs, err := users.GetRefs(ctx, []primitive.ObjectID{ada.ID, primitive.NewObjectID()})
		require.NoError(t, err)
		assert.Equal(t, map[primitive.ObjectID]model.UserRef{ada.ID: {ID: ada.ID, Name: "Ada"}}, refs)
	})

	t.Run("follow graph", func(t *testing.T) {
		require.NoError(t, users.AddFollowing(ctx, ada.ID, bob.ID))
		require.NoError(t, users.AddFollowing(ctx, ada.ID, bob.ID))
		require.NoError(t, users.AddFollower(ctx, bob.ID, ada.ID))

		a, err := users.GetByID(ctx, ada.ID)
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{bob.ID}, a.Following)

		followers, err := users.GetFollowerIDs(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{ada.ID}, followers)

		assert.ErrorIs(t, users.AddFollowing(ctx, primitive.NewObjectID(), bob.ID), model.ErrUserNotFound)

		require.NoError(t, users.PullFromFollowGraph(ctx, ada.ID))
		b, err := users.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, b.Followers)
	})

	t.Run("update profile", func(t *testing.T) {
		bio := "hi"
		u, err := users.UpdateProfile(ctx, ada.ID, model.UpdateProfileRequest{Bio: &bio})
		require.NoError(t, err)
		assert.Equal(t, "hi", u.Bio)
		assert.Equal(t, "Ada", u.Name)
	})
}

func TestPostRepository_Mongo(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	posts := repository.NewPostRepository(db)

	author := primitive.NewObjectID()
	liker := primitive.NewObjectID()

	older := &model.Post{Text: "older", AuthorID: author, Created: time.Now().UTC().Add(-time.Hour)}
	newer := &model.Post{Text: "newer", AuthorID: author}
	require.NoError(t, posts.Create(ctx, older))
	require.NoError(t, posts.Create(ctx, newer))

	t.Run("list newest first", func(t *testing.T) {
		list, err := posts.ListByAuthors(ctx, []primitive.ObjectID{author}, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "newer", list[0].Text)
		assert.NotNil(t, list[0].Likes)

		ids, err := posts.GetFeedPostIDs(ctx, []primitive.ObjectID{author}, 1)
		require.NoError(t, err)
		require.Len(t, ids, 1)
		assert.Equal(t, newer.ID.Hex(), ids[0].PostID)
	})

	t.Run("concurrent likes land once", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = posts.AddLike(ctx, newer.ID, liker)
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, model.ErrAlreadyLiked)
			}
		}
		assert.Equal(t, 1, ok)

		likes, err := posts.RemoveLike(ctx, newer.ID, liker)
		require.NoError(t, err)
		assert.Empty(t, likes)

		_, err = posts.RemoveLike(ctx, newer.ID, liker)
		assert.ErrorIs(t, err, model.ErrNotLiked)

		_, err = posts.AddLike(ctx, primitive.NewObjectID(), liker)
		assert.ErrorIs(t, err, model.ErrPostNotFound)
	})

	t.Run("comments", func(t *testing.T) {
		first := model.Comment{ID: primitive.NewObjectID(), Text: "first", UserID: liker, Created: time.Now().UTC()}
		second := model.Comment{ID: primitive.NewObjectID(), Text: "second", UserID: liker, Created: time.Now().UTC()}

		_, err := posts.AddComment(ctx, newer.ID, first)
		require.NoError(t, err)
		comments, err := posts.AddComment(ctx, newer.ID, second)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, "second", comments[0].Text)

		comments, err = posts.RemoveComment(ctx, newer.ID, first.ID)
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Equal(t, second.ID, comments[0].ID)

		_, err = posts.RemoveComment(ctx, newer.ID, first.ID)
		assert.ErrorIs(t, err, model.ErrCommentNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, posts.Delete(ctx, older.ID))
		assert.ErrorIs(t, posts.Delete(ctx, older.ID), model.ErrPostNotFound)

		n, err := posts.DeleteByAuthor(ctx, author)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
