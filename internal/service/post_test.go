package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/model"
	"connectly/internal/queue"
	"connectly/internal/repository/repotest"
)

type postFixture struct {
	users *repotest.Users
	posts *repotest.Posts
	pub   *recordingPublisher
	svc   *PostService
	ada   *model.User
	bob   *model.User
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	ctx := context.Background()

	f := &postFixture{
		users: repotest.NewUsers(),
		posts: repotest.NewPosts(),
		pub:   &recordingPublisher{},
	}
	f.svc = NewPostService(f.posts, f.users, f.pub)

	f.ada = &model.User{Name: "Ada", Email: "ada@example.com", Avatar: "https://cdn.test/ada.jpg"}
	f.bob = &model.User{Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, f.users.Create(ctx, f.ada))
	require.NoError(t, f.users.Create(ctx, f.bob))
	return f
}

func (f *postFixture) create(t *testing.T, author *model.User, text string) *model.Post {
	t.Helper()
	post, err := f.svc.Create(context.Background(), author.ID, model.CreatePostRequest{Text: text})
	require.NoError(t, err)
	return post
}

func TestPostService_Create(t *testing.T) {
	f := newPostFixture(t)

	post := f.create(t, f.ada, "  hello world  ")

	assert.Equal(t, "hello world", post.Text)
	assert.Equal(t, f.ada.ID, post.AuthorID)
	require.NotNil(t, post.Author)
	assert.Equal(t, "Ada", post.Author.Name)
	assert.NotNil(t, post.Likes)
	assert.NotNil(t, post.Comments)
	assert.False(t, post.Created.IsZero())

	require.Len(t, f.pub.events, 1)
	ev := f.pub.events[0]
	assert.Equal(t, queue.EventPostCreated, ev.Type)
	assert.Equal(t, post.ID.Hex(), ev.PostID)
	assert.Equal(t, f.ada.ID.Hex(), ev.AuthorID)
	assert.Equal(t, post.Created.UnixMilli(), ev.Created)
}

func TestPostService_Create_UnknownAuthor(t *testing.T) {
	f := newPostFixture(t)

	_, err := f.svc.Create(context.Background(), primitive.NewObjectID(), model.CreatePostRequest{Text: "x"})
	assert.ErrorIs(t, err, model.ErrUserNotFound)
	assert.Empty(t, f.pub.events)
}

func TestPostService_ListByAuthor(t *testing.T) {
	f := newPostFixture(t)
	first := f.create(t, f.ada, "first")
	second := f.create(t, f.ada, "second")
	f.create(t, f.bob, "other")

	posts, err := f.svc.ListByAuthor(context.Background(), f.ada.ID)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.False(t, posts[0].Created.Before(posts[1].Created), "newest first")
	assert.ElementsMatch(t, []primitive.ObjectID{first.ID, second.ID}, []primitive.ObjectID{posts[0].ID, posts[1].ID})
	for _, p := range posts {
		require.NotNil(t, p.Author)
		assert.Equal(t, "Ada", p.Author.Name)
	}
}

func TestPostService_GetByID(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.ada, "hi")

	got, err := f.svc.GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)

	_, err = f.svc.GetByID(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, model.ErrPostNotFound)
}

func TestPostService_Delete(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	post := f.create(t, f.ada, "hi")

	err := f.svc.Delete(ctx, post.ID, f.bob.ID)
	assert.ErrorIs(t, err, model.ErrNotPostOwner)

	require.NoError(t, f.svc.Delete(ctx, post.ID, f.ada.ID))
	_, err = f.posts.GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, model.ErrPostNotFound)

	assert.Equal(t, []string{queue.EventPostCreated, queue.EventPostDeleted}, f.pub.types())

	err = f.svc.Delete(ctx, post.ID, f.ada.ID)
	assert.ErrorIs(t, err, model.ErrPostNotFound)
}

func TestPostService_LikeUnlike(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	post := f.create(t, f.ada, "hi")

	likes, err := f.svc.Like(ctx, post.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Like{{User: f.bob.ID}}, likes)

	likes, err = f.svc.Like(ctx, post.ID, f.ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Like{{User: f.ada.ID}, {User: f.bob.ID}}, likes, "new likes are prepended")

	_, err = f.svc.Like(ctx, post.ID, f.bob.ID)
	assert.ErrorIs(t, err, model.ErrAlreadyLiked)

	likes, err = f.svc.Unlike(ctx, post.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Like{{User: f.ada.ID}}, likes)

	_, err = f.svc.Unlike(ctx, post.ID, f.bob.ID)
	assert.ErrorIs(t, err, model.ErrNotLiked)

	_, err = f.svc.Like(ctx, primitive.NewObjectID(), f.bob.ID)
	assert.ErrorIs(t, err, model.ErrPostNotFound)
}

func TestPostService_Comment(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	post := f.create(t, f.bob, "hi")

	comments, err := f.svc.Comment(ctx, post.ID, f.ada.ID, model.CreateCommentRequest{Text: " nice "})
	require.NoError(t, err)
	require.Len(t, comments, 1)

	c := comments[0]
	assert.Equal(t, "nice", c.Text)
	assert.Equal(t, "Ada", c.PostedBy)
	assert.Equal(t, f.ada.Avatar, c.Avatar)
	assert.Equal(t, f.ada.ID, c.UserID)
	assert.False(t, c.ID.IsZero())
	require.NotNil(t, c.User)
	assert.Equal(t, "Ada", c.User.Name)

	comments, err = f.svc.Comment(ctx, post.ID, f.bob.ID, model.CreateCommentRequest{Text: "thanks"})
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "thanks", comments[0].Text, "new comments are prepended")

	_, err = f.svc.Comment(ctx, primitive.NewObjectID(), f.ada.ID, model.CreateCommentRequest{Text: "x"})
	assert.ErrorIs(t, err, model.ErrPostNotFound)
}

func TestPostService_DeleteComment(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*postFixture, *model.Post, *model.User, primitive.ObjectID) {
		f := newPostFixture(t)
		carol := &model.User{Name: "Carol", Email: "carol@example.com"}
		require.NoError(t, f.users.Create(ctx, carol))

		post := f.create(t, f.bob, "hi")
		comments, err := f.svc.Comment(ctx, post.ID, f.ada.ID, model.CreateCommentRequest{Text: "first"})
		require.NoError(t, err)
		_, err = f.svc.Comment(ctx, post.ID, f.ada.ID, model.CreateCommentRequest{Text: "second"})
		require.NoError(t, err)
		return f, post, carol, comments[0].ID
	}

	t.Run("comment author", func(t *testing.T) {
		f, post, _, commentID := setup(t)
		comments, err := f.svc.DeleteComment(ctx, post.ID, commentID, f.ada.ID)
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Equal(t, "second", comments[0].Text, "only the addressed comment is removed")
	})

	t.Run("post author", func(t *testing.T) {
		f, post, _, commentID := setup(t)
		_, err := f.svc.DeleteComment(ctx, post.ID, commentID, f.bob.ID)
		assert.NoError(t, err)
	})

	t.Run("stranger", func(t *testing.T) {
		f, post, carol, commentID := setup(t)
		_, err := f.svc.DeleteComment(ctx, post.ID, commentID, carol.ID)
		assert.ErrorIs(t, err, model.ErrNotCommentOwner)
	})

	t.Run("unknown comment", func(t *testing.T) {
		f, post, _, _ := setup(t)
		_, err := f.svc.DeleteComment(ctx, post.ID, primitive.NewObjectID(), f.ada.ID)
		assert.ErrorIs(t, err, model.ErrCommentNotFound)
	})

	t.Run("unknown post", func(t *testing.T) {
		f, _, _, commentID := setup(t)
		_, err := f.svc.DeleteComment(ctx, primitive.NewObjectID(), commentID, f.ada.ID)
		assert.ErrorIs(t, err, model.ErrPostNotFound)
	})
}

func TestPostService_AuthorRefDropsDeletedUser(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	post := f.create(t, f.ada, "hi")

	require.NoError(t, f.users.Delete(ctx, f.ada.ID))

	got, err := f.svc.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Author)
}
