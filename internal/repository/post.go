package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"connectly/internal/cache"
	"connectly/internal/database"
	"connectly/internal/model"
)

type postRepository struct {
	coll *mongo.Collection
}

func NewPostRepository(db *mongo.Database) PostRepository {
	return &postRepository{coll: db.Collection(database.PostsCollection)}
}

var newestFirst = bson.D{{Key: "created", Value: -1}}

// Create inserts a new post with empty likes and comments arrays.
func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.Created.IsZero() {
		post.Created = time.Now().UTC()
	}
	if post.Likes == nil {
		post.Likes = []model.Like{}
	}
	if post.Comments == nil {
		post.Comments = []model.Comment{}
	}

	if _, err := r.coll.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Post, error) {
	var post model.Post
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrPostNotFound
		}
		return nil, fmt.Errorf("get post by id: %w", err)
	}
	return &post, nil
}

func (r *postRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Post, error) {
	if len(ids) == 0 {
		return []model.Post{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

func (r *postRepository) ListByAuthors(ctx context.Context, authorIDs []primitive.ObjectID, limit int) ([]model.Post, error) {
	if len(authorIDs) == 0 {
		return []model.Post{}, nil
	}

	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"posted_by": bson.M{"$in": authorIDs}}, opts)
}

func (r *postRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.Post, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}

	posts := []model.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

func (r *postRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

func (r *postRepository) DeleteByAuthor(ctx context.Context, authorID primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"posted_by": authorID})
	if err != nil {
		return 0, fmt.Errorf("delete posts by author: %w", err)
	}
	return res.DeletedCount, nil
}

// GetRecentPostsByUser returns (postID, created) pairs for backfilling a feed cache.
func (r *postRepository) GetRecentPostsByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]cache.PostScore, error) {
	return r.GetFeedPostIDs(ctx, []primitive.ObjectID{userID}, limit)
}

// GetFeedPostIDs returns (postID, created) pairs for the given authors, newest first.
func (r *postRepository) GetFeedPostIDs(ctx context.Context, authorIDs []primitive.ObjectID, limit int) ([]cache.PostScore, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetProjection(bson.M{"_id": 1, "created": 1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.coll.Find(ctx, bson.M{"posted_by": bson.M{"$in": authorIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find feed post ids: %w", err)
	}

	var rows []struct {
		ID      primitive.ObjectID `bson:"_id"`
		Created time.Time          `bson:"created"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode feed post ids: %w", err)
	}

	scores := make([]cache.PostScore, len(rows))
	for i, row := range rows {
		scores[i] = cache.PostScore{PostID: row.ID.Hex(), Timestamp: row.Created.UnixMilli()}
	}
	return scores, nil
}

// AddLike prepends a like unless the user already appears in the list. The
// check and the write are one conditional update, so concurrent likes by the
// same user cannot both land.
func (r *postRepository) AddLike(ctx context.Context, postID, userID primitive.ObjectID) ([]model.Like, error) {
	filter := bson.M{"_id": postID, "likes.user": bson.M{"$ne": userID}}
	update := bson.M{"$push": bson.M{"likes": bson.M{
		"$each":     bson.A{model.Like{User: userID}},
		"$position": 0,
	}}}

	post, err := r.updateAndProject(ctx, filter, update, "likes")
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOr(ctx, postID, model.ErrAlreadyLiked)
	}
	if err != nil {
		return nil, fmt.Errorf("add like: %w", err)
	}
	return nonNilLikes(post.Likes), nil
}

func (r *postRepository) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) ([]model.Like, error) {
	filter := bson.M{"_id": postID, "likes.user": userID}
	update := bson.M{"$pull": bson.M{"likes": bson.M{"user": userID}}}

	post, err := r.updateAndProject(ctx, filter, update, "likes")
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOr(ctx, postID, model.ErrNotLiked)
	}
	if err != nil {
		return nil, fmt.Errorf("remove like: %w", err)
	}
	return nonNilLikes(post.Likes), nil
}

func (r *postRepository) AddComment(ctx context.Context, postID primitive.ObjectID, comment model.Comment) ([]model.Comment, error) {
	update := bson.M{"$push": bson.M{"comments": bson.M{
		"$each":     bson.A{comment},
		"$position": 0,
	}}}

	post, err := r.updateAndProject(ctx, bson.M{"_id": postID}, update, "comments")
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return nonNilComments(post.Comments), nil
}

func (r *postRepository) RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) ([]model.Comment, error) {
	filter := bson.M{"_id": postID, "comments._id": commentID}
	update := bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}}

	post, err := r.updateAndProject(ctx, filter, update, "comments")
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOr(ctx, postID, model.ErrCommentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("remove comment: %w", err)
	}
	return nonNilComments(post.Comments), nil
}

// updateAndProject runs FindOneAndUpdate and returns the post after the update
// with only the given field populated.
func (r *postRepository) updateAndProject(ctx context.Context, filter, update bson.M, field string) (*model.Post, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{field: 1})

	var post model.Post
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

// missOr tells a missing post apart from a failed array condition.
func (r *postRepository) missOr(ctx context.Context, postID primitive.ObjectID, conditionErr error) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": postID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check post exists: %w", err)
	}
	if n == 0 {
		return model.ErrPostNotFound
	}
	return conditionErr
}

func nonNilLikes(likes []model.Like) []model.Like {
	if likes == nil {
		return []model.Like{}
	}
	return likes
}

func nonNilComments(comments []model.Comment) []model.Comment {
	if comments == nil {
		return []model.Comment{}
	}
	return comments
}
