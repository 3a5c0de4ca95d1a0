package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/cache"
	"connectly/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	// GetRefs resolves ids to {id, name} pairs. Unknown ids are absent from the map.
	GetRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.UserRef, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, req model.UpdateProfileRequest) (*model.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// Follow graph: each call touches exactly one document.
	AddFollowing(ctx context.Context, userID, targetID primitive.ObjectID) error
	AddFollower(ctx context.Context, userID, followerID primitive.ObjectID) error
	RemoveFollowing(ctx context.Context, userID, targetID primitive.ObjectID) error
	RemoveFollower(ctx context.Context, userID, followerID primitive.ObjectID) error
	// PullFromFollowGraph removes id from every other user's followers and following.
	PullFromFollowGraph(ctx context.Context, id primitive.ObjectID) error
	GetFollowerIDs(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Post, error)
	// GetByIDs returns the matching posts in no particular order.
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Post, error)
	// ListByAuthors returns posts by any of the authors, newest first. limit <= 0 means no limit.
	ListByAuthors(ctx context.Context, authorIDs []primitive.ObjectID, limit int) ([]model.Post, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByAuthor(ctx context.Context, authorID primitive.ObjectID) (int64, error)
	// Feed cache support
	GetRecentPostsByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]cache.PostScore, error)
	GetFeedPostIDs(ctx context.Context, authorIDs []primitive.ObjectID, limit int) ([]cache.PostScore, error)
	// Likes: AddLike fails with ErrAlreadyLiked, RemoveLike with ErrNotLiked.
	AddLike(ctx context.Context, postID, userID primitive.ObjectID) ([]model.Like, error)
	RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) ([]model.Like, error)
	// Comments are prepended; RemoveComment fails with ErrCommentNotFound.
	AddComment(ctx context.Context, postID primitive.ObjectID, comment model.Comment) ([]model.Comment, error)
	RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) ([]model.Comment, error)
}
