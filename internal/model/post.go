package model

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a post document with its embedded likes and comments.
type Post struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Text     string             `bson:"text" json:"text"`
	Media    string             `bson:"media,omitempty" json:"media,omitempty"`
	AuthorID primitive.ObjectID `bson:"posted_by" json:"author_id"`
	Created  time.Time          `bson:"created" json:"created"`
	Likes    []Like             `bson:"likes" json:"likes"`
	Comments []Comment          `bson:"comments" json:"comments"`

	// Expanded on read, never stored
	Author *UserRef `bson:"-" json:"author,omitempty"`
}

// Like is a single entry in a post's likes list.
type Like struct {
	User primitive.ObjectID `bson:"user" json:"user"`
}

// Comment is embedded in a post. Name and avatar are snapshots taken when the
// comment was written; UserID stays a live reference.
type Comment struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Text     string             `bson:"text" json:"text"`
	Created  time.Time          `bson:"created" json:"created"`
	PostedBy string             `bson:"posted_by" json:"posted_by"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Avatar   string             `bson:"avatar,omitempty" json:"avatar,omitempty"`

	User *UserRef `bson:"-" json:"user,omitempty"`
}

// LikedBy reports whether userID already appears in the likes list.
func (p *Post) LikedBy(userID primitive.ObjectID) bool {
	for _, l := range p.Likes {
		if l.User == userID {
			return true
		}
	}
	return false
}

// FindComment returns the comment with the given id, or nil.
func (p *Post) FindComment(commentID primitive.ObjectID) *Comment {
	for i := range p.Comments {
		if p.Comments[i].ID == commentID {
			return &p.Comments[i]
		}
	}
	return nil
}

// CreatePostRequest is the request body for creating a post.
// Text is capped at 2200 characters.
type CreatePostRequest struct {
	Text  string `json:"text" validate:"required,notblank,max=2200"`
	Media string `json:"media" validate:"omitempty,url"`
}

// CreateCommentRequest is the request body for commenting on a post.
type CreateCommentRequest struct {
	Text string `json:"text" validate:"required,notblank,max=2200"`
}

// FeedMaxPosts caps how many posts a feed response (and a cached feed) holds.
const FeedMaxPosts = 500

// Post errors
var (
	ErrPostNotFound    = errors.New("post not found")
	ErrNotPostOwner    = errors.New("not the owner of this post")
	ErrAlreadyLiked    = errors.New("post can only be liked once")
	ErrNotLiked        = errors.New("post not yet liked")
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotCommentOwner = errors.New("not the owner of this comment")
)
