package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/model"
	"connectly/internal/queue"
	"connectly/internal/repository"
)

type PostService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	publisher queue.Publisher
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	publisher queue.Publisher,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		userRepo:  userRepo,
		publisher: publisher,
	}
}

// Create creates a new post and publishes an event for fan-out.
func (s *PostService) Create(ctx context.Context, userID primitive.ObjectID, req model.CreatePostRequest) (*model.Post, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	post := &model.Post{
		Text:     strings.TrimSpace(req.Text),
		Media:    req.Media,
		AuthorID: userID,
		Created:  time.Now().UTC(),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	publishBestEffort(ctx, s.publisher, "PostService", queue.NewPostCreatedEvent(post.ID.Hex(), userID.Hex(), post.Created))
	log.Printf("[PostService] Created post=%s author=%s", post.ID.Hex(), userID.Hex())

	if err := populatePosts(ctx, s.userRepo, []*model.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// ListByAuthor returns an author's posts, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]model.Post, error) {
	posts, err := s.postRepo.ListByAuthors(ctx, []primitive.ObjectID{authorID}, 0)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if err := populateSlice(ctx, s.userRepo, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostService) GetByID(ctx context.Context, postID primitive.ObjectID) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := populatePosts(ctx, s.userRepo, []*model.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post. Only its author may delete it.
func (s *PostService) Delete(ctx context.Context, postID, userID primitive.ObjectID) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return model.ErrNotPostOwner
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}

	publishBestEffort(ctx, s.publisher, "PostService", queue.NewPostDeletedEvent(postID.Hex(), userID.Hex()))
	log.Printf("[PostService] Deleted post=%s", postID.Hex())
	return nil
}

// Like adds userID to the post's likes. A second like by the same user fails
// with ErrAlreadyLiked.
func (s *PostService) Like(ctx context.Context, postID, userID primitive.ObjectID) ([]model.Like, error) {
	likes, err := s.postRepo.AddLike(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("[PostService] User %s liked post %s", userID.Hex(), postID.Hex())
	return likes, nil
}

func (s *PostService) Unlike(ctx context.Context, postID, userID primitive.ObjectID) ([]model.Like, error) {
	likes, err := s.postRepo.RemoveLike(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("[PostService] User %s unliked post %s", userID.Hex(), postID.Hex())
	return likes, nil
}

// Comment prepends a comment carrying a snapshot of the commenter's name and avatar.
func (s *PostService) Comment(ctx context.Context, postID, userID primitive.ObjectID, req model.CreateCommentRequest) ([]model.Comment, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	comment := model.Comment{
		ID:       primitive.NewObjectID(),
		Text:     strings.TrimSpace(req.Text),
		Created:  time.Now().UTC(),
		PostedBy: user.Name,
		UserID:   user.ID,
		Avatar:   user.Avatar,
	}

	comments, err := s.postRepo.AddComment(ctx, postID, comment)
	if err != nil {
		return nil, err
	}
	if err := populateComments(ctx, s.userRepo, comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// DeleteComment removes exactly the addressed comment. The comment's author
// and the post's author may delete it.
func (s *PostService) DeleteComment(ctx context.Context, postID, commentID, userID primitive.ObjectID) ([]model.Comment, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := post.FindComment(commentID)
	if comment == nil {
		return nil, model.ErrCommentNotFound
	}
	if comment.UserID != userID && post.AuthorID != userID {
		return nil, model.ErrNotCommentOwner
	}

	comments, err := s.postRepo.RemoveComment(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	if err := populateComments(ctx, s.userRepo, comments); err != nil {
		return nil, err
	}
	return comments, nil
}
