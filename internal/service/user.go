package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"connectly/internal/cache"
	"connectly/internal/model"
	"connectly/internal/queue"
	"connectly/internal/repository"
)

// AvatarStore is the part of MediaService the user service needs.
type AvatarStore interface {
	UploadAvatar(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error)
	KeyFromURL(url string) (string, bool)
	DeleteObject(ctx context.Context, key string) error
}

// UserService handles business logic for user operations
type UserService struct {
	repo          repository.UserRepository
	postRepo      repository.PostRepository
	publisher     queue.Publisher
	feedCache     cache.FeedCache // nil when Redis is not configured
	avatars       AvatarStore     // nil when media storage is not configured
	defaultAvatar string
}

func NewUserService(
	repo repository.UserRepository,
	postRepo repository.PostRepository,
	publisher queue.Publisher,
	feedCache cache.FeedCache,
	avatars AvatarStore,
	defaultAvatar string,
) *UserService {
	return &UserService{
		repo:          repo,
		postRepo:      postRepo,
		publisher:     publisher,
		feedCache:     feedCache,
		avatars:       avatars,
		defaultAvatar: defaultAvatar,
	}
}

// Register creates a new user account. The request is expected to have
// passed validation already.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, model.ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hashedPassword),
		Avatar:   s.defaultAvatar,
	}

	// The unique index still catches a concurrent registration of the same email
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[UserService] Registered user=%s", user.ID.Hex())
	return user, nil
}

// Login authenticates a user with email and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			// Don't reveal whether the email exists
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// GetProfile returns a user's profile with the follow graph expanded.
func (s *UserService) GetProfile(ctx context.Context, id primitive.ObjectID) (*model.Profile, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profiles, err := s.toProfiles(ctx, []model.User{*user})
	if err != nil {
		return nil, err
	}
	return &profiles[0], nil
}

// List returns every user's profile. One lookup resolves the follow graph of all of them.
func (s *UserService) List(ctx context.Context) ([]model.Profile, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.toProfiles(ctx, users)
}

func (s *UserService) toProfiles(ctx context.Context, users []model.User) ([]model.Profile, error) {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	collect := func(refs []primitive.ObjectID) {
		for _, id := range refs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	for _, u := range users {
		collect(u.Followers)
		collect(u.Following)
	}

	refs, err := s.repo.GetRefs(ctx, ids)
	if err != nil {
		return nil, err
	}

	profiles := make([]model.Profile, len(users))
	for i, u := range users {
		profiles[i] = model.Profile{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Avatar:    u.Avatar,
			Bio:       u.Bio,
			Followers: expandRefs(u.Followers, refs),
			Following: expandRefs(u.Following, refs),
			CreatedAt: u.CreatedAt,
		}
	}
	return profiles, nil
}

// expandRefs keeps the stored order and drops references to users that no longer exist.
func expandRefs(ids []primitive.ObjectID, refs map[primitive.ObjectID]model.UserRef) []model.UserRef {
	out := make([]model.UserRef, 0, len(ids))
	for _, id := range ids {
		if ref, ok := refs[id]; ok {
			out = append(out, ref)
		}
	}
	return out
}

func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, req model.UpdateProfileRequest) (*model.Profile, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if _, err := s.repo.UpdateProfile(ctx, id, req); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, id)
}

// UpdateAvatar uploads a new avatar and points the profile at it. The previous
// avatar is removed from storage when it was one of ours.
func (s *UserService) UpdateAvatar(ctx context.Context, id primitive.ObjectID, file multipart.File, header *multipart.FileHeader) (*model.Profile, error) {
	if s.avatars == nil {
		return nil, model.ErrMediaNotConfigured
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	uploaded, err := s.avatars.UploadAvatar(ctx, file, header)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.UpdateProfile(ctx, id, model.UpdateProfileRequest{Avatar: &uploaded.URL}); err != nil {
		return nil, err
	}

	if key, ok := s.avatars.KeyFromURL(user.Avatar); ok {
		if err := s.avatars.DeleteObject(ctx, key); err != nil {
			log.Printf("[UserService] Failed to delete old avatar key=%s: %v", key, err)
		}
	}

	return s.GetProfile(ctx, id)
}

// Follow makes userID follow targetID. Both sides are updated with
// independent writes; re-following is a no-op.
func (s *UserService) Follow(ctx context.Context, userID, targetID primitive.ObjectID) (*model.Profile, error) {
	if userID == targetID {
		return nil, model.ErrCannotFollowSelf
	}
	if _, err := s.repo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	if err := s.repo.AddFollowing(ctx, userID, targetID); err != nil {
		return nil, fmt.Errorf("add following: %w", err)
	}
	if err := s.repo.AddFollower(ctx, targetID, userID); err != nil {
		return nil, fmt.Errorf("add follower: %w", err)
	}

	s.dropFeed(ctx, userID)
	s.publish(ctx, queue.NewUserFollowedEvent(userID.Hex(), targetID.Hex()))
	log.Printf("[UserService] User %s followed %s", userID.Hex(), targetID.Hex())

	return s.GetProfile(ctx, targetID)
}

func (s *UserService) Unfollow(ctx context.Context, userID, targetID primitive.ObjectID) (*model.Profile, error) {
	if userID == targetID {
		return nil, model.ErrCannotFollowSelf
	}
	if _, err := s.repo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	if err := s.repo.RemoveFollowing(ctx, userID, targetID); err != nil {
		return nil, fmt.Errorf("remove following: %w", err)
	}
	if err := s.repo.RemoveFollower(ctx, targetID, userID); err != nil {
		return nil, fmt.Errorf("remove follower: %w", err)
	}

	s.dropFeed(ctx, userID)
	s.publish(ctx, queue.NewUserUnfollowedEvent(userID.Hex(), targetID.Hex()))
	log.Printf("[UserService] User %s unfollowed %s", userID.Hex(), targetID.Hex())

	return s.GetProfile(ctx, targetID)
}

// Delete removes the account, then its posts, then every reference to it in
// other users' follow lists. The steps are independent writes.
func (s *UserService) Delete(ctx context.Context, id primitive.ObjectID) error {
	followers, err := s.repo.GetFollowerIDs(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	removed, err := s.postRepo.DeleteByAuthor(ctx, id)
	if err != nil {
		return fmt.Errorf("delete posts of user: %w", err)
	}

	if err := s.repo.PullFromFollowGraph(ctx, id); err != nil {
		return fmt.Errorf("clean follow graph: %w", err)
	}

	hexFollowers := make([]string, len(followers))
	for i, f := range followers {
		hexFollowers[i] = f.Hex()
	}
	s.publish(ctx, queue.NewUserDeletedEvent(id.Hex(), hexFollowers))

	log.Printf("[UserService] Deleted user=%s posts=%d", id.Hex(), removed)
	return nil
}

// dropFeed removes userID's cached feed after their following list changed.
// The next read rebuilds it from the database, so the change is visible
// without waiting for the worker.
func (s *UserService) dropFeed(ctx context.Context, userID primitive.ObjectID) {
	if s.feedCache == nil {
		return
	}
	if err := s.feedCache.Delete(ctx, userID.Hex()); err != nil {
		log.Printf("[UserService] Failed to drop feed cache user=%s: %v", userID.Hex(), err)
	}
}

func (s *UserService) publish(ctx context.Context, event queue.FeedEvent) {
	publishBestEffort(ctx, s.publisher, "UserService", event)
}

// publishBestEffort logs and swallows publish failures: the write it follows
// has already succeeded and the cache can be rebuilt from the database.
func publishBestEffort(ctx context.Context, publisher queue.Publisher, component string, event queue.FeedEvent) {
	if publisher == nil {
		return
	}
	if _, err := publisher.Publish(ctx, queue.StreamFeed, event); err != nil {
		log.Printf("[%s] Failed to publish %s event: %v", component, event.Type, err)
	}
}
