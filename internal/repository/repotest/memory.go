// Package repotest provides in-memory implementations of the repository
// interfaces for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/cache"
	"connectly/internal/model"
	"connectly/internal/repository"
)

// Users is an in-memory UserRepository.
type Users struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*model.User
}

func NewUsers() *Users {
	return &Users{users: make(map[primitive.ObjectID]*model.User)}
}

var _ repository.UserRepository = (*Users)(nil)

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Followers = append([]primitive.ObjectID{}, u.Followers...)
	c.Following = append([]primitive.ObjectID{}, u.Following...)
	return &c
}

func (r *Users) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return model.ErrUserExists
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *Users) GetByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (r *Users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *Users) List(_ context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *Users) GetRefs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.UserRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	refs := make(map[primitive.ObjectID]model.UserRef, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			refs[id] = model.UserRef{ID: u.ID, Name: u.Name}
		}
	}
	return refs, nil
}

func (r *Users) UpdateProfile(_ context.Context, id primitive.ObjectID, req model.UpdateProfileRequest) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Avatar != nil {
		u.Avatar = *req.Avatar
	}
	if req.Bio != nil {
		u.Bio = *req.Bio
	}
	return cloneUser(u), nil
}

func (r *Users) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *Users) AddFollowing(_ context.Context, userID, targetID primitive.ObjectID) error {
	return r.mutate(userID, func(u *model.User) { u.Following = addToSet(u.Following, targetID) })
}

func (r *Users) AddFollower(_ context.Context, userID, followerID primitive.ObjectID) error {
	return r.mutate(userID, func(u *model.User) { u.Followers = addToSet(u.Followers, followerID) })
}

func (r *Users) RemoveFollowing(_ context.Context, userID, targetID primitive.ObjectID) error {
	return r.mutate(userID, func(u *model.User) { u.Following = pull(u.Following, targetID) })
}

func (r *Users) RemoveFollower(_ context.Context, userID, followerID primitive.ObjectID) error {
	return r.mutate(userID, func(u *model.User) { u.Followers = pull(u.Followers, followerID) })
}

func (r *Users) PullFromFollowGraph(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		u.Followers = pull(u.Followers, id)
		u.Following = pull(u.Following, id)
	}
	return nil
}

func (r *Users) GetFollowerIDs(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Followers, nil
}

func (r *Users) mutate(id primitive.ObjectID, fn func(*model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	fn(u)
	return nil
}

func addToSet(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func pull(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// Posts is an in-memory PostRepository.
type Posts struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]*model.Post
}

func NewPosts() *Posts {
	return &Posts{posts: make(map[primitive.ObjectID]*model.Post)}
}

var _ repository.PostRepository = (*Posts)(nil)

func clonePost(p *model.Post) *model.Post {
	c := *p
	c.Likes = append([]model.Like{}, p.Likes...)
	c.Comments = append([]model.Comment{}, p.Comments...)
	return &c
}

func (r *Posts) Create(_ context.Context, post *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

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
	r.posts[post.ID] = clonePost(post)
	return nil
}

func (r *Posts) GetByID(_ context.Context, id primitive.ObjectID) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	return clonePost(p), nil
}

func (r *Posts) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []model.Post{}
	for _, id := range ids {
		if p, ok := r.posts[id]; ok {
			out = append(out, *clonePost(p))
		}
	}
	return out, nil
}

func (r *Posts) ListByAuthors(_ context.Context, authorIDs []primitive.ObjectID, limit int) ([]model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.byAuthors(authorIDs, limit), nil
}

// byAuthors returns matching posts newest first. Callers hold mu.
func (r *Posts) byAuthors(authorIDs []primitive.ObjectID, limit int) []model.Post {
	authors := make(map[primitive.ObjectID]bool, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = true
	}

	out := []model.Post{}
	for _, p := range r.posts {
		if authors[p.AuthorID] {
			out = append(out, *clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *Posts) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return model.ErrPostNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *Posts) DeleteByAuthor(_ context.Context, authorID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, p := range r.posts {
		if p.AuthorID == authorID {
			delete(r.posts, id)
			n++
		}
	}
	return n, nil
}

func (r *Posts) GetRecentPostsByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]cache.PostScore, error) {
	return r.GetFeedPostIDs(ctx, []primitive.ObjectID{userID}, limit)
}

func (r *Posts) GetFeedPostIDs(_ context.Context, authorIDs []primitive.ObjectID, limit int) ([]cache.PostScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts := r.byAuthors(authorIDs, limit)
	scores := make([]cache.PostScore, len(posts))
	for i, p := range posts {
		scores[i] = cache.PostScore{PostID: p.ID.Hex(), Timestamp: p.Created.UnixMilli()}
	}
	return scores, nil
}

func (r *Posts) AddLike(_ context.Context, postID, userID primitive.ObjectID) ([]model.Like, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	if p.LikedBy(userID) {
		return nil, model.ErrAlreadyLiked
	}
	p.Likes = append([]model.Like{{User: userID}}, p.Likes...)
	return append([]model.Like{}, p.Likes...), nil
}

func (r *Posts) RemoveLike(_ context.Context, postID, userID primitive.ObjectID) ([]model.Like, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	if !p.LikedBy(userID) {
		return nil, model.ErrNotLiked
	}
	likes := []model.Like{}
	for _, l := range p.Likes {
		if l.User != userID {
			likes = append(likes, l)
		}
	}
	p.Likes = likes
	return append([]model.Like{}, p.Likes...), nil
}

func (r *Posts) AddComment(_ context.Context, postID primitive.ObjectID, comment model.Comment) ([]model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	p.Comments = append([]model.Comment{comment}, p.Comments...)
	return append([]model.Comment{}, p.Comments...), nil
}

func (r *Posts) RemoveComment(_ context.Context, postID, commentID primitive.ObjectID) ([]model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	if p.FindComment(commentID) == nil {
		return nil, model.ErrCommentNotFound
	}
	comments := []model.Comment{}
	for _, c := range p.Comments {
		if c.ID != commentID {
			comments = append(comments, c)
		}
	}
	p.Comments = comments
	return append([]model.Comment{}, p.Comments...), nil
}
