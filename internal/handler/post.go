package handler

import (
	"errors"
	"log"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/httputil"
	"connectly/internal/model"
	"connectly/internal/service"
)

type PostHandler struct {
	postService *service.PostService
}

func NewPostHandler(postService *service.PostService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// Create handles POST /api/posts
// Creates a new post for the authenticated user.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.CreatePostRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	post, err := h.postService.Create(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[ERROR] Create post handler: user=%s err=%v", userID.Hex(), err)
		httputil.WriteInternalError(w, "Server Error")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// ListMine handles GET /api/posts
func (h *PostHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.listByAuthor(w, r, userID)
}

// ListByAuthor handles GET /api/posts/{id}
// Returns every post written by the user with the given id.
func (h *PostHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, ok := pathID(w, r, "id", "Post not found")
	if !ok {
		return
	}
	h.listByAuthor(w, r, authorID)
}

func (h *PostHandler) listByAuthor(w http.ResponseWriter, r *http.Request, authorID primitive.ObjectID) {
	posts, err := h.postService.ListByAuthor(r.Context(), authorID)
	if err != nil {
		log.Printf("[ERROR] List posts handler: author=%s err=%v", authorID.Hex(), err)
		httputil.WriteInternalError(w, "Server Error")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, posts)
}

// GetByID handles GET /api/posts/post/{id}
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "id", "Post not found")
	if !ok {
		return
	}

	post, err := h.postService.GetByID(r.Context(), postID)
	if err != nil {
		h.writeError(w, "Get post", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /api/posts/{id}
// Only the author can delete a post.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id", "Post not found")
	if !ok {
		return
	}

	if err := h.postService.Delete(r.Context(), postID, userID); err != nil {
		h.writeError(w, "Delete post", err)
		return
	}
	httputil.WriteMessage(w, "Post deleted")
}

// Like handles PUT /api/posts/like/{id}
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id", "Post not found")
	if !ok {
		return
	}

	likes, err := h.postService.Like(r.Context(), postID, userID)
	if err != nil {
		h.writeError(w, "Like post", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, likes)
}

// Unlike handles PUT /api/posts/unlike/{id}
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id", "Post not found")
	if !ok {
		return
	}

	likes, err := h.postService.Unlike(r.Context(), postID, userID)
	if err != nil {
		h.writeError(w, "Unlike post", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, likes)
}

// Comment handles POST /api/posts/comment/{id}
func (h *PostHandler) Comment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id", "Post not found")
	if !ok {
		return
	}

	var req model.CreateCommentRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	comments, err := h.postService.Comment(r.Context(), postID, userID, req)
	if err != nil {
		h.writeError(w, "Comment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comments)
}

// DeleteComment handles DELETE /api/posts/post/{pid}/comment/{cid}
func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "pid", "Post not found")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "cid", "Comment does not exist")
	if !ok {
		return
	}

	comments, err := h.postService.DeleteComment(r.Context(), postID, commentID, userID)
	if err != nil {
		h.writeError(w, "Delete comment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comments)
}

func (h *PostHandler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, model.ErrPostNotFound):
		httputil.WriteNotFound(w, "Post not found")
	case errors.Is(err, model.ErrCommentNotFound):
		httputil.WriteNotFound(w, "Comment does not exist")
	case errors.Is(err, model.ErrUserNotFound):
		httputil.WriteNotFound(w, "User not found")
	case errors.Is(err, model.ErrNotPostOwner), errors.Is(err, model.ErrNotCommentOwner):
		httputil.WriteUnauthorized(w, "User not authorized")
	case errors.Is(err, model.ErrAlreadyLiked):
		httputil.WriteBadRequest(w, "Post can only be liked once")
	case errors.Is(err, model.ErrNotLiked):
		httputil.WriteBadRequest(w, "Post not yet liked")
	default:
		log.Printf("[ERROR] %s handler: err=%v", op, err)
		httputil.WriteInternalError(w, "Server Error")
	}
}
