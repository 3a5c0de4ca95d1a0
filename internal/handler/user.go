package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/httputil"
	"connectly/internal/model"
	"connectly/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Me handles GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeError(w, "Me", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// GetByID handles GET /api/users/{id}
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "User not found")
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), id)
	if err != nil {
		h.writeError(w, "Get user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// List handles GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.userService.List(r.Context())
	if err != nil {
		h.writeError(w, "List users", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profiles)
}

// Update handles PUT /api/users
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.userService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, "Update user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateAvatar handles PUT /api/users/avatar (multipart field "avatar").
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	maxFormSize := int64(model.MaxAvatarSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
			return
		}
		if strings.Contains(err.Error(), "request body too large") {
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
			return
		}
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.WriteBadRequest(w, "Avatar file is required")
		return
	}
	defer file.Close()

	profile, err := h.userService.UpdateAvatar(r.Context(), userID, file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrMediaNotConfigured):
			httputil.WriteServiceUnavailable(w, "Media storage is not configured")
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		default:
			h.writeError(w, "Update avatar", err)
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// Follow handles PUT /api/users/follow
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.follow(w, r, h.userService.Follow, "Follow")
}

// Unfollow handles PUT /api/users/unfollow
func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.follow(w, r, h.userService.Unfollow, "Unfollow")
}

type followFunc func(ctx context.Context, userID, targetID primitive.ObjectID) (*model.Profile, error)

func (h *UserHandler) follow(w http.ResponseWriter, r *http.Request, fn followFunc, op string) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.FollowRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	targetID, err := model.ParseID(req.FollowID)
	if err != nil {
		httputil.WriteNotFound(w, "User not found")
		return
	}

	profile, err := fn(r.Context(), userID, targetID)
	if err != nil {
		if errors.Is(err, model.ErrCannotFollowSelf) {
			httputil.WriteBadRequest(w, "You cannot follow yourself")
			return
		}
		h.writeError(w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// Delete handles DELETE /api/users
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), userID); err != nil {
		h.writeError(w, "Delete user", err)
		return
	}
	httputil.WriteMessage(w, "User deleted")
}

func (h *UserHandler) writeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, model.ErrUserNotFound) {
		httputil.WriteNotFound(w, "User not found")
		return
	}
	log.Printf("[ERROR] %s handler: err=%v", op, err)
	httputil.WriteInternalError(w, "Server Error")
}
