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

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	userService *service.UserService
	authService *service.AuthService
}

// NewAuthHandler wires dependencies for authentication endpoints.
func NewAuthHandler(userService *service.UserService, authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
	}
}

// Register handles user sign-up
// POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrUserExists) {
			httputil.WriteBadRequest(w, "User already exists")
			return
		}
		log.Printf("[ERROR] Register handler: err=%v", err)
		httputil.WriteInternalError(w, "Server Error")
		return
	}

	h.writeToken(w, user.ID)
}

// Login handles user login
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			httputil.WriteBadRequest(w, "Invalid credentials")
			return
		}
		log.Printf("[ERROR] Login handler: err=%v", err)
		httputil.WriteInternalError(w, "Server Error")
		return
	}

	h.writeToken(w, user.ID)
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, userID primitive.ObjectID) {
	token, err := h.authService.GenerateToken(userID)
	if err != nil {
		log.Printf("[ERROR] Token generation: user=%s err=%v", userID.Hex(), err)
		httputil.WriteInternalError(w, "Failed to generate token")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.TokenResponse{Token: token})
}
