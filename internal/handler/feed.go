package handler

import (
	"errors"
	"log"
	"net/http"

	"connectly/internal/httputil"
	"connectly/internal/model"
	"connectly/internal/service"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// GetFeed handles GET /api/feed
// Returns posts by everyone the caller follows, newest first.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	posts, err := h.feedService.GetFeed(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[ERROR] Feed handler: user=%s err=%v", userID.Hex(), err)
		httputil.WriteInternalError(w, "Server Error")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, posts)
}
