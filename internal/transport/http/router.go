package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"connectly/internal/handler"
	"connectly/internal/httputil"
	authmw "connectly/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler  *handler.AuthHandler
	UserHandler  *handler.UserHandler
	PostHandler  *handler.PostHandler
	FeedHandler  *handler.FeedHandler
	MediaHandler *handler.MediaHandler
	Tokens       authmw.TokenParser
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes - no authentication required
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)

		// Protected routes - require x-auth-token
		r.Group(func(r chi.Router) {
			r.Use(authmw.AuthMiddleware(cfg.Tokens))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", cfg.UserHandler.List)
				r.Put("/", cfg.UserHandler.Update)
				r.Delete("/", cfg.UserHandler.Delete)
				r.Get("/me", cfg.UserHandler.Me)
				r.Put("/avatar", cfg.UserHandler.UpdateAvatar)
				r.Put("/follow", cfg.UserHandler.Follow)
				r.Put("/unfollow", cfg.UserHandler.Unfollow)
				r.Get("/{id}", cfg.UserHandler.GetByID)
			})

			r.Route("/posts", func(r chi.Router) {
				r.Post("/", cfg.PostHandler.Create)
				r.Get("/", cfg.PostHandler.ListMine)
				r.Get("/post/{id}", cfg.PostHandler.GetByID)
				r.Delete("/post/{pid}/comment/{cid}", cfg.PostHandler.DeleteComment)
				r.Put("/like/{id}", cfg.PostHandler.Like)
				r.Put("/unlike/{id}", cfg.PostHandler.Unlike)
				r.Post("/comment/{id}", cfg.PostHandler.Comment)
				r.Post("/media/presign", cfg.MediaHandler.PresignPostUpload)
				r.Get("/{id}", cfg.PostHandler.ListByAuthor)
				r.Delete("/{id}", cfg.PostHandler.Delete)
			})

			r.Get("/feed", cfg.FeedHandler.GetFeed)
		})
	})

	return r
}
