package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/httputil"
	"connectly/internal/model"
	"connectly/internal/transport/http/middleware"
)

// currentUser returns the authenticated caller, writing a 401 when the auth
// middleware did not run.
func currentUser(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
	}
	return userID, ok
}

// pathID parses a URL parameter as an ObjectID. A malformed id can never
// match a document, so it is reported as notFound.
func pathID(w http.ResponseWriter, r *http.Request, param, notFound string) (primitive.ObjectID, bool) {
	id, err := model.ParseID(chi.URLParam(r, param))
	if err != nil {
		httputil.WriteNotFound(w, notFound)
		return primitive.NilObjectID, false
	}
	return id, true
}
