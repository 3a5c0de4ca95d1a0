package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/httputil"
	"connectly/internal/model"
)

// TokenHeader carries the access token on every protected request.
const TokenHeader = "x-auth-token"

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"
)

// TokenParser verifies a token and returns the user it was issued to.
type TokenParser interface {
	ParseToken(token string) (primitive.ObjectID, error)
}

// AuthMiddleware creates a middleware that validates the x-auth-token header
func AuthMiddleware(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := strings.TrimSpace(r.Header.Get(TokenHeader))
			if tokenString == "" {
				httputil.WriteUnauthorized(w, "No token found")
				return
			}

			userID, err := tokens.ParseToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, model.ErrTokenExpired):
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Token has expired")
				case errors.Is(err, model.ErrTokenInvalid):
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Token is not valid")
				default:
					log.Printf("[ERROR] Auth middleware: %v", err)
					httputil.WriteInternalError(w, "Server Error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the user ID from the request context
// Returns the user ID and true if found, or NilObjectID and false if not found
func GetUserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	userID, ok := ctx.Value(UserIDKey).(primitive.ObjectID)
	return userID, ok
}
