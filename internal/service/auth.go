package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/config"
	"connectly/internal/model"
)

// Claims is the token payload: {"user": {"id": "<hex>"}} plus the registered claims.
type Claims struct {
	User ClaimsUser `json:"user"`
	jwt.RegisteredClaims
}

type ClaimsUser struct {
	ID string `json:"id"`
}

// AuthService issues and verifies access tokens. There is no server-side
// session: a token is valid until it expires.
type AuthService struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		secret: []byte(cfg.JWTSecret),
		maxAge: time.Duration(cfg.TokenMaxAge) * time.Second,
		now:    time.Now,
	}
}

// GenerateToken signs an HS256 token for userID.
func (s *AuthService) GenerateToken(userID primitive.ObjectID) (string, error) {
	now := s.now()
	claims := Claims{
		User: ClaimsUser{ID: userID.Hex()},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature and expiry and returns the embedded user id.
// Signature and expiry failures map to model.ErrTokenInvalid and
// model.ErrTokenExpired; a verified token whose payload is not a user id
// yields a plain error.
func (s *AuthService) ParseToken(tokenString string) (primitive.ObjectID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return primitive.NilObjectID, model.ErrTokenExpired
		}
		return primitive.NilObjectID, model.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return primitive.NilObjectID, model.ErrTokenInvalid
	}

	id, err := primitive.ObjectIDFromHex(claims.User.ID)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("token payload user id %q: %w", claims.User.ID, err)
	}
	return id, nil
}
