package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/config"
	"connectly/internal/model"
)

func newTestAuth() *AuthService {
	return NewAuthService(&config.Config{JWTSecret: "test-secret", TokenMaxAge: 3600})
}

func TestAuthService_RoundTrip(t *testing.T) {
	auth := newTestAuth()
	id := primitive.NewObjectID()

	token, err := auth.GenerateToken(id)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	got, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if got != id {
		t.Errorf("user id = %s, want %s", got.Hex(), id.Hex())
	}
}

func TestAuthService_ParseToken_Errors(t *testing.T) {
	auth := newTestAuth()
	id := primitive.NewObjectID()
	valid, _ := auth.GenerateToken(id)

	// Another user's payload under this token's signature
	other, _ := auth.GenerateToken(primitive.NewObjectID())
	vp, op := strings.Split(valid, "."), strings.Split(other, ".")
	tampered := vp[0] + "." + op[1] + "." + vp[2]

	expired := newTestAuth()
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _ := expired.GenerateToken(id)

	otherSecret := NewAuthService(&config.Config{JWTSecret: "other", TokenMaxAge: 3600})
	foreign, _ := otherSecret.GenerateToken(id)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "garbage", token: "not.a.token", wantErr: model.ErrTokenInvalid},
		{name: "tampered", token: tampered, wantErr: model.ErrTokenInvalid},
		{name: "wrong secret", token: foreign, wantErr: model.ErrTokenInvalid},
		{name: "expired", token: expiredToken, wantErr: model.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.ParseToken(tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_ParseToken_BadPayload(t *testing.T) {
	auth := newTestAuth()
	claims := Claims{
		User: ClaimsUser{ID: "nope"},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = auth.ParseToken(signed)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, model.ErrTokenInvalid) || errors.Is(err, model.ErrTokenExpired) {
		t.Errorf("bad payload should not be reported as a token failure: %v", err)
	}
}
