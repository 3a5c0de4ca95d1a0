package model

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a user document in the users collection
type User struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name" json:"name"`
	Email     string               `bson:"email" json:"email"`
	Password  string               `bson:"password" json:"-"` // bcrypt hash, never serialised
	Avatar    string               `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Bio       string               `bson:"bio,omitempty" json:"bio,omitempty"`
	Followers []primitive.ObjectID `bson:"followers" json:"followers"`
	Following []primitive.ObjectID `bson:"following" json:"following"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
}

// UserRef is the expanded form of a user reference: just id and name.
type UserRef struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
}

// Profile is a user without credentials, with the follow graph expanded.
type Profile struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Avatar    string             `json:"avatar,omitempty"`
	Bio       string             `json:"bio,omitempty"`
	Followers []UserRef          `json:"followers"`
	Following []UserRef          `json:"following"`
	CreatedAt time.Time          `json:"created_at"`
}

// RegisterRequest represents the data needed to register a new user
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest carries the editable profile fields. Nil means unchanged.
type UpdateProfileRequest struct {
	Name   *string `json:"name" validate:"omitempty,notblank,max=50"`
	Avatar *string `json:"avatar" validate:"omitempty,url"`
	Bio    *string `json:"bio" validate:"omitempty,max=280"`
}

// FollowRequest is the body of the follow and unfollow endpoints.
type FollowRequest struct {
	FollowID string `json:"followId" validate:"required,objectid"`
}

// TokenResponse is the sole success payload of register and login.
type TokenResponse struct {
	Token string `json:"token"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when attempting to register a taken email
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCannotFollowSelf is returned when a user targets themselves with follow
	ErrCannotFollowSelf = errors.New("cannot follow yourself")

	// ErrInvalidID is returned when an id is not a valid ObjectID hex string
	ErrInvalidID = errors.New("invalid id")
)

// ParseID converts a hex string into an ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}
