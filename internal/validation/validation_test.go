package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/model"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *validation.Error, got %v", err)

	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestStruct_Register(t *testing.T) {
	tests := []struct {
		name string
		req  model.RegisterRequest
		want map[string]string
	}{
		{
			name: "valid",
			req:  model.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "longenough"},
		},
		{
			name: "all missing",
			req:  model.RegisterRequest{},
			want: map[string]string{
				"name":     "Name is Required",
				"email":    "Please enter a valid email",
				"password": "Password is required",
			},
		},
		{
			name: "blank name",
			req:  model.RegisterRequest{Name: "  \t ", Email: "ada@example.com", Password: "longenough"},
			want: map[string]string{"name": "Name is Required"},
		},
		{
			name: "bad email and short password",
			req:  model.RegisterRequest{Name: "Ada", Email: "nope", Password: "short"},
			want: map[string]string{
				"email":    "Please enter a valid email",
				"password": "Please enter a password with 8 or more characters",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, fieldsOf(t, err))
		})
	}
}

func TestStruct_FollowRequestObjectID(t *testing.T) {
	assert.NoError(t, Struct(model.FollowRequest{FollowID: primitive.NewObjectID().Hex()}))

	got := fieldsOf(t, Struct(model.FollowRequest{FollowID: "123"}))
	assert.Equal(t, "followId must be a valid id", got["followId"])
}

func TestStruct_UpdateProfileOptionalFields(t *testing.T) {
	assert.NoError(t, Struct(model.UpdateProfileRequest{}))

	bad := "not a url"
	got := fieldsOf(t, Struct(model.UpdateProfileRequest{Avatar: &bad}))
	assert.Equal(t, "must be a valid URL", got["avatar"])
}

func TestError_Message(t *testing.T) {
	err := &Error{Fields: []FieldError{{Field: "email", Message: "bad"}}}
	assert.Equal(t, "validation failed: email: bad", err.Error())
}

func TestStruct_BlankText(t *testing.T) {
	assert.NoError(t, Struct(model.CreatePostRequest{Text: " hi "}))

	got := fieldsOf(t, Struct(model.CreatePostRequest{Text: "   "}))
	assert.Equal(t, "Text is required", got["text"])

	got = fieldsOf(t, Struct(model.CreateCommentRequest{Text: "\n"}))
	assert.Equal(t, "Text is required", got["text"])

	blank := "  "
	got = fieldsOf(t, Struct(model.UpdateProfileRequest{Name: &blank}))
	assert.Equal(t, "Name is Required", got["name"])
}
