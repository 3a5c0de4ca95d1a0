package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"connectly/internal/config"
	"connectly/internal/model"
)

func TestBucketURLRoundTrip(t *testing.T) {
	b := &Bucket{publicURL: "https://cdn.example.com"}

	url := b.URL("avatars/x.jpg")
	assert.Equal(t, "https://cdn.example.com/avatars/x.jpg", url)

	key, ok := b.KeyFromURL(url)
	assert.True(t, ok)
	assert.Equal(t, "avatars/x.jpg", key)

	_, ok = b.KeyFromURL("https://gravatar.com/avatar/x")
	assert.False(t, ok)

	_, ok = b.KeyFromURL("https://cdn.example.com/")
	assert.False(t, ok)
}

func TestDeleteEmptyKeyIsNoop(t *testing.T) {
	b := &Bucket{}
	assert.NoError(t, b.Delete(context.Background(), ""))
}

func TestNewR2BucketRequiresConfig(t *testing.T) {
	_, err := NewR2Bucket(context.Background(), &config.Config{R2AccountID: "acct"})
	assert.True(t, errors.Is(err, model.ErrMediaNotConfigured))
}
