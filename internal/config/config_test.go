package config

import (
	"errors"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MONGO_URI", "")
	t.Setenv("MONGO_DB", "")
	t.Setenv("PORT", "")
	t.Setenv("TOKEN_MAX_AGE", "")
	t.Setenv("FEED_WORKERS", "")
	t.Setenv("R2_ACCOUNT_ID", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MongoURI != "mongodb://localhost:27017" {
		t.Errorf("MongoURI = %q", cfg.MongoURI)
	}
	if cfg.MongoDB != "connectly" {
		t.Errorf("MongoDB = %q", cfg.MongoDB)
	}
	if cfg.ServerPort != "5000" {
		t.Errorf("ServerPort = %q, want 5000", cfg.ServerPort)
	}
	if cfg.TokenMaxAge != 36000 {
		t.Errorf("TokenMaxAge = %d, want 36000", cfg.TokenMaxAge)
	}
	if cfg.FeedWorkers != 2 {
		t.Errorf("FeedWorkers = %d, want 2", cfg.FeedWorkers)
	}
	if cfg.MediaEnabled() {
		t.Error("media should be disabled without R2 settings")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "8081")
	t.Setenv("TOKEN_MAX_AGE", "60")
	t.Setenv("FEED_WORKERS", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerPort != "8081" {
		t.Errorf("ServerPort = %q, want 8081", cfg.ServerPort)
	}
	if cfg.TokenMaxAge != 60 {
		t.Errorf("TokenMaxAge = %d, want 60", cfg.TokenMaxAge)
	}
	if cfg.FeedWorkers != 2 {
		t.Errorf("FeedWorkers = %d, want fallback 2", cfg.FeedWorkers)
	}
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	if !errors.Is(err, ErrMissingJWTSecret) {
		t.Errorf("error = %v, want %v", err, ErrMissingJWTSecret)
	}
}
