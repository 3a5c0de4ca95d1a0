package config

import (
	"errors"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	MongoDB  string

	ServerPort string

	JWTSecret   string
	TokenMaxAge int

	RedisURL    string
	FeedWorkers int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	DefaultAvatarURL string
}

// ErrMissingJWTSecret is returned when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	// 36000 seconds (10 hours)
	tokenMaxAge, err := strconv.Atoi(os.Getenv("TOKEN_MAX_AGE"))
	if err != nil || tokenMaxAge <= 0 {
		tokenMaxAge = 36000
	}

	feedWorkers, err := strconv.Atoi(os.Getenv("FEED_WORKERS"))
	if err != nil || feedWorkers <= 0 {
		feedWorkers = 2
	}

	return &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "connectly"),

		ServerPort: getEnv("PORT", "5000"),

		JWTSecret:   jwtSecret,
		TokenMaxAge: tokenMaxAge,

		RedisURL:    os.Getenv("REDIS_URL"),
		FeedWorkers: feedWorkers,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		DefaultAvatarURL: os.Getenv("DEFAULT_AVATAR_URL"),
	}, nil
}

// MediaEnabled reports whether every object storage setting is present.
func (c *Config) MediaEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
