package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"connectly/internal/config"
)

// Collection names
const (
	UsersCollection = "users"
	PostsCollection = "posts"
)

const connectTimeout = 10 * time.Second

// Connect opens a client against cfg.MongoURI, verifies it with a ping and
// returns the configured database handle.
func Connect(ctx context.Context, cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Connected to database %q successfully", cfg.MongoDB)
	return client, client.Database(cfg.MongoDB), nil
}

// EnsureIndexes creates the indexes the repositories rely on.
// The unique email index backs the duplicate-registration check.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}

	_, err = db.Collection(PostsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "posted_by", Value: 1}, {Key: "created", Value: -1}},
		Options: options.Index().SetName("posted_by_created"),
	})
	if err != nil {
		return fmt.Errorf("create posts author index: %w", err)
	}

	return nil
}
