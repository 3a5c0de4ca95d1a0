package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectly/internal/cache"
	"connectly/internal/config"
	"connectly/internal/database"
	"connectly/internal/handler"
	"connectly/internal/model"
	"connectly/internal/queue"
	"connectly/internal/redis"
	"connectly/internal/repository"
	"connectly/internal/service"
	"connectly/internal/storage"
	"connectly/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Connect to Database
	mongoClient, db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Failed to disconnect from database: %v", err)
		}
	}()

	if err := database.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	// 3. Optional Redis: feed cache, event stream and workers
	var (
		feedCache cache.FeedCache
		publisher queue.Publisher = queue.NopPublisher{}
		workers   *worker.Manager
	)
	if cfg.RedisURL != "" {
		redisClient, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()

		feedCache = cache.NewFeedCache(redisClient.Client)
		publisher = queue.NewPublisher(redisClient.Client)

		workerCfg := worker.DefaultManagerConfig()
		workerCfg.WorkerCount = cfg.FeedWorkers
		workers = worker.NewManager(
			queue.NewConsumer(redisClient.Client),
			worker.NewHandler(feedCache, userRepo, postRepo),
			workerCfg,
		)
		if err := workers.Start(ctx); err != nil {
			return fmt.Errorf("failed to start feed workers: %w", err)
		}
	} else {
		log.Println("REDIS_URL not set, feed served directly from the database")
	}

	// 4. Optional media storage
	var (
		avatars      service.AvatarStore
		mediaService *service.MediaService
	)
	bucket, err := storage.NewR2Bucket(ctx, cfg)
	switch {
	case err == nil:
		mediaService = service.NewMediaService(bucket)
		avatars = mediaService
	case errors.Is(err, model.ErrMediaNotConfigured):
		log.Println("R2 not configured, media uploads disabled")
	default:
		return fmt.Errorf("failed to init media storage: %w", err)
	}

	// 5. Services and handlers
	authService := service.NewAuthService(cfg)
	userService := service.NewUserService(userRepo, postRepo, publisher, feedCache, avatars, cfg.DefaultAvatarURL)
	postService := service.NewPostService(postRepo, userRepo, publisher)
	feedService := service.NewFeedService(feedCache, postRepo, userRepo)

	router := NewRouter(RouterConfig{
		AuthHandler:  handler.NewAuthHandler(userService, authService),
		UserHandler:  handler.NewUserHandler(userService),
		PostHandler:  handler.NewPostHandler(postService),
		FeedHandler:  handler.NewFeedHandler(feedService),
		MediaHandler: handler.NewMediaHandler(mediaService),
		Tokens:       authService,
	})

	// 6. Serve until signalled
	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		workers.Stop()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	workers.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Println("Server stopped")
	return nil
}
