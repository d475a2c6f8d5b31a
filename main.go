package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"indibox/config"
	"indibox/handlers"
	"indibox/logger"
	"indibox/middleware"
	"indibox/repository"
	"indibox/services"
	"indibox/storage"
	"indibox/upload"
	"indibox/workers"
)

const slowQueryThreshold = 500 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.AppEnv)
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores := openStores(cfg)
	store, filesDir := openStorage(ctx, cfg)

	buckets := upload.Buckets{
		Games:       cfg.BucketGames,
		Images:      cfg.BucketImages,
		Screenshots: cfg.BucketScreenshots,
	}
	uploader := upload.NewUploader(store, buckets, upload.NewKeyGenerator(nil))

	gameService := services.NewGameService(stores.Games, stores.Cleanups, uploader)
	reviewService := services.NewReviewService(stores.Reviews, stores.Games)
	userService := services.NewUserService(stores.Users)

	cleanup := workers.NewAssetCleanupWorker(stores.Cleanups, store, cfg.CleanupInterval)
	if err := cleanup.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start asset cleanup worker")
	}

	app := handlers.NewApp(
		middleware.NewAuthenticator(cfg.JWTSecret),
		handlers.NewGameHandler(gameService, userService),
		handlers.NewReviewHandler(reviewService, userService),
		handlers.Options{
			BodyLimit:      cfg.BodyLimit(),
			AllowedOrigins: cfg.Origins(),
			FilesDir:       filesDir,
		},
	)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()
	logger.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.StorageDriver).Str("origins", cfg.Origins()).Msg("server running")

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	if err := cleanup.Stop(); err != nil {
		logger.Error().Err(err).Msg("stop asset cleanup worker")
	}
}

func openStores(cfg *config.Config) repository.Stores {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory store; data is lost on restart")
		return repository.NewMemoryStores()
	}
	db, err := repository.Open(cfg.DatabaseURL, slowQueryThreshold, logger.With("gorm"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	return repository.NewGormStores(db)
}

// openStorage returns the object store and, for local storage, the directory
// the HTTP server must serve under /files.
func openStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStore, string) {
	if cfg.StorageDriver == "s3" {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize S3 client")
		}
		return store, ""
	}

	store, err := storage.NewLocalStore(cfg.LocalStorageDir, cfg.LocalPublicBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare local storage")
	}
	return store, store.Root()
}
