package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/newsdesk/internal/api"
	"github.com/bilgisen/newsdesk/internal/cache"
	"github.com/bilgisen/newsdesk/internal/config"
	"github.com/bilgisen/newsdesk/internal/contact"
	"github.com/bilgisen/newsdesk/internal/logger"
	"github.com/bilgisen/newsdesk/internal/news"
	"github.com/bilgisen/newsdesk/internal/repository"
	"github.com/bilgisen/newsdesk/internal/richtext"
	"github.com/bilgisen/newsdesk/internal/slug"
	"github.com/bilgisen/newsdesk/internal/storage"
)

func main() {
	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogFile,
		Pretty: cfg.LogPretty,
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Msg("Starting application...")

	ctx := context.Background()
	checks := make(map[string]api.HealthCheck)

	// Article repository
	var repo repository.ArticleRepository
	switch cfg.Repository {
	case config.RepositoryMemory:
		log.Warn().Msg("Using in-memory article repository, data is lost on restart")
		repo = repository.NewMemoryArticleRepository()
	default:
		dbCtx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
		pool, err := repository.NewPool(dbCtx, repository.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pool.Close()

		pg := repository.NewPostgresArticleRepository(pool)
		schemaCtx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
		err = pg.EnsureSchema(schemaCtx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to apply database schema")
		}
		repo = pg
		checks["database"] = pool.Ping
	}

	// Blob storage
	var blobs storage.BlobStore
	var mediaDir string
	switch cfg.BlobBackend {
	case config.BlobBackendLocal:
		local, err := storage.NewLocalStore(cfg.LocalBlobPath, cfg.LocalBlobBaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize local blob storage")
		}
		blobs = local
		mediaDir = local.BasePath()
	default:
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 blob storage")
		}
		blobs = s3Store
	}

	// Cache and slug locks
	var redisClient cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisClient(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis client")
		}
		redisClient = rc
		checks["redis"] = rc.Ping
	} else {
		log.Warn().Msg("REDIS_URL not set, using in-process cache and locks")
		redisClient = cache.NewMockRedisClient(cfg.RedisPrefix)
	}
	defer func() {
		log.Info().Msg("Closing cache client...")
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing cache client")
		}
	}()

	rewriter := richtext.NewRewriter(blobs,
		richtext.WithCategory(cfg.ImageKeyPrefix),
		richtext.WithConcurrency(cfg.UploadConcurrency),
		richtext.WithLogger(logger.Component("richtext")),
	)
	resolver := slug.NewResolver(repo,
		slug.WithMaxAttempts(cfg.SlugMaxAttempts),
		slug.WithLogger(logger.Component("slug")),
	)
	articles := news.NewService(repo, rewriter, resolver,
		news.WithCache(redisClient, cfg.CacheTTL, cfg.SlugLockTTL),
		news.WithBlobCleanup(blobs),
		news.WithLogger(logger.Component("news")),
	)
	// Cached rows from a previous release may not match the current model
	purgeCtx, cancelPurge := context.WithTimeout(context.Background(), 5*time.Second)
	if err := articles.PurgeCache(purgeCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to purge article cache")
	}
	cancelPurge()
	contactClient := contact.NewClient(contact.Config{
		URL:        cfg.ContactWebhookURL,
		Timeout:    cfg.ContactTimeout,
		RetryCount: 2,
	})

	app := api.NewApp(cfg.BodyLimit, cfg.HTTPTimeout)
	api.SetupRoutes(app,
		api.NewHandlers(articles, contactClient, checks, cfg.HTTPTimeout),
		api.RouteOptions{MediaDir: mediaDir},
	)

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Create a deadline for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
