// Package main is the entrypoint for the Dataroom API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	_ "github.com/lib/pq"

	"github.com/dataroom/dataroom/internal/auth"
	"github.com/dataroom/dataroom/internal/cache"
	"github.com/dataroom/dataroom/internal/config"
	"github.com/dataroom/dataroom/internal/google"
	"github.com/dataroom/dataroom/internal/handler"
	"github.com/dataroom/dataroom/internal/metrics"
	"github.com/dataroom/dataroom/internal/middleware"
	"github.com/dataroom/dataroom/internal/repository"
	"github.com/dataroom/dataroom/internal/server"
	"github.com/dataroom/dataroom/internal/service"
	"github.com/dataroom/dataroom/internal/storage"
	"github.com/dataroom/dataroom/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("server error", "error", sanitizeError(err, cfg.DatabaseURL, cfg.RedisURL))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Background work such as JWKS refresh stops with this context.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.AutoMigrate {
		if err := migrate(ctx, cfg.DatabaseURL, logger); err != nil {
			return err
		}
	}

	sealer, err := auth.NewTokenSealer(cfg.TokenEncryptionKey)
	if err != nil {
		return fmt.Errorf("token sealer: %w", err)
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.WithTokenSealer(sealer))
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return errors.New("connect database")
	}
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return errors.New("connect redis")
	}
	logger.Info("connected to Redis")

	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		repo.Close()
		_ = cacheClient.Close()
		return err
	}

	recorder, exposition := newRecorder(cfg)

	googleClient := google.New(google.Config{
		ClientID:        cfg.GoogleClientID,
		ClientSecret:    cfg.GoogleClientSecret,
		RequestTimeout:  cfg.GoogleRequestTimeout,
		DownloadTimeout: cfg.GoogleDownloadTimeout,
	}, logger)

	// id_tokens are only checked when a client id exists to check the audience against.
	var verifier service.IDTokenVerifier
	if cfg.GoogleClientID != "" {
		v, err := google.NewIDTokenVerifier(ctx, cfg.GoogleJWKSURL, cfg.GoogleClientID)
		if err != nil {
			logger.Warn("id_token verification disabled", slog.String("error", err.Error()))
		} else {
			verifier = v
		}
	} else {
		logger.Warn("GOOGLE_CLIENT_ID not configured; sign-in is unavailable")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry())

	// Initialize services
	authService := service.NewAuthService(service.AuthServiceDeps{
		Users:    repo,
		OAuth:    repo,
		States:   cacheClient,
		Sessions: cacheClient,
		Google:   googleClient,
		Verifier: verifier,
		Tokens:   tokens,
		Logger:   logger,
		Metrics:  recorder,
	})
	driveService := service.NewDriveService(repo, googleClient, cfg.DriveDefaultFolderID, logger, recorder)
	dataroomService := service.NewDataroomService(repo, repo, blobs, logger, recorder)
	fileService := service.NewFileService(service.FileServiceDeps{
		Rooms:   repo,
		Files:   repo,
		Drive:   driveService,
		Google:  googleClient,
		Blobs:   blobs,
		Locker:  cacheClient,
		Logger:  logger,
		Metrics: recorder,
	})

	rateLimit := middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: cacheClient,
		Enabled: cfg.RateLimitEnabled,
		RPS:     cfg.RateLimitRPS,
		Burst:   cfg.RateLimitBurst,
	}
	authRateLimit := rateLimit
	authRateLimit.RPS = cfg.AuthRateLimitRPS
	authRateLimit.Burst = cfg.AuthRateLimitBurst

	r := newRouter(routerDeps{
		Logger:   logger,
		Recorder: recorder,
		Health:   handler.NewHealthHandler(repo, cacheClient, blobs),
		Metrics:  handler.NewMetricsHandler(exposition),
		Auth: handler.NewAuthHandler(authService, handler.AuthConfig{
			FrontendOrigin:    cfg.FrontendOrigin,
			RedirectURI:       cfg.GoogleRedirectURI,
			ClientID:          cfg.GoogleClientID,
			HasClientSecret:   cfg.GoogleClientSecret != "",
			DebugEnabled:      cfg.IsDevelopment(),
			TrustProxyHeaders: cfg.TrustProxyHeaders,
		}, logger),
		Drive:     handler.NewDriveHandler(driveService, logger),
		Datarooms: handler.NewDataroomHandler(dataroomService, logger),
		Files:     handler.NewFileHandler(fileService, logger),
		AuthMiddleware: middleware.AuthConfig{
			Logger:   logger,
			Tokens:   tokens,
			Sessions: cacheClient,
			Users:    repo,
		},
		UserRateLimit:  rateLimit,
		IPRateLimit:    authRateLimit,
		AllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxBodySize:    cfg.MaxRequestBodySize,
		IsDevelopment:  cfg.IsDevelopment(),
		DebugRoutes:    cfg.IsDevelopment(),
	})

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// LIFO: the background context goes first, the database last.
	srv.OnShutdown("database", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})
	srv.OnShutdown("background", func(context.Context) error {
		cancel()
		return nil
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"frontend_origin", cfg.FrontendOrigin,
		"storage", cfg.StorageBackend,
		"env", cfg.AppEnv,
	)

	return srv.Run(ctx)
}

// migrate applies pending schema migrations through database/sql.
func migrate(ctx context.Context, databaseURL string, logger *slog.Logger) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	applied, err := migrations.Up(ctx, db)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	logger.Info("migrations applied", slog.Any("versions", applied))
	return nil
}

// newBlobStore builds the configured storage backend.
func newBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageMinIO:
		store, err := storage.NewMinIOStore(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("minio storage: %w", err)
		}
		logger.Info("using minio storage", "endpoint", cfg.MinIOEndpoint, "bucket", cfg.MinIOBucket)
		return store, nil
	default:
		store, err := storage.NewLocalStore(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("local storage: %w", err)
		}
		logger.Info("using local storage", "root", store.Root())
		return store, nil
	}
}

// newRecorder returns the metrics recorder and, when metrics are enabled,
// the exposition handler that serves them.
func newRecorder(cfg *config.Config) (metrics.Recorder, http.Handler) {
	if !cfg.MetricsEnabled {
		return metrics.NewNoop(), nil
	}
	p := metrics.NewPrometheus()
	return p, p.Handler()
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
