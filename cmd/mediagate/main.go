package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/streamvault/mediagate/internal/config"
	httpserver "github.com/streamvault/mediagate/internal/http"
	"github.com/streamvault/mediagate/internal/metrics"
	"github.com/streamvault/mediagate/pkg/access"
	"github.com/streamvault/mediagate/pkg/objectstore"
	"github.com/streamvault/mediagate/pkg/repository"
	"github.com/streamvault/mediagate/pkg/subscription"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Optional redis tier cache
	var cache *redis.Client
	if cfg.HasRedis() {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer cache.Close()
		logger.Info("tier cache enabled", "addr", cfg.RedisAddr)
	}

	// Connect to object storage
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	locator, err := objectstore.NewLocator(ctx, objectstore.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
		Bucket:    cfg.MinioBucket,
		KeyPrefix: cfg.MinioKeyPrefix,
	})
	cancel()
	if err != nil {
		logger.Error("failed to connect to object storage", "error", err)
		os.Exit(1)
	}

	logger.Info("connected to object storage", "bucket", cfg.MinioBucket)

	// Initialize repositories and services
	sessionsRepo := repository.NewSessionsRepository(db)
	accessLogsRepo := repository.NewAccessLogsRepository(db)

	tierService := subscription.NewService(subscription.Config{
		CacheTTL: cfg.TierCacheTTL,
		Timeout:  cfg.CollaboratorTimeout,
	}, db, cache, logger)

	accessService := access.NewService(access.Config{
		GrantTTL:            cfg.GrantTTL,
		SessionCeiling:      cfg.SessionCeiling,
		RefreshTokenTTL:     cfg.RefreshTokenTTL,
		MaxRefresh:          cfg.MaxRefresh,
		CollaboratorTimeout: cfg.CollaboratorTimeout,
		AnalyticsWindow:     cfg.AnalyticsWindow,
		AnalyticsLimit:      cfg.AnalyticsLimit,
		RefreshTokenSecret:  []byte(cfg.RefreshTokenSecret),
		Issuer:              cfg.TokenIssuer,
	}, access.Dependencies{
		Tiers:         tierService,
		Locator:       locator,
		Sessions:      sessionsRepo,
		Logs:          accessLogsRepo,
		Logger:        logger,
		AuditFailures: metrics.AuditWriteFailures,
	})

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          logger,
		AccessService:   accessService,
		SessionsRepo:    sessionsRepo,
		ServiceAPIKey:   cfg.ServiceAPIKey,
		RateLimitConfig: cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
		Validation:      cfg.Validation,
	})

	// Background purge sweep (disabled when interval is 0)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if cfg.PurgeInterval > 0 {
		go runPurgeSweep(sweepCtx, logger, accessService, cfg.PurgeInterval)
		logger.Info("purge sweep enabled", "interval", cfg.PurgeInterval.String())
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stopSweep()

	// Graceful shutdown with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// runPurgeSweep periodically flags sessions past their ceiling.
func runPurgeSweep(ctx context.Context, logger *slog.Logger, service *access.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := service.PurgeExpiredSessions(ctx)
			if err != nil {
				logger.Error("purge sweep failed", "error", err)
				continue
			}
			if count > 0 {
				metrics.SessionsPurged.Add(float64(count))
			}
		}
	}
}
