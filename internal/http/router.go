package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streamvault/mediagate/internal/config"
	"github.com/streamvault/mediagate/internal/http/features/access"
	"github.com/streamvault/mediagate/internal/http/features/analytics"
	"github.com/streamvault/mediagate/internal/http/middleware"
	"github.com/streamvault/mediagate/internal/httputil"
	svc "github.com/streamvault/mediagate/pkg/access"
	"github.com/streamvault/mediagate/pkg/repository"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	AccessService   *svc.Service
	SessionsRepo    *repository.SessionsRepository
	ServiceAPIKey   string
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Create rate limiters for different endpoint types
	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	accessHandler := access.NewHandler(cfg.Logger, cfg.AccessService, cfg.SessionsRepo)
	analyticsHandler := analytics.NewHandler(cfg.Logger, cfg.AccessService)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.ServiceAuth(cfg.ServiceAPIKey))

		r.With(rateLimiters["request"]).Post("/access/request", accessHandler.RequestAccess)
		r.With(rateLimiters["refresh"]).Post("/access/refresh", accessHandler.RefreshAccess)
		r.With(rateLimiters["request"]).Post("/access/revoke", accessHandler.RevokeAccess)

		r.Get("/assets/{assetID}/analytics", analyticsHandler.AssetAnalytics)
		r.Get("/users/{userID}/sessions", accessHandler.ListSessions)

		r.With(rateLimiters["admin"]).Post("/admin/sessions/purge", analyticsHandler.PurgeSessions)
	})

	return r
}
