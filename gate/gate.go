// Package gate provides an embeddable media access control library for
// hosts that want the access endpoints inside their own router instead of
// running the standalone server.
//
// Setup:
//
//  1. Run migrations from migrations/ folder using your preferred tool
//  2. Create a Gate instance and mount routes
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/myapp?sslmode=disable")
//
//	g, err := gate.New(gate.Config{
//	    DB:                 db,
//	    Locator:            locator,
//	    RefreshTokenSecret: "your-secret-key-at-least-32-chars",
//	})
//	if err != nil {
//	    log.Fatal(err) // Will fail if migrations haven't been run
//	}
//
//	r := chi.NewRouter()
//	r.Mount("/media", g.Router())
//	http.ListenAndServe(":8080", r)
package gate

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	accesshttp "github.com/streamvault/mediagate/internal/http/features/access"
	"github.com/streamvault/mediagate/internal/http/features/analytics"
	"github.com/streamvault/mediagate/internal/httputil"
	"github.com/streamvault/mediagate/pkg/access"
	"github.com/streamvault/mediagate/pkg/repository"
	"github.com/streamvault/mediagate/pkg/subscription"
)

// Config holds the configuration for the gate library.
type Config struct {
	// DB is the database connection (required).
	DB *sql.DB

	// Locator resolves asset references in object storage (required).
	Locator access.ObjectLocator

	// RefreshTokenSecret signs session refresh tokens (required, min 32 chars).
	RefreshTokenSecret string

	// TokenIssuer is the issuer claim in refresh tokens (default: "mediagate").
	TokenIssuer string

	// GrantTTL is the lifetime of signed URLs (default: 15 minutes).
	GrantTTL time.Duration

	// SessionCeiling is the hard lifetime of a playback session (default: 24 hours).
	SessionCeiling time.Duration

	// RefreshTokenTTL is the lifetime of refresh tokens (default: 24 hours).
	RefreshTokenTTL time.Duration

	// MaxRefresh caps grant renewals per session (default: 100).
	MaxRefresh int

	// Redis enables the tier lookup cache (optional).
	Redis *redis.Client

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger
}

// Gate is the embeddable access control instance.
type Gate struct {
	config         Config
	db             *sql.DB
	sessionsRepo   *repository.SessionsRepository
	accessLogsRepo *repository.AccessLogsRepository
	tierService    *subscription.Service
	accessService  *access.Service
}

// New creates a new Gate instance with the given configuration.
// Returns an error if required database tables don't exist.
// Run migrations first - see migrations/ folder for SQL files.
func New(cfg Config) (*Gate, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	// Validate schema exists
	if err := validateSchema(cfg.DB); err != nil {
		return nil, err
	}

	// Initialize repositories
	sessionsRepo := repository.NewSessionsRepository(cfg.DB)
	accessLogsRepo := repository.NewAccessLogsRepository(cfg.DB)

	// Initialize services
	tierService := subscription.NewService(subscription.Config{}, cfg.DB, cfg.Redis, cfg.Logger)
	accessService := access.NewService(access.Config{
		GrantTTL:           cfg.GrantTTL,
		SessionCeiling:     cfg.SessionCeiling,
		RefreshTokenTTL:    cfg.RefreshTokenTTL,
		MaxRefresh:         cfg.MaxRefresh,
		RefreshTokenSecret: []byte(cfg.RefreshTokenSecret),
		Issuer:             cfg.TokenIssuer,
	}, access.Dependencies{
		Tiers:    tierService,
		Locator:  cfg.Locator,
		Sessions: sessionsRepo,
		Logs:     accessLogsRepo,
		Logger:   cfg.Logger,
	})

	return &Gate{
		config:         cfg,
		db:             cfg.DB,
		sessionsRepo:   sessionsRepo,
		accessLogsRepo: accessLogsRepo,
		tierService:    tierService,
		accessService:  accessService,
	}, nil
}

// Router returns a chi router with all access routes.
// Mount this on your main router:
//
//	r := chi.NewRouter()
//	r.Mount("/media", g.Router())
//
// Routes:
//
//	POST /access/request               - Request a signed playback URL
//	POST /access/refresh               - Renew a grant within a session
//	POST /access/revoke                - Expire a user's sessions
//	GET  /users/{userID}/sessions      - List a user's active sessions
//	GET  /assets/{assetID}/analytics   - Per-asset usage snapshot
//	POST /admin/sessions/purge         - Flag sessions past their ceiling
func (g *Gate) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Logger)

	accessHandler := accesshttp.NewHandler(g.config.Logger, g.accessService, g.sessionsRepo)
	r.Post("/access/request", accessHandler.RequestAccess)
	r.Post("/access/refresh", accessHandler.RefreshAccess)
	r.Post("/access/revoke", accessHandler.RevokeAccess)
	r.Get("/users/{userID}/sessions", accessHandler.ListSessions)

	analyticsHandler := analytics.NewHandler(g.config.Logger, g.accessService)
	r.Get("/assets/{assetID}/analytics", analyticsHandler.AssetAnalytics)
	r.Post("/admin/sessions/purge", analyticsHandler.PurgeSessions)

	return r
}

// AccessService returns the access service for advanced usage, for example
// driving the purge sweep from the host's own scheduler.
func (g *Gate) AccessService() *access.Service {
	return g.accessService
}

// TierService returns the tier authority, useful for invalidating cached
// tiers when the host processes a subscription change.
func (g *Gate) TierService() *subscription.Service {
	return g.tierService
}

// HealthHandler returns a simple health check handler.
func (g *Gate) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Handler returns an http.Handler for mounting with http.StripPrefix.
// This is useful when using standard library ServeMux:
//
//	mux := http.NewServeMux()
//	mux.Handle("/media/", http.StripPrefix("/media", g.Handler()))
func (g *Gate) Handler() http.Handler {
	return g.Router()
}

// Routes registers all access routes on an http.ServeMux with the given prefix.
// This provides a simpler way to mount routes without StripPrefix:
//
//	mux := http.NewServeMux()
//	g.Routes(mux, "/api/v1/media")
func (g *Gate) Routes(mux *http.ServeMux, prefix string) {
	mux.Handle(prefix+"/", http.StripPrefix(prefix, g.Router()))
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("gate: DB is required")
	}
	if cfg.Locator == nil {
		return errors.New("gate: Locator is required")
	}
	if cfg.RefreshTokenSecret == "" {
		return errors.New("gate: RefreshTokenSecret is required")
	}
	if len(cfg.RefreshTokenSecret) < 32 {
		return errors.New("gate: RefreshTokenSecret must be at least 32 characters")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.TokenIssuer == "" {
		cfg.TokenIssuer = "mediagate"
	}
	if cfg.GrantTTL == 0 {
		cfg.GrantTTL = access.DefaultGrantTTL
	}
	if cfg.SessionCeiling == 0 {
		cfg.SessionCeiling = access.DefaultSessionCeiling
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = access.DefaultRefreshTokenTTL
	}
	if cfg.MaxRefresh == 0 {
		cfg.MaxRefresh = access.DefaultMaxRefresh
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}

// validateSchema checks that required database tables exist.
func validateSchema(db *sql.DB) error {
	requiredTables := []string{"playback_sessions", "access_logs", "user_subscriptions"}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRow(query, table).Scan(&name)
		if err == sql.ErrNoRows {
			return fmt.Errorf("gate: missing table '%s' - run migrations first (see migrations/ folder)", table)
		}
		if err != nil {
			return fmt.Errorf("gate: failed to check schema: %w", err)
		}
	}

	return nil
}
