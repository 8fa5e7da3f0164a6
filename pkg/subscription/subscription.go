// Package subscription resolves a user's current tier and billing status
// from the subscription source of truth, with a short-lived redis cache in
// front of the database.
package subscription

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/streamvault/mediagate/pkg/domain"
)

const (
	// DefaultCacheTTL keeps tier answers hot without letting a downgrade go
	// unnoticed for long.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultTimeout bounds one lookup end to end.
	DefaultTimeout = 5 * time.Second

	cacheKeyPrefix = "tier:"
)

// Config holds tier authority configuration.
type Config struct {
	CacheTTL time.Duration
	Timeout  time.Duration
}

// Service answers tier lookups. The redis client is optional: with a nil
// client every lookup goes straight to the database.
type Service struct {
	cfg    Config
	db     *sql.DB
	cache  *redis.Client
	logger *slog.Logger
}

// NewService creates a tier authority over the subscription database.
func NewService(cfg Config, db *sql.DB, cache *redis.Client, logger *slog.Logger) *Service {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, db: db, cache: cache, logger: logger}
}

// GetUserTier returns the user's current tier and status. A user with no
// subscription row gets {none, none} rather than an error; only transport
// failures are errors. Cache problems fall through to the database silently.
func (s *Service) GetUserTier(ctx context.Context, userID string) (domain.TierInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if s.cache != nil {
		if val, err := s.cache.Get(ctx, cacheKeyPrefix+userID).Result(); err == nil {
			var info domain.TierInfo
			if err := json.Unmarshal([]byte(val), &info); err == nil {
				return info, nil
			}
		}
	}

	var tier, status string
	query := `SELECT tier, status FROM user_subscriptions WHERE user_id = $1`
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&tier, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TierInfo{Tier: domain.TierNone, Status: domain.StatusNone}, nil
	}
	if err != nil {
		return domain.TierInfo{}, fmt.Errorf("subscription lookup for user %s: %w", userID, err)
	}

	info := domain.TierInfo{
		Tier:   domain.ParseTier(tier),
		Status: domain.ParseStatus(status),
	}

	if s.cache != nil {
		if data, err := json.Marshal(info); err == nil {
			if err := s.cache.Set(ctx, cacheKeyPrefix+userID, data, s.cfg.CacheTTL).Err(); err != nil {
				s.logger.Debug("tier cache write failed", "user_id", userID, "error", err)
			}
		}
	}
	return info, nil
}

// Invalidate drops the cached tier for a user, forcing the next lookup to
// hit the database. Used when billing pushes a plan change.
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, cacheKeyPrefix+userID).Err()
}
