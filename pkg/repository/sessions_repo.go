package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/streamvault/mediagate/pkg/domain"
)

// SessionsRepository persists playback sessions. Sessions are never deleted:
// revocation and the purge sweep only flip the expired flag so the audit
// trail stays complete.
type SessionsRepository struct {
	db *sql.DB
}

// NewSessionsRepository creates a new sessions repository.
func NewSessionsRepository(db *sql.DB) *SessionsRepository {
	return &SessionsRepository{db: db}
}

// Create inserts a new playback session.
func (r *SessionsRepository) Create(ctx context.Context, session *domain.PlaybackSession) error {
	query := `
		INSERT INTO playback_sessions
			(id, user_id, asset_id, required_tier, started_at, expires_at, last_refreshed_at, refresh_count, expired, client_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.AssetID, string(session.RequiredTier),
		session.StartedAt, session.ExpiresAt, session.LastRefreshedAt,
		session.RefreshCount, session.Expired, session.ClientIP, session.UserAgent,
	)
	return err
}

// GetByID retrieves a session by ID.
func (r *SessionsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PlaybackSession, error) {
	query := `
		SELECT id, user_id, asset_id, required_tier, started_at, expires_at, last_refreshed_at, refresh_count, expired, client_ip, user_agent
		FROM playback_sessions
		WHERE id = $1
	`
	session := &domain.PlaybackSession{}
	var tier string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.UserID, &session.AssetID, &tier,
		&session.StartedAt, &session.ExpiresAt, &session.LastRefreshedAt,
		&session.RefreshCount, &session.Expired, &session.ClientIP, &session.UserAgent,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	session.RequiredTier = domain.Tier(tier)
	return session, nil
}

// CompareAndSwapRefresh atomically increments the refresh counter, guarded by
// the expected count so concurrent refreshes on the same session serialize
// through the store instead of losing updates.
func (r *SessionsRepository) CompareAndSwapRefresh(ctx context.Context, id uuid.UUID, expectedCount int, refreshedAt time.Time) (bool, error) {
	query := `
		UPDATE playback_sessions
		SET refresh_count = refresh_count + 1, last_refreshed_at = $3
		WHERE id = $1 AND refresh_count = $2 AND expired = FALSE
	`
	result, err := r.db.ExecContext(ctx, query, id, expectedCount, refreshedAt)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// RevokeByUser flags all active sessions for a user, optionally narrowed to
// one asset. The expired guard makes repeated revocations count zero.
func (r *SessionsRepository) RevokeByUser(ctx context.Context, userID, assetID string) (int64, error) {
	var result sql.Result
	var err error
	if assetID == "" {
		query := `
			UPDATE playback_sessions
			SET expired = TRUE
			WHERE user_id = $1 AND expired = FALSE
		`
		result, err = r.db.ExecContext(ctx, query, userID)
	} else {
		query := `
			UPDATE playback_sessions
			SET expired = TRUE
			WHERE user_id = $1 AND asset_id = $2 AND expired = FALSE
		`
		result, err = r.db.ExecContext(ctx, query, userID, assetID)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PurgeExpired flags sessions whose ceiling has passed. Only already-overdue
// rows are touched, so the sweep is safe beside live traffic.
func (r *SessionsRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE playback_sessions
		SET expired = TRUE
		WHERE expired = FALSE AND expires_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetByUserID retrieves all active sessions for a user, newest first.
func (r *SessionsRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.PlaybackSession, error) {
	query := `
		SELECT id, user_id, asset_id, required_tier, started_at, expires_at, last_refreshed_at, refresh_count, expired, client_ip, user_agent
		FROM playback_sessions
		WHERE user_id = $1 AND expired = FALSE AND expires_at > NOW()
		ORDER BY started_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.PlaybackSession
	for rows.Next() {
		session := &domain.PlaybackSession{}
		var tier string
		err := rows.Scan(
			&session.ID, &session.UserID, &session.AssetID, &tier,
			&session.StartedAt, &session.ExpiresAt, &session.LastRefreshedAt,
			&session.RefreshCount, &session.Expired, &session.ClientIP, &session.UserAgent,
		)
		if err != nil {
			return nil, err
		}
		session.RequiredTier = domain.Tier(tier)
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
