package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/streamvault/mediagate/pkg/domain"
)

// AccessLogsRepository persists the append-only audit trail. Entries are
// never updated or deleted after insert.
type AccessLogsRepository struct {
	db *sql.DB
}

// NewAccessLogsRepository creates a new access logs repository.
func NewAccessLogsRepository(db *sql.DB) *AccessLogsRepository {
	return &AccessLogsRepository{db: db}
}

// Append inserts one audit entry.
func (r *AccessLogsRepository) Append(ctx context.Context, entry *domain.AccessLogEntry) error {
	query := `
		INSERT INTO access_logs
			(id, asset_id, user_id, user_tier, ts, success, failure_reason, grant_expires_at, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var tier *string
	if entry.UserTier != nil {
		t := string(*entry.UserTier)
		tier = &t
	}
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.AssetID, entry.UserID, tier, entry.Timestamp,
		entry.Success, entry.FailureReason, entry.GrantExpiresAt, entry.SessionID,
	)
	return err
}

// ListByAsset returns entries for one asset since the given time, newest
// first, capped at limit. The bound keeps analytics from scanning full
// history.
func (r *AccessLogsRepository) ListByAsset(ctx context.Context, assetID string, since time.Time, limit int) ([]*domain.AccessLogEntry, error) {
	query := `
		SELECT id, asset_id, user_id, user_tier, ts, success, failure_reason, grant_expires_at, session_id
		FROM access_logs
		WHERE asset_id = $1 AND ts >= $2
		ORDER BY ts DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, assetID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.AccessLogEntry
	for rows.Next() {
		entry := &domain.AccessLogEntry{}
		var tier sql.NullString
		var reason sql.NullString
		err := rows.Scan(
			&entry.ID, &entry.AssetID, &entry.UserID, &tier, &entry.Timestamp,
			&entry.Success, &reason, &entry.GrantExpiresAt, &entry.SessionID,
		)
		if err != nil {
			return nil, err
		}
		if tier.Valid {
			t := domain.Tier(tier.String)
			entry.UserTier = &t
		}
		if reason.Valid {
			entry.FailureReason = reason.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
