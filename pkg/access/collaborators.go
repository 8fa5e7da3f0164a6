package access

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/streamvault/mediagate/pkg/domain"
)

// TierAuthority is the subscription source of truth, consulted for the
// current tier and status of a user.
type TierAuthority interface {
	GetUserTier(ctx context.Context, userID string) (domain.TierInfo, error)
}

// ObjectLocator is the object storage boundary: existence checks and
// time-boxed signed references, nothing else.
type ObjectLocator interface {
	Exists(ctx context.Context, assetID string) (bool, error)
	SignReference(ctx context.Context, assetID string, ttl time.Duration) (url string, expiresAt time.Time, err error)
}

// SessionStore is the durable store for playback sessions. Implementations
// must provide read-your-writes consistency per session and an atomic
// compare-and-swap on the refresh counter.
type SessionStore interface {
	Create(ctx context.Context, session *domain.PlaybackSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PlaybackSession, error)

	// CompareAndSwapRefresh increments refresh_count and sets
	// last_refreshed_at only if the stored count still equals expectedCount
	// and the session is not expired. Returns false on a lost race.
	CompareAndSwapRefresh(ctx context.Context, id uuid.UUID, expectedCount int, refreshedAt time.Time) (bool, error)

	// RevokeByUser flags all active sessions for the user (optionally
	// narrowed to one asset via a non-empty assetID) and returns the number
	// of sessions affected.
	RevokeByUser(ctx context.Context, userID, assetID string) (int64, error)

	// PurgeExpired flags sessions whose ceiling has passed. Rows are never
	// deleted.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// AccessLogStore is the append-only audit store.
type AccessLogStore interface {
	Append(ctx context.Context, entry *domain.AccessLogEntry) error
	ListByAsset(ctx context.Context, assetID string, since time.Time, limit int) ([]*domain.AccessLogEntry, error)
}
