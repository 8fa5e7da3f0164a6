package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlaybackSession is one authorized viewing window for one (user, asset)
// pair. Sessions are never deleted; expiry and revocation only flip the
// Expired flag so the audit trail stays intact.
type PlaybackSession struct {
	ID              uuid.UUID
	UserID          string
	AssetID         string
	RequiredTier    Tier
	StartedAt       time.Time
	ExpiresAt       time.Time
	LastRefreshedAt time.Time
	RefreshCount    int
	Expired         bool
	ClientIP        string
	UserAgent       string
}

// Active reports whether the session may still back new grants at the given
// instant. Once Expired is set the session is terminal regardless of the
// ceiling.
func (s *PlaybackSession) Active(now time.Time) bool {
	if s.Expired {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// SignedAccessGrant is the transient result of a successful access request.
// It is never persisted; the access log records its expiry instead.
type SignedAccessGrant struct {
	URL          string    `json:"url"`
	ExpiresAt    time.Time `json:"expires_at"`
	SessionID    uuid.UUID `json:"session_id"`
	RefreshToken string    `json:"refresh_token"`
}

// AccessLogEntry is an immutable audit record. Failures are logged with the
// same shape as successes so the trail is uniform.
type AccessLogEntry struct {
	ID             uuid.UUID
	AssetID        string
	UserID         string
	UserTier       *Tier
	Timestamp      time.Time
	Success        bool
	FailureReason  string
	GrantExpiresAt *time.Time
	SessionID      *uuid.UUID
}

// AccessAnalyticsSnapshot is a projection recomputed on demand from the
// access log for one asset. It is never stored as authoritative state.
type AccessAnalyticsSnapshot struct {
	AssetID       string       `json:"asset_id"`
	WindowStart   time.Time    `json:"window_start"`
	TotalAccesses int          `json:"total_accesses"`
	UniqueUsers   int          `json:"unique_users"`
	TierBreakdown map[Tier]int `json:"tier_breakdown"`
	LastAccessAt  *time.Time   `json:"last_access_at"`
	ErrorRate     float64      `json:"error_rate"`
	SampleSize    int          `json:"sample_size"`
}
