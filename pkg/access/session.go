package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streamvault/mediagate/pkg/domain"
)

const (
	// DefaultSessionCeiling is the absolute maximum session lifetime,
	// independent of refresh activity.
	DefaultSessionCeiling = 24 * time.Hour

	// DefaultRefreshTokenTTL bounds the refresh credential's own lifetime.
	DefaultRefreshTokenTTL = 24 * time.Hour

	// DefaultMaxRefresh bounds how many grants one session may back.
	DefaultMaxRefresh = 100

	// casAttempts bounds the optimistic retry loop on concurrent refresh.
	casAttempts = 3
)

// SessionConfig holds session manager configuration.
type SessionConfig struct {
	SessionCeiling  time.Duration
	RefreshTokenTTL time.Duration
	MaxRefresh      int
	Secret          []byte
	Issuer          string
}

// SessionManager creates, refreshes, and revokes playback sessions. All
// mutable session state lives in the store; the manager itself is stateless
// and safe for concurrent use.
type SessionManager struct {
	cfg        SessionConfig
	sessions   SessionStore
	authorizer *Authorizer
}

// NewSessionManager creates a session manager.
func NewSessionManager(cfg SessionConfig, sessions SessionStore, authorizer *Authorizer) *SessionManager {
	if cfg.SessionCeiling == 0 {
		cfg.SessionCeiling = DefaultSessionCeiling
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if cfg.MaxRefresh == 0 {
		cfg.MaxRefresh = DefaultMaxRefresh
	}
	return &SessionManager{cfg: cfg, sessions: sessions, authorizer: authorizer}
}

// ClientInfo carries diagnostic request context. It is recorded on the
// session but never used for authorization.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Create starts a new playback session. Every request gets its own session
// and ceiling; concurrent sessions for the same user and asset are not
// coalesced, so each device or tab carries its own window.
func (m *SessionManager) Create(ctx context.Context, userID, assetID string, requiredTier domain.Tier, client ClientInfo) (*domain.PlaybackSession, string, error) {
	now := time.Now()
	session := &domain.PlaybackSession{
		ID:              uuid.New(),
		UserID:          userID,
		AssetID:         assetID,
		RequiredTier:    requiredTier,
		StartedAt:       now,
		ExpiresAt:       now.Add(m.cfg.SessionCeiling),
		LastRefreshedAt: now,
		RefreshCount:    1,
		ClientIP:        client.IP,
		UserAgent:       client.UserAgent,
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("%w: create session: %v", domain.ErrBackendUnavailable, err)
	}

	token, err := m.issueRefreshToken(session.ID, userID, now)
	if err != nil {
		return nil, "", fmt.Errorf("%w: sign refresh token: %v", domain.ErrBackendUnavailable, err)
	}
	return session, token, nil
}

// Refresh validates the refresh token, re-checks authorization against the
// user's current tier, and increments the refresh counter via an optimistic
// compare-and-swap so concurrent refreshes never undercount.
//
// The loaded session is returned alongside validity and authorization errors
// so the caller can attribute the failure in the audit log.
func (m *SessionManager) Refresh(ctx context.Context, sessionID uuid.UUID, userID, refreshToken string) (*domain.PlaybackSession, domain.TierInfo, error) {
	if err := m.verifyRefreshToken(refreshToken, sessionID, userID); err != nil {
		return nil, domain.TierInfo{}, err
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		session, err := m.sessions.GetByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil, domain.TierInfo{}, domain.ErrSessionInvalid
			}
			return nil, domain.TierInfo{}, fmt.Errorf("%w: load session: %v", domain.ErrBackendUnavailable, err)
		}

		// A token may outlive its session; the session state wins.
		now := time.Now()
		if session.UserID != userID || !session.Active(now) {
			return session, domain.TierInfo{}, domain.ErrSessionInvalid
		}
		if session.RefreshCount >= m.cfg.MaxRefresh {
			return session, domain.TierInfo{}, domain.ErrRefreshLimitExceeded
		}

		// Tier may have changed since creation; a downgrade mid-session
		// denies further refresh even though the original grant was valid.
		info, err := m.authorizer.Authorize(ctx, userID, session.RequiredTier)
		if err != nil {
			return session, info, err
		}

		ok, err := m.sessions.CompareAndSwapRefresh(ctx, sessionID, session.RefreshCount, now)
		if err != nil {
			return session, info, fmt.Errorf("%w: refresh session: %v", domain.ErrBackendUnavailable, err)
		}
		if !ok {
			// Lost the race; reload and re-check the limit.
			continue
		}

		session.RefreshCount++
		session.LastRefreshedAt = now
		return session, info, nil
	}

	return nil, domain.TierInfo{}, fmt.Errorf("%w: refresh contention on session %s", domain.ErrBackendUnavailable, sessionID)
}

// Revoke flags all active sessions for the user, optionally narrowed to one
// asset. Idempotent: already-expired sessions are not counted again.
// Revocation never deletes audit history.
func (m *SessionManager) Revoke(ctx context.Context, userID, assetID string) (int64, error) {
	count, err := m.sessions.RevokeByUser(ctx, userID, assetID)
	if err != nil {
		return 0, fmt.Errorf("%w: revoke sessions: %v", domain.ErrBackendUnavailable, err)
	}
	return count, nil
}

// PurgeExpired flags sessions whose ceiling has passed. Safe to run
// concurrently with live traffic: it only flips sessions that are already
// past their ceiling.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	count, err := m.sessions.PurgeExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("%w: purge sessions: %v", domain.ErrBackendUnavailable, err)
	}
	return count, nil
}
