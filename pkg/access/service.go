package access

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streamvault/mediagate/pkg/domain"
)

// Config holds facade configuration. Zero values fall back to the package
// defaults.
type Config struct {
	GrantTTL            time.Duration
	SessionCeiling      time.Duration
	RefreshTokenTTL     time.Duration
	MaxRefresh          int
	CollaboratorTimeout time.Duration
	AnalyticsWindow     time.Duration
	AnalyticsLimit      int
	RefreshTokenSecret  []byte
	Issuer              string
}

// Dependencies are the external collaborators, injected so tests can
// substitute fakes. No process-wide singletons.
type Dependencies struct {
	Tiers         TierAuthority
	Locator       ObjectLocator
	Sessions      SessionStore
	Logs          AccessLogStore
	Logger        *slog.Logger
	AuditFailures prometheus.Counter
}

// Service is the access control facade: the single entry point mediating all
// access to protected assets.
type Service struct {
	authorizer *Authorizer
	sessions   *SessionManager
	minter     *Minter
	recorder   *Recorder
	logger     *slog.Logger
}

// NewService composes the authorizer, session manager, URL minter, and audit
// recorder over the injected collaborators.
func NewService(cfg Config, deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	authorizer := NewAuthorizer(deps.Tiers, cfg.CollaboratorTimeout)
	return &Service{
		authorizer: authorizer,
		sessions: NewSessionManager(SessionConfig{
			SessionCeiling:  cfg.SessionCeiling,
			RefreshTokenTTL: cfg.RefreshTokenTTL,
			MaxRefresh:      cfg.MaxRefresh,
			Secret:          cfg.RefreshTokenSecret,
			Issuer:          cfg.Issuer,
		}, deps.Sessions, authorizer),
		minter:   NewMinter(deps.Locator, cfg.GrantTTL, cfg.CollaboratorTimeout),
		recorder: NewRecorder(deps.Logs, deps.Logger, cfg.AnalyticsWindow, cfg.AnalyticsLimit, deps.AuditFailures),
		logger:   deps.Logger,
	}
}

// AccessRequest is one attempt to start playback of an asset.
type AccessRequest struct {
	AssetID      string
	UserID       string
	RequiredTier domain.Tier
	Client       ClientInfo
}

// RefreshRequest renews a grant within an existing session.
type RefreshRequest struct {
	SessionID    uuid.UUID
	UserID       string
	RefreshToken string
}

// RequestAccess authorizes the user, opens a playback session, mints a signed
// URL, and records the outcome. Every allow and deny is recorded exactly
// once; the grant is returned only after the full chain succeeds.
func (s *Service) RequestAccess(ctx context.Context, req AccessRequest) (*domain.SignedAccessGrant, error) {
	info, err := s.authorizer.Authorize(ctx, req.UserID, req.RequiredTier)
	if err != nil {
		s.recordFailure(ctx, req.AssetID, req.UserID, tierFor(info, err), nil, err)
		return nil, err
	}

	session, refreshToken, err := s.sessions.Create(ctx, req.UserID, req.AssetID, req.RequiredTier, req.Client)
	if err != nil {
		s.recordFailure(ctx, req.AssetID, req.UserID, &info.Tier, nil, err)
		return nil, err
	}

	url, expiresAt, err := s.minter.Mint(ctx, req.AssetID)
	if err != nil {
		s.recordFailure(ctx, req.AssetID, req.UserID, &info.Tier, &session.ID, err)
		return nil, err
	}

	s.recorder.Record(ctx, &domain.AccessLogEntry{
		AssetID:        req.AssetID,
		UserID:         req.UserID,
		UserTier:       &info.Tier,
		Success:        true,
		GrantExpiresAt: &expiresAt,
		SessionID:      &session.ID,
	})

	return &domain.SignedAccessGrant{
		URL:          url,
		ExpiresAt:    expiresAt,
		SessionID:    session.ID,
		RefreshToken: refreshToken,
	}, nil
}

// RefreshAccess renews a grant within the same session: it validates the
// refresh token, re-checks authorization against the current tier, and mints
// a new short-lived reference. Session creation is skipped.
func (s *Service) RefreshAccess(ctx context.Context, req RefreshRequest) (*domain.SignedAccessGrant, error) {
	session, info, err := s.sessions.Refresh(ctx, req.SessionID, req.UserID, req.RefreshToken)
	if err != nil {
		assetID := ""
		var sessionID *uuid.UUID
		if session != nil {
			assetID = session.AssetID
			sessionID = &session.ID
		}
		s.recordFailure(ctx, assetID, req.UserID, tierFor(info, err), sessionID, err)
		return nil, err
	}

	url, expiresAt, err := s.minter.Mint(ctx, session.AssetID)
	if err != nil {
		s.recordFailure(ctx, session.AssetID, req.UserID, &info.Tier, &session.ID, err)
		return nil, err
	}

	s.recorder.Record(ctx, &domain.AccessLogEntry{
		AssetID:        session.AssetID,
		UserID:         req.UserID,
		UserTier:       &info.Tier,
		Success:        true,
		GrantExpiresAt: &expiresAt,
		SessionID:      &session.ID,
	})

	return &domain.SignedAccessGrant{
		URL:          url,
		ExpiresAt:    expiresAt,
		SessionID:    session.ID,
		RefreshToken: req.RefreshToken,
	}, nil
}

// RevokeAccess expires all active sessions for the user, optionally narrowed
// to one asset. Returns the number of sessions revoked. Idempotent.
func (s *Service) RevokeAccess(ctx context.Context, userID, assetID string) (int64, error) {
	count, err := s.sessions.Revoke(ctx, userID, assetID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("sessions revoked", "user_id", userID, "asset_id", assetID, "count", count)
	return count, nil
}

// Analytics projects the access log into a usage snapshot for one asset.
func (s *Service) Analytics(ctx context.Context, assetID string) (*domain.AccessAnalyticsSnapshot, error) {
	return s.recorder.Analytics(ctx, assetID)
}

// PurgeExpiredSessions flags sessions past their ceiling. Maintenance sweep;
// idempotent, never deletes.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	count, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("expired sessions purged", "count", count)
	}
	return count, nil
}

func (s *Service) recordFailure(ctx context.Context, assetID, userID string, tier *domain.Tier, sessionID *uuid.UUID, cause error) {
	code, _ := domain.CodeFor(cause)
	s.recorder.Record(ctx, &domain.AccessLogEntry{
		AssetID:       assetID,
		UserID:        userID,
		UserTier:      tier,
		Success:       false,
		FailureReason: code,
		SessionID:     sessionID,
	})
}

// tierFor returns the tier for audit attribution: nil when the lookup never
// produced an answer (transient failures and malformed tokens).
func tierFor(info domain.TierInfo, err error) *domain.Tier {
	if info.Tier == "" || domain.Retryable(err) {
		return nil
	}
	t := info.Tier
	return &t
}
