package access

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/streamvault/mediagate/internal/httputil"
	"github.com/streamvault/mediagate/internal/metrics"
	"github.com/streamvault/mediagate/pkg/access"
	"github.com/streamvault/mediagate/pkg/domain"
)

// SessionLister lists a user's active sessions.
type SessionLister interface {
	GetByUserID(ctx context.Context, userID string) ([]*domain.PlaybackSession, error)
}

// Handler handles access grant endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *access.Service
	sessions SessionLister
}

// NewHandler creates a new access handler.
func NewHandler(logger *slog.Logger, service *access.Service, sessions SessionLister) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
	}
}

// RequestAccessRequest represents a request for a signed playback URL.
type RequestAccessRequest struct {
	UserID       string `json:"user_id"`
	AssetID      string `json:"asset_id"`
	RequiredTier string `json:"required_tier"`
}

// RefreshAccessRequest represents a grant renewal within an existing session.
type RefreshAccessRequest struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

// RevokeAccessRequest represents a session revocation request.
type RevokeAccessRequest struct {
	UserID  string `json:"user_id"`
	AssetID string `json:"asset_id,omitempty"`
}

// GrantResponse represents a signed access grant.
type GrantResponse struct {
	URL          string    `json:"url"`
	ExpiresAt    time.Time `json:"expires_at"`
	SessionID    string    `json:"session_id"`
	RefreshToken string    `json:"refresh_token"`
}

// RevokeResponse reports how many sessions were expired.
type RevokeResponse struct {
	Revoked int64 `json:"revoked_count"`
}

// RequestAccess issues a signed playback URL for an asset.
// POST /v1/access/request
func (h *Handler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	var req RequestAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	if req.UserID == "" || req.AssetID == "" {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "user_id and asset_id are required")
		return
	}

	required := domain.ParseTier(req.RequiredTier)
	if req.RequiredTier != "" && required == domain.TierNone {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "unknown required_tier")
		return
	}
	if required == domain.TierNone {
		required = domain.TierBasic
	}

	grant, err := h.service.RequestAccess(r.Context(), access.AccessRequest{
		AssetID:      req.AssetID,
		UserID:       req.UserID,
		RequiredTier: required,
		Client:       clientInfo(r),
	})
	if err != nil {
		h.writeError(w, "request", err)
		return
	}

	metrics.GrantsTotal.WithLabelValues("request").Inc()
	httputil.JSON(w, http.StatusOK, grantResponse(grant))
}

// RefreshAccess renews a grant within an existing session.
// POST /v1/access/refresh
func (h *Handler) RefreshAccess(w http.ResponseWriter, r *http.Request) {
	var req RefreshAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	if req.UserID == "" || req.SessionID == "" || req.RefreshToken == "" {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "session_id, user_id and refresh_token are required")
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "session_id must be a UUID")
		return
	}

	grant, err := h.service.RefreshAccess(r.Context(), access.RefreshRequest{
		SessionID:    sessionID,
		UserID:       req.UserID,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.writeError(w, "refresh", err)
		return
	}

	metrics.GrantsTotal.WithLabelValues("refresh").Inc()
	httputil.JSON(w, http.StatusOK, grantResponse(grant))
}

// RevokeAccess expires the user's active sessions, optionally narrowed to a
// single asset.
// POST /v1/access/revoke
func (h *Handler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	var req RevokeAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	if req.UserID == "" {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "user_id is required")
		return
	}

	count, err := h.service.RevokeAccess(r.Context(), req.UserID, req.AssetID)
	if err != nil {
		h.writeError(w, "revoke", err)
		return
	}

	metrics.SessionsRevoked.Add(float64(count))
	httputil.JSON(w, http.StatusOK, RevokeResponse{Revoked: count})
}

// SessionSummary is one active session in a listing.
type SessionSummary struct {
	SessionID       string    `json:"session_id"`
	AssetID         string    `json:"asset_id"`
	StartedAt       time.Time `json:"started_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
	RefreshCount    int       `json:"refresh_count"`
}

// ListSessionsResponse lists a user's active sessions.
type ListSessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// ListSessions returns the user's active sessions, newest first.
// GET /v1/users/{userID}/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "userID is required")
		return
	}

	sessions, err := h.sessions.GetByUserID(r.Context(), userID)
	if err != nil {
		h.logger.Error("session listing failed", "user_id", userID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, domain.CodeBackendUnavailable, "service temporarily unavailable")
		return
	}

	resp := ListSessionsResponse{Sessions: make([]SessionSummary, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, SessionSummary{
			SessionID:       s.ID.String(),
			AssetID:         s.AssetID,
			StartedAt:       s.StartedAt,
			ExpiresAt:       s.ExpiresAt,
			LastRefreshedAt: s.LastRefreshedAt,
			RefreshCount:    s.RefreshCount,
		})
	}
	httputil.JSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, operation string, err error) {
	code, status := domain.CodeFor(err)
	metrics.DenialsTotal.WithLabelValues(operation, code).Inc()
	if status >= http.StatusInternalServerError {
		h.logger.Error("access operation failed", "operation", operation, "error", err)
		httputil.Error(w, status, code, "service temporarily unavailable")
		return
	}
	httputil.Error(w, status, code, err.Error())
}

func grantResponse(grant *domain.SignedAccessGrant) GrantResponse {
	return GrantResponse{
		URL:          grant.URL,
		ExpiresAt:    grant.ExpiresAt,
		SessionID:    grant.SessionID.String(),
		RefreshToken: grant.RefreshToken,
	}
}

// clientInfo extracts diagnostic request context for session records.
func clientInfo(r *http.Request) access.ClientInfo {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}
	return access.ClientInfo{
		IP:        ip,
		UserAgent: r.UserAgent(),
	}
}
