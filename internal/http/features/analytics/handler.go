package analytics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/streamvault/mediagate/internal/httputil"
	"github.com/streamvault/mediagate/internal/metrics"
	"github.com/streamvault/mediagate/pkg/access"
	"github.com/streamvault/mediagate/pkg/domain"
)

// Handler handles analytics and maintenance endpoints.
type Handler struct {
	logger  *slog.Logger
	service *access.Service
}

// NewHandler creates a new analytics handler.
func NewHandler(logger *slog.Logger, service *access.Service) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// PurgeResponse reports how many sessions the sweep flagged.
type PurgeResponse struct {
	Purged int64 `json:"purged_count"`
}

// AssetAnalytics returns a usage snapshot projected from the access log.
// GET /v1/assets/{assetID}/analytics
func (h *Handler) AssetAnalytics(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")
	if assetID == "" {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "assetID is required")
		return
	}

	snapshot, err := h.service.Analytics(r.Context(), assetID)
	if err != nil {
		code, status := domain.CodeFor(err)
		h.logger.Error("analytics projection failed", "asset_id", assetID, "error", err)
		httputil.Error(w, status, code, "service temporarily unavailable")
		return
	}

	httputil.JSON(w, http.StatusOK, snapshot)
}

// PurgeSessions flags sessions past their ceiling.
// POST /v1/admin/sessions/purge
func (h *Handler) PurgeSessions(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.PurgeExpiredSessions(r.Context())
	if err != nil {
		code, status := domain.CodeFor(err)
		h.logger.Error("session purge failed", "error", err)
		httputil.Error(w, status, code, "service temporarily unavailable")
		return
	}

	metrics.SessionsPurged.Add(float64(count))
	httputil.JSON(w, http.StatusOK, PurgeResponse{Purged: count})
}
