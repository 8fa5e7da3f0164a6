package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streamvault/mediagate/pkg/domain"
)

const (
	// DefaultAnalyticsWindow bounds how far back analytics queries look.
	DefaultAnalyticsWindow = 30 * 24 * time.Hour

	// DefaultAnalyticsLimit bounds how many log rows one snapshot reads.
	DefaultAnalyticsLimit = 5000
)

// Recorder appends access-log entries and projects them into per-asset usage
// analytics. Audit writes are best-effort relative to the critical path: a
// storage failure is logged and counted but never surfaced to the caller, so
// it cannot turn a successful grant into a user-visible failure.
type Recorder struct {
	logs          AccessLogStore
	logger        *slog.Logger
	window        time.Duration
	limit         int
	auditFailures prometheus.Counter
}

// NewRecorder creates a recorder. auditFailures may be nil.
func NewRecorder(logs AccessLogStore, logger *slog.Logger, window time.Duration, limit int, auditFailures prometheus.Counter) *Recorder {
	if window == 0 {
		window = DefaultAnalyticsWindow
	}
	if limit == 0 {
		limit = DefaultAnalyticsLimit
	}
	return &Recorder{
		logs:          logs,
		logger:        logger,
		window:        window,
		limit:         limit,
		auditFailures: auditFailures,
	}
}

// Record appends one audit entry, filling identity and timestamp if unset.
// Never returns an error: failures to log must not block the access path.
func (r *Recorder) Record(ctx context.Context, entry *domain.AccessLogEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if err := r.logs.Append(ctx, entry); err != nil {
		r.logger.Error("access log write failed",
			"asset_id", entry.AssetID,
			"user_id", entry.UserID,
			"success", entry.Success,
			"error", err,
		)
		if r.auditFailures != nil {
			r.auditFailures.Inc()
		}
	}
}

// Analytics recomputes the usage snapshot for one asset from raw log entries.
// No incremental counters to drift out of sync; the query is bounded by the
// configured window and row limit rather than scanning full history.
func (r *Recorder) Analytics(ctx context.Context, assetID string) (*domain.AccessAnalyticsSnapshot, error) {
	since := time.Now().Add(-r.window)
	entries, err := r.logs.ListByAsset(ctx, assetID, since, r.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query access log: %v", domain.ErrBackendUnavailable, err)
	}

	snapshot := &domain.AccessAnalyticsSnapshot{
		AssetID:       assetID,
		WindowStart:   since,
		TierBreakdown: make(map[domain.Tier]int),
		SampleSize:    len(entries),
	}

	users := make(map[string]struct{})
	failures := 0
	for _, e := range entries {
		if !e.Success {
			failures++
			continue
		}
		snapshot.TotalAccesses++
		users[e.UserID] = struct{}{}
		if e.UserTier != nil {
			snapshot.TierBreakdown[*e.UserTier]++
		}
		if snapshot.LastAccessAt == nil || e.Timestamp.After(*snapshot.LastAccessAt) {
			ts := e.Timestamp
			snapshot.LastAccessAt = &ts
		}
	}
	snapshot.UniqueUsers = len(users)
	if len(entries) > 0 {
		snapshot.ErrorRate = float64(failures) / float64(len(entries))
	}
	return snapshot, nil
}
