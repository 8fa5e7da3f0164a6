// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GrantsTotal counts successful access grants by operation.
	GrantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediagate",
		Name:      "grants_total",
		Help:      "Successful access grants.",
	}, []string{"operation"})

	// DenialsTotal counts denied or failed access attempts by error code.
	DenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediagate",
		Name:      "denials_total",
		Help:      "Denied or failed access attempts.",
	}, []string{"operation", "code"})

	// SessionsRevoked counts sessions expired by explicit revocation.
	SessionsRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediagate",
		Name:      "sessions_revoked_total",
		Help:      "Sessions expired by explicit revocation.",
	})

	// SessionsPurged counts sessions flagged by the maintenance sweep.
	SessionsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediagate",
		Name:      "sessions_purged_total",
		Help:      "Sessions flagged expired by the purge sweep.",
	})

	// AuditWriteFailures counts access-log writes that were dropped.
	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediagate",
		Name:      "audit_write_failures_total",
		Help:      "Access-log entries that could not be persisted.",
	})
)
