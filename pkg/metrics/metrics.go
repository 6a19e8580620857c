package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barberhq_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts permission evaluations and their outcome (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barberhq_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "barberhq_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// ModerationActions counts admin moderation actions by type (ban|reactivate|delete|impersonate) and result.
	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barberhq_moderation_actions_total",
			Help: "Total number of admin moderation actions",
		},
		[]string{"action", "result"},
	)

	// InviteEvents counts invitation lifecycle events (created|accepted|revoked|expired_purged).
	InviteEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barberhq_invite_events_total",
			Help: "Total number of store invitation lifecycle events",
		},
		[]string{"event"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barberhq_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
