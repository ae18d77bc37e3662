// Package metrics defines and registers all custom Prometheus metrics for the
// accounts service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// init via promauto and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// ── Identity metrics ──────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "not_found", "invalid_credentials" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// SignupsTotal counts signup attempts.
// Label:
//   - result: "success", "duplicate_email", "rejected" or "error"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by result.",
	},
	[]string{"result"},
)

// TokenPairsIssuedTotal counts token pairs handed out.
// Label:
//   - reason: "signup", "login" or "refresh"
var TokenPairsIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_pairs_issued_total",
		Help:      "Total number of access/refresh token pairs issued.",
	},
	[]string{"reason"},
)

// TokenVerificationsTotal counts verifying token checks.
// Labels:
//   - kind: "access" or "refresh"
//   - result: "valid" or "invalid"
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of token verifications, by kind and result.",
	},
	[]string{"kind", "result"},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// PolicyDecisionsTotal counts authorization decisions.
// Labels:
//   - action: "update", "role_change", "delete", "password_change"
//   - outcome: "allowed" or "denied"
var PolicyDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "policy_decisions_total",
		Help:      "Total number of authorization decisions, by action and outcome.",
	},
	[]string{"action", "outcome"},
)

// ── Infrastructure metrics ────────────────────────────────────────────────────

// UserCacheLookupsTotal counts user cache reads.
// Label:
//   - result: "hit", "miss" or "error"
var UserCacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_cache_lookups_total",
		Help:      "Total number of user cache lookups, by result.",
	},
	[]string{"result"},
)

// AuditEventsTotal counts audit events by processing result.
// Label:
//   - result: "stored", "failed" or "dropped"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events, by processing result.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks the current number of audit events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditWriteDuration measures how long persisting one audit event takes.
var AuditWriteDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_write_duration_seconds",
		Help:      "Duration of audit event persistence.",
		Buckets:   prometheus.DefBuckets,
	},
)
