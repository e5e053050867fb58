// Package metrics defines and registers all custom Prometheus metrics for the
// Sales BI authentication service. It is the single source of truth for
// metric names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// init through promauto; the /metrics endpoint exposes that registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "salesbi_auth"

// ── Login metrics ─────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login calls by outcome.
// Label:
//   - outcome: "ok", "invalid_credentials", "locked", "deactivated", "blank_input", "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, labelled by outcome.",
	},
	[]string{"outcome"},
)

// LockoutsTotal counts the failures that pushed a username over the threshold.
var LockoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lockouts_total",
		Help:      "Total number of account lockouts triggered by failed attempts.",
	},
)

// LoginDuration measures Authenticate end-to-end, including store round trips.
// Label:
//   - outcome: same values as LoginAttemptsTotal
var LoginDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "login_duration_seconds",
		Help:      "Duration of login processing from request to decision.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionsEstablishedTotal counts sessions created by a successful login.
var SessionsEstablishedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_established_total",
		Help:      "Total number of sessions established.",
	},
)

// SessionsEndedTotal counts sessions torn down.
// Label:
//   - reason: "logout", "expired" or "corrupt"
var SessionsEndedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_ended_total",
		Help:      "Total number of sessions ended, by reason.",
	},
	[]string{"reason"},
)

// ── Access metrics ────────────────────────────────────────────────────────────

// PermissionChecksTotal counts permission decisions.
// Labels:
//   - permission: the permission name checked (e.g. "view_costs")
//   - result: "granted" or "denied"
var PermissionChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_checks_total",
		Help:      "Total number of permission checks, by permission and result.",
	},
	[]string{"permission", "result"},
)

// StoreRetriesTotal counts retried credential store queries.
// Label:
//   - op: repository operation (e.g. "find_credentials")
var StoreRetriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_retries_total",
		Help:      "Total number of credential store query retries.",
	},
	[]string{"op"},
)

// AttemptsDroppedTotal counts login attempt records discarded because the
// recording queue was full.
var AttemptsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_dropped_total",
		Help:      "Total number of login attempt records dropped by a full queue.",
	},
)
