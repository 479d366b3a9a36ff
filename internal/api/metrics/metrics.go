// Package metrics defines and registers all custom Prometheus metrics for
// the checklist-manifesto server. It is the single source of truth for
// metric names, labels, and help strings.
//
// Metrics register with the default Prometheus registry at import time via
// promauto; exposing them only requires mounting the /metrics handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "checklist"

// ── Method metrics ────────────────────────────────────────────────────────────

// MethodCallsTotal counts remote method invocations.
// Labels:
//   - method: the wire method name (e.g. "login", "testDatabase")
//   - result: "ok" or "error"
var MethodCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "method_calls_total",
		Help:      "Total number of remote method calls, by method and result.",
	},
	[]string{"method", "result"},
)

// MethodDuration measures end-to-end method handling time.
var MethodDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "method_duration_seconds",
		Help:      "Duration of remote method calls from dispatch to response.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"method"},
)

// ── Authentication metrics ────────────────────────────────────────────────────

// LoginsTotal counts login outcomes.
// Labels:
//   - method: "login" or "accounts.login"
//   - result: "success", "user-not-found", "invalid-credentials", "login-failed"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by method and result.",
	},
	[]string{"method", "result"},
)

// ── Live channel metrics ──────────────────────────────────────────────────────

// LiveSessions tracks the number of currently attached live-channel sessions.
var LiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_sessions",
		Help:      "Number of currently connected live-channel sessions.",
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks pending attempts in each audit worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of login attempts pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)

// AuditDroppedTotal counts attempts dropped because a worker buffer was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of login attempts dropped by the audit dispatcher.",
	},
)
