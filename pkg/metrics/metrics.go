package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tide_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts permission evaluations per module and outcome (allow|deny|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tide_permission_checks_total",
			Help: "Total number of module permission checks",
		},
		[]string{"module", "result"},
	)

	// RateLimitDecisions counts limiter outcomes per group (allow|reject|failopen).
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tide_ratelimit_decisions_total",
			Help: "Total number of rate limiter admission decisions",
		},
		[]string{"group", "result"},
	)

	// AuditWriteFailures counts audit records dropped because persistence failed.
	AuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tide_audit_write_failures_total",
			Help: "Total number of audit log entries that could not be persisted",
		},
	)

	// HTTPRequests counts requests per route template, method and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tide_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tide_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
