// Package metrics provides Prometheus instrumentation for the platform.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path pattern, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casino",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "casino",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// WithdrawalTransitionsTotal counts withdrawal state transitions.
	WithdrawalTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casino",
			Name:      "withdrawal_transitions_total",
			Help:      "Total withdrawal state transitions by resulting state.",
		},
		[]string{"state"},
	)

	// DepositsTotal counts deposits by outcome.
	DepositsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casino",
			Name:      "deposits_total",
			Help:      "Total deposit attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// PayoutWebhooksTotal counts provider webhook deliveries by result.
	PayoutWebhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casino",
			Name:      "payout_webhooks_total",
			Help:      "Total payout provider webhook deliveries by result (applied, replay, unknown).",
		},
		[]string{"result"},
	)

	// IdempotentReplaysTotal counts idempotency-key replays served from the record.
	IdempotentReplaysTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "casino",
			Name:      "idempotent_replays_total",
			Help:      "Total mutating requests answered from a recorded idempotency response.",
		},
	)

	// AuditEventsTotal counts recorded audit events by action.
	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casino",
			Name:      "audit_events_total",
			Help:      "Total audit events recorded by action.",
		},
		[]string{"action"},
	)

	// ActiveRealtimeClients tracks connected ops-feed WebSocket clients.
	ActiveRealtimeClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "casino",
			Name:      "active_realtime_clients",
			Help:      "Number of currently connected realtime feed clients.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		WithdrawalTransitionsTotal,
		DepositsTotal,
		PayoutWebhooksTotal,
		IdempotentReplaysTotal,
		AuditEventsTotal,
		ActiveRealtimeClients,
	)
}

// Handler returns the /metrics endpoint handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware records request counts and latency using the route pattern
// (not the raw path) to keep cardinality bounded.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
