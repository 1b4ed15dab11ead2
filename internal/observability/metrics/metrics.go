// Package metrics exposes Prometheus collectors for the HTTP surface
// and the compliance pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request counts and latencies per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP collectors on the given registry.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fatoora",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fatoora",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// GinMiddleware observes every request passing through the engine.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ComplianceMetrics covers the invoice chain and authority submissions.
type ComplianceMetrics struct {
	chainCommits   prometheus.Counter
	chainConflicts prometheus.Counter
	submissions    *prometheus.CounterVec
}

// NewComplianceMetrics registers the compliance collectors on the given registry.
func NewComplianceMetrics(reg prometheus.Registerer) *ComplianceMetrics {
	m := &ComplianceMetrics{
		chainCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fatoora",
			Subsystem: "compliance",
			Name:      "chain_commits_total",
			Help:      "Invoice chain advances committed.",
		}),
		chainConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fatoora",
			Subsystem: "compliance",
			Name:      "chain_conflicts_total",
			Help:      "Invoice chain commits rejected by the sequence guard.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fatoora",
			Subsystem: "compliance",
			Name:      "submissions_total",
			Help:      "Authority submissions, by channel and outcome.",
		}, []string{"channel", "outcome"}),
	}
	reg.MustRegister(m.chainCommits, m.chainConflicts, m.submissions)
	return m
}

// ChainCommitted counts a successful chain advance.
func (m *ComplianceMetrics) ChainCommitted() { m.chainCommits.Inc() }

// ChainConflict counts a rejected chain advance.
func (m *ComplianceMetrics) ChainConflict() { m.chainConflicts.Inc() }

// Submission counts one authority submission attempt.
// Channel is "reporting" or "clearance"; outcome is "accepted",
// "rejected" or "transport_error".
func (m *ComplianceMetrics) Submission(channel, outcome string) {
	m.submissions.WithLabelValues(channel, outcome).Inc()
}
