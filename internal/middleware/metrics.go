package middleware

import (
	"net/http"

	"github.com/gocacheproxy/proxy/internal/metrics"
)

// metricsMiddleware adapts Prometheus metrics into Middleware
type metricsMiddleware struct {
	m *metrics.Metrics
}

// NewMetrics constructs the metrics middleware for the admin HTTP
// server, wrapping the already-constructed proxy-wide Metrics instance
// so its counters aren't registered with Prometheus twice.
func NewMetrics(m *metrics.Metrics) Middleware {
	return &metricsMiddleware{m: m}
}

// Wrap passes each admin-surface request (e.g. /healthz) through
// Metrics.MetricsMiddleware, which records no metric of its own
func (mm *metricsMiddleware) Wrap(next http.Handler) http.Handler {
	return mm.m.MetricsMiddleware("admin")(next)
}
