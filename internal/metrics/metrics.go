package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics collection for the caching
// forward proxy. Tracks cache hit/miss/admit/evict counts, cache bytes
// in use, active connections, and origin connect failures — renamed
// and re-targeted from the teacher's backend-pool metrics to this
// proxy's own domain. There is no backend pool to report health for
// here: the origin is whatever host the client's request URI names.
type Metrics struct {
	cacheLookupsTotal        *prometheus.CounterVec // Total cache lookups by result (hit/miss)
	cacheAdmitsTotal         prometheus.Counter     // Total successful cache admissions
	cacheDeniedTotal         prometheus.Counter     // Total admissions denied for exceeding the object size bound
	cacheEvictionsTotal      prometheus.Counter     // Total evicted entries
	cacheBytesInUse          prometheus.Gauge       // Current total_size of the cache
	originConnectFailures    prometheus.Counter     // Total failed origin dials
	activeConnections        prometheus.Gauge       // Current active connections
	connectionDurationSecond prometheus.Histogram   // Per-connection handling duration
}

// NewMetrics creates new metrics collector with Prometheus instruments
// Registers all metrics with default registry for HTTP exposition
// Time Complexity: O(1) - metric registration
// Space Complexity: O(1) - fixed metric storage
func NewMetrics() *Metrics {
	m := &Metrics{
		cacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_cache_lookups_total",
				Help: "Total number of cache lookups by result",
			},
			[]string{"result"},
		),
		cacheAdmitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_admits_total",
			Help: "Total number of objects admitted into the cache",
		}),
		cacheDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_denied_total",
			Help: "Total number of objects rejected for exceeding the per-object size bound",
		}),
		cacheEvictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_evictions_total",
			Help: "Total number of cache entries evicted to make room",
		}),
		cacheBytesInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "proxy_cache_bytes_in_use",
			Help: "Current total size, in bytes, of all cached objects",
		}),
		originConnectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_origin_connect_failures_total",
			Help: "Total number of failed TCP connections to an origin server",
		}),
		activeConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "proxy_active_connections",
				Help: "Number of active connections",
			},
		),
		connectionDurationSecond: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "proxy_connection_duration_seconds",
			Help:    "Time spent handling one accepted connection, end to end",
			Buckets: prometheus.DefBuckets,
		}),
	}

	// Register metrics with Prometheus
	prometheus.MustRegister(m.cacheLookupsTotal)
	prometheus.MustRegister(m.cacheAdmitsTotal)
	prometheus.MustRegister(m.cacheDeniedTotal)
	prometheus.MustRegister(m.cacheEvictionsTotal)
	prometheus.MustRegister(m.cacheBytesInUse)
	prometheus.MustRegister(m.originConnectFailures)
	prometheus.MustRegister(m.activeConnections)
	prometheus.MustRegister(m.connectionDurationSecond)

	return m
}

// IncCacheHit records a cache lookup that was satisfied from the cache.
func (m *Metrics) IncCacheHit() { m.cacheLookupsTotal.WithLabelValues("hit").Inc() }

// IncCacheMiss records a cache lookup that fell through to the origin.
func (m *Metrics) IncCacheMiss() { m.cacheLookupsTotal.WithLabelValues("miss").Inc() }

// IncCacheAdmit records a successful cache admission and updates the
// bytes-in-use gauge.
func (m *Metrics) IncCacheAdmit(bytesInUse int) {
	m.cacheAdmitsTotal.Inc()
	m.cacheBytesInUse.Set(float64(bytesInUse))
}

// IncCacheDenied records an admission rejected for exceeding the
// per-object size bound.
func (m *Metrics) IncCacheDenied() { m.cacheDeniedTotal.Inc() }

// IncCacheEviction records an eviction and updates the bytes-in-use
// gauge.
func (m *Metrics) IncCacheEviction(bytesInUse int) {
	m.cacheEvictionsTotal.Inc()
	m.cacheBytesInUse.Set(float64(bytesInUse))
}

// IncOriginConnectFailure records a failed TCP dial to an origin.
func (m *Metrics) IncOriginConnectFailure() { m.originConnectFailures.Inc() }

// IncrementConnections increments active connection count
// Called when new connection is established
// Time Complexity: O(1) - atomic increment
// Space Complexity: O(1) - no allocations
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Inc()
}

// DecrementConnections decrements active connection count
// Called when connection is closed
// Time Complexity: O(1) - atomic decrement
// Space Complexity: O(1) - no allocations
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Dec()
}

// ObserveConnectionDuration records how long one connection took to
// handle end to end.
func (m *Metrics) ObserveConnectionDuration(d time.Duration) {
	m.connectionDurationSecond.Observe(d.Seconds())
}

// Handler returns HTTP handler for Prometheus metrics exposition
// Enables metrics scraping by monitoring systems
// Time Complexity: O(1) - returns existing handler
// Space Complexity: O(1) - no additional allocations
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware creates middleware for the admin HTTP surface
// (e.g. /healthz). It wraps each request's ResponseWriter in a status
// recorder and records no Prometheus metric of its own; surface is not
// used. The proxy's own data plane is raw TCP and is instrumented
// directly through the Inc*/Observe* methods above.
// Time Complexity: O(1) per request for metric recording
// Space Complexity: O(1) - no additional allocations per request
func (m *Metrics) MetricsMiddleware(surface string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapper := &statusRecorder{ResponseWriter: w, statusCode: 200}
			next.ServeHTTP(wrapper, r)
		})
	}
}

// statusRecorder wraps ResponseWriter to capture HTTP status codes
// Used by metrics middleware to record response status
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures status code for metrics
func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}
