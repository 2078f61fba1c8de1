package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Visible-projects cache
	CacheHitsTotal          *prometheus.CounterVec
	CacheMissesTotal        *prometheus.CounterVec
	CacheInvalidationsTotal *prometheus.CounterVec

	// Domain outcomes
	AccessDeniedTotal  *prometheus.CounterVec
	InvitationsTotal   *prometheus.CounterVec
	MembershipsChanged *prometheus.CounterVec

	// Database pool
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projecthub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "projecthub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projecthub_cache_hits_total",
				Help: "Visible-projects cache hits",
			},
			[]string{"backend"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projecthub_cache_misses_total",
				Help: "Visible-projects cache misses",
			},
			[]string{"backend"},
		),
		CacheInvalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projecthub_cache_invalidations_total",
				Help: "Visible-projects cache entries invalidated",
			},
			[]string{"backend"},
		),

		AccessDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projecthub_access_denied_total",
				Help: "Operations refused by the access policy",
			},
			[]string{"action", "reason"},
		),
		InvitationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projecthub_invitations_total",
				Help: "Invitation outcomes",
			},
			[]string{"outcome"},
		),
		MembershipsChanged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projecthub_membership_changes_total",
				Help: "Member rows added or removed",
			},
			[]string{"change"},
		),

		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "projecthub_db_connections_open",
				Help: "Number of open database connections",
			},
		),
		DBConnectionsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "projecthub_db_connections_in_use",
				Help: "Number of database connections in use",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "projecthub_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheInvalidationsTotal,
		m.AccessDeniedTotal,
		m.InvitationsTotal,
		m.MembershipsChanged,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
	)

	return m
}

// CacheHit records a cache hit
func (m *Metrics) CacheHit(backend string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(backend).Inc()
}

// CacheMiss records a cache miss
func (m *Metrics) CacheMiss(backend string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(backend).Inc()
}

// CacheInvalidated records n invalidated entries
func (m *Metrics) CacheInvalidated(backend string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheInvalidationsTotal.WithLabelValues(backend).Add(float64(n))
}

// AccessDenied records a refused operation
func (m *Metrics) AccessDenied(action, reason string) {
	if m == nil {
		return
	}
	m.AccessDeniedTotal.WithLabelValues(action, reason).Inc()
}

// Invitation records an invitation outcome
func (m *Metrics) Invitation(outcome string) {
	if m == nil {
		return
	}
	m.InvitationsTotal.WithLabelValues(outcome).Inc()
}

// MembershipChanged records an added or removed member row
func (m *Metrics) MembershipChanged(change string) {
	if m == nil {
		return
	}
	m.MembershipsChanged.WithLabelValues(change).Inc()
}

// RecordDBStats copies pool statistics into the gauges
func (m *Metrics) RecordDBStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests. Requests are labelled by
// the mux route template so path ids do not explode cardinality.
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeTemplate(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(serveMux *http.ServeMux, gatherer prometheus.Gatherer) {
	serveMux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
