package observability

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheHit("memory")
		m.CacheMiss("memory")
		m.CacheInvalidated("memory", 3)
		m.AccessDenied("remove_member", "not_owner")
		m.Invitation("added")
		m.MembershipChanged("added")
		m.RecordDBStats(sql.DBStats{})
	})
}

func TestMetricsRecord(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.CacheHit("redis")
	m.CacheHit("redis")
	m.CacheMiss("redis")
	m.CacheInvalidated("redis", 4)
	m.CacheInvalidated("redis", 0)
	m.AccessDenied("invite", "not_owner")
	m.Invitation("invite_sent")
	m.RecordDBStats(sql.DBStats{OpenConnections: 5, InUse: 2, Idle: 3})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("redis")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CacheInvalidationsTotal.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessDeniedTotal.WithLabelValues("invite", "not_owner")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvitationsTotal.WithLabelValues("invite_sent")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.DBConnectionsOpen))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DBConnectionsIdle))
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/projects/1", "/projects/2"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/projects/{id}", "404")))
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.Invitation("added")

	serveMux := http.NewServeMux()
	RegisterMetricsEndpoint(serveMux, registry)

	rr := httptest.NewRecorder()
	serveMux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `projecthub_invitations_total{outcome="added"} 1`))
}
