package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/projecthub/pkg/httputil"
	"github.com/platinummonkey/projecthub/pkg/middleware"
	"github.com/platinummonkey/projecthub/pkg/observability"
)

// RouterConfig wires the cross-cutting pieces around the handlers
type RouterConfig struct {
	Auth    *middleware.AuthMiddleware
	Metrics *observability.Metrics
	Logger  logrus.FieldLogger

	// Limiter is optional; nil disables rate limiting
	Limiter   middleware.Limiter
	RateLimit middleware.RateLimitConfig

	MaxBodyBytes int64
}

// NewRouter builds the API handler: request id, logging, panic recovery,
// body limits and tracing wrap a mux router whose routes are metered,
// authenticated and rate limited.
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	router.Use(observability.HTTPMetricsMiddleware(cfg.Metrics))
	if cfg.Auth != nil {
		router.Use(cfg.Auth.Handler)
	}
	if cfg.Limiter != nil {
		router.Use(middleware.RateLimitMiddleware(cfg.Limiter, cfg.RateLimit, cfg.Logger))
	}
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "Not found.")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteDetail(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	h.RegisterRoutes(router)

	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(cfg.Logger),
		httputil.RecoveryMiddleware(cfg.Logger),
	}
	if cfg.MaxBodyBytes > 0 {
		chain = append(chain, httputil.MaxBytesMiddleware(cfg.MaxBodyBytes))
	}

	handler := httputil.Chain(chain...)(router)
	return otelhttp.NewHandler(handler, "projecthub.api")
}
