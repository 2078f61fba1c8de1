package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/projecthub/pkg/contextkeys"
	"github.com/platinummonkey/projecthub/pkg/httputil"
	"github.com/platinummonkey/projecthub/pkg/identity"
	"github.com/platinummonkey/projecthub/pkg/observability"
)

// TokenValidator resolves a bearer token to a user id
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (int64, error)
}

// AuthMiddleware provides bearer token authentication
type AuthMiddleware struct {
	validator TokenValidator
	logger    logrus.FieldLogger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(validator TokenValidator, logger logrus.FieldLogger) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, logger: logger}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteUnauthorized(w, "Authentication credentials were not provided.")
			return
		}

		// Accepts "Bearer <token>" and "Token <token>"
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || token == "" || !strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token") {
			httputil.WriteUnauthorized(w, "Invalid token header.")
			return
		}

		userID, err := m.validator.ValidateToken(r.Context(), token)
		if err != nil {
			if !errors.Is(err, identity.ErrInvalidToken) {
				observability.FromContext(r.Context(), m.logger).WithError(err).Error("token validation failed")
				httputil.WriteInternalError(w)
				return
			}
			httputil.WriteUnauthorized(w, "Invalid token.")
			return
		}

		ctx := contextkeys.WithActor(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
