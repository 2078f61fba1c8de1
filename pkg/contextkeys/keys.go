// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here so that
// producers and consumers agree on both the key and the value type.
//
// USAGE PATTERN:
//
//	ctx = contextkeys.WithActor(ctx, userID)
//	actor, ok := contextkeys.GetActor(ctx)
package contextkeys

import (
	"context"
	"time"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ActorKey contains the authenticated user's id
	// Set by: middleware.AuthMiddleware
	// Required by: every project, document and comment endpoint
	// Type: int64
	ActorKey Key = "actor_id"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: request logging, error responses
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains a logrus.FieldLogger scoped to the request
	// Set by: middleware.RequestLogger
	// Type: logrus.FieldLogger
	LoggerKey Key = "logger"

	// RequestStartTimeKey contains request start timestamp
	// Set by: middleware.RequestLogger
	// Type: time.Time
	RequestStartTimeKey Key = "request_start_time"
)

// WithActor adds the authenticated user id to the context
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ActorKey, userID)
}

// GetActor retrieves the authenticated user id from context
func GetActor(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(ActorKey).(int64)
	return userID, ok
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithRequestStartTime adds request start time to the context
func WithRequestStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, RequestStartTimeKey, startTime)
}

// GetRequestStartTime retrieves the request start time from context
func GetRequestStartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(RequestStartTimeKey).(time.Time)
	return t, ok
}
