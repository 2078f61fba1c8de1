// Package httputil provides the JSON response, request parsing and
// middleware helpers shared by the HTTP handlers.
//
// Every error body has the shape {"detail": "..."}:
//
//	httputil.WriteDetail(w, http.StatusForbidden, "Only owner can add members.")
//
// Path and query parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//	if !ok {
//		return // 400 already written
//	}
//
// Middleware is composed with Chain:
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(32<<20),
//	)(router)
package httputil
