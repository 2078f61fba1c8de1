// Package middleware authenticates API requests and applies per-caller
// rate limits.
//
// AuthMiddleware resolves "Authorization: Bearer <token>" through a
// TokenValidator and stores the user id on the request context, where
// handlers read it with contextkeys.GetActor.
//
// RateLimitMiddleware keys buckets by the authenticated user, or by client
// IP for anonymous requests. MemoryLimiter is a per-process token bucket;
// RedisLimiter is a fixed window shared by every replica.
package middleware
