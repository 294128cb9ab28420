// Package middleware provides the HTTP middleware of the inspection server.
//
// Middleware stack includes:
//   - CORS: cross-origin access for dashboards on other origins
//   - RateLimit: per-IP token bucket rate limiting, idle clients swept
//   - GlobalRateLimit: one bucket for everybody
//   - RequestID: X-Request-ID tagging, generated when the client sent none
//   - Logger: one debug line per request through zap
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
