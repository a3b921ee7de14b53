// Package middleware provides HTTP middleware for the launcher API.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing for browser front ends
//   - RateLimit: Per-IP token bucket rate limiting with idle eviction
//   - GlobalRateLimit: A single token bucket shared by all clients
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
