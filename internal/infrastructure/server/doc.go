// Package server provides the HTTP inspection server.
//
// It publishes a read-only view of a running kernel:
//
//	GET /health           liveness plus env and frame counts, and the run id
//	GET /envs             the env directory
//	GET /envs/:id         one env, id in hex
//	GET /stats            resource usage
//	GET /console          program output so far
//	GET /console/stream   program output over WebSocket, see package ws
//	GET /metrics          Prometheus metrics
//
// Every request gets an X-Request-ID, passes CORS and, when enabled, a
// per-client rate limit.
package server
