// Package config provides 12-factor configuration management for the
// exokernel.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables.
//
// Configuration Sections:
//   - Kernel: env table and physical frame limits
//   - IPC: send discipline ("block" or "retry"), fixed for the whole system
//   - Server: optional inspection HTTP server and its CORS origins
//   - RateLimit: per-client request limits on the server
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("ipc discipline: %s\n", cfg.IPC.Discipline)
//
// Environment Variables:
//   - KERNEL_MAX_ENVS, KERNEL_MAX_FRAMES
//   - IPC_DISCIPLINE
//   - SERVER_ENABLED, PORT, HOST, CORS_ORIGINS
//   - RATE_LIMIT_ENABLED, RATE_LIMIT_RPS, RATE_LIMIT_BURST
//   - LOG_LEVEL, LOG_DEV
package config
