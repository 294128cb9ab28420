// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output, debug level, stack traces
//
// The kernel logs env lifecycle (boot, exofork, teardown) at Debug and fatal
// aborts at Error. The user library logs fork and copy-on-write fault events
// at Debug. Tests use NewNop.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("kernel booted", zap.Int("max_envs", 1024))
//	logger.Error("env aborted", zap.Error(err))
package logging
