// Package main boots user programs on the simulated exokernel and prints
// what they printed.
//
// Each program runs as a first env. It builds everything else itself with
// copy-on-write fork and IPC. The command waits for every env to exit and
// prints a summary tagged with the run id. A scenario file boots several
// programs side by side in one kernel.
//
// Configuration:
//   - Environment variables (KERNEL_MAX_ENVS, KERNEL_MAX_FRAMES,
//     IPC_DISCIPLINE, SERVER_ENABLED, HOST, PORT, CORS_ORIGINS,
//     RATE_LIMIT_ENABLED, RATE_LIMIT_RPS, RATE_LIMIT_BURST, LOG_LEVEL, LOG_DEV)
//   - Scenario kernel sizes (override env vars)
//   - CLI flags (override both)
//
// Usage:
//
//	# Prime sieve over 2..100 with busy-retry sends
//	./exokernel -program primes -limit 100 -discipline retry
//
//	# Fork tree, then keep the inspection server up
//	./exokernel -program forktree -depth 4 -serve -port 8000
//
//	# Several programs at once, watch them at ws://127.0.0.1:8000/console/stream
//	./exokernel -scenario mixed.yaml -serve
//
// Signals:
//   - SIGINT, SIGTERM: stop the inspection server
package main
