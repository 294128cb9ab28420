/*
Package monitoring provides metrics collection for the kernel and the user
library.

# Overview

Prometheus counters and gauges for system calls, page faults, env and frame
usage, forks, copy-on-write copies and IPC traffic. Every Metrics value owns
a private registry instead of the global default one, so independent kernels
never collide on registration.

# Usage

	metrics := monitoring.NewMetrics()
	k := kernel.New(kernel.Options{Metrics: metrics})

	metrics.RecordSyscall("page_alloc", err)
	metrics.RecordPageFault("upcall")

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
*/
package monitoring
