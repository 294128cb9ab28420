package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Kernel metrics
	Syscalls   *prometheus.CounterVec
	PageFaults *prometheus.CounterVec
	EnvsActive prometheus.Gauge
	EnvsTotal  prometheus.Counter
	FramesUsed prometheus.Gauge

	// User library metrics
	Forks        prometheus.Counter
	COWCopies    prometheus.Counter
	IPCMessages  *prometheus.CounterVec
	IPCRetries   prometheus.Counter
	IPCRecvFails prometheus.Counter

	// Inspection server metrics
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates a metrics collector backed by its own registry, so
// several kernels can live in one process (tests do this).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Syscalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_syscalls_total",
				Help: "Total number of system calls",
			},
			[]string{"syscall", "status"},
		),
		PageFaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_page_faults_total",
				Help: "Total number of user page faults",
			},
			[]string{"outcome"},
		),
		EnvsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_envs_active",
				Help: "Number of allocated envs",
			},
		),
		EnvsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kernel_envs_total",
				Help: "Total number of envs created",
			},
		),
		FramesUsed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_frames_used",
				Help: "Number of physical frames in use",
			},
		),

		Forks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ulib_forks_total",
				Help: "Total number of copy-on-write forks",
			},
		),
		COWCopies: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ulib_cow_copies_total",
				Help: "Total number of pages privately copied on write",
			},
		),
		IPCMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ulib_ipc_messages_total",
				Help: "Total number of IPC messages sent",
			},
			[]string{"discipline"},
		),
		IPCRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ulib_ipc_send_retries_total",
				Help: "Total number of try-send attempts that found no receiver",
			},
		),
		IPCRecvFails: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ulib_ipc_recv_failures_total",
				Help: "Total number of failed receives",
			},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "server_http_requests_total",
				Help: "Total number of inspection HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSyscall records one system call and whether it failed
func (m *Metrics) RecordSyscall(name string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Syscalls.WithLabelValues(name, status).Inc()
}

// RecordPageFault records a page fault by outcome ("upcall" or "killed")
func (m *Metrics) RecordPageFault(outcome string) {
	m.PageFaults.WithLabelValues(outcome).Inc()
}

// RecordIPCMessage records a delivered send under the given discipline
func (m *Metrics) RecordIPCMessage(discipline string) {
	m.IPCMessages.WithLabelValues(discipline).Inc()
}

// RecordHTTPRequest records an inspection server request
func (m *Metrics) RecordHTTPRequest(method, path, status string) {
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
}
