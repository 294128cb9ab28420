package monitoring

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSyscall(t *testing.T) {
	m := NewMetrics()

	m.RecordSyscall("page_alloc", nil)
	m.RecordSyscall("page_alloc", nil)
	m.RecordSyscall("page_alloc", errors.New("no memory"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Syscalls.WithLabelValues("page_alloc", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Syscalls.WithLabelValues("page_alloc", "error")))
}

func TestIndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordPageFault("upcall")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.PageFaults.WithLabelValues("upcall")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PageFaults.WithLabelValues("upcall")))
}

func TestRegistryGathers(t *testing.T) {
	m := NewMetrics()
	m.Forks.Inc()
	m.RecordIPCMessage("block")

	families, err := m.Registry().Gather()
	assert.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ulib_forks_total"])
	assert.True(t, names["ulib_ipc_messages_total"])
}
