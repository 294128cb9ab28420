// Package testutil provides testing utilities and helpers for exokernel tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/ulib"
)

// System is a kernel plus the user library running on it, sharing one set
// of metrics.
type System struct {
	Kernel  *kernel.Kernel
	Lib     *ulib.Lib
	Metrics *monitoring.Metrics
}

// NewSystem creates a small system with a nop logger and the given send
// discipline.
func NewSystem(t *testing.T, discipline string) *System {
	t.Helper()

	log := logging.NewNop()
	metrics := monitoring.NewMetrics()
	return &System{
		Kernel: kernel.New(kernel.Options{
			MaxEnvs:   64,
			MaxFrames: 1024,
			Logger:    log,
			Metrics:   metrics,
		}),
		Lib: ulib.New(ulib.Options{
			Discipline: discipline,
			Logger:     log,
			Metrics:    metrics,
		}),
		Metrics: metrics,
	}
}

// NewBlockingSystem creates a system whose senders block in the kernel.
func NewBlockingSystem(t *testing.T) *System {
	t.Helper()
	return NewSystem(t, config.DisciplineBlock)
}

// Boot starts entry as a user env and fails the test if it cannot.
func (s *System) Boot(t *testing.T, entry func(*kernel.Env)) kernel.EnvID {
	t.Helper()
	id, err := s.Kernel.Boot(kernel.RoleUser, entry)
	require.NoError(t, err)
	return id
}

// EnvInfo looks id up in the kernel's env directory.
func (s *System) EnvInfo(id kernel.EnvID) (kernel.EnvInfo, bool) {
	for _, in := range s.Kernel.Envs() {
		if in.ID == id {
			return in, true
		}
	}
	return kernel.EnvInfo{}, false
}

// WaitFor polls cond until it holds, failing the test after two seconds.
func WaitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}

// MockInspector is a mock of the kernel view the inspection server reads.
type MockInspector struct {
	mock.Mock
}

// Envs mocks the Envs method.
func (m *MockInspector) Envs() []kernel.EnvInfo {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]kernel.EnvInfo)
}

// Stats mocks the Stats method.
func (m *MockInspector) Stats() kernel.Stats {
	args := m.Called()
	return args.Get(0).(kernel.Stats)
}

// NewMockInspector creates a mock inspector with an empty directory.
func NewMockInspector(t *testing.T) *MockInspector {
	t.Helper()
	m := new(MockInspector)

	m.On("Envs").Return([]kernel.EnvInfo{}).Maybe()
	m.On("Stats").Return(kernel.Stats{MaxEnvs: kernel.NEnv}).Maybe()

	return m
}
