package ulib_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	helpers "github.com/GriffinCanCode/AgentOS/exokernel/tests/helpers/testutil"
)

func TestHandleFaultCopiesPage(t *testing.T) {
	sys := helpers.NewBlockingSystem(t)
	var before, after kernel.Mapping
	var data []byte
	var temp kernel.Perm

	id := sys.Boot(t, func(env *kernel.Env) {
		require.NoError(t, env.PageAlloc(0, dataVA, rw))
		env.Store(dataVA, []byte("cow"))
		// A second reference, as a fork would leave.
		require.NoError(t, env.PageMap(0, dataVA, 0, sharedVA, cow))
		require.NoError(t, env.PageMap(0, dataVA, 0, dataVA, cow))
		before, _ = sys.Kernel.Mapping(env.ID(), dataVA)

		sys.Lib.HandleFault(env, kernel.UTrapframe{
			FaultVA: dataVA + 2,
			Err:     kernel.FaultPresent | kernel.FaultWrite | kernel.FaultUser,
		})

		after, _ = sys.Kernel.Mapping(env.ID(), dataVA)
		data = env.Load(dataVA, 3)
		temp = env.VPT(kernel.PFTemp.PageNum())
		other, _ := sys.Kernel.Mapping(env.ID(), sharedVA)
		assert.Equal(t, before.Frame, other.Frame)
		assert.Equal(t, cow, other.Perm)
	})
	require.NoError(t, sys.Kernel.Wait())

	assert.NotZero(t, id)
	assert.Equal(t, cow, before.Perm)
	assert.Equal(t, rw, after.Perm)
	assert.NotEqual(t, before.Frame, after.Frame)
	assert.Equal(t, []byte("cow"), data)
	assert.Zero(t, temp, "the scratch page is unmapped")
	assert.Equal(t, 1.0, testutil.ToFloat64(sys.Metrics.COWCopies))
}

func TestHandleFaultRejects(t *testing.T) {
	tests := []struct {
		name string
		perm kernel.Perm
		va   kernel.VA
		err  kernel.FaultCode
	}{
		{"read of cow page", cow, dataVA, kernel.FaultPresent | kernel.FaultUser},
		{"write to plain page", ro, dataVA, kernel.FaultPresent | kernel.FaultWrite | kernel.FaultUser},
		{"write to unmapped page", ro, dataVA + kernel.PageSize, kernel.FaultWrite | kernel.FaultUser},
		{"no page table", ro, farVA, kernel.FaultWrite | kernel.FaultUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := helpers.NewBlockingSystem(t)
			var perm, temp kernel.Perm

			sys.Boot(t, func(env *kernel.Env) {
				require.NoError(t, env.PageAlloc(0, dataVA, tt.perm))
				defer func() {
					perm = env.VPT(dataVA.PageNum())
					temp = env.VPT(kernel.PFTemp.PageNum())
					panic(recover())
				}()
				sys.Lib.HandleFault(env, kernel.UTrapframe{FaultVA: tt.va, Err: tt.err})
			})

			err := sys.Kernel.Wait()
			var abort *kernel.Abort
			require.True(t, errors.As(err, &abort))
			assert.Contains(t, abort.Error(), "pgfault")
			assert.Equal(t, tt.perm, perm, "mapping unchanged")
			assert.Zero(t, temp)
		})
	}
}
