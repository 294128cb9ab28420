package ulib_test

import (
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/ulib"
	helpers "github.com/GriffinCanCode/AgentOS/exokernel/tests/helpers/testutil"
)

func TestNewDefaultsToBlock(t *testing.T) {
	assert.Equal(t, config.DisciplineBlock, ulib.New(ulib.Options{}).Discipline())
	assert.Equal(t, config.DisciplineBlock, ulib.New(ulib.Options{Discipline: "spin"}).Discipline())
	assert.Equal(t, config.DisciplineRetry, ulib.New(ulib.Options{Discipline: config.DisciplineRetry}).Discipline())
}

func TestSendWaitsForReceiver(t *testing.T) {
	for _, discipline := range []string{config.DisciplineRetry, config.DisciplineBlock} {
		t.Run(discipline, func(t *testing.T) {
			sys := helpers.NewSystem(t, discipline)
			start := make(chan struct{})
			got := make(chan ulib.Message, 1)
			var sent atomic.Bool

			b := sys.Boot(t, func(env *kernel.Env) {
				<-start
				msg, err := sys.Lib.Recv(env, kernel.NoPage)
				require.NoError(t, err)
				got <- msg
			})
			a := sys.Boot(t, func(env *kernel.Env) {
				sys.Lib.Send(env, b, 42, kernel.NoPage, 0)
				sent.Store(true)
			})

			if discipline == config.DisciplineRetry {
				helpers.WaitFor(t, func() bool {
					return testutil.ToFloat64(sys.Metrics.IPCRetries) > 0
				})
			} else {
				helpers.WaitFor(t, func() bool {
					in, ok := sys.EnvInfo(b)
					return ok && in.Senders == 1
				})
			}
			assert.False(t, sent.Load(), "send returned before the receiver was ready")

			close(start)
			require.NoError(t, sys.Kernel.Wait())
			assert.True(t, sent.Load())

			msg := <-got
			assert.Equal(t, uint32(42), msg.Value)
			assert.Equal(t, a, msg.From)
			assert.Zero(t, msg.Perm)
			assert.Equal(t, 1.0, testutil.ToFloat64(sys.Metrics.IPCMessages.WithLabelValues(discipline)))
		})
	}
}

func TestSendPageRoundsDown(t *testing.T) {
	sys := helpers.NewBlockingSystem(t)
	type received struct {
		msg  ulib.Message
		word uint32
	}
	got := make(chan received, 1)

	b := sys.Boot(t, func(env *kernel.Env) {
		msg, err := sys.Lib.Recv(env, roVA+0x123)
		require.NoError(t, err)
		got <- received{msg: msg, word: env.LoadUint32(roVA)}
	})
	sys.Boot(t, func(env *kernel.Env) {
		require.NoError(t, env.PageAlloc(0, dataVA, rw))
		env.StoreUint32(dataVA, 0xcafe)
		sys.Lib.Send(env, b, 5, dataVA+0x10, ro)
	})
	require.NoError(t, sys.Kernel.Wait())

	r := <-got
	assert.Equal(t, uint32(5), r.msg.Value)
	assert.Equal(t, ro, r.msg.Perm)
	assert.Equal(t, uint32(0xcafe), r.word)
}

func TestSendToDeadEnvIsFatal(t *testing.T) {
	for _, discipline := range []string{config.DisciplineRetry, config.DisciplineBlock} {
		t.Run(discipline, func(t *testing.T) {
			sys := helpers.NewSystem(t, discipline)

			sys.Boot(t, func(env *kernel.Env) {
				sys.Lib.Send(env, kernel.EnvID(0x7ffff3ff), 1, kernel.NoPage, 0)
			})

			err := sys.Kernel.Wait()
			assert.ErrorContains(t, err, "ipc send")
		})
	}
}

func TestQueuedSenderFailsWhenReceiverDies(t *testing.T) {
	sys := helpers.NewBlockingSystem(t)
	hold := make(chan struct{})

	b := sys.Boot(t, func(env *kernel.Env) {
		<-hold
		env.Yield()
	})
	sys.Boot(t, func(env *kernel.Env) {
		sys.Lib.Send(env, b, 1, kernel.NoPage, 0)
	})
	helpers.WaitFor(t, func() bool {
		in, ok := sys.EnvInfo(b)
		return ok && in.Senders == 1
	})

	require.NoError(t, sys.Kernel.Destroy(b))
	close(hold)

	err := sys.Kernel.Wait()
	assert.ErrorIs(t, err, kernel.ErrBadEnv)
	assert.Len(t, sys.Kernel.Aborts(), 1, "only the sender aborts")
}

func TestFindEnv(t *testing.T) {
	sys := helpers.NewBlockingSystem(t)
	hold := make(chan struct{})

	fs, err := sys.Kernel.Boot(kernel.RoleFS, func(*kernel.Env) { <-hold })
	require.NoError(t, err)

	var foundFS, foundNS kernel.EnvID
	sys.Boot(t, func(env *kernel.Env) {
		foundFS = sys.Lib.FindEnv(env, kernel.RoleFS)
		foundNS = sys.Lib.FindEnv(env, kernel.RoleNS)
	})
	helpers.WaitFor(t, func() bool { return sys.Kernel.Stats().Envs == 1 })
	close(hold)
	require.NoError(t, sys.Kernel.Wait())

	assert.Equal(t, fs, foundFS)
	assert.Zero(t, foundNS)
}
