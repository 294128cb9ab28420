package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultWithoutUpcallKillsEnv(t *testing.T) {
	k := newTestKernel(t)
	reached := false

	id, err := k.Boot(RoleUser, func(env *Env) {
		require.NoError(t, env.PageAlloc(0, testVA, ro))
		env.StoreUint32(testVA, 1)
		reached = true
	})
	require.NoError(t, err)

	err = k.Wait()
	require.ErrorIs(t, err, ErrFaultUnhandled)
	var abort *Abort
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, id, abort.Env)
	assert.False(t, reached)
	assert.Zero(t, k.Stats().FramesUsed)
}

func TestFaultOnUnmappedRead(t *testing.T) {
	k := newTestKernel(t)

	_, err := k.Boot(RoleUser, func(env *Env) {
		env.Load(testVA, 4)
	})
	require.NoError(t, err)
	assert.ErrorIs(t, k.Wait(), ErrFaultUnhandled)
}

func TestFaultNeedsExceptionStack(t *testing.T) {
	k := newTestKernel(t)
	calls := 0

	_, err := k.Boot(RoleUser, func(env *Env) {
		require.NoError(t, env.SetPgfaultUpcall(0, func(*Env, UTrapframe) { calls++ }))
		env.Load(testVA, 4)
	})
	require.NoError(t, err)

	assert.ErrorIs(t, k.Wait(), ErrFaultUnhandled)
	assert.Zero(t, calls)
}

func TestFaultUpcallFixesPage(t *testing.T) {
	k := newTestKernel(t)
	var frames []UTrapframe
	var word uint32

	_, err := k.Boot(RoleUser, func(env *Env) {
		require.NoError(t, env.PageAlloc(0, UXStackPage, rw))
		require.NoError(t, env.PageAlloc(0, testVA, ro))
		require.NoError(t, env.SetPgfaultUpcall(0, func(env *Env, utf UTrapframe) {
			frames = append(frames, utf)
			require.NoError(t, env.PageAlloc(0, utf.FaultVA.RoundDown(), rw))
		}))

		env.StoreUint32(testVA+16, 99)
		word = env.LoadUint32(testVA + 16)
	})
	require.NoError(t, err)
	require.NoError(t, k.Wait())

	require.Len(t, frames, 1)
	assert.Equal(t, testVA+16, frames[0].FaultVA)
	assert.True(t, frames[0].Write())
	assert.True(t, frames[0].User())
	assert.Equal(t, FaultPresent, frames[0].Err&FaultPresent)
	assert.Equal(t, uint32(99), word)
}

func TestFaultUpcallThatDoesNotFixKills(t *testing.T) {
	k := newTestKernel(t)
	calls := 0

	_, err := k.Boot(RoleUser, func(env *Env) {
		require.NoError(t, env.PageAlloc(0, UXStackPage, rw))
		require.NoError(t, env.SetPgfaultUpcall(0, func(*Env, UTrapframe) { calls++ }))
		env.Store(testVA, []byte{1})
	})
	require.NoError(t, err)

	assert.ErrorIs(t, k.Wait(), ErrFaultUnhandled)
	assert.Equal(t, maxFaultsPerAccess, calls)
}
