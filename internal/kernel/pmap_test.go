package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVAHelpers(t *testing.T) {
	va := VA(0x00803123)

	assert.Equal(t, uint32(0x803), va.PageNum())
	assert.Equal(t, uint32(2), va.PDX())
	assert.Equal(t, uint32(3), va.PTX())
	assert.Equal(t, uint32(0x123), va.Offset())
	assert.Equal(t, VA(0x00803000), va.RoundDown())
	assert.False(t, va.Aligned())
	assert.Equal(t, VA(0x00803000), PageAddr(0x803))
}

func TestLayout(t *testing.T) {
	assert.Equal(t, UTop.PageNum()-1, UXStackPage.PageNum())
	assert.Less(t, uint32(PFTemp), uint32(UTop))
	assert.True(t, PFTemp.Aligned())
	assert.Equal(t, UTop, NoPage)
}

func TestPermValid(t *testing.T) {
	tests := []struct {
		name string
		perm Perm
		want bool
	}{
		{"present user", PermPresent | PermUser, true},
		{"writable", PermPresent | PermUser | PermWritable, true},
		{"cow", PermPresent | PermUser | PermCOW, true},
		{"share", PermPresent | PermUser | PermWritable | PermShare, true},
		{"missing user", PermPresent | PermWritable, false},
		{"missing present", PermUser, false},
		{"cache bit", PermPresent | PermUser | 0x010, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.perm.Valid())
		})
	}
}

func TestPermString(t *testing.T) {
	assert.Equal(t, "P|U|COW", (PermPresent | PermUser | PermCOW).String())
	assert.Equal(t, "-", Perm(0).String())
}

func TestAddressSpaceInsertRemove(t *testing.T) {
	mem := newPhysMem(8)
	as := newAddressSpace(mem)

	fn, err := mem.alloc()
	require.NoError(t, err)

	as.insert(fn, 0x1000, PermPresent|PermUser|PermWritable)
	e, ok := as.lookup(0x1000)
	require.True(t, ok)
	assert.Equal(t, fn, e.frame)
	assert.Equal(t, 1, mem.refs(fn))
	assert.Equal(t, 1, as.pages)
	assert.NotZero(t, as.pde(VA(0x1000).PDX()))

	// Remapping the same frame only changes permissions.
	as.insert(fn, 0x1000, PermPresent|PermUser)
	e, _ = as.lookup(0x1000)
	assert.Equal(t, PermPresent|PermUser, e.perm)
	assert.Equal(t, 1, mem.refs(fn))
	assert.Equal(t, 1, as.pages)

	as.remove(0x1000)
	_, ok = as.lookup(0x1000)
	assert.False(t, ok)
	assert.Equal(t, 0, mem.used)

	// Removing a hole is harmless.
	as.remove(0x1000)
	as.remove(0x40000000)
}

func TestAddressSpaceReplaceDropsOldFrame(t *testing.T) {
	mem := newPhysMem(8)
	as := newAddressSpace(mem)

	a, _ := mem.alloc()
	b, _ := mem.alloc()
	as.insert(a, 0x2000, PermPresent|PermUser)
	as.insert(b, 0x2000, PermPresent|PermUser)

	assert.Equal(t, 1, mem.used)
	assert.Equal(t, 1, mem.refs(b))
}

func TestAddressSpaceFree(t *testing.T) {
	mem := newPhysMem(8)
	as := newAddressSpace(mem)
	other := newAddressSpace(mem)

	shared, _ := mem.alloc()
	as.insert(shared, 0x1000, PermPresent|PermUser)
	other.insert(shared, 0x5000, PermPresent|PermUser)
	private, _ := mem.alloc()
	as.insert(private, UStackTop-PageSize, PermPresent|PermUser|PermWritable)

	as.free()

	assert.Equal(t, 1, mem.used)
	assert.Equal(t, 1, mem.refs(shared))
	assert.Zero(t, as.pde(VA(0x1000).PDX()))
}

func TestPhysMemLimitAndReuse(t *testing.T) {
	mem := newPhysMem(2)

	a, err := mem.alloc()
	require.NoError(t, err)
	_, err = mem.alloc()
	require.NoError(t, err)
	_, err = mem.alloc()
	assert.ErrorIs(t, err, ErrNoMem)

	mem.page(a)[0] = 0xff
	mem.release(a)
	c, err := mem.alloc()
	require.NoError(t, err)
	assert.Equal(t, a, c)
	assert.Equal(t, byte(0), mem.page(c)[0], "reused frames come back zeroed")
}
