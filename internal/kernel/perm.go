package kernel

import "strings"

// Perm holds the permission bits of one page mapping.
type Perm uint32

const (
	PermPresent  Perm = 0x001
	PermWritable Perm = 0x002
	PermUser     Perm = 0x004

	// Bits 9-11 are left to software.
	PermShare Perm = 0x400
	PermCOW   Perm = 0x800
	PermAvail Perm = 0xe00

	// PermSyscall is every bit a user may pass to a mapping syscall.
	PermSyscall = PermAvail | PermPresent | PermWritable | PermUser
)

// Has reports whether every bit of flags is set in p.
func (p Perm) Has(flags Perm) bool {
	return p&flags == flags
}

// Valid reports whether p may be handed to PageAlloc, PageMap or IPC: it
// must be present and user, with nothing outside PermSyscall.
func (p Perm) Valid() bool {
	return p.Has(PermPresent|PermUser) && p&^PermSyscall == 0
}

func (p Perm) String() string {
	if p == 0 {
		return "-"
	}
	var parts []string
	for _, f := range []struct {
		bit  Perm
		name string
	}{
		{PermPresent, "P"},
		{PermUser, "U"},
		{PermWritable, "W"},
		{PermShare, "SHARE"},
		{PermCOW, "COW"},
	} {
		if p&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// FaultCode describes a page fault, like the x86 error code.
type FaultCode uint32

const (
	// FaultPresent is set when the page was present (a protection
	// violation) and clear when it was missing.
	FaultPresent FaultCode = 0x1
	FaultWrite   FaultCode = 0x2
	FaultUser    FaultCode = 0x4
)

// UTrapframe is what a fault upcall receives.
type UTrapframe struct {
	FaultVA VA
	Err     FaultCode
}

// Write reports whether the fault was caused by a write.
func (u UTrapframe) Write() bool { return u.Err&FaultWrite != 0 }

// User reports whether the fault happened in user mode.
func (u UTrapframe) User() bool { return u.Err&FaultUser != 0 }

func (p Perm) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
