package kernel

import (
	"fmt"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/link"
)

// EnvID identifies an env. The low LogNEnv bits index the env table and the
// rest is a generation that changes every time a slot is reused, so a stale
// id never names a newer env. Zero means "the calling env" in syscalls and
// "nobody" everywhere else.
type EnvID int32

const (
	LogNEnv = 10
	NEnv    = 1 << LogNEnv

	envGenShift = 12
)

// Index returns the env table slot of id.
func (id EnvID) Index() int {
	return int(id) & (NEnv - 1)
}

func (id EnvID) String() string {
	return fmt.Sprintf("%08x", uint32(id))
}

// Status is the scheduling state of an env.
type Status int

const (
	StatusFree Status = iota
	StatusDying
	StatusRunnable
	StatusRunning
	StatusNotRunnable
)

func (s Status) String() string {
	switch s {
	case StatusFree:
		return "free"
	case StatusDying:
		return "dying"
	case StatusRunnable:
		return "runnable"
	case StatusRunning:
		return "running"
	case StatusNotRunnable:
		return "not-runnable"
	default:
		return "unknown"
	}
}

// Role tells system service envs apart from ordinary ones.
type Role int

const (
	RoleUser Role = iota
	RoleFS
	RoleNS
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleFS:
		return "fs"
	case RoleNS:
		return "ns"
	default:
		return "unknown"
	}
}

// Upcall is a user-mode page fault entry point. It runs on the faulting
// env's own thread of control; when it returns the faulting access is
// retried.
type Upcall func(env *Env, utf UTrapframe)

type ipcSlot struct {
	recving bool
	dstva   VA
	value   uint32
	from    EnvID
	perm    Perm
}

type sendReq struct {
	value uint32
	srcva VA
	perm  Perm
}

// proc is the kernel's record of one env.
type proc struct {
	id     EnvID
	parent EnvID
	role   Role
	status Status

	as     *addressSpace
	upcall Upcall
	ipc    ipcSlot

	// sendq links this env into the senders queue of the env it is
	// blocked sending to. senders anchors the envs blocked sending to it.
	sendq   link.Node[proc]
	senders link.Node[proc]
	pending sendReq

	blocked bool
	wake    chan error

	entry   func(*Env)
	started bool
	running bool
}

// EnvInfo is a read-only snapshot of one env table entry.
type EnvInfo struct {
	ID        EnvID  `json:"id"`
	ParentID  EnvID  `json:"parent_id"`
	Role      Role   `json:"role"`
	Status    Status `json:"status"`
	HasUpcall bool   `json:"has_upcall"`
	Pages     int    `json:"pages"`

	IPCRecving bool   `json:"ipc_recving"`
	IPCFrom    EnvID  `json:"ipc_from"`
	IPCValue   uint32 `json:"ipc_value"`
	IPCPerm    Perm   `json:"ipc_perm"`
	Senders    int    `json:"senders"`
}

func (p *proc) info() EnvInfo {
	in := EnvInfo{
		ID:         p.id,
		ParentID:   p.parent,
		Role:       p.role,
		Status:     p.status,
		HasUpcall:  p.upcall != nil,
		IPCRecving: p.ipc.recving,
		IPCFrom:    p.ipc.from,
		IPCValue:   p.ipc.value,
		IPCPerm:    p.ipc.perm,
		Senders:    p.senders.Len(),
	}
	if p.as != nil {
		in.Pages = p.as.pages
	}
	return in
}

func (id EnvID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
