package kernel

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/logging"
)

// Env is an env's own handle on the kernel: its identity plus the system
// calls it may make. It is the explicit "current env" that every user
// library operation takes, and it must only be used by the env it belongs
// to.
type Env struct {
	k  *Kernel
	p  *proc
	id EnvID
}

// Outcome is the tagged result of Exofork. The caller learns the new env's
// id; the new env learns that it is the new one.
type Outcome struct {
	child bool
	id    EnvID
}

// Parent is the outcome seen by the env that called Exofork.
func Parent(child EnvID) Outcome {
	return Outcome{id: child}
}

// Child is the outcome seen by the new env.
func Child() Outcome {
	return Outcome{child: true}
}

// IsChild reports whether this is the new env's side.
func (o Outcome) IsChild() bool { return o.child }

// ChildID returns the new env's id on the parent side, zero on the child
// side.
func (o Outcome) ChildID() EnvID { return o.id }

func (o Outcome) String() string {
	if o.child {
		return "child"
	}
	return fmt.Sprintf("parent(%s)", o.id)
}

// ID returns the id this handle was issued for.
func (e *Env) ID() EnvID {
	return e.id
}

// enterLocked aborts an env that was destroyed underneath its goroutine.
func (e *Env) enterLocked() *proc {
	if e.p.id != e.id || e.p.status == StatusDying || e.p.status == StatusFree {
		panic(&Abort{Env: e.id, Err: ErrKilled})
	}
	return e.p
}

func (e *Env) syscall(name string, fn func(cur *proc) error) error {
	e.k.mu.Lock()
	defer e.k.mu.Unlock()

	cur := e.enterLocked()
	err := fn(cur)
	e.k.metrics.RecordSyscall(name, err)
	return err
}

// read runs fn against kernel state the env can see read-only.
func (e *Env) read(fn func(cur *proc)) {
	e.k.mu.Lock()
	defer e.k.mu.Unlock()
	fn(e.enterLocked())
}

// GetEnvID returns the caller's env id.
func (e *Env) GetEnvID() EnvID {
	var id EnvID
	_ = e.syscall("getenvid", func(cur *proc) error {
		id = cur.id
		return nil
	})
	return id
}

// This returns the caller's own env table entry.
func (e *Env) This() EnvInfo {
	var in EnvInfo
	e.read(func(cur *proc) {
		in = e.k.envs[cur.id.Index()].info()
	})
	return in
}

// Envs returns the read-only env directory.
func (e *Env) Envs() []EnvInfo {
	var out []EnvInfo
	e.read(func(*proc) {
		out = e.k.envsLocked()
	})
	return out
}

// VPD returns the permissions of page directory entry pdx of the caller.
func (e *Env) VPD(pdx uint32) Perm {
	var perm Perm
	e.read(func(cur *proc) {
		perm = cur.as.pde(pdx % NPDEntries)
	})
	return perm
}

// VPT returns the permissions of the caller's mapping of virtual page vpn,
// or zero when the page is not mapped.
func (e *Env) VPT(vpn uint32) Perm {
	var perm Perm
	e.read(func(cur *proc) {
		if entry, ok := cur.as.lookup(PageAddr(vpn)); ok {
			perm = entry.perm
		}
	})
	return perm
}

// Yield gives up the CPU.
func (e *Env) Yield() {
	_ = e.syscall("yield", func(*proc) error { return nil })
	runtime.Gosched()
}

// Panicf aborts the calling env. It does not return.
func (e *Env) Panicf(format string, args ...any) {
	panic(&Abort{Env: e.id, Err: fmt.Errorf(format, args...)})
}

func checkUserVA(va VA) error {
	if va >= UTop || !va.Aligned() {
		return ErrInval
	}
	return nil
}

// PageAlloc maps a fresh zeroed page at va in env id with perm, replacing
// any page already there.
func (e *Env) PageAlloc(id EnvID, va VA, perm Perm) error {
	return e.syscall("page_alloc", func(cur *proc) error {
		p, err := e.k.lookupLocked(cur, id, true)
		if err != nil {
			return err
		}
		if err := checkUserVA(va); err != nil {
			return err
		}
		if !perm.Valid() {
			return ErrInval
		}
		fn, err := e.k.mem.alloc()
		if err != nil {
			return err
		}
		p.as.insert(fn, va, perm)
		e.k.updateFramesLocked()
		return nil
	})
}

// PageMap maps the page at srcva in env src at dstva in env dst with perm.
// A writable mapping of a read-only source is refused.
func (e *Env) PageMap(src EnvID, srcva VA, dst EnvID, dstva VA, perm Perm) error {
	return e.syscall("page_map", func(cur *proc) error {
		sp, err := e.k.lookupLocked(cur, src, true)
		if err != nil {
			return err
		}
		dp, err := e.k.lookupLocked(cur, dst, true)
		if err != nil {
			return err
		}
		if err := checkUserVA(srcva); err != nil {
			return err
		}
		if err := checkUserVA(dstva); err != nil {
			return err
		}
		entry, ok := sp.as.lookup(srcva)
		if !ok {
			return ErrInval
		}
		if !perm.Valid() {
			return ErrInval
		}
		if perm.Has(PermWritable) && !entry.perm.Has(PermWritable) {
			return ErrInval
		}
		dp.as.insert(entry.frame, dstva, perm)
		return nil
	})
}

// PageUnmap unmaps va in env id. Unmapping a hole succeeds.
func (e *Env) PageUnmap(id EnvID, va VA) error {
	return e.syscall("page_unmap", func(cur *proc) error {
		p, err := e.k.lookupLocked(cur, id, true)
		if err != nil {
			return err
		}
		if err := checkUserVA(va); err != nil {
			return err
		}
		p.as.remove(va)
		e.k.updateFramesLocked()
		return nil
	})
}

// Exofork creates a child env with an empty address space, not yet
// runnable. The caller gets Parent(childID). Once the child is made
// runnable it runs resume with Child().
func (e *Env) Exofork(resume func(child *Env, o Outcome)) (Outcome, error) {
	var id EnvID
	err := e.syscall("exofork", func(cur *proc) error {
		p, err := e.k.allocLocked(cur.id, RoleUser)
		if err != nil {
			return err
		}
		p.entry = func(child *Env) { resume(child, Child()) }
		id = p.id
		e.k.log.Debug("env exoforked", logging.Parent(cur.id), zap.Stringer("child", id))
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return Parent(id), nil
}

// SetStatus sets env id runnable or not runnable. Making an exoforked env
// runnable the first time starts it. Once an env has started its status
// belongs to the kernel and the call only validates.
func (e *Env) SetStatus(id EnvID, status Status) error {
	return e.syscall("env_set_status", func(cur *proc) error {
		if status != StatusRunnable && status != StatusNotRunnable {
			return ErrInval
		}
		p, err := e.k.lookupLocked(cur, id, true)
		if err != nil {
			return err
		}
		if p.started {
			return nil
		}
		if status == StatusRunnable {
			if p.entry == nil {
				return ErrInval
			}
			e.k.startLocked(p)
			return nil
		}
		p.status = status
		return nil
	})
}

// SetPgfaultUpcall installs the page fault upcall of env id. A nil upcall
// removes it.
func (e *Env) SetPgfaultUpcall(id EnvID, upcall Upcall) error {
	return e.syscall("env_set_pgfault_upcall", func(cur *proc) error {
		p, err := e.k.lookupLocked(cur, id, true)
		if err != nil {
			return err
		}
		p.upcall = upcall
		return nil
	})
}

// Destroy tears down env id. Destroying the caller does not return.
func (e *Env) Destroy(id EnvID) error {
	self := false
	err := e.syscall("env_destroy", func(cur *proc) error {
		p, err := e.k.lookupLocked(cur, id, true)
		if err != nil {
			return err
		}
		self = p == cur
		e.k.teardownLocked(p)
		return nil
	})
	if self {
		panic(&Abort{Env: e.id, Err: ErrKilled})
	}
	return err
}

// Exit destroys the caller.
func (e *Env) Exit() {
	_ = e.Destroy(0)
}
