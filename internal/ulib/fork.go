package ulib

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
)

// Continuation is what a forked child runs. It receives the child's own env
// handle and kernel.Child().
type Continuation func(env *kernel.Env, o kernel.Outcome)

// Fork creates a child that shares the caller's memory copy-on-write. The
// caller gets kernel.Parent(childID) back; the child runs cont once it has
// been set up. Failures are fatal to the caller.
func (l *Lib) Fork(env *kernel.Env, cont Continuation) kernel.Outcome {
	l.installHandler(env)

	o, err := env.Exofork(func(child *kernel.Env, o kernel.Outcome) {
		self := child.This()
		l.log.Debug("forked child running",
			logging.Env(self.ID),
			logging.Parent(self.ParentID),
		)
		cont(child, o)
	})
	if err != nil {
		env.Panicf("fork: exofork: %w", err)
	}
	child := o.ChildID()

	// The last user page is the exception stack, which is never shared.
	lim := kernel.UXStackPage.PageNum()
	for vpn := uint32(0); vpn < lim; {
		if env.VPD(vpn/kernel.NPTEntries)&kernel.PermPresent == 0 {
			vpn = (vpn/kernel.NPTEntries + 1) * kernel.NPTEntries
			continue
		}
		next := min(lim, (vpn/kernel.NPTEntries+1)*kernel.NPTEntries)
		for ; vpn < next; vpn++ {
			if env.VPT(vpn).Has(kernel.PermPresent | kernel.PermUser) {
				l.duppage(env, child, vpn)
			}
		}
	}

	rw := kernel.PermPresent | kernel.PermUser | kernel.PermWritable
	if err := env.PageAlloc(child, kernel.UXStackPage, rw); err != nil {
		env.Panicf("fork: alloc child exception stack: %w", err)
	}
	if err := env.SetPgfaultUpcall(child, l.HandleFault); err != nil {
		env.Panicf("fork: set child upcall: %w", err)
	}
	if err := env.SetStatus(child, kernel.StatusRunnable); err != nil {
		env.Panicf("fork: set child runnable: %w", err)
	}

	l.metrics.Forks.Inc()
	l.log.Debug("forked", logging.Parent(env.ID()), zap.Stringer("child", child))
	return o
}

// duppage maps virtual page vpn of the caller into child at the same
// address. Shared pages keep their permissions. Writable and COW pages
// become COW in both spaces; the child is mapped first so the caller's page
// is never writable while the child already refers to it.
func (l *Lib) duppage(env *kernel.Env, child kernel.EnvID, vpn uint32) {
	perm := env.VPT(vpn)
	if !perm.Has(kernel.PermPresent | kernel.PermUser) {
		env.Panicf("duppage: page %#x is %s", vpn, perm)
	}
	va := kernel.PageAddr(vpn)
	perm &= kernel.PermSyscall

	switch {
	case perm.Has(kernel.PermShare):
		if err := env.PageMap(0, va, child, va, perm); err != nil {
			env.Panicf("duppage: share %#x: %w", uint32(va), err)
		}
	case perm&(kernel.PermWritable|kernel.PermCOW) != 0:
		cow := perm&^kernel.PermWritable | kernel.PermCOW
		if err := env.PageMap(0, va, child, va, cow); err != nil {
			env.Panicf("duppage: map %#x into child: %w", uint32(va), err)
		}
		if err := env.PageMap(0, va, 0, va, cow); err != nil {
			env.Panicf("duppage: remap %#x: %w", uint32(va), err)
		}
	default:
		if err := env.PageMap(0, va, child, va, perm); err != nil {
			env.Panicf("duppage: map %#x into child: %w", uint32(va), err)
		}
	}
}
