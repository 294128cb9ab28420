package ulib

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
)

// HandleFault is the copy-on-write page fault upcall. It gives the faulting
// env a private writable copy of a COW page and aborts the env on any other
// fault.
func (l *Lib) HandleFault(env *kernel.Env, utf kernel.UTrapframe) {
	va := utf.FaultVA
	addr := va.RoundDown()

	if !utf.Write() {
		env.Panicf("pgfault: read fault at %#x (err %#x)", uint32(va), uint32(utf.Err))
	}
	if env.VPD(va.PDX())&kernel.PermPresent == 0 {
		env.Panicf("pgfault: no page table for %#x", uint32(va))
	}
	perm := env.VPT(va.PageNum())
	if !perm.Has(kernel.PermPresent | kernel.PermUser | kernel.PermCOW) {
		env.Panicf("pgfault: write to %#x, page is %s", uint32(va), perm)
	}

	rw := kernel.PermPresent | kernel.PermUser | kernel.PermWritable
	if err := env.PageAlloc(0, kernel.PFTemp, rw); err != nil {
		env.Panicf("pgfault: page alloc: %w", err)
	}
	env.Store(kernel.PFTemp, env.Load(addr, kernel.PageSize))
	if err := env.PageMap(0, kernel.PFTemp, 0, addr, rw); err != nil {
		env.Panicf("pgfault: page map: %w", err)
	}
	if err := env.PageUnmap(0, kernel.PFTemp); err != nil {
		env.Panicf("pgfault: page unmap: %w", err)
	}

	l.metrics.COWCopies.Inc()
	l.log.Debug("cow page copied",
		logging.Env(env.ID()),
		zap.Uint32("va", uint32(addr)),
	)
}

// installHandler sets up the caller's exception stack and fault upcall the
// first time it forks.
func (l *Lib) installHandler(env *kernel.Env) {
	if env.This().HasUpcall {
		return
	}
	rw := kernel.PermPresent | kernel.PermUser | kernel.PermWritable
	if err := env.PageAlloc(0, kernel.UXStackPage, rw); err != nil {
		env.Panicf("set pgfault handler: alloc exception stack: %w", err)
	}
	if err := env.SetPgfaultUpcall(0, l.HandleFault); err != nil {
		env.Panicf("set pgfault handler: %w", err)
	}
}
