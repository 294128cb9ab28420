// Package ulib is the user-space half of the exokernel: copy-on-write fork,
// the page fault handler that makes it work, and synchronous IPC.
//
// Everything here runs inside an env and talks to the kernel only through
// the calling env's *kernel.Env. Unrecoverable failures abort the calling
// env through Env.Panicf.
//
// Example:
//
//	lib := ulib.New(ulib.Options{Discipline: config.DisciplineBlock})
//	o := lib.Fork(env, func(child *kernel.Env, _ kernel.Outcome) {
//		lib.Send(child, child.This().ParentID, 1, kernel.NoPage, 0)
//	})
//	msg, err := lib.Recv(env, kernel.NoPage)
package ulib
