package kernel

import (
	"errors"
	"fmt"
)

// Syscall errors.
var (
	ErrBadEnv     = errors.New("bad environment")
	ErrInval      = errors.New("invalid parameter")
	ErrNoMem      = errors.New("out of memory")
	ErrNoFreeEnv  = errors.New("out of environments")
	ErrIPCNotRecv = errors.New("env is not receiving")

	// ErrFaultUnhandled aborts an env whose page fault has no upcall, no
	// usable exception stack, or an upcall that did not fix the page.
	ErrFaultUnhandled = errors.New("unhandled page fault")

	// ErrKilled is seen by an env that was destroyed while it ran or slept.
	ErrKilled = errors.New("env destroyed")
)

// Abort is the panic value of a fatal, unrecoverable condition in an env.
// The env runner recovers it and tears the env down.
type Abort struct {
	Env EnvID
	Err error
}

func (a *Abort) Error() string {
	return fmt.Sprintf("env %s aborted: %v", a.Env, a.Err)
}

func (a *Abort) Unwrap() error {
	return a.Err
}
