package ulib

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
)

// Message is one received IPC value. Perm is nonzero only when a page was
// mapped at the receive address.
type Message struct {
	From  kernel.EnvID
	Value uint32
	Perm  kernel.Perm
}

// pageArg turns a caller's page argument into what the kernel expects:
// a page-aligned address, or kernel.NoPage for "no page".
func pageArg(pg kernel.VA) kernel.VA {
	if pg >= kernel.NoPage {
		return kernel.NoPage
	}
	return pg.RoundDown()
}

// Recv waits for a message. A page sent along is mapped at pg unless pg is
// kernel.NoPage. On failure the returned message is zero.
func (l *Lib) Recv(env *kernel.Env, pg kernel.VA) (Message, error) {
	if err := env.IPCRecv(pageArg(pg)); err != nil {
		l.metrics.IPCRecvFails.Inc()
		return Message{}, fmt.Errorf("ipc recv: %w", err)
	}
	r := env.IPC()
	return Message{From: r.From, Value: r.Value, Perm: r.Perm}, nil
}

// Send delivers value, and the page at pg with perm unless pg is
// kernel.NoPage, to env to. It returns once the message is delivered. Any
// failure is fatal to the caller.
func (l *Lib) Send(env *kernel.Env, to kernel.EnvID, value uint32, pg kernel.VA, perm kernel.Perm) {
	pg = pageArg(pg)

	switch l.discipline {
	case config.DisciplineRetry:
		for {
			err := env.IPCTrySend(to, value, pg, perm)
			if err == nil {
				break
			}
			if !errors.Is(err, kernel.ErrIPCNotRecv) {
				env.Panicf("ipc send to %s: %w", to, err)
			}
			l.metrics.IPCRetries.Inc()
			env.Yield()
		}
	default:
		if err := env.IPCSend(to, value, pg, perm); err != nil {
			env.Panicf("ipc send to %s: %w", to, err)
		}
	}

	l.metrics.RecordIPCMessage(l.discipline)
}

// FindEnv returns the first env with the given role, or zero if there is
// none.
func (l *Lib) FindEnv(env *kernel.Env, role kernel.Role) kernel.EnvID {
	for _, in := range env.Envs() {
		if in.Role == role {
			return in.ID
		}
	}
	return 0
}
