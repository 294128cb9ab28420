package programs

import (
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/ulib"
)

// PingPong forks once; parent and child then hand a counter back and forth,
// each incrementing it, until it reaches p.Rounds.
func PingPong(lib *ulib.Lib, con *Console, p Params) func(*kernel.Env) {
	limit := uint32(p.Rounds)

	loop := func(env *kernel.Env) {
		for {
			msg, err := lib.Recv(env, kernel.NoPage)
			if err != nil {
				env.Panicf("pingpong: %w", err)
			}
			con.Printf(env, "got %d from %s", msg.Value, msg.From)
			if msg.Value == limit {
				return
			}
			next := msg.Value + 1
			lib.Send(env, msg.From, next, kernel.NoPage, 0)
			if next == limit {
				return
			}
		}
	}

	return func(env *kernel.Env) {
		o := lib.Fork(env, func(child *kernel.Env, _ kernel.Outcome) {
			loop(child)
		})
		con.Printf(env, "send 0 to %s", o.ChildID())
		lib.Send(env, o.ChildID(), 0, kernel.NoPage, 0)
		loop(env)
	}
}
