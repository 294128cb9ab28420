package programs

import (
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/ulib"
)

// endOfStream closes the number stream flowing down the sieve.
const endOfStream = 0

// Primes is a concurrent prime sieve. A generator feeds 2..p.Limit into a
// pipeline of filter envs. Each filter prints the first number it gets,
// which is prime, forks the next filter, and passes on what its prime does
// not divide.
func Primes(lib *ulib.Lib, con *Console, p Params) func(*kernel.Env) {
	var filter func(env *kernel.Env)

	filter = func(env *kernel.Env) {
		msg, err := lib.Recv(env, kernel.NoPage)
		if err != nil {
			env.Panicf("primes: %w", err)
		}
		prime := msg.Value
		if prime == endOfStream {
			return
		}
		con.Printf(env, "%d", prime)

		next := lib.Fork(env, func(child *kernel.Env, _ kernel.Outcome) {
			filter(child)
		}).ChildID()

		for {
			msg, err := lib.Recv(env, kernel.NoPage)
			if err != nil {
				env.Panicf("primes: %w", err)
			}
			if msg.Value == endOfStream {
				lib.Send(env, next, endOfStream, kernel.NoPage, 0)
				return
			}
			if msg.Value%prime != 0 {
				lib.Send(env, next, msg.Value, kernel.NoPage, 0)
			}
		}
	}

	return func(env *kernel.Env) {
		first := lib.Fork(env, func(child *kernel.Env, _ kernel.Outcome) {
			filter(child)
		}).ChildID()

		for i := uint32(2); i <= uint32(p.Limit); i++ {
			lib.Send(env, first, i, kernel.NoPage, 0)
		}
		lib.Send(env, first, endOfStream, kernel.NoPage, 0)
	}
}
