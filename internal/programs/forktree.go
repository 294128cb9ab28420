package programs

import (
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/ulib"
)

// labelVA holds an env's branch label: a length word followed by the bytes.
const labelVA kernel.VA = 0x00800000

const rw = kernel.PermPresent | kernel.PermUser | kernel.PermWritable

func readLabel(env *kernel.Env) string {
	n := env.LoadUint32(labelVA)
	return string(env.Load(labelVA+4, int(n)))
}

func writeLabel(env *kernel.Env, label string) {
	env.StoreUint32(labelVA, uint32(len(label)))
	env.Store(labelVA+4, []byte(label))
}

// ForkTree builds a binary tree of envs. Every env prints its branch label
// and forks a child for branch '0' and one for '1' until labels are p.Depth
// long. A child finds its parent's label in its own copy of memory.
func ForkTree(lib *ulib.Lib, con *Console, p Params) func(*kernel.Env) {
	var tree func(env *kernel.Env)

	forkChild := func(env *kernel.Env, branch byte) {
		if len(readLabel(env)) >= p.Depth {
			return
		}
		lib.Fork(env, func(child *kernel.Env, _ kernel.Outcome) {
			writeLabel(child, readLabel(child)+string(branch))
			tree(child)
		})
	}

	tree = func(env *kernel.Env) {
		con.Printf(env, "I am '%s'", readLabel(env))
		forkChild(env, '0')
		forkChild(env, '1')
	}

	return func(env *kernel.Env) {
		if err := env.PageAlloc(0, labelVA, rw); err != nil {
			env.Panicf("forktree: %w", err)
		}
		writeLabel(env, "")
		tree(env)
	}
}
