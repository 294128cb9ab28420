package programs

import (
	"bytes"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/ulib"
)

const (
	stressBase kernel.VA = 0x00a00000
	sharedPage kernel.VA = 0x00900000

	stressChildren = 2
)

func pattern(b byte) []byte {
	return bytes.Repeat([]byte{b}, kernel.PageSize)
}

func stressPage(i int) kernel.VA {
	return stressBase + kernel.VA(i*kernel.PageSize)
}

// fillAndCheck writes b over every stress page and reads it back.
func fillAndCheck(env *kernel.Env, pages int, b byte) {
	for i := range pages {
		env.Store(stressPage(i), pattern(b))
	}
	checkPages(env, pages, b)
}

func checkPages(env *kernel.Env, pages int, b byte) {
	want := pattern(b)
	for i := range pages {
		if !bytes.Equal(env.Load(stressPage(i), kernel.PageSize), want) {
			env.Panicf("cowstress: page %d of %s lost its %#x pattern", i, env.ID(), b)
		}
	}
}

// COWStress fills p.Pages pages, forks two children that overwrite them,
// and checks that every env only ever sees its own writes. One extra page is
// mapped shared, so a write there must be seen by everybody.
func COWStress(lib *ulib.Lib, con *Console, p Params) func(*kernel.Env) {
	return func(env *kernel.Env) {
		for i := range p.Pages {
			if err := env.PageAlloc(0, stressPage(i), rw); err != nil {
				env.Panicf("cowstress: %w", err)
			}
		}
		if err := env.PageAlloc(0, sharedPage, rw|kernel.PermShare); err != nil {
			env.Panicf("cowstress: %w", err)
		}
		fillAndCheck(env, p.Pages, 0xaa)

		for c := range stressChildren {
			mark := byte(0xc0 + c)
			lib.Fork(env, func(child *kernel.Env, _ kernel.Outcome) {
				checkPages(child, p.Pages, 0xaa)
				fillAndCheck(child, p.Pages, mark)
				child.StoreUint32(sharedPage+kernel.VA(4*c), uint32(mark))
				con.Printf(child, "wrote %#x to %d private pages", mark, p.Pages)
				lib.Send(child, child.This().ParentID, uint32(mark), kernel.NoPage, 0)
			})
		}

		for range stressChildren {
			msg, err := lib.Recv(env, kernel.NoPage)
			if err != nil {
				env.Panicf("cowstress: %w", err)
			}
			con.Printf(env, "child %s done with %#x", msg.From, msg.Value)
		}

		checkPages(env, p.Pages, 0xaa)
		for c := range stressChildren {
			if got := env.LoadUint32(sharedPage + kernel.VA(4*c)); got != uint32(0xc0+c) {
				env.Panicf("cowstress: shared word %d is %#x", c, got)
			}
		}
		fillAndCheck(env, p.Pages, 0x55)
		con.Printf(env, "cowstress ok: %d pages, %d children", p.Pages, stressChildren)
	}
}
