package programs

import (
	"errors"
	"fmt"
	"sort"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/ulib"
)

// ErrUnknownProgram is returned by Lookup for a name nothing is registered
// under.
var ErrUnknownProgram = errors.New("unknown program")

// Params tunes the size of a program run. Zero fields take defaults.
type Params struct {
	Depth  int // forktree
	Rounds int // pingpong
	Limit  int // primes
	Pages  int // cowstress
}

// DefaultParams returns the sizes the programs use when none are given.
func DefaultParams() Params {
	return Params{Depth: 3, Rounds: 10, Limit: 50, Pages: 4}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Depth <= 0 {
		p.Depth = d.Depth
	}
	if p.Rounds <= 0 {
		p.Rounds = d.Rounds
	}
	if p.Limit < 2 {
		p.Limit = d.Limit
	}
	if p.Pages <= 0 {
		p.Pages = d.Pages
	}
	return p
}

// Program is a user program that runs as the first env of a system.
type Program struct {
	Name        string
	Description string
	build       func(lib *ulib.Lib, con *Console, p Params) func(*kernel.Env)
}

// Entry returns the program's main function, ready for Kernel.Boot.
func (p Program) Entry(lib *ulib.Lib, con *Console, params Params) func(*kernel.Env) {
	return p.build(lib, con, params.withDefaults())
}

var registry = map[string]Program{
	"forktree": {
		Name:        "forktree",
		Description: "every env forks two children until the tree is deep enough",
		build:       ForkTree,
	},
	"pingpong": {
		Name:        "pingpong",
		Description: "parent and child pass a counter back and forth",
		build:       PingPong,
	},
	"primes": {
		Name:        "primes",
		Description: "concurrent prime sieve, one env per prime",
		build:       Primes,
	},
	"cowstress": {
		Name:        "cowstress",
		Description: "children and parent write the same pages and check they stay private",
		build:       COWStress,
	},
}

// Lookup returns the program registered under name.
func Lookup(name string) (Program, error) {
	p, ok := registry[name]
	if !ok {
		return Program{}, fmt.Errorf("%w: %q", ErrUnknownProgram, name)
	}
	return p, nil
}

// Names returns the registered program names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
