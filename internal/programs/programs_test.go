package programs_test

import (
	"sort"
	"strconv"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/programs"
	"github.com/GriffinCanCode/AgentOS/exokernel/tests/helpers/testutil"
)

var disciplines = []string{config.DisciplineBlock, config.DisciplineRetry}

// run boots the named program and waits for every env to finish.
func run(t *testing.T, discipline, name string, params programs.Params) (*testutil.System, []programs.Line) {
	t.Helper()

	prog, err := programs.Lookup(name)
	require.NoError(t, err)

	sys := testutil.NewSystem(t, discipline)
	con := programs.NewConsole(nil)
	sys.Boot(t, prog.Entry(sys.Lib, con, params))
	require.NoError(t, sys.Kernel.Wait())

	assert.Zero(t, sys.Kernel.Stats().Envs)
	assert.Zero(t, sys.Kernel.Stats().FramesUsed, "every frame is released")
	return sys, con.Lines()
}

func texts(lines []programs.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"cowstress", "forktree", "pingpong", "primes"}, programs.Names())

	for _, name := range programs.Names() {
		p, err := programs.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name)
		assert.NotEmpty(t, p.Description)
	}

	_, err := programs.Lookup("dumbfork")
	assert.ErrorIs(t, err, programs.ErrUnknownProgram)
}

func TestForkTree(t *testing.T) {
	_, lines := run(t, config.DisciplineBlock, "forktree", programs.Params{Depth: 2})

	got := texts(lines)
	sort.Strings(got)
	assert.Equal(t, []string{
		"I am ''", "I am '0'", "I am '00'", "I am '01'",
		"I am '1'", "I am '10'", "I am '11'",
	}, got)

	envs := make(map[kernel.EnvID]bool)
	for _, l := range lines {
		envs[l.Env] = true
	}
	assert.Len(t, envs, 7, "one env per node")
}

func TestPingPong(t *testing.T) {
	for _, d := range disciplines {
		t.Run(d, func(t *testing.T) {
			sys, lines := run(t, d, "pingpong", programs.Params{Rounds: 10})

			var got []int
			for _, text := range texts(lines) {
				if v, ok := strings.CutPrefix(text, "got "); ok {
					n, err := strconv.Atoi(strings.Fields(v)[0])
					require.NoError(t, err)
					got = append(got, n)
				}
			}
			assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
			assert.Equal(t, 1.0, promtest.ToFloat64(sys.Metrics.Forks))
		})
	}
}

func TestPrimes(t *testing.T) {
	for _, d := range disciplines {
		t.Run(d, func(t *testing.T) {
			_, lines := run(t, d, "primes", programs.Params{Limit: 30})
			assert.Equal(t,
				[]string{"2", "3", "5", "7", "11", "13", "17", "19", "23", "29"},
				texts(lines))
		})
	}
}

func TestCOWStress(t *testing.T) {
	sys, lines := run(t, config.DisciplineBlock, "cowstress", programs.Params{Pages: 3})

	got := texts(lines)
	require.NotEmpty(t, got)
	assert.Equal(t, "cowstress ok: 3 pages, 2 children", got[len(got)-1])
	// Each child copies every page, then the parent copies its own.
	assert.Equal(t, 9.0, promtest.ToFloat64(sys.Metrics.COWCopies))
	assert.Equal(t, 2.0, promtest.ToFloat64(sys.Metrics.Forks))
}

func TestDefaultParams(t *testing.T) {
	p := programs.DefaultParams()
	assert.Equal(t, 3, p.Depth)
	assert.Equal(t, 10, p.Rounds)
	assert.Equal(t, 50, p.Limit)
	assert.Equal(t, 4, p.Pages)
}

func TestConsoleSubscribe(t *testing.T) {
	prog, err := programs.Lookup("pingpong")
	require.NoError(t, err)

	sys := testutil.NewSystem(t, config.DisciplineBlock)
	con := programs.NewConsole(nil)
	backlog, live, cancel := con.Subscribe(64)
	defer cancel()
	assert.Empty(t, backlog)

	sys.Boot(t, prog.Entry(sys.Lib, con, programs.Params{Rounds: 3}))
	require.NoError(t, sys.Kernel.Wait())
	con.Close()

	var streamed []programs.Line
	for l := range live {
		streamed = append(streamed, l)
	}
	assert.Equal(t, con.Lines(), streamed)

	// Late subscribers get the backlog and a closed stream.
	backlog, late, _ := con.Subscribe(1)
	assert.Equal(t, con.Lines(), backlog)
	_, open := <-late
	assert.False(t, open)
}

func TestConsoleDropsSlowSubscriber(t *testing.T) {
	prog, err := programs.Lookup("pingpong")
	require.NoError(t, err)

	sys := testutil.NewSystem(t, config.DisciplineBlock)
	con := programs.NewConsole(nil)
	_, live, cancel := con.Subscribe(1)

	sys.Boot(t, prog.Entry(sys.Lib, con, programs.Params{Rounds: 3}))
	require.NoError(t, sys.Kernel.Wait())
	require.Greater(t, len(con.Lines()), 2)

	first, open := <-live
	require.True(t, open)
	assert.Equal(t, con.Lines()[0], first)
	_, open = <-live
	assert.False(t, open, "a subscriber that fell behind is closed")

	cancel() // after the drop this is a no-op
}
