package programs

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
)

// Line is one line a program printed.
type Line struct {
	Env  kernel.EnvID `json:"env"`
	Text string       `json:"text"`
}

func (l Line) String() string {
	return fmt.Sprintf("[%s] %s", l.Env, l.Text)
}

// Console collects program output in the order it was printed and fans it
// out to live subscribers.
type Console struct {
	mu     sync.Mutex
	lines  []Line
	subs   map[int]chan Line
	nextID int
	closed bool
	log    *logging.Logger
}

// NewConsole creates a console that also logs every line at debug level.
func NewConsole(log *logging.Logger) *Console {
	if log == nil {
		log = logging.NewNop()
	}
	return &Console{subs: make(map[int]chan Line), log: log.Named("console")}
}

// Printf prints one line on behalf of env.
func (c *Console) Printf(env *kernel.Env, format string, args ...any) {
	line := Line{Env: env.ID(), Text: fmt.Sprintf(format, args...)}

	c.mu.Lock()
	c.lines = append(c.lines, line)
	for sid, ch := range c.subs {
		select {
		case ch <- line:
		default:
			// Too slow to keep up; its stream ends here.
			close(ch)
			delete(c.subs, sid)
			c.log.Warn("dropped slow console subscriber", zap.Int("subscriber", sid))
		}
	}
	c.mu.Unlock()

	c.log.Debug(line.Text, logging.Env(line.Env))
}

// Lines returns everything printed so far.
func (c *Console) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Line(nil), c.lines...)
}

// Subscribe returns the lines printed so far and a channel carrying every
// later line. The channel holds up to buf undelivered lines; a subscriber
// that falls further behind is dropped and its channel closed. The channel
// is also closed by Close and by the returned cancel func.
func (c *Console) Subscribe(buf int) (backlog []Line, lines <-chan Line, cancel func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Line, buf)

	c.mu.Lock()
	defer c.mu.Unlock()

	backlog = append([]Line(nil), c.lines...)
	if c.closed {
		close(ch)
		return backlog, ch, func() {}
	}

	sid := c.nextID
	c.nextID++
	c.subs[sid] = ch

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[sid]; ok {
				close(ch)
				delete(c.subs, sid)
			}
		})
	}
	return backlog, ch, cancel
}

// Close ends every subscription. Lines printed afterwards are still kept.
func (c *Console) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for sid, ch := range c.subs {
		close(ch)
		delete(c.subs, sid)
	}
}
