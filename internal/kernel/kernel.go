package kernel

import (
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/monitoring"
)

// Options configures a Kernel.
type Options struct {
	// MaxEnvs bounds the env table, at most NEnv.
	MaxEnvs int
	// MaxFrames bounds physical memory, in pages.
	MaxFrames int

	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// Stats summarizes kernel resource usage.
type Stats struct {
	Envs       int `json:"envs"`
	MaxEnvs    int `json:"max_envs"`
	FramesUsed int `json:"frames_used"`
	MaxFrames  int `json:"max_frames"`
}

// Kernel is an in-memory exokernel: an env table, physical memory, and the
// system calls user code needs to build fork and IPC on its own.
//
// Every env runs on its own goroutine. One lock serializes all kernel
// state, so each system call runs to completion. An env gives up the CPU
// only in Yield or while blocked in IPC.
type Kernel struct {
	mu   sync.Mutex
	envs []proc
	mem  *physMem

	log     *logging.Logger
	metrics *monitoring.Metrics

	group  errgroup.Group
	aborts []error
}

// New creates a kernel with an empty env table.
func New(opts Options) *Kernel {
	if opts.MaxEnvs <= 0 || opts.MaxEnvs > NEnv {
		opts.MaxEnvs = NEnv
	}
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = 16384
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics()
	}

	k := &Kernel{
		envs:    make([]proc, opts.MaxEnvs),
		mem:     newPhysMem(opts.MaxFrames),
		log:     opts.Logger.Named("kernel"),
		metrics: opts.Metrics,
	}
	for i := range k.envs {
		p := &k.envs[i]
		p.sendq.Init(p)
		p.senders.Init(nil)
	}
	return k
}

// Boot creates a runnable env with a fresh address space holding one user
// stack page, and starts entry in it.
func (k *Kernel) Boot(role Role, entry func(*Env)) (EnvID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	p, err := k.allocLocked(0, role)
	if err != nil {
		return 0, err
	}
	fn, err := k.mem.alloc()
	if err != nil {
		k.freeLocked(p)
		return 0, err
	}
	p.as.insert(fn, UStackTop-PageSize, PermPresent|PermUser|PermWritable)

	p.entry = entry
	k.startLocked(p)

	k.log.Debug("env booted", logging.Env(p.id), zap.Stringer("role", role))
	return p.id, nil
}

// Wait blocks until every started env has exited. If any env aborted it
// returns all aborts joined.
func (k *Kernel) Wait() error {
	if err := k.group.Wait(); err == nil {
		return nil
	}
	return errors.Join(k.Aborts()...)
}

// Aborts returns every abort recorded so far.
func (k *Kernel) Aborts() []error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]error(nil), k.aborts...)
}

// Destroy tears down env id from outside any env.
func (k *Kernel) Destroy(id EnvID) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	p, err := k.lookupLocked(nil, id, false)
	if err != nil {
		return err
	}
	k.teardownLocked(p)
	return nil
}

// Envs returns the env directory: one entry per allocated env, in table
// order.
func (k *Kernel) Envs() []EnvInfo {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.envsLocked()
}

func (k *Kernel) envsLocked() []EnvInfo {
	var out []EnvInfo
	for i := range k.envs {
		if k.envs[i].status != StatusFree {
			out = append(out, k.envs[i].info())
		}
	}
	return out
}

// Mapping describes one present page mapping.
type Mapping struct {
	Frame FrameNum `json:"frame"`
	Perm  Perm     `json:"perm"`
}

// Mapping returns env id's mapping of the page holding va.
func (k *Kernel) Mapping(id EnvID, va VA) (Mapping, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	p, err := k.lookupLocked(nil, id, false)
	if err != nil {
		return Mapping{}, false
	}
	e, ok := p.as.lookup(va)
	if !ok {
		return Mapping{}, false
	}
	return Mapping{Frame: e.frame, Perm: e.perm}, true
}

// Peek copies n bytes at va out of env id without going through its page
// permissions or raising faults.
func (k *Kernel) Peek(id EnvID, va VA, n int) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	p, err := k.lookupLocked(nil, id, false)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, n)
	for n > 0 {
		e, ok := p.as.lookup(va)
		if !ok {
			return nil, ErrInval
		}
		off := va.Offset()
		chunk := min(n, PageSize-int(off))
		out = append(out, k.mem.page(e.frame)[off:int(off)+chunk]...)
		va += VA(chunk)
		n -= chunk
	}
	return out, nil
}

// FrameRefs returns how many mappings point at frame fn.
func (k *Kernel) FrameRefs(fn FrameNum) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.mem.refs(fn)
}

// Stats returns current resource usage.
func (k *Kernel) Stats() Stats {
	k.mu.Lock()
	defer k.mu.Unlock()

	s := Stats{MaxEnvs: len(k.envs), FramesUsed: k.mem.used, MaxFrames: k.mem.limit}
	for i := range k.envs {
		if k.envs[i].status != StatusFree {
			s.Envs++
		}
	}
	return s
}

// allocLocked takes the lowest free slot and gives it a new generation.
func (k *Kernel) allocLocked(parent EnvID, role Role) (*proc, error) {
	idx := -1
	for i := range k.envs {
		if k.envs[i].status == StatusFree {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNoFreeEnv
	}

	p := &k.envs[idx]
	gen := (p.id + (1 << envGenShift)) &^ (NEnv - 1)
	if gen <= 0 {
		gen = 1 << envGenShift
	}

	*p = proc{
		id:     gen | EnvID(idx),
		parent: parent,
		role:   role,
		status: StatusNotRunnable,
		as:     newAddressSpace(k.mem),
		wake:   make(chan error, 1),
	}
	p.sendq.Init(p)
	p.senders.Init(nil)

	k.metrics.EnvsActive.Inc()
	k.metrics.EnvsTotal.Inc()
	k.updateFramesLocked()
	return p, nil
}

// lookupLocked resolves id the way every syscall does. Zero is cur. With
// checkperm, the target must be cur or one of its immediate children.
func (k *Kernel) lookupLocked(cur *proc, id EnvID, checkperm bool) (*proc, error) {
	if id == 0 {
		if cur == nil {
			return nil, ErrBadEnv
		}
		return cur, nil
	}
	idx := id.Index()
	if idx >= len(k.envs) {
		return nil, ErrBadEnv
	}
	p := &k.envs[idx]
	if p.id != id || p.status == StatusFree || p.status == StatusDying {
		return nil, ErrBadEnv
	}
	if checkperm && cur != nil && p != cur && p.parent != cur.id {
		return nil, ErrBadEnv
	}
	return p, nil
}

func (k *Kernel) startLocked(p *proc) {
	p.started = true
	p.running = true
	p.status = StatusRunning
	env := &Env{k: k, p: p, id: p.id}
	k.group.Go(func() error {
		return k.run(env)
	})
}

// run executes an env's program and reaps it afterwards. A fatal abort is
// logged and returned; being destroyed by another env is not an error.
func (k *Kernel) run(env *Env) (err error) {
	defer func() {
		if r := recover(); r != nil {
			abort, ok := r.(*Abort)
			if !ok {
				panic(r)
			}
			if !errors.Is(abort.Err, ErrKilled) {
				k.log.Error("env aborted", logging.Env(env.id), zap.Error(abort.Err))
				err = abort
			}
		}
		k.exit(env, err)
	}()

	env.p.entry(env)
	return nil
}

func (k *Kernel) exit(env *Env, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err != nil {
		k.aborts = append(k.aborts, err)
	}
	p := env.p
	if p.id != env.id {
		return
	}
	if p.status != StatusDying {
		k.teardownLocked(p)
	}
	p.running = false
	k.freeLocked(p)
	k.log.Debug("env exited", logging.Env(env.id))
}

// teardownLocked releases everything p holds. Queue membership goes first:
// p leaves any senders queue it is on, and every env blocked sending to p
// is failed with ErrBadEnv. The slot itself is freed once p's goroutine is
// gone.
func (k *Kernel) teardownLocked(p *proc) {
	p.sendq.Remove()
	for !p.senders.IsEmpty() {
		s := p.senders.Dequeue().Owner()
		k.wakeLocked(s, ErrBadEnv)
	}

	p.as.free()
	p.upcall = nil
	p.ipc = ipcSlot{}

	if p.running {
		p.status = StatusDying
		if p.blocked {
			k.wakeLocked(p, ErrKilled)
		}
	} else {
		k.freeLocked(p)
	}
	k.updateFramesLocked()
	k.log.Debug("env destroyed", logging.Env(p.id))
}

func (k *Kernel) freeLocked(p *proc) {
	if p.status == StatusFree {
		return
	}
	if p.as != nil {
		p.as.free()
	}
	p.status = StatusFree
	p.as = nil
	p.entry = nil
	k.metrics.EnvsActive.Dec()
	k.updateFramesLocked()
}

// wakeLocked resumes an env blocked in IPC with the given result.
func (k *Kernel) wakeLocked(p *proc, result error) {
	if !p.blocked {
		return
	}
	p.blocked = false
	if p.status == StatusNotRunnable {
		p.status = StatusRunning
	}
	p.wake <- result
}

func (k *Kernel) updateFramesLocked() {
	k.metrics.FramesUsed.Set(float64(k.mem.used))
}
