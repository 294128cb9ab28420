package kernel

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/logging"
)

// maxFaultsPerAccess bounds how often one page access may fault before the
// upcall is judged to have failed to fix it.
const maxFaultsPerAccess = 2

// Load reads n bytes of the caller's memory starting at va, as user code
// would. A fault goes to the caller's upcall.
func (e *Env) Load(va VA, n int) []byte {
	out := make([]byte, 0, n)
	e.access(va, n, false, func(b []byte) {
		out = append(out, b...)
	})
	return out
}

// Store writes data into the caller's memory starting at va, as user code
// would. Writing a copy-on-write page faults into the caller's upcall,
// which is expected to give it a private copy.
func (e *Env) Store(va VA, data []byte) {
	e.access(va, len(data), true, func(b []byte) {
		n := copy(b, data)
		data = data[n:]
	})
}

// LoadUint32 reads a little-endian word at va.
func (e *Env) LoadUint32(va VA) uint32 {
	return binary.LittleEndian.Uint32(e.Load(va, 4))
}

// StoreUint32 writes a little-endian word at va.
func (e *Env) StoreUint32(va VA, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.Store(va, b[:])
}

// access walks [va, va+n) page by page and hands fn the bytes of each
// page's part of the range.
func (e *Env) access(va VA, n int, write bool, fn func([]byte)) {
	for n > 0 {
		chunk := min(n, PageSize-int(va.Offset()))
		e.accessPage(va, chunk, write, fn)
		va += VA(chunk)
		n -= chunk
	}
}

func (e *Env) accessPage(va VA, n int, write bool, fn func([]byte)) {
	for faults := 0; ; faults++ {
		utf, upcall, ok := e.tryAccess(va, n, write, fn)
		if ok {
			return
		}
		if upcall == nil || faults >= maxFaultsPerAccess {
			e.killOnFault(utf)
		}
		e.k.metrics.RecordPageFault("upcall")
		upcall(e, utf)
	}
}

// tryAccess performs the access if the mapping allows it. Otherwise it
// returns the fault and the upcall that may handle it, which is nil when
// the env has none or its exception stack is not mapped writable.
func (e *Env) tryAccess(va VA, n int, write bool, fn func([]byte)) (UTrapframe, Upcall, bool) {
	e.k.mu.Lock()
	defer e.k.mu.Unlock()

	cur := e.enterLocked()
	need := PermPresent | PermUser
	if write {
		need |= PermWritable
	}

	entry, present := cur.as.lookup(va)
	if va < UTop && present && entry.perm.Has(need) {
		off := va.Offset()
		fn(e.k.mem.page(entry.frame)[off : int(off)+n])
		return UTrapframe{}, nil, true
	}

	utf := UTrapframe{FaultVA: va, Err: FaultUser}
	if present {
		utf.Err |= FaultPresent
	}
	if write {
		utf.Err |= FaultWrite
	}

	xstack, ok := cur.as.lookup(UXStackPage)
	if cur.upcall == nil || !ok || !xstack.perm.Has(PermPresent|PermUser|PermWritable) {
		return utf, nil, false
	}
	return utf, cur.upcall, false
}

// killOnFault destroys the caller for a fault nobody can handle.
func (e *Env) killOnFault(utf UTrapframe) {
	func() {
		e.k.mu.Lock()
		defer e.k.mu.Unlock()

		cur := e.enterLocked()
		e.k.log.Warn("unhandled user page fault",
			logging.Env(cur.id),
			zap.Uint32("va", uint32(utf.FaultVA)),
			zap.Uint32("err", uint32(utf.Err)),
		)
		e.k.metrics.RecordPageFault("killed")
		e.k.teardownLocked(cur)
	}()

	panic(&Abort{Env: e.id, Err: ErrFaultUnhandled})
}
