package kernel

// IPCResult is what a completed receive left in the caller's IPC slot.
type IPCResult struct {
	From  EnvID
	Value uint32
	Perm  Perm
}

// IPC returns the caller's pending-IPC slot.
func (e *Env) IPC() IPCResult {
	var r IPCResult
	e.read(func(cur *proc) {
		r = IPCResult{From: cur.ipc.from, Value: cur.ipc.value, Perm: cur.ipc.perm}
	})
	return r
}

// checkSendPage validates the page a sender offers, if any, and returns the
// sender's mapping of it.
func checkSendPage(sender *proc, srcva VA, perm Perm) (pte, bool, error) {
	if srcva >= UTop {
		return pte{}, false, nil
	}
	if !srcva.Aligned() || !perm.Valid() {
		return pte{}, false, ErrInval
	}
	entry, ok := sender.as.lookup(srcva)
	if !ok {
		return pte{}, false, ErrInval
	}
	if perm.Has(PermWritable) && !entry.perm.Has(PermWritable) {
		return pte{}, false, ErrInval
	}
	return entry, true, nil
}

// deliverLocked completes a rendezvous into target, which must be
// receiving. It fills target's IPC slot and does not wake it.
func (k *Kernel) deliverLocked(sender, target *proc, req sendReq) error {
	entry, hasPage, err := checkSendPage(sender, req.srcva, req.perm)
	if err != nil {
		return err
	}

	var perm Perm
	if hasPage && target.ipc.dstva < UTop {
		target.as.insert(entry.frame, target.ipc.dstva, req.perm)
		perm = req.perm
	}
	target.ipc = ipcSlot{
		value: req.value,
		from:  sender.id,
		perm:  perm,
	}
	return nil
}

// IPCTrySend delivers value, and the page at srcva with perm when srcva is
// below UTop, to env to. It fails with ErrIPCNotRecv unless to is blocked
// in IPCRecv at this instant.
func (e *Env) IPCTrySend(to EnvID, value uint32, srcva VA, perm Perm) error {
	return e.syscall("ipc_try_send", func(cur *proc) error {
		target, err := e.k.lookupLocked(cur, to, false)
		if err != nil {
			return err
		}
		if !target.ipc.recving {
			return ErrIPCNotRecv
		}
		if err := e.k.deliverLocked(cur, target, sendReq{value: value, srcva: srcva, perm: perm}); err != nil {
			return err
		}
		e.k.wakeLocked(target, nil)
		return nil
	})
}

// IPCSend is the blocking form of IPCTrySend. When to is not receiving the
// caller joins the tail of to's senders queue and sleeps until a receive by
// to completes the transfer, or until to is destroyed (ErrBadEnv).
func (e *Env) IPCSend(to EnvID, value uint32, srcva VA, perm Perm) error {
	wait := false
	err := e.syscall("ipc_send", func(cur *proc) error {
		target, err := e.k.lookupLocked(cur, to, false)
		if err != nil {
			return err
		}
		if target == cur {
			return ErrInval
		}
		req := sendReq{value: value, srcva: srcva, perm: perm}
		if _, _, err := checkSendPage(cur, srcva, perm); err != nil {
			return err
		}
		if target.ipc.recving {
			if err := e.k.deliverLocked(cur, target, req); err != nil {
				return err
			}
			e.k.wakeLocked(target, nil)
			return nil
		}

		cur.pending = req
		target.senders.Enqueue(&cur.sendq)
		cur.status = StatusNotRunnable
		cur.blocked = true
		wait = true
		return nil
	})
	if err != nil || !wait {
		return err
	}
	return e.block()
}

// IPCRecv blocks until a value arrives. When dstva is below UTop a page
// sent along is mapped there. A sender already queued on the caller is
// served first, in arrival order, without sleeping.
func (e *Env) IPCRecv(dstva VA) error {
	wait := false
	err := e.syscall("ipc_recv", func(cur *proc) error {
		if dstva < UTop && !dstva.Aligned() {
			return ErrInval
		}
		cur.ipc.recving = true
		cur.ipc.dstva = dstva

		for !cur.senders.IsEmpty() {
			s := cur.senders.Dequeue().Owner()
			err := e.k.deliverLocked(s, cur, s.pending)
			e.k.wakeLocked(s, err)
			if err == nil {
				return nil
			}
		}

		cur.status = StatusNotRunnable
		cur.blocked = true
		wait = true
		return nil
	})
	if err != nil || !wait {
		return err
	}
	return e.block()
}

// block sleeps until woken and returns the wake result. An env destroyed
// while asleep aborts here.
func (e *Env) block() error {
	err := <-e.p.wake
	if err == ErrKilled {
		panic(&Abort{Env: e.id, Err: err})
	}
	return err
}
