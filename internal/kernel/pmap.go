package kernel

type pte struct {
	frame FrameNum
	perm  Perm
}

func (e pte) present() bool { return e.perm&PermPresent != 0 }

type pageTable [NPTEntries]pte

// addressSpace is a two-level page table over the user half of memory.
// A page table is created the first time a page in its range is mapped and
// kept until the space is freed.
type addressSpace struct {
	dir   [NPDEntries]*pageTable
	mem   *physMem
	pages int
}

func newAddressSpace(mem *physMem) *addressSpace {
	return &addressSpace{mem: mem}
}

// walk returns the entry for va, creating its page table when create is set.
func (as *addressSpace) walk(va VA, create bool) *pte {
	pt := as.dir[va.PDX()]
	if pt == nil {
		if !create {
			return nil
		}
		pt = new(pageTable)
		as.dir[va.PDX()] = pt
	}
	return &pt[va.PTX()]
}

// lookup returns the present mapping of va.
func (as *addressSpace) lookup(va VA) (pte, bool) {
	e := as.walk(va, false)
	if e == nil || !e.present() {
		return pte{}, false
	}
	return *e, true
}

// insert maps fn at va with perm, replacing whatever was there. Remapping
// the frame already at va only changes its permissions.
func (as *addressSpace) insert(fn FrameNum, va VA, perm Perm) {
	e := as.walk(va, true)
	as.mem.incref(fn)
	if e.present() {
		as.mem.decref(e.frame)
	} else {
		as.pages++
	}
	*e = pte{frame: fn, perm: perm | PermPresent}
}

// remove unmaps va. Unmapping a hole does nothing.
func (as *addressSpace) remove(va VA) {
	e := as.walk(va, false)
	if e == nil || !e.present() {
		return
	}
	as.mem.decref(e.frame)
	*e = pte{}
	as.pages--
}

// pde returns the permissions of directory entry pdx as user code sees
// them through the read-only directory view.
func (as *addressSpace) pde(pdx uint32) Perm {
	if as.dir[pdx] == nil {
		return 0
	}
	return PermPresent | PermWritable | PermUser
}

// free drops every mapping.
func (as *addressSpace) free() {
	for pdx, pt := range as.dir {
		if pt == nil {
			continue
		}
		for ptx := range pt {
			if pt[ptx].present() {
				as.mem.decref(pt[ptx].frame)
			}
		}
		as.dir[pdx] = nil
	}
	as.pages = 0
}
