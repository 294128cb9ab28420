package kernel

// FrameNum names a physical page. Zero is never handed out.
type FrameNum uint32

type frame struct {
	data [PageSize]byte
	refs int
}

// physMem is the physical page arena. Frames are reference counted by the
// mappings that point at them and return to the free list at zero.
type physMem struct {
	frames []*frame
	free   []FrameNum
	limit  int
	used   int
}

func newPhysMem(limit int) *physMem {
	return &physMem{
		frames: []*frame{nil},
		limit:  limit,
	}
}

// alloc returns a zeroed frame with no references.
func (pm *physMem) alloc() (FrameNum, error) {
	if pm.used >= pm.limit {
		return 0, ErrNoMem
	}
	var fn FrameNum
	if n := len(pm.free); n > 0 {
		fn = pm.free[n-1]
		pm.free = pm.free[:n-1]
		pm.frames[fn].data = [PageSize]byte{}
	} else {
		fn = FrameNum(len(pm.frames))
		pm.frames = append(pm.frames, &frame{})
	}
	pm.used++
	return fn, nil
}

func (pm *physMem) incref(fn FrameNum) {
	pm.frames[fn].refs++
}

// decref drops one reference and frees the frame when none remain.
func (pm *physMem) decref(fn FrameNum) {
	f := pm.frames[fn]
	if f.refs <= 0 {
		panic("kernel: decref of unreferenced frame")
	}
	f.refs--
	if f.refs == 0 {
		pm.release(fn)
	}
}

// release frees a frame nobody maps, such as one whose mapping failed.
func (pm *physMem) release(fn FrameNum) {
	if pm.frames[fn].refs != 0 {
		panic("kernel: release of mapped frame")
	}
	pm.free = append(pm.free, fn)
	pm.used--
}

func (pm *physMem) page(fn FrameNum) []byte {
	return pm.frames[fn].data[:]
}

func (pm *physMem) refs(fn FrameNum) int {
	return pm.frames[fn].refs
}
