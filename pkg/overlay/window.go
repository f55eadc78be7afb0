package overlay

import (
	"unsafe"

	"github.com/flowgraph/tscore/pkg/typesys"
	"github.com/flowgraph/tscore/pkg/value"
)

// Window is the storage+overlay combination for a TSW: a fixed-capacity
// retention ring of (value, time) pairs, newest at the logical end, oldest
// evicted on overflow. The shape is adapted from a generation ring where a
// ring of *generations* rotates on a capacity trigger, retiring the oldest
// generation and reusing its slot id; here the same rotate-and-reuse-slot
// approach tracks (value, time) pairs instead of arena generations,
// triggered purely by capacity. A TTL-by-time eviction policy is left for
// later since nothing currently needs it.
type Window struct {
	elem     *typesys.TypeMeta
	buf      []byte
	times    []EngineTime
	cap      int
	head     int // physical index of the oldest retained slot
	count    int
	removed  bool
	removedBuf []byte
	removedAt  EngineTime
}

// NewWindow allocates a Window of the given retention capacity.
func NewWindow(elem *typesys.TypeMeta, capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	sz := int(elem.Size)
	if sz == 0 {
		sz = 1
	}
	return &Window{
		elem:       elem,
		buf:        make([]byte, sz*capacity),
		times:      make([]EngineTime, capacity),
		cap:        capacity,
		removedBuf: make([]byte, sz),
	}
}

func (w *Window) slotPtr(physical int) unsafe.Pointer {
	sz := int(w.elem.Size)
	if sz == 0 {
		sz = 1
	}
	return unsafe.Pointer(&w.buf[physical*sz])
}

func (w *Window) physical(logical int) int { return (w.head + logical) % w.cap }

// Push writes src as the newest value at time t, evicting the oldest
// retained value if the window is at capacity. This is push-with-eviction
// and the only way to write a TSW.
func (w *Window) Push(src value.View, t EngineTime) {
	w.removed = false
	if w.count < w.cap {
		phys := w.physical(w.count)
		constructElem(w.elem, w.slotPtr(phys))
		copyElem(w.elem, w.slotPtr(phys), src.Data())
		w.times[phys] = t
		w.count++
		return
	}
	// At capacity: slot at logical 0 (physical head) is evicted.
	oldPhys := w.head
	destroyElem(w.elem, w.removedBuf2Ptr())
	constructElem(w.elem, w.removedBuf2Ptr())
	copyElem(w.elem, w.removedBuf2Ptr(), w.slotPtr(oldPhys))
	w.removedAt = w.times[oldPhys]
	w.removed = true

	destroyElem(w.elem, w.slotPtr(oldPhys))
	constructElem(w.elem, w.slotPtr(oldPhys))
	copyElem(w.elem, w.slotPtr(oldPhys), src.Data())
	w.times[oldPhys] = t
	w.head = (w.head + 1) % w.cap
}

func (w *Window) removedBuf2Ptr() unsafe.Pointer { return unsafe.Pointer(&w.removedBuf[0]) }

// Value returns the newest retained value, or a zero View if the window
// is empty.
func (w *Window) Value() value.View {
	if w.count == 0 {
		return value.View{}
	}
	return value.NewView(w.slotPtr(w.physical(w.count-1)), w.elem)
}

// FirstModifiedTime returns the time the oldest retained value was
// written.
func (w *Window) FirstModifiedTime() EngineTime {
	if w.count == 0 {
		return MinTime
	}
	return w.times[w.head]
}

// HasRemovedValue reports whether this tick's Push evicted a value.
func (w *Window) HasRemovedValue() bool { return w.removed }

// RemovedValue returns the evicted value, valid only when HasRemovedValue
// is true.
func (w *Window) RemovedValue() value.View {
	if !w.removed {
		return value.View{}
	}
	return value.NewView(w.removedBuf2Ptr(), w.elem)
}

// RemovedValueCount is 0 or 1: this window evicts at most one value per
// Push, so "count" is really "did this tick evict". It is exposed as a
// count rather than a bool to leave room for a future implementation that
// coalesces multiple evictions per tick; this one never does, since Push
// is the only write path and is called at most once per leaf per tick.
func (w *Window) RemovedValueCount() int {
	if w.removed {
		return 1
	}
	return 0
}

// Len returns the number of currently retained values.
func (w *Window) Len() int { return w.count }

func constructElem(t *typesys.TypeMeta, p unsafe.Pointer) {
	if t.Kind == typesys.KindScalar {
		t.Scalar.Construct(p)
	}
}
func destroyElem(t *typesys.TypeMeta, p unsafe.Pointer) {
	if t.Kind == typesys.KindScalar {
		t.Scalar.Destroy(p)
	}
}
func copyElem(t *typesys.TypeMeta, dst, src unsafe.Pointer) {
	if t.Kind == typesys.KindScalar {
		t.Scalar.Copy(dst, src)
	}
}
