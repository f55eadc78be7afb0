package value

import (
	"fmt"
	"unsafe"

	"github.com/flowgraph/tscore/internal/unsafehelpers"
	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/typesys"
)

// cyclicHeader is a fixed-capacity ring: head is the index of the oldest
// occupied slot, count is the number currently occupied (<= FixedSize).
// Pushing past capacity overwrites the oldest slot and advances head.
type cyclicHeader struct {
	buf   []byte
	head  int
	count int
}

func cyclicHeaderPtr(data unsafe.Pointer) *cyclicHeader { return (*cyclicHeader)(data) }

func cyclicSlotPtr(t *typesys.TypeMeta, h *cyclicHeader, logical int) unsafe.Pointer {
	phys := (h.head + logical) % t.FixedSize
	return unsafehelpers.Add(unsafe.Pointer(&h.buf[0]), uintptr(phys)*t.Elem.Size)
}

func constructCyclicBuffer(t *typesys.TypeMeta, data unsafe.Pointer) {
	buf := make([]byte, int(t.Elem.Size)*t.FixedSize)
	*cyclicHeaderPtr(data) = cyclicHeader{buf: buf}
}

func destroyCyclicBuffer(t *typesys.TypeMeta, data unsafe.Pointer) {
	h := cyclicHeaderPtr(data)
	for i := 0; i < h.count; i++ {
		destroyInPlace(t.Elem, cyclicSlotPtr(t, h, i))
	}
}

func copyCyclicBuffer(t *typesys.TypeMeta, dst, src unsafe.Pointer) {
	sh, dh := cyclicHeaderPtr(src), cyclicHeaderPtr(dst)
	destroyCyclicBuffer(t, dst)
	buf := make([]byte, len(sh.buf))
	*dh = cyclicHeader{buf: buf, head: 0, count: sh.count}
	for i := 0; i < sh.count; i++ {
		constructInPlace(t.Elem, cyclicSlotPtr(t, dh, i))
		copyInPlace(t.Elem, cyclicSlotPtr(t, dh, i), cyclicSlotPtr(t, sh, i))
	}
}

// CyclicBufferView adapts a View over a CyclicBuffer schema.
type CyclicBufferView struct{ View }

func AsCyclicBuffer(v View) (CyclicBufferView, bool) {
	if v.schema == nil || v.schema.Kind != typesys.KindCyclicBuffer {
		return CyclicBufferView{}, false
	}
	return CyclicBufferView{v}, true
}

func (c CyclicBufferView) h() *cyclicHeader { return cyclicHeaderPtr(c.data) }

// Length returns the number of occupied slots.
func (c CyclicBufferView) Length() int { return c.h().count }

// At returns the logical-order element at i (0 = oldest).
func (c CyclicBufferView) At(i int) (View, error) {
	h := c.h()
	if i < 0 || i >= h.count {
		return View{}, tserr.ErrOutOfRange
	}
	return View{data: cyclicSlotPtr(c.schema, h, i), schema: c.schema.Elem}, nil
}

// MutableCyclicBufferView adds Push/Clear.
type MutableCyclicBufferView struct{ CyclicBufferView }

func AsMutableCyclicBuffer(m MutableView) (MutableCyclicBufferView, bool) {
	cv, ok := AsCyclicBuffer(m.View)
	if !ok {
		return MutableCyclicBufferView{}, false
	}
	return MutableCyclicBufferView{cv}, true
}

// Push appends src, evicting the oldest element once at capacity. It does
// not report whether an element was evicted, and the evicted slot's
// pre-overwrite bytes are not retained — callers needing the evicted value
// must read it via At(0) before calling Push. (pkg/overlay's Window keeps
// its own ring and removed-value buffer and does not use this type.)
func (m MutableCyclicBufferView) Push(src View) error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	if src.schema != m.schema.Elem {
		return tserr.NewSchemaError("Push", m.schema.Elem.String(), src.schema.String())
	}
	h := m.h()
	cap := m.schema.FixedSize
	if h.count < cap {
		dst := cyclicSlotPtr(m.schema, h, h.count)
		constructInPlace(m.schema.Elem, dst)
		copyInPlace(m.schema.Elem, dst, src.data)
		h.count++
		return nil
	}
	// At capacity: overwrite the oldest (logical index 0) in place, then
	// advance head so it becomes the new logical end.
	dst := cyclicSlotPtr(m.schema, h, 0)
	destroyInPlace(m.schema.Elem, dst)
	constructInPlace(m.schema.Elem, dst)
	copyInPlace(m.schema.Elem, dst, src.data)
	h.head = (h.head + 1) % cap
	return nil
}

// Clear empties the buffer.
func (m MutableCyclicBufferView) Clear() error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	destroyCyclicBuffer(m.schema, m.data)
	h := m.h()
	h.head, h.count = 0, 0
	return nil
}

/* -------------------------------------------------------------------------
   Host conversion: an []any in oldest-to-newest order.
   ------------------------------------------------------------------------- */

// ToHost converts this buffer to an []any, oldest element first.
func (c CyclicBufferView) ToHost() (any, error) {
	out := make([]any, c.Length())
	for i := range out {
		ev, err := c.At(i)
		if err != nil {
			return nil, err
		}
		hv, err := ev.ToHost()
		if err != nil {
			return nil, err
		}
		out[i] = hv
	}
	return out, nil
}

// FromHost replaces this buffer's contents with host, an []any ordered
// oldest to newest; the buffer is cleared first, then every element
// pushed in order, so only the last FixedSize entries of host survive.
func (m MutableCyclicBufferView) FromHost(host any) error {
	items, ok := host.([]any)
	if !ok {
		return tserr.NewSchemaError("FromHost", "[]any", fmt.Sprintf("%T", host))
	}
	if err := m.Clear(); err != nil {
		return err
	}
	for _, it := range items {
		scratch, err := hostToScratchValue(m.schema.Elem, it)
		if err != nil {
			return err
		}
		err = m.Push(scratch.View())
		scratch.Destroy()
		if err != nil {
			return err
		}
	}
	return nil
}
