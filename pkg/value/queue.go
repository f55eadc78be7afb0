package value

import (
	"fmt"
	"unsafe"

	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/typesys"
)

// queueHeader is a FIFO of elem. Max
// == 0 means unbounded; Max > 0 makes a full queue's Push a
// FixedSizeViolation rather than an eviction (unlike CyclicBuffer, a queue
// does not silently drop data).
type queueHeader struct {
	items []unsafe.Pointer
	bufs  [][]byte
}

func queueHeaderPtr(data unsafe.Pointer) *queueHeader { return (*queueHeader)(data) }

func constructQueue(t *typesys.TypeMeta, data unsafe.Pointer) { *queueHeaderPtr(data) = queueHeader{} }

func destroyQueue(t *typesys.TypeMeta, data unsafe.Pointer) {
	h := queueHeaderPtr(data)
	for _, p := range h.items {
		destroyInPlace(t.Elem, p)
	}
}

func copyQueue(t *typesys.TypeMeta, dst, src unsafe.Pointer) {
	sh, dh := queueHeaderPtr(src), queueHeaderPtr(dst)
	destroyQueue(t, dst)
	*dh = queueHeader{items: make([]unsafe.Pointer, len(sh.items)), bufs: make([][]byte, len(sh.items))}
	for i, p := range sh.items {
		buf := make([]byte, t.Elem.Size)
		if len(buf) == 0 {
			buf = make([]byte, 1)
		}
		dh.bufs[i] = buf
		dh.items[i] = unsafe.Pointer(&buf[0])
		constructInPlace(t.Elem, dh.items[i])
		copyInPlace(t.Elem, dh.items[i], p)
	}
}

// QueueView adapts a View over a Queue schema.
type QueueView struct{ View }

func AsQueue(v View) (QueueView, bool) {
	if v.schema == nil || v.schema.Kind != typesys.KindQueue {
		return QueueView{}, false
	}
	return QueueView{v}, true
}

func (q QueueView) h() *queueHeader { return queueHeaderPtr(q.data) }

// Length returns the number of queued elements.
func (q QueueView) Length() int { return len(q.h().items) }

// Front returns the oldest (next-to-pop) element.
func (q QueueView) Front() (View, error) {
	h := q.h()
	if len(h.items) == 0 {
		return View{}, tserr.ErrOutOfRange
	}
	return View{data: h.items[0], schema: q.schema.Elem}, nil
}

// MutableQueueView adds Push/Pop/Clear.
type MutableQueueView struct{ QueueView }

func AsMutableQueue(m MutableView) (MutableQueueView, bool) {
	qv, ok := AsQueue(m.View)
	if !ok {
		return MutableQueueView{}, false
	}
	return MutableQueueView{qv}, true
}

// Push appends src at the back.
func (m MutableQueueView) Push(src View) error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	if src.schema != m.schema.Elem {
		return tserr.NewSchemaError("Push", m.schema.Elem.String(), src.schema.String())
	}
	h := m.h()
	if m.schema.FixedSize > 0 && len(h.items) >= m.schema.FixedSize {
		return tserr.ErrFixedSizeViolation
	}
	buf := make([]byte, m.schema.Elem.Size)
	if len(buf) == 0 {
		buf = make([]byte, 1)
	}
	p := unsafe.Pointer(&buf[0])
	constructInPlace(m.schema.Elem, p)
	copyInPlace(m.schema.Elem, p, src.data)
	h.items = append(h.items, p)
	h.bufs = append(h.bufs, buf)
	return nil
}

// Pop removes and discards the front element.
func (m MutableQueueView) Pop() error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	h := m.h()
	if len(h.items) == 0 {
		return tserr.ErrOutOfRange
	}
	destroyInPlace(m.schema.Elem, h.items[0])
	h.items = h.items[1:]
	h.bufs = h.bufs[1:]
	return nil
}

// Clear empties the queue.
func (m MutableQueueView) Clear() error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	destroyQueue(m.schema, m.data)
	*m.h() = queueHeader{}
	return nil
}

/* -------------------------------------------------------------------------
   Host conversion: an []any front-to-back.
   ------------------------------------------------------------------------- */

// ToHost converts this queue to an []any, front (next-to-pop) element
// first.
func (q QueueView) ToHost() (any, error) {
	h := q.h()
	out := make([]any, len(h.items))
	for i, p := range h.items {
		ev := View{data: p, schema: q.schema.Elem}
		hv, err := ev.ToHost()
		if err != nil {
			return nil, err
		}
		out[i] = hv
	}
	return out, nil
}

// FromHost replaces this queue's contents with host, an []any ordered
// front to back; the queue is cleared first, then every element pushed
// in order.
func (m MutableQueueView) FromHost(host any) error {
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
