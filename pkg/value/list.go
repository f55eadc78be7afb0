package value

import (
	"fmt"
	"unsafe"

	"github.com/flowgraph/tscore/internal/bitset"
	"github.com/flowgraph/tscore/internal/unsafehelpers"
	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/typesys"
)

// Dynamic list storage is (bytes []byte, validity []byte, size int). A
// fixed-size list reuses the same header but bytes/validity are
// pre-sized to FixedSize and never reallocated; resize/clear on a fixed
// list is a FixedSizeViolation.
type listHeader struct {
	bytes    []byte
	validity []byte
	size     int // number of logical elements (<= FixedSize for fixed lists)
}

func listHeaderPtr(data unsafe.Pointer) *listHeader { return (*listHeader)(data) }

func constructList(t *typesys.TypeMeta, data unsafe.Pointer) {
	h := listHeaderPtr(data)
	*h = listHeader{}
	if t.FixedSize > 0 {
		h.bytes = make([]byte, int(t.Elem.Size)*t.FixedSize)
		h.validity = make([]byte, bitset.SizeBytes(t.FixedSize))
		h.size = t.FixedSize
		for i := 0; i < t.FixedSize; i++ {
			constructInPlace(t.Elem, listElemPtr(t, h, i))
		}
		bitset.NewView(unsafe.Pointer(&h.validity[0]), t.FixedSize).ClearAll()
		for i := 0; i < t.FixedSize; i++ {
			bitset.NewView(unsafe.Pointer(&h.validity[0]), t.FixedSize).Set(i, true)
		}
	}
}

func listElemPtr(t *typesys.TypeMeta, h *listHeader, i int) unsafe.Pointer {
	return unsafehelpers.Add(unsafe.Pointer(&h.bytes[0]), uintptr(i)*t.Elem.Size)
}

func listValidity(t *typesys.TypeMeta, h *listHeader) bitset.View {
	if len(h.validity) == 0 {
		return bitset.View{}
	}
	return bitset.NewView(unsafe.Pointer(&h.validity[0]), len(h.validity)*8)
}

func destroyList(t *typesys.TypeMeta, data unsafe.Pointer) {
	h := listHeaderPtr(data)
	if h.size == 0 || len(h.bytes) == 0 {
		return
	}
	valid := listValidity(t, h)
	for i := 0; i < h.size; i++ {
		if valid.Get(i) {
			destroyInPlace(t.Elem, listElemPtr(t, h, i))
		}
	}
}

func copyList(t *typesys.TypeMeta, dst, src unsafe.Pointer) {
	sh, dh := listHeaderPtr(src), listHeaderPtr(dst)
	destroyList(t, dst)
	*dh = listHeader{size: sh.size}
	if sh.size > 0 {
		dh.bytes = make([]byte, len(sh.bytes))
		dh.validity = make([]byte, len(sh.validity))
		copy(dh.validity, sh.validity)
		sv := listValidity(t, sh)
		for i := 0; i < sh.size; i++ {
			if sv.Get(i) {
				constructInPlace(t.Elem, listElemPtr(t, dh, i))
				copyInPlace(t.Elem, listElemPtr(t, dh, i), listElemPtr(t, sh, i))
			}
		}
	}
}

func equalsList(t *typesys.TypeMeta, a, b unsafe.Pointer) bool {
	ah, bh := listHeaderPtr(a), listHeaderPtr(b)
	if ah.size != bh.size {
		return false
	}
	av, bv := listValidity(t, ah), listValidity(t, bh)
	for i := 0; i < ah.size; i++ {
		x, y := av.Get(i), bv.Get(i)
		if x != y {
			return false
		}
		if x && !equalsInPlace(t.Elem, listElemPtr(t, ah, i), listElemPtr(t, bh, i)) {
			return false
		}
	}
	return true
}

/* -------------------------------------------------------------------------
   ListView
   ------------------------------------------------------------------------- */

// ListView adapts a View over a List schema.
type ListView struct{ View }

func AsList(v View) (ListView, bool) {
	if v.schema == nil || v.schema.Kind != typesys.KindList {
		return ListView{}, false
	}
	return ListView{v}, true
}

func (l ListView) header() *listHeader { return listHeaderPtr(l.data) }

// Size returns the current logical element count.
func (l ListView) Size() int { return l.header().size }

func (l ListView) Valid(i int) bool {
	h := l.header()
	if i < 0 || i >= h.size {
		return false
	}
	return listValidity(l.schema, h).Get(i)
}

// At returns a nested View over element i.
func (l ListView) At(i int) (View, error) {
	h := l.header()
	if i < 0 || i >= h.size {
		return View{}, tserr.ErrOutOfRange
	}
	return View{data: listElemPtr(l.schema, h, i), schema: l.schema.Elem, mutable: l.mutable}, nil
}

// MutableListView adds SetAt/Push/Pop/Resize/Clear.
type MutableListView struct{ ListView }

func AsMutableList(m MutableView) (MutableListView, bool) {
	lv, ok := AsList(m.View)
	if !ok {
		return MutableListView{}, false
	}
	return MutableListView{lv}, true
}

// SetAt writes src into element i (src.IsValid()==false clears the
// validity bit without calling copy).
func (m MutableListView) SetAt(i int, src View) error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	h := m.header()
	if i < 0 || i >= h.size {
		return tserr.ErrOutOfRange
	}
	valid := listValidity(m.schema, h)
	dst := listElemPtr(m.schema, h, i)
	if !src.IsValid() {
		if valid.Get(i) {
			destroyInPlace(m.schema.Elem, dst)
		}
		valid.Set(i, false)
		return nil
	}
	if src.schema != m.schema.Elem {
		return tserr.NewSchemaError("SetAt", m.schema.Elem.String(), src.schema.String())
	}
	if valid.Get(i) {
		destroyInPlace(m.schema.Elem, dst)
	}
	constructInPlace(m.schema.Elem, dst)
	copyInPlace(m.schema.Elem, dst, src.data)
	valid.Set(i, true)
	return nil
}

// Push appends a new element (dynamic lists only), growing storage by
// doubling when capacity is exhausted — element-wise move-construct into
// the new buffer then destroy the old one, required for non-trivially
// copyable element types; Go has no trivially-copyable fast path distinct
// from this (there's no memcpy-and-forget shortcut
// without reflection on the element's Go representation), so growth
// always goes through the schema's construct/copy/destroy triad.
func (m MutableListView) Push(src View) error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	if m.schema.FixedSize > 0 {
		return tserr.ErrFixedSizeViolation
	}
	if src.schema != m.schema.Elem {
		return tserr.NewSchemaError("Push", m.schema.Elem.String(), src.schema.String())
	}
	h := m.header()
	elemSize := int(m.schema.Elem.Size)
	cap := 0
	if elemSize > 0 {
		cap = len(h.bytes) / elemSize
	}
	if h.size >= cap {
		newCap := cap*2 + 1
		newBytes := make([]byte, newCap*elemSize)
		newValidity := make([]byte, bitset.SizeBytes(newCap))
		newH := &listHeader{bytes: newBytes, validity: newValidity, size: h.size}
		oldValid := listValidity(m.schema, h)
		for i := 0; i < h.size; i++ {
			constructInPlace(m.schema.Elem, listElemPtr(m.schema, newH, i))
			if oldValid.Get(i) {
				copyInPlace(m.schema.Elem, listElemPtr(m.schema, newH, i), listElemPtr(m.schema, h, i))
			}
			listValidity(m.schema, newH).Set(i, oldValid.Get(i))
		}
		destroyList(m.schema, m.data) // release old elements' resources
		*h = *newH
	}
	constructInPlace(m.schema.Elem, listElemPtr(m.schema, h, h.size))
	copyInPlace(m.schema.Elem, listElemPtr(m.schema, h, h.size), src.data)
	listValidity(m.schema, h).Set(h.size, true)
	h.size++
	return nil
}

// Pop destroys the last element and clears its validity bit; the backing
// storage is not shrunk.
func (m MutableListView) Pop() error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	if m.schema.FixedSize > 0 {
		return tserr.ErrFixedSizeViolation
	}
	h := m.header()
	if h.size == 0 {
		return tserr.ErrOutOfRange
	}
	last := h.size - 1
	if listValidity(m.schema, h).Get(last) {
		destroyInPlace(m.schema.Elem, listElemPtr(m.schema, h, last))
	}
	listValidity(m.schema, h).Set(last, false)
	h.size = last
	return nil
}

// Resize changes the logical element count (dynamic lists only). Growing
// default-constructs and marks new slots valid; shrinking destroys and
// clears trailing validity bits.
func (m MutableListView) Resize(n int) error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	if m.schema.FixedSize > 0 {
		return tserr.ErrFixedSizeViolation
	}
	h := m.header()
	if n < 0 {
		return tserr.ErrOutOfRange
	}
	for h.size > n {
		if err := m.Pop(); err != nil {
			return err
		}
	}
	for h.size < n {
		elemSize := int(m.schema.Elem.Size)
		cap := 0
		if elemSize > 0 {
			cap = len(h.bytes) / elemSize
		}
		if h.size >= cap {
			newCap := cap*2 + 1
			newBytes := make([]byte, newCap*elemSize)
			newValidity := make([]byte, bitset.SizeBytes(newCap))
			newH := &listHeader{bytes: newBytes, validity: newValidity, size: h.size}
			oldValid := listValidity(m.schema, h)
			for i := 0; i < h.size; i++ {
				constructInPlace(m.schema.Elem, listElemPtr(m.schema, newH, i))
				if oldValid.Get(i) {
					copyInPlace(m.schema.Elem, listElemPtr(m.schema, newH, i), listElemPtr(m.schema, h, i))
				}
				listValidity(m.schema, newH).Set(i, oldValid.Get(i))
			}
			destroyList(m.schema, m.data)
			*h = *newH
		}
		constructInPlace(m.schema.Elem, listElemPtr(m.schema, h, h.size))
		listValidity(m.schema, h).Set(h.size, true)
		h.size++
	}
	return nil
}

// Clear empties a dynamic list (FixedSizeViolation on a fixed list).
func (m MutableListView) Clear() error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	if m.schema.FixedSize > 0 {
		return tserr.ErrFixedSizeViolation
	}
	destroyList(m.schema, m.data)
	h := m.header()
	h.size = 0
	h.bytes = nil
	h.validity = nil
	return nil
}

/* -------------------------------------------------------------------------
   Host conversion: an ordered []any, a nil entry marking an invalid
   (deactivated) element.
   ------------------------------------------------------------------------- */

// ToHost converts this list to an ordered []any. An invalid element is
// still present in the result, holding nil.
func (l ListView) ToHost() (any, error) {
	n := l.Size()
	out := make([]any, n)
	for i := 0; i < n; i++ {
		if !l.Valid(i) {
			continue
		}
		ev, err := l.At(i)
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

// FromHost replaces this list's contents with host, an ordered []any. A
// fixed-size list requires len(host) == FixedSize and writes in place; a
// dynamic list is cleared first, then every element pushed in order. A
// nil entry becomes an invalid (deactivated) element rather than being
// converted.
func (m MutableListView) FromHost(host any) error {
	items, ok := host.([]any)
	if !ok {
		return tserr.NewSchemaError("FromHost", "[]any", fmt.Sprintf("%T", host))
	}
	if m.schema.FixedSize > 0 {
		if len(items) != m.schema.FixedSize {
			return tserr.ErrFixedSizeViolation
		}
		for i, it := range items {
			if err := m.setElemHost(i, it); err != nil {
				return err
			}
		}
		return nil
	}
	if err := m.Clear(); err != nil {
		return err
	}
	for _, it := range items {
		if err := m.pushHost(it); err != nil {
			return err
		}
	}
	return nil
}

func (m MutableListView) setElemHost(i int, host any) error {
	if host == nil {
		return m.SetAt(i, View{})
	}
	scratch, err := hostToScratchValue(m.schema.Elem, host)
	if err != nil {
		return err
	}
	defer scratch.Destroy()
	return m.SetAt(i, scratch.View())
}

func (m MutableListView) pushHost(host any) error {
	if host == nil {
		placeholder := New(m.schema.Elem, nil)
		defer placeholder.Destroy()
		if err := m.Push(placeholder.View()); err != nil {
			return err
		}
		return m.SetAt(m.Size()-1, View{})
	}
	scratch, err := hostToScratchValue(m.schema.Elem, host)
	if err != nil {
		return err
	}
	defer scratch.Destroy()
	return m.Push(scratch.View())
}
