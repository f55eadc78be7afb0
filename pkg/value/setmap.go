package value

import (
	"fmt"
	"unsafe"

	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/typesys"
)

/* -------------------------------------------------------------------------
   Set: a bare keySet.
   ------------------------------------------------------------------------- */

func setKeySet(data unsafe.Pointer) **keySet { return (**keySet)(data) }

func constructSet(t *typesys.TypeMeta, data unsafe.Pointer) {
	*setKeySet(data) = newKeySet(t.Elem)
}

func destroySet(t *typesys.TypeMeta, data unsafe.Pointer) {
	ks := *setKeySet(data)
	if ks != nil {
		ks.Clear()
	}
}

func copySet(t *typesys.TypeMeta, dst, src unsafe.Pointer) {
	*setKeySet(dst) = (*setKeySet(src)).clone()
}

func equalsSet(t *typesys.TypeMeta, a, b unsafe.Pointer) bool {
	ka, kb := *setKeySet(a), *setKeySet(b)
	if ka.Count() != kb.Count() {
		return false
	}
	equal := true
	ka.Iter(func(slot int) {
		if !equal {
			return
		}
		if !kb.Contains(ka.slotPtr(slot)) {
			equal = false
		}
	})
	return equal
}

// SetView adapts a View over a Set schema.
type SetView struct{ View }

func AsSet(v View) (SetView, bool) {
	if v.schema == nil || v.schema.Kind != typesys.KindSet {
		return SetView{}, false
	}
	return SetView{v}, true
}

func (s SetView) ks() *keySet { return *setKeySet(s.data) }

// Size returns the live element count.
func (s SetView) Size() int { return s.ks().Count() }

// Contains reports whether host is a member, converting it via the
// element schema's FromHost first.
func (s SetView) Contains(host any) (bool, error) {
	probe, err := scratchScalar(s.schema.Elem, host)
	if err != nil {
		return false, err
	}
	defer destroyInPlace(s.schema.Elem, probe)
	return s.ks().Contains(probe), nil
}

// At returns a View over the live element at slot index i (not the i'th
// live element); i must be a currently-live slot index.
func (s SetView) At(slot int) (View, error) {
	ks := s.ks()
	if slot < 0 || slot >= len(ks.slots) || !ks.live.Contains(uint32(slot)) {
		return View{}, tserr.ErrOutOfRange
	}
	return View{data: ks.slotPtr(slot), schema: s.schema.Elem}, nil
}

// FindSlot resolves host to its live slot index, or -1 if absent.
func (s SetView) FindSlot(host any) (int, error) {
	probe, err := scratchScalar(s.schema.Elem, host)
	if err != nil {
		return -1, err
	}
	defer destroyInPlace(s.schema.Elem, probe)
	return s.ks().find(probe), nil
}

// Iter walks live slots in ascending order.
func (s SetView) Iter(fn func(slot int, v View)) {
	ks := s.ks()
	ks.Iter(func(slot int) { fn(slot, View{data: ks.slotPtr(slot), schema: s.schema.Elem}) })
}

// MutableSetView adds Add/Remove/Clear, each reporting the affected slot
// so the caller (pkg/overlay) can push delta entries.
type MutableSetView struct{ SetView }

func AsMutableSet(m MutableView) (MutableSetView, bool) {
	sv, ok := AsSet(m.View)
	if !ok {
		return MutableSetView{}, false
	}
	return MutableSetView{sv}, true
}

// Add interns host, returning the slot and whether it was newly added
// (false means host was already a member — an idempotent add).
func (m MutableSetView) Add(host any) (slot int, added bool, err error) {
	if !m.mutable {
		return 0, false, tserr.ErrNotMutable
	}
	probe, err := scratchScalar(m.schema.Elem, host)
	if err != nil {
		return 0, false, err
	}
	defer destroyInPlace(m.schema.Elem, probe)
	ks := m.ks()
	before := ks.Count()
	slot = ks.Add(probe)
	added = ks.Count() > before
	return slot, added, nil
}

// Remove erases host if present, returning the freed slot.
func (m MutableSetView) Remove(host any) (slot int, removed bool, err error) {
	if !m.mutable {
		return 0, false, tserr.ErrNotMutable
	}
	probe, err := scratchScalar(m.schema.Elem, host)
	if err != nil {
		return 0, false, err
	}
	defer destroyInPlace(m.schema.Elem, probe)
	ks := m.ks()
	slot = ks.find(probe)
	if slot < 0 {
		return 0, false, nil
	}
	ks.removeSlot(slot)
	return slot, true, nil
}

// Clear empties the set.
func (m MutableSetView) Clear() error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	m.ks().Clear()
	return nil
}

/* -------------------------------------------------------------------------
   Host conversion: an []any in ascending live-slot order.
   ------------------------------------------------------------------------- */

// ToHost converts this set to an []any, elements in ascending live-slot
// order (the same order Iter walks).
func (s SetView) ToHost() (any, error) {
	out := make([]any, 0, s.Size())
	var convErr error
	s.Iter(func(slot int, v View) {
		if convErr != nil {
			return
		}
		hv, err := v.ToHost()
		if err != nil {
			convErr = err
			return
		}
		out = append(out, hv)
	})
	if convErr != nil {
		return nil, convErr
	}
	return out, nil
}

// FromHost replaces this set's contents with host, an []any of scalar
// elements; the set is cleared first, then every element added in order.
func (m MutableSetView) FromHost(host any) error {
	items, ok := host.([]any)
	if !ok {
		return tserr.NewSchemaError("FromHost", "[]any", fmt.Sprintf("%T", host))
	}
	if err := m.Clear(); err != nil {
		return err
	}
	for _, it := range items {
		if _, _, err := m.Add(it); err != nil {
			return err
		}
	}
	return nil
}

/* -------------------------------------------------------------------------
   Map: keySet + parallel value array.
   ------------------------------------------------------------------------- */

type mapHeader struct {
	keys     *keySet
	values   []unsafe.Pointer
	valueBuf [][]byte
	valid    []bool // per-slot: does this slot have a constructed value (deferred-value semantics)
}

func mapHeaderPtr(data unsafe.Pointer) *mapHeader { return (*mapHeader)(data) }

func constructMap(t *typesys.TypeMeta, data unsafe.Pointer) {
	*mapHeaderPtr(data) = mapHeader{keys: newKeySet(t.Key)}
}

func destroyMap(t *typesys.TypeMeta, data unsafe.Pointer) {
	h := mapHeaderPtr(data)
	for slot, v := range h.valid {
		if v {
			destroyInPlace(t.Elem, h.values[slot])
		}
	}
	if h.keys != nil {
		h.keys.Clear()
	}
}

func copyMap(t *typesys.TypeMeta, dst, src unsafe.Pointer) {
	sh, dh := mapHeaderPtr(src), mapHeaderPtr(dst)
	destroyMap(t, dst)
	*dh = mapHeader{keys: sh.keys.clone()}
	dh.values = make([]unsafe.Pointer, len(sh.values))
	dh.valueBuf = make([][]byte, len(sh.valueBuf))
	dh.valid = make([]bool, len(sh.valid))
	for slot, ok := range sh.valid {
		if !ok {
			continue
		}
		buf := make([]byte, len(sh.valueBuf[slot]))
		constructInPlace(t.Elem, unsafe.Pointer(&buf[0]))
		copyInPlace(t.Elem, unsafe.Pointer(&buf[0]), sh.values[slot])
		dh.valueBuf[slot] = buf
		dh.values[slot] = unsafe.Pointer(&buf[0])
		dh.valid[slot] = true
	}
}

func equalsMap(t *typesys.TypeMeta, a, b unsafe.Pointer) bool {
	ha, hb := mapHeaderPtr(a), mapHeaderPtr(b)
	if ha.keys.Count() != hb.keys.Count() {
		return false
	}
	equal := true
	ha.keys.Iter(func(slot int) {
		if !equal {
			return
		}
		bSlot := hb.keys.find(ha.keys.slotPtr(slot))
		if bSlot < 0 {
			equal = false
			return
		}
		av, bv := ha.valid[slot], hb.valid[bSlot]
		if av != bv {
			equal = false
			return
		}
		if av && !equalsInPlace(t.Elem, ha.values[slot], hb.values[bSlot]) {
			equal = false
		}
	})
	return equal
}

func (h *mapHeader) ensureValueSlot(t *typesys.TypeMeta, slot int) unsafe.Pointer {
	for len(h.values) <= slot {
		h.values = append(h.values, nil)
		h.valueBuf = append(h.valueBuf, nil)
		h.valid = append(h.valid, false)
	}
	if h.values[slot] == nil {
		buf := make([]byte, t.Elem.Size)
		if len(buf) == 0 {
			buf = make([]byte, 1)
		}
		h.valueBuf[slot] = buf
		h.values[slot] = unsafe.Pointer(&buf[0])
	}
	return h.values[slot]
}

// MapView adapts a View over a Map schema.
type MapView struct{ View }

func AsMap(v View) (MapView, bool) {
	if v.schema == nil || v.schema.Kind != typesys.KindMap {
		return MapView{}, false
	}
	return MapView{v}, true
}

func (m MapView) h() *mapHeader { return mapHeaderPtr(m.data) }

// Size returns the number of keys currently present (regardless of
// whether their value has been set yet — deferred-value semantics).
func (m MapView) Size() int { return m.h().keys.Count() }

// Contains reports whether host (converted via the key schema) is present.
func (m MapView) Contains(host any) (bool, error) {
	probe, err := scratchScalar(m.schema.Key, host)
	if err != nil {
		return false, err
	}
	defer destroyInPlace(m.schema.Key, probe)
	return m.h().keys.Contains(probe), nil
}

// At resolves host to its value View, or tserr.ErrNotFound if absent.
func (m MapView) At(host any) (View, error) {
	probe, err := scratchScalar(m.schema.Key, host)
	if err != nil {
		return View{}, err
	}
	defer destroyInPlace(m.schema.Key, probe)
	h := m.h()
	slot := h.keys.find(probe)
	if slot < 0 {
		return View{}, tserr.ErrNotFound
	}
	if slot >= len(h.valid) || !h.valid[slot] {
		return View{}, tserr.ErrNotFound
	}
	return View{data: h.values[slot], schema: m.schema.Elem}, nil
}

// AtSlot resolves an already-known live slot directly, for TSD navigation
// that holds a slot index rather than a key (per-slot value overlays).
func (m MapView) AtSlot(slot int) (View, error) {
	h := m.h()
	if slot < 0 || slot >= len(h.valid) || !h.valid[slot] || !h.keys.live.Contains(uint32(slot)) {
		return View{}, tserr.ErrOutOfRange
	}
	return View{data: h.values[slot], schema: m.schema.Elem}, nil
}

// FindSlot resolves host to its live slot index, or -1 if absent. Used by
// TSD navigation, which needs the slot to locate the per-key overlay.
func (m MapView) FindSlot(host any) (int, error) {
	probe, err := scratchScalar(m.schema.Key, host)
	if err != nil {
		return -1, err
	}
	defer destroyInPlace(m.schema.Key, probe)
	return m.h().keys.find(probe), nil
}

// KeyAt returns the key stored at slot (for reverse lookups / iteration).
func (m MapView) KeyAt(slot int) View {
	ks := m.h().keys
	return View{data: ks.slotPtr(slot), schema: m.schema.Key}
}

// Iter walks live slots in ascending order.
func (m MapView) Iter(fn func(slot int, key, val View)) {
	h := m.h()
	h.keys.Iter(func(slot int) {
		var val View
		if slot < len(h.valid) && h.valid[slot] {
			val = View{data: h.values[slot], schema: m.schema.Elem}
		}
		fn(slot, View{data: h.keys.slotPtr(slot), schema: m.schema.Key}, val)
	})
}

// MutableMapView adds SetItem/Remove/Clear.
type MutableMapView struct{ MapView }

func AsMutableMap(mv MutableView) (MutableMapView, bool) {
	m, ok := AsMap(mv.View)
	if !ok {
		return MutableMapView{}, false
	}
	return MutableMapView{m}, true
}

// SetItem inserts or updates key -> value (value may be the zero View for
// deferred-value semantics: the key becomes present with no value yet).
// Returns the slot and whether the key was newly added.
func (m MutableMapView) SetItem(keyHost any, val View) (slot int, added bool, err error) {
	if !m.mutable {
		return 0, false, tserr.ErrNotMutable
	}
	probe, err := scratchScalar(m.schema.Key, keyHost)
	if err != nil {
		return 0, false, err
	}
	defer destroyInPlace(m.schema.Key, probe)
	h := m.h()
	before := h.keys.Count()
	slot = h.keys.Add(probe)
	added = h.keys.Count() > before
	if val.IsValid() {
		if val.schema != m.schema.Elem {
			return slot, added, tserr.NewSchemaError("SetItem", m.schema.Elem.String(), val.schema.String())
		}
		dst := h.ensureValueSlot(m.schema, slot)
		if slot < len(h.valid) && h.valid[slot] {
			destroyInPlace(m.schema.Elem, dst)
		}
		constructInPlace(m.schema.Elem, dst)
		copyInPlace(m.schema.Elem, dst, val.data)
		h.valid[slot] = true
	}
	return slot, added, nil
}

// Remove erases keyHost if present, returning the freed slot.
func (m MutableMapView) Remove(keyHost any) (slot int, removed bool, err error) {
	if !m.mutable {
		return 0, false, tserr.ErrNotMutable
	}
	probe, err := scratchScalar(m.schema.Key, keyHost)
	if err != nil {
		return 0, false, err
	}
	defer destroyInPlace(m.schema.Key, probe)
	h := m.h()
	s := h.keys.find(probe)
	if s < 0 {
		return 0, false, nil
	}
	if s < len(h.valid) && h.valid[s] {
		destroyInPlace(m.schema.Elem, h.values[s])
		h.valid[s] = false
	}
	h.keys.removeSlot(s)
	return s, true, nil
}

// Clear empties the map.
func (m MutableMapView) Clear() error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	destroyMap(m.schema, m.data)
	*m.h() = mapHeader{keys: newKeySet(m.schema.Key)}
	return nil
}

/* -------------------------------------------------------------------------
   Host conversion: a map[any]any; a nil value marks a present-but-unset
   (deferred-value) key, mirroring SetItem's zero-View convention.
   ------------------------------------------------------------------------- */

// ToHost converts this map to a map[any]any keyed by the converted host
// key. A key with no value set yet (deferred-value semantics) maps to
// nil.
func (m MapView) ToHost() (any, error) {
	out := make(map[any]any, m.Size())
	var convErr error
	m.Iter(func(slot int, key, val View) {
		if convErr != nil {
			return
		}
		hk, err := key.ToHost()
		if err != nil {
			convErr = err
			return
		}
		if !val.IsValid() {
			out[hk] = nil
			return
		}
		hv, err := val.ToHost()
		if err != nil {
			convErr = err
			return
		}
		out[hk] = hv
	})
	if convErr != nil {
		return nil, convErr
	}
	return out, nil
}

// FromHost replaces this map's contents with host, a map[any]any of
// scalar keys. A nil value leaves the key present with no value set
// (deferred-value semantics); any other value is converted via the
// element schema's own SetValue dispatch.
func (m MutableMapView) FromHost(host any) error {
	items, ok := host.(map[any]any)
	if !ok {
		return tserr.NewSchemaError("FromHost", "map[any]any", fmt.Sprintf("%T", host))
	}
	if err := m.Clear(); err != nil {
		return err
	}
	for k, v := range items {
		if v == nil {
			if _, _, err := m.SetItem(k, View{}); err != nil {
				return err
			}
			continue
		}
		scratch, err := hostToScratchValue(m.schema.Elem, v)
		if err != nil {
			return err
		}
		_, _, err = m.SetItem(k, scratch.View())
		scratch.Destroy()
		if err != nil {
			return err
		}
	}
	return nil
}

/* -------------------------------------------------------------------------
   scratchScalar: a stack-lifetime scratch Value for a scalar key/element
   converted from a host object, used by Set/Map lookups so callers never
   have to build a throwaway Value themselves.
   ------------------------------------------------------------------------- */

// FromHostScratch builds a throwaway scalar View converted from host,
// suitable as the src argument to SetItem/SetAt/SetField/Push when the
// caller only has a dynamically-typed host value rather than an existing
// View. The returned release func must be called once the View is no
// longer needed (it destroys the scratch storage; it does not free the
// final copy made by whichever SetXxx call consumed it).
func FromHostScratch(schema *typesys.TypeMeta, host any) (v View, release func(), err error) {
	p, err := scratchScalar(schema, host)
	if err != nil {
		return View{}, func() {}, err
	}
	return View{data: p, schema: schema}, func() { destroyInPlace(schema, p) }, nil
}

func scratchScalar(schema *typesys.TypeMeta, host any) (unsafe.Pointer, error) {
	if host == nil {
		return nil, tserr.ErrNullNotAllowed
	}
	buf := make([]byte, schema.Size)
	if len(buf) == 0 {
		buf = make([]byte, 1)
	}
	p := unsafe.Pointer(&buf[0])
	constructInPlace(schema, p)
	if schema.Kind == typesys.KindScalar {
		if err := schema.Scalar.FromHost(p, host); err != nil {
			destroyInPlace(schema, p)
			return nil, err
		}
		return p, nil
	}
	return nil, tserr.NewSchemaError("scratchScalar", "Scalar", schema.Kind.String())
}
