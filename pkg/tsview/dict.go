package tsview

import (
	"github.com/flowgraph/tscore/pkg/overlay"
	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/typesys"
	"github.com/flowgraph/tscore/pkg/value"
)

// DictSize returns the number of keys currently present.
func (v TSView) DictSize() int {
	mv, ok := value.AsMap(v.View())
	if !ok {
		return 0
	}
	return mv.Size()
}

// Contains reports whether host is a present key.
func (v TSView) Contains(host any) (bool, error) {
	mv, ok := value.AsMap(v.View())
	if !ok {
		return false, tserr.NewSchemaError("Contains", "TSD", v.meta.Kind.String())
	}
	return mv.Contains(host)
}

// At returns a child cursor over the value at key host.
func (v TSView) At(host any) (TSView, error) {
	if v.meta.Kind != overlay.KindTSD {
		return TSView{}, tserr.NewSchemaError("At", "TSD", v.meta.Kind.String())
	}
	mv, _ := value.AsMap(v.View())
	slot, err := mv.FindSlot(host)
	if err != nil {
		return TSView{}, err
	}
	if slot < 0 {
		return TSView{}, tserr.ErrNotFound
	}
	ev, err := mv.AtSlot(slot)
	if err != nil {
		return TSView{}, err
	}
	childOv := v.ov.SlotOverlay(slot, v.meta.Elem)
	return v.childBase(v.meta.Elem, childOv, ev.Data(), Step{Kind: StepMapSlot, Index: slot}), nil
}

// WasAdded reports whether host was added to the dict at exactly tick t.
func (v TSView) WasAdded(host any, t EngineTime) bool {
	added, _ := v.ov.DictDelta(t)
	return containsHost(added, host)
}

// WasRemoved reports whether host was removed from the dict at exactly t.
func (v TSView) WasRemoved(host any, t EngineTime) bool {
	_, removed := v.ov.DictDelta(t)
	return containsHost(removed, host)
}

func containsHost(xs []any, host any) bool {
	for _, x := range xs {
		if x == host {
			return true
		}
	}
	return false
}

// DictDelta is the result of TSDView.DeltaView: this tick's added keys
// (with values), and removed keys.
type DictDelta struct {
	AddedKeys   []any
	AddedViews  []TSView
	RemovedKeys []any
}

// DictDeltaView returns this tick's additions (with their current values)
// and removals (key only: removals retain the key values only).
func (v TSView) DictDeltaView(t EngineTime) (DictDelta, error) {
	if v.meta.Kind != overlay.KindTSD {
		return DictDelta{}, tserr.NewSchemaError("DeltaView", "TSD", v.meta.Kind.String())
	}
	added, removed := v.ov.DictDelta(t)
	out := DictDelta{AddedKeys: added, RemovedKeys: removed}
	for _, k := range added {
		cv, err := v.At(k)
		if err == nil {
			out.AddedViews = append(out.AddedViews, cv)
		}
	}
	return out, nil
}

// Keys returns every key currently present, including keys with no value
// set yet (deferred-value semantics), in ascending slot order.
func (v TSView) Keys() ([]any, error) {
	if v.meta.Kind != overlay.KindTSD {
		return nil, tserr.NewSchemaError("Keys", "TSD", v.meta.Kind.String())
	}
	mv, _ := value.AsMap(v.View())
	var out []any
	var convErr error
	mv.Iter(func(slot int, key, val value.View) {
		if convErr != nil {
			return
		}
		hk, err := key.ToHost()
		if err != nil {
			convErr = err
			return
		}
		out = append(out, hk)
	})
	if convErr != nil {
		return nil, convErr
	}
	return out, nil
}

// Values returns a cursor over every present key's value, in the same
// order as Keys. A key with no value set yet (deferred-value semantics)
// yields the zero TSView; check against TSView{} or prefer ValidValues
// to skip those entries outright.
func (v TSView) Values() ([]TSView, error) {
	if v.meta.Kind != overlay.KindTSD {
		return nil, tserr.NewSchemaError("Values", "TSD", v.meta.Kind.String())
	}
	mv, _ := value.AsMap(v.View())
	var out []TSView
	mv.Iter(func(slot int, key, val value.View) {
		if !val.IsValid() {
			out = append(out, TSView{})
			return
		}
		childOv := v.ov.SlotOverlay(slot, v.meta.Elem)
		out = append(out, v.childBase(v.meta.Elem, childOv, val.Data(), Step{Kind: StepMapSlot, Index: slot}))
	})
	return out, nil
}

// DictEntry pairs a key with its value cursor. Value is the zero TSView
// when the key has no value set yet (deferred-value semantics).
type DictEntry struct {
	Key   any
	Value TSView
}

// Items returns every (key, value cursor) pair, in Keys/Values order.
func (v TSView) Items() ([]DictEntry, error) {
	if v.meta.Kind != overlay.KindTSD {
		return nil, tserr.NewSchemaError("Items", "TSD", v.meta.Kind.String())
	}
	mv, _ := value.AsMap(v.View())
	var out []DictEntry
	var convErr error
	mv.Iter(func(slot int, key, val value.View) {
		if convErr != nil {
			return
		}
		hk, err := key.ToHost()
		if err != nil {
			convErr = err
			return
		}
		entry := DictEntry{Key: hk}
		if val.IsValid() {
			childOv := v.ov.SlotOverlay(slot, v.meta.Elem)
			entry.Value = v.childBase(v.meta.Elem, childOv, val.Data(), Step{Kind: StepMapSlot, Index: slot})
		}
		out = append(out, entry)
	})
	if convErr != nil {
		return nil, convErr
	}
	return out, nil
}

// ValidKeys is Keys filtered to keys that currently have a value set.
func (v TSView) ValidKeys() ([]any, error) {
	if v.meta.Kind != overlay.KindTSD {
		return nil, tserr.NewSchemaError("ValidKeys", "TSD", v.meta.Kind.String())
	}
	mv, _ := value.AsMap(v.View())
	var out []any
	var convErr error
	mv.Iter(func(slot int, key, val value.View) {
		if convErr != nil || !val.IsValid() {
			return
		}
		hk, err := key.ToHost()
		if err != nil {
			convErr = err
			return
		}
		out = append(out, hk)
	})
	if convErr != nil {
		return nil, convErr
	}
	return out, nil
}

// ValidValues is Values filtered to keys that currently have a value set.
func (v TSView) ValidValues() ([]TSView, error) {
	if v.meta.Kind != overlay.KindTSD {
		return nil, tserr.NewSchemaError("ValidValues", "TSD", v.meta.Kind.String())
	}
	mv, _ := value.AsMap(v.View())
	var out []TSView
	mv.Iter(func(slot int, key, val value.View) {
		if !val.IsValid() {
			return
		}
		childOv := v.ov.SlotOverlay(slot, v.meta.Elem)
		out = append(out, v.childBase(v.meta.Elem, childOv, val.Data(), Step{Kind: StepMapSlot, Index: slot}))
	})
	return out, nil
}

// ValidItems is Items filtered to keys that currently have a value set.
func (v TSView) ValidItems() ([]DictEntry, error) {
	if v.meta.Kind != overlay.KindTSD {
		return nil, tserr.NewSchemaError("ValidItems", "TSD", v.meta.Kind.String())
	}
	mv, _ := value.AsMap(v.View())
	var out []DictEntry
	var convErr error
	mv.Iter(func(slot int, key, val value.View) {
		if convErr != nil || !val.IsValid() {
			return
		}
		hk, err := key.ToHost()
		if err != nil {
			convErr = err
			return
		}
		childOv := v.ov.SlotOverlay(slot, v.meta.Elem)
		cv := v.childBase(v.meta.Elem, childOv, val.Data(), Step{Kind: StepMapSlot, Index: slot})
		out = append(out, DictEntry{Key: hk, Value: cv})
	})
	if convErr != nil {
		return nil, convErr
	}
	return out, nil
}

// KeySetView returns a snapshot value.SetView over this dict's current
// keys: a freshly built Set<key schema> Value, populated from every
// present key. It is a point-in-time copy, not a live cursor — it does
// not track subsequent dict mutations. The caller owns the returned
// Value and must Destroy it once done.
func (v TSView) KeySetView() (*value.Value, value.SetView, error) {
	if v.meta.Kind != overlay.KindTSD {
		return nil, value.SetView{}, tserr.NewSchemaError("KeySetView", "TSD", v.meta.Kind.String())
	}
	mv, _ := value.AsMap(v.View())
	setSchema := &typesys.TypeMeta{Kind: typesys.KindSet, Name: "set", Elem: mv.Schema().Key}
	snap := value.New(setSchema, nil)
	ms, _ := value.AsMutableSet(snap.MutView())
	var addErr error
	mv.Iter(func(slot int, key, val value.View) {
		if addErr != nil {
			return
		}
		hk, err := key.ToHost()
		if err != nil {
			addErr = err
			return
		}
		if _, _, err := ms.Add(hk); err != nil {
			addErr = err
		}
	})
	if addErr != nil {
		snap.Destroy()
		return nil, value.SetView{}, addErr
	}
	sv, _ := value.AsSet(snap.View())
	return snap, sv, nil
}

/* -------------------------------------------------------------------------
   MutableTSView dict writes
   ------------------------------------------------------------------------- */

// Set inserts or updates keyHost -> a host value converted via the value
// schema (scalar values only; for composite values use SetDeferred then
// navigate via At to write fields). Pushes an added-key delta entry when
// the key is new.
func (m MutableTSView) Set(keyHost, valHost any) error {
	if m.meta.Kind != overlay.KindTSD {
		return tserr.NewSchemaError("Set", "TSD", m.meta.Kind.String())
	}
	mv, ok := value.AsMutableMap(m.MutableView())
	if !ok {
		return tserr.ErrNotMutable
	}
	scratch, release, err := value.FromHostScratch(m.schema.Elem, valHost)
	if err != nil {
		return err
	}
	defer release()
	slot, added, err := mv.SetItem(keyHost, scratch)
	if err != nil {
		return err
	}
	m.ov.MarkContainerModified(m.currentTime)
	childOv := m.ov.SlotOverlay(slot, m.meta.Elem)
	childOv.StampLeaf(m.currentTime)
	if added {
		m.ov.PushAddedKey(m.currentTime, slot, keyHost)
	}
	m.bubble(m.currentTime)
	return nil
}

// SetDeferred inserts keyHost with no value yet (deferred-value
// semantics).
func (m MutableTSView) SetDeferred(keyHost any) error {
	if m.meta.Kind != overlay.KindTSD {
		return tserr.NewSchemaError("SetDeferred", "TSD", m.meta.Kind.String())
	}
	mv, ok := value.AsMutableMap(m.MutableView())
	if !ok {
		return tserr.ErrNotMutable
	}
	slot, added, err := mv.SetItem(keyHost, value.View{})
	if err != nil {
		return err
	}
	m.ov.MarkContainerModified(m.currentTime)
	if added {
		m.ov.PushAddedKey(m.currentTime, slot, keyHost)
	}
	m.bubble(m.currentTime)
	return nil
}

// Remove erases keyHost, pushing a removed-key delta entry if it was
// present.
func (m MutableTSView) Remove(keyHost any) error {
	if m.meta.Kind != overlay.KindTSD {
		return tserr.NewSchemaError("Remove", "TSD", m.meta.Kind.String())
	}
	mv, ok := value.AsMutableMap(m.MutableView())
	if !ok {
		return tserr.ErrNotMutable
	}
	_, removed, err := mv.Remove(keyHost)
	if err != nil {
		return err
	}
	if !removed {
		return tserr.ErrNotFound
	}
	m.ov.MarkContainerModified(m.currentTime)
	m.ov.PushRemovedKey(m.currentTime, keyHost)
	m.bubble(m.currentTime)
	return nil
}
