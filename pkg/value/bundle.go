package value

import (
	"fmt"
	"unsafe"

	"github.com/flowgraph/tscore/internal/bitset"
	"github.com/flowgraph/tscore/internal/unsafehelpers"
	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/typesys"
)

// Bundle/tuple storage is contiguous: t.Size bytes of field data laid out
// per FieldDesc.Offset, followed by a validity bitmap tail addressed by
// field index.

func bitsetSizeBytes(n int) int { return bitset.SizeBytes(n) }

func bundleValidity(t *typesys.TypeMeta, data unsafe.Pointer) bitset.View {
	return bitset.NewView(unsafehelpers.Add(data, t.Size), len(t.Fields))
}

func bundleFieldPtr(t *typesys.TypeMeta, data unsafe.Pointer, idx int) unsafe.Pointer {
	return unsafehelpers.Add(data, t.Fields[idx].Offset)
}

func constructBundle(t *typesys.TypeMeta, data unsafe.Pointer) {
	for i, f := range t.Fields {
		constructInPlace(f.Type, bundleFieldPtr(t, data, i))
	}
	// construct() sets validity TRUE for every constructed field.
	v := bundleValidity(t, data)
	v.ClearAll()
	for i := range t.Fields {
		v.Set(i, true)
	}
}

func destroyBundle(t *typesys.TypeMeta, data unsafe.Pointer) {
	valid := bundleValidity(t, data)
	for i, f := range t.Fields {
		if valid.Get(i) {
			destroyInPlace(f.Type, bundleFieldPtr(t, data, i))
		}
	}
}

func copyBundle(t *typesys.TypeMeta, dst, src unsafe.Pointer) {
	srcValid := bundleValidity(t, src)
	dstValid := bundleValidity(t, dst)
	for i, f := range t.Fields {
		if srcValid.Get(i) {
			copyInPlace(f.Type, bundleFieldPtr(t, dst, i), bundleFieldPtr(t, src, i))
		}
		dstValid.Set(i, srcValid.Get(i))
	}
}

func equalsBundle(t *typesys.TypeMeta, a, b unsafe.Pointer) bool {
	va, vb := bundleValidity(t, a), bundleValidity(t, b)
	for i, f := range t.Fields {
		av, bv := va.Get(i), vb.Get(i)
		if av != bv {
			return false
		}
		if av && !equalsInPlace(f.Type, bundleFieldPtr(t, a, i), bundleFieldPtr(t, b, i)) {
			return false
		}
	}
	return true
}

/* -------------------------------------------------------------------------
   Bundle view operations: as_bundle / at / set_at / field.
   ------------------------------------------------------------------------- */

// BundleView adapts a View over a Bundle or Tuple schema.
type BundleView struct{ View }

// AsBundle casts v to a BundleView, or returns false if v's schema isn't a
// Bundle or Tuple.
func AsBundle(v View) (BundleView, bool) {
	if v.schema == nil || (v.schema.Kind != typesys.KindBundle && v.schema.Kind != typesys.KindTuple) {
		return BundleView{}, false
	}
	return BundleView{v}, true
}

func (b BundleView) FieldCount() int { return len(b.schema.Fields) }

// FieldValid reports whether the field at idx currently holds a value.
func (b BundleView) FieldValid(idx int) bool {
	return bundleValidity(b.schema, b.data).Get(idx)
}

// At returns a nested View over field idx, whose schema is the field
// type, regardless of validity — callers check FieldValid.
func (b BundleView) At(idx int) (View, error) {
	if idx < 0 || idx >= len(b.schema.Fields) {
		return View{}, tserr.ErrOutOfRange
	}
	return View{data: bundleFieldPtr(b.schema, b.data, idx), schema: b.schema.Fields[idx].Type, mutable: b.mutable}, nil
}

// Field resolves a field by name via the schema's O(field_count) linear
// scan.
func (b BundleView) Field(name string) (View, error) {
	idx := b.schema.FieldIndex(name)
	if idx < 0 {
		return View{}, tserr.NewPathError("Field", name, tserr.ErrNotFound)
	}
	return b.At(idx)
}

// MutableBundleView is BundleView plus SetAt/SetField, which clear or set
// the validity bit and (for non-null sets) deep-copy the supplied value in.
type MutableBundleView struct{ BundleView }

// AsMutableBundle casts m to a MutableBundleView.
func AsMutableBundle(m MutableView) (MutableBundleView, bool) {
	bv, ok := AsBundle(m.View)
	if !ok {
		return MutableBundleView{}, false
	}
	return MutableBundleView{bv}, true
}

// SetAt writes src into field idx, or — if src is the zero View (IsValid()
// == false) — clears the field's validity bit without destroying/copying.
func (m MutableBundleView) SetAt(idx int, src View) error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	if idx < 0 || idx >= len(m.schema.Fields) {
		return tserr.ErrOutOfRange
	}
	field := m.schema.Fields[idx]
	valid := bundleValidity(m.schema, m.data)
	dst := bundleFieldPtr(m.schema, m.data, idx)
	if !src.IsValid() {
		if valid.Get(idx) {
			destroyInPlace(field.Type, dst)
		}
		valid.Set(idx, false)
		return nil
	}
	if src.schema != field.Type {
		return tserr.NewSchemaError("SetAt", field.Type.String(), src.schema.String())
	}
	if valid.Get(idx) {
		destroyInPlace(field.Type, dst)
	}
	constructInPlace(field.Type, dst)
	copyInPlace(field.Type, dst, src.data)
	valid.Set(idx, true)
	return nil
}

// SetField is SetAt resolved by field name.
func (m MutableBundleView) SetField(name string, src View) error {
	idx := m.schema.FieldIndex(name)
	if idx < 0 {
		return tserr.NewPathError("SetField", name, tserr.ErrNotFound)
	}
	return m.SetAt(idx, src)
}

/* -------------------------------------------------------------------------
   Host conversion: a Bundle accepts a keyed mapping, a Tuple an ordered
   sequence; to_host_object mirrors the same shape in reverse and reports
   host-null for every invalid field/slot.
   ------------------------------------------------------------------------- */

// ToHost converts this bundle to a host object. A Tuple (whose field
// names are all empty) converts to an ordered []any; a Bundle converts to
// a map[string]any keyed by field name. An invalid field/slot is still
// present in the result, holding nil, so callers can distinguish
// "deactivated" from "absent from the schema".
func (b BundleView) ToHost() (any, error) {
	if b.schema.Kind == typesys.KindTuple {
		out := make([]any, len(b.schema.Fields))
		for i := range b.schema.Fields {
			if !b.FieldValid(i) {
				continue
			}
			fv, err := b.At(i)
			if err != nil {
				return nil, err
			}
			hv, err := fv.ToHost()
			if err != nil {
				return nil, err
			}
			out[i] = hv
		}
		return out, nil
	}
	out := make(map[string]any, len(b.schema.Fields))
	for i, f := range b.schema.Fields {
		if !b.FieldValid(i) {
			out[f.Name] = nil
			continue
		}
		fv, err := b.At(i)
		if err != nil {
			return nil, err
		}
		hv, err := fv.ToHost()
		if err != nil {
			return nil, err
		}
		out[f.Name] = hv
	}
	return out, nil
}

// FromHost populates every field from host, accepted as a map[string]any
// keyed mapping or an []any ordered sequence matching field declaration
// order (the only form a Tuple accepts, since its field names are empty).
// A nil entry deactivates that field, mirroring ToHost's host-null
// convention; every other entry is converted via the field's own SetValue
// dispatch, so nested composites populate recursively.
func (m MutableBundleView) FromHost(host any) error {
	switch h := host.(type) {
	case map[string]any:
		for name, fv := range h {
			idx := m.schema.FieldIndex(name)
			if idx < 0 {
				return tserr.NewPathError("FromHost", name, tserr.ErrNotFound)
			}
			if err := m.setFieldHost(idx, fv); err != nil {
				return err
			}
		}
		return nil
	case []any:
		if len(h) != len(m.schema.Fields) {
			return tserr.ErrOutOfRange
		}
		for i, fv := range h {
			if err := m.setFieldHost(i, fv); err != nil {
				return err
			}
		}
		return nil
	default:
		return tserr.NewSchemaError("FromHost", "map[string]any or []any", fmt.Sprintf("%T", host))
	}
}

func (m MutableBundleView) setFieldHost(idx int, host any) error {
	field := m.schema.Fields[idx]
	if host == nil {
		return m.SetAt(idx, View{})
	}
	scratch, err := hostToScratchValue(field.Type, host)
	if err != nil {
		return err
	}
	defer scratch.Destroy()
	return m.SetAt(idx, scratch.View())
}
