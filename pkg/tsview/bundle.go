package tsview

import (
	"github.com/flowgraph/tscore/pkg/overlay"
	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/value"
)

// FieldCount returns the number of fields.
func (v TSView) FieldCount() int {
	bv, ok := value.AsBundle(v.View())
	if !ok {
		return 0
	}
	return bv.FieldCount()
}

// FieldAt returns a child cursor over field i.
func (v TSView) FieldAt(i int) (TSView, error) {
	if v.meta.Kind != overlay.KindTSB {
		return TSView{}, tserr.NewSchemaError("FieldAt", "TSB", v.meta.Kind.String())
	}
	bv, _ := value.AsBundle(v.View())
	fv, err := bv.At(i)
	if err != nil {
		return TSView{}, err
	}
	childMeta := v.meta.Children[i]
	childOv := v.ov.Field(i)
	return v.childBase(childMeta, childOv, fv.Data(), Step{Kind: StepFieldByIndex, Index: i}), nil
}

// Field resolves a field by name.
func (v TSView) Field(name string) (TSView, error) {
	idx := v.schema.FieldIndex(name)
	if idx < 0 {
		return TSView{}, tserr.NewPathError("Field", name, tserr.ErrNotFound)
	}
	return v.FieldAt(idx)
}

// Keys returns every field name, in declaration order.
func (v TSView) Keys() []string {
	out := make([]string, len(v.schema.Fields))
	for i, f := range v.schema.Fields {
		out[i] = f.Name
	}
	return out
}

// BundleEntry pairs a field name with its cursor.
type BundleEntry struct {
	Name  string
	Value TSView
}

// Items returns every (field name, cursor) pair, in declaration order,
// regardless of whether the field currently holds a value.
func (v TSView) Items() ([]BundleEntry, error) {
	if v.meta.Kind != overlay.KindTSB {
		return nil, tserr.NewSchemaError("Items", "TSB", v.meta.Kind.String())
	}
	out := make([]BundleEntry, len(v.schema.Fields))
	for i, f := range v.schema.Fields {
		fv, err := v.FieldAt(i)
		if err != nil {
			return nil, err
		}
		out[i] = BundleEntry{Name: f.Name, Value: fv}
	}
	return out, nil
}

// ValidKeys returns the names of fields that currently hold a value.
func (v TSView) ValidKeys() ([]string, error) {
	if v.meta.Kind != overlay.KindTSB {
		return nil, tserr.NewSchemaError("ValidKeys", "TSB", v.meta.Kind.String())
	}
	bv, _ := value.AsBundle(v.View())
	var out []string
	for i, f := range v.schema.Fields {
		if bv.FieldValid(i) {
			out = append(out, f.Name)
		}
	}
	return out, nil
}

// ValidValues returns a cursor over every field that currently holds a
// value, in declaration order.
func (v TSView) ValidValues() ([]TSView, error) {
	if v.meta.Kind != overlay.KindTSB {
		return nil, tserr.NewSchemaError("ValidValues", "TSB", v.meta.Kind.String())
	}
	bv, _ := value.AsBundle(v.View())
	var out []TSView
	for i := range v.schema.Fields {
		if !bv.FieldValid(i) {
			continue
		}
		fv, err := v.FieldAt(i)
		if err != nil {
			return nil, err
		}
		out = append(out, fv)
	}
	return out, nil
}

// ValidItems is Items filtered to fields that currently hold a value.
func (v TSView) ValidItems() ([]BundleEntry, error) {
	if v.meta.Kind != overlay.KindTSB {
		return nil, tserr.NewSchemaError("ValidItems", "TSB", v.meta.Kind.String())
	}
	bv, _ := value.AsBundle(v.View())
	var out []BundleEntry
	for i, f := range v.schema.Fields {
		if !bv.FieldValid(i) {
			continue
		}
		fv, err := v.FieldAt(i)
		if err != nil {
			return nil, err
		}
		out = append(out, BundleEntry{Name: f.Name, Value: fv})
	}
	return out, nil
}

// BundleDelta is the result of TSBView.DeltaView: the fields that changed
// at the queried tick, with their current values. Computed on demand by
// scanning child overlays rather than maintaining an incremental buffer
// as TSL/TSD/TSS do, since field_count is small and fixed (same rationale
// as FieldIndex's O(field_count) scan).
type BundleDelta struct {
	ModifiedIndices []int
	ModifiedViews   []TSView
}

// BundleDeltaView returns the fields modified at exactly t, or an empty
// result if the bundle's container-level timestamp doesn't match t — every
// delta view is valid only at the tick-time it was obtained.
func (v TSView) BundleDeltaView(t EngineTime) (BundleDelta, error) {
	if v.meta.Kind != overlay.KindTSB {
		return BundleDelta{}, tserr.NewSchemaError("DeltaView", "TSB", v.meta.Kind.String())
	}
	var out BundleDelta
	if v.ov.LastModified() != t {
		return out, nil
	}
	for i := range v.meta.Children {
		fv, err := v.FieldAt(i)
		if err != nil {
			return BundleDelta{}, err
		}
		if fv.ov.LastModified() == t {
			out.ModifiedIndices = append(out.ModifiedIndices, i)
			out.ModifiedViews = append(out.ModifiedViews, fv)
		}
	}
	return out, nil
}

/* -------------------------------------------------------------------------
   MutableTSView bundle writes
   ------------------------------------------------------------------------- */

// SetField writes src (a host value, converted via the field's scalar
// schema) into the named field through a fresh child cursor, stamping and
// bubbling as a single leaf write.
func (m MutableTSView) SetField(name string, host any) error {
	child, err := m.Field(name)
	if err != nil {
		return err
	}
	return MutableTSView{child}.SetValue(host)
}
