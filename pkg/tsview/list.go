package tsview

import (
	"github.com/flowgraph/tscore/pkg/overlay"
	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/value"
)

// Size returns the current element count.
func (v TSView) Size() int {
	lv, ok := value.AsList(v.View())
	if !ok {
		return 0
	}
	return lv.Size()
}

// Element returns a child cursor over index i. The per-slot overlay is
// created on first access and persists for the life of the owning
// TSValue, as an array of per-slot child overlays.
func (v TSView) Element(i int) (TSView, error) {
	if v.meta.Kind != overlay.KindTSL {
		return TSView{}, tserr.NewSchemaError("Element", "TSL", v.meta.Kind.String())
	}
	lv, _ := value.AsList(v.View())
	ev, err := lv.At(i)
	if err != nil {
		return TSView{}, err
	}
	childOv := v.ov.SlotOverlay(i, v.meta.Elem)
	return v.childBase(v.meta.Elem, childOv, ev.Data(), Step{Kind: StepElementAt, Index: i}), nil
}

// ListDelta is the result of TSLView.DeltaView: this tick's modified
// indices, paired with a cursor over each one.
type ListDelta struct {
	ModifiedIndices []int
	ModifiedViews   []TSView
}

// ListDeltaView returns the indices modified at exactly t, read from the
// incrementally-maintained delta buffer.
func (v TSView) ListDeltaView(t EngineTime) (ListDelta, error) {
	if v.meta.Kind != overlay.KindTSL {
		return ListDelta{}, tserr.NewSchemaError("DeltaView", "TSL", v.meta.Kind.String())
	}
	idxs := v.ov.ModifiedIndices(t)
	out := ListDelta{ModifiedIndices: idxs}
	for _, i := range idxs {
		ev, err := v.Element(i)
		if err != nil {
			return ListDelta{}, err
		}
		out.ModifiedViews = append(out.ModifiedViews, ev)
	}
	return out, nil
}

// ListEntry pairs an index with its element cursor.
type ListEntry struct {
	Index int
	Value TSView
}

// ValidIndices returns the indices of elements currently holding a value
// (list element validity, not a delta view).
func (v TSView) ValidIndices() ([]int, error) {
	if v.meta.Kind != overlay.KindTSL {
		return nil, tserr.NewSchemaError("ValidIndices", "TSL", v.meta.Kind.String())
	}
	lv, _ := value.AsList(v.View())
	var out []int
	for i := 0; i < lv.Size(); i++ {
		if lv.Valid(i) {
			out = append(out, i)
		}
	}
	return out, nil
}

// ValidValues returns a cursor over every element currently holding a
// value, in index order.
func (v TSView) ValidValues() ([]TSView, error) {
	idxs, err := v.ValidIndices()
	if err != nil {
		return nil, err
	}
	out := make([]TSView, 0, len(idxs))
	for _, i := range idxs {
		ev, err := v.Element(i)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// ValidItems returns every (index, element cursor) pair for elements
// currently holding a value, in index order.
func (v TSView) ValidItems() ([]ListEntry, error) {
	idxs, err := v.ValidIndices()
	if err != nil {
		return nil, err
	}
	out := make([]ListEntry, 0, len(idxs))
	for _, i := range idxs {
		ev, err := v.Element(i)
		if err != nil {
			return nil, err
		}
		out = append(out, ListEntry{Index: i, Value: ev})
	}
	return out, nil
}

/* -------------------------------------------------------------------------
   MutableTSView list writes
   ------------------------------------------------------------------------- */

// SetElement writes a host value at index i through a fresh child cursor.
func (m MutableTSView) SetElement(i int, host any) error {
	child, err := m.Element(i)
	if err != nil {
		return err
	}
	return MutableTSView{child}.SetValue(host)
}

// Push appends a new tracked element (for scalar-element lists; for
// composite elements, Push a zero-valued element then navigate to it and
// write fields individually). Pushing is itself a structural change and
// therefore invalidates pre-existing child TSViews of this list.
func (m MutableTSView) Push(src value.View) error {
	if m.meta.Kind != overlay.KindTSL {
		return tserr.NewSchemaError("Push", "TSL", m.meta.Kind.String())
	}
	mv, ok := value.AsMutableList(m.MutableView())
	if !ok {
		return tserr.ErrNotMutable
	}
	if err := mv.Push(src); err != nil {
		return err
	}
	idx := mv.Size() - 1
	m.ov.MarkContainerModified(m.currentTime)
	m.ov.PushListIndex(m.currentTime, idx)
	childOv := m.ov.SlotOverlay(idx, m.meta.Elem)
	childOv.StampLeaf(m.currentTime)
	m.bubble(m.currentTime)
	return nil
}
