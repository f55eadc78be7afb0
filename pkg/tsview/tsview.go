package tsview

import (
	"unsafe"

	"github.com/flowgraph/tscore/internal/arena"
	"github.com/flowgraph/tscore/pkg/metrics"
	"github.com/flowgraph/tscore/pkg/overlay"
	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/typesys"
	"github.com/flowgraph/tscore/pkg/value"
)

// EngineTime re-exports overlay.EngineTime so callers outside pkg/overlay
// rarely need to import it directly.
type EngineTime = overlay.EngineTime

// TSValue is owning storage for a time-series-tracked value: a
// value.Value plus its overlay.Overlay, built in lockstep from one
// overlay.TSMeta, with parallel factories for each TSKind that build the
// value + overlay in lockstep.
type TSValue struct {
	meta    *overlay.TSMeta
	val     *value.Value
	ov      *overlay.Overlay
	metrics metrics.Sink
}

// NewTSValue constructs a TSValue for meta, allocating its value storage
// from a (nil for the heap allocator, else the given arena. Ref
// bind/unbind/deref-empty events go to a no-op sink until SetMetrics
// installs a real one (graph.Graph does this for every TSValue it
// builds).
func NewTSValue(meta *overlay.TSMeta, a *arena.Arena) *TSValue {
	return &TSValue{meta: meta, val: value.New(meta.Value, a), ov: overlay.New(meta), metrics: metrics.New(nil)}
}

// SetMetrics installs the sink that this TSValue's REF cursors report
// bind/unbind/deref-empty events to.
func (tv *TSValue) SetMetrics(s metrics.Sink) { tv.metrics = s }

// Meta returns the TSMeta this value was built from.
func (tv *TSValue) Meta() *overlay.TSMeta { return tv.meta }

// Destroy releases the underlying value storage, e.g. on node teardown.
func (tv *TSValue) Destroy() { tv.val.Destroy() }

// Root constructs a read-only cursor over tv at currentTime, with an empty
// path: captures current_time, root pointer, and an empty path.
func (tv *TSValue) Root(currentTime EngineTime) TSView {
	return TSView{
		meta:        tv.meta,
		ov:          tv.ov,
		data:        tv.val.View().Data(),
		schema:      tv.meta.Value,
		currentTime: currentTime,
		root:        tv,
	}
}

// RootMutable is Root's mutable counterpart.
func (tv *TSValue) RootMutable(currentTime EngineTime) MutableTSView {
	return MutableTSView{tv.Root(currentTime)}
}

/* -------------------------------------------------------------------------
   TSView: the read-only cursor.
   ------------------------------------------------------------------------- */

// TSView is the navigation cursor: value data, overlay pointer, ts_meta,
// current_time, root ts_value, lightweight path, and an optional link
// source. It is a small, trivially-copyable value; child
// cursors are produced by Field/Element/At and extend path and
// ancestors, never mutate the parent.
type TSView struct {
	meta        *overlay.TSMeta
	ov          *overlay.Overlay
	data        unsafe.Pointer
	schema      *typesys.TypeMeta
	currentTime EngineTime
	path        LightweightPath
	root        *TSValue

	ancestors     []*overlay.Overlay // overlay of every node from root to (excluding) this one
	ancestorSteps []Step             // step taken from ancestors[i] down to the next level
	ancestorViews []value.View       // container value.View at ancestors[i], for path conversion

	// link, if non-nil, records that this cursor was reached by
	// dereferencing a REF cell bound at linkBoundTime; sampling makes
	// Modified() report true at linkBoundTime regardless of the target's
	// own overlay.
	link          *value.ValueRef
	linkOverlay   *overlay.Overlay
	linkBoundTime EngineTime
}

// Kind returns the TS kind of this cursor's position.
func (v TSView) Kind() overlay.TSKind { return v.meta.Kind }

// Schema returns the value schema at this position.
func (v TSView) Schema() *typesys.TypeMeta { return v.schema }

// CurrentTime returns the time this cursor was constructed at.
func (v TSView) CurrentTime() EngineTime { return v.currentTime }

// View returns the underlying read-only value.View at this position.
func (v TSView) View() value.View { return value.NewView(v.data, v.schema) }

// Modified reports whether this position changed at or after CurrentTime.
// REF sampling overrides the underlying overlay when this cursor was
// reached through a ref bound at exactly CurrentTime.
func (v TSView) Modified() bool {
	if v.linkOverlay != nil && v.linkBoundTime == v.currentTime {
		return true
	}
	return v.ov.Modified(v.currentTime)
}

// AllValid is overlay.AllValid at this position: TSB fields and TSL
// elements are walked recursively; a TSD or TSS reports only its own
// Valid().
func (v TSView) AllValid() bool { return overlay.AllValid(v.ov) }

// Valid reports whether this exact leaf/slot holds a meaningful value.
func (v TSView) Valid() bool { return v.ov.Valid() }

func (v TSView) childBase(childMeta *overlay.TSMeta, childOv *overlay.Overlay, data unsafe.Pointer, step Step) TSView {
	ancestors := make([]*overlay.Overlay, len(v.ancestors)+1)
	copy(ancestors, v.ancestors)
	ancestors[len(v.ancestors)] = v.ov
	steps := make([]Step, len(v.ancestorSteps)+1)
	copy(steps, v.ancestorSteps)
	steps[len(v.ancestorSteps)] = step
	views := make([]value.View, len(v.ancestorViews)+1)
	copy(views, v.ancestorViews)
	views[len(v.ancestorViews)] = v.View()
	return TSView{
		meta: childMeta, ov: childOv, data: data, schema: childMeta.Value,
		currentTime: v.currentTime, path: v.path.Append(step), root: v.root,
		ancestors: ancestors, ancestorSteps: steps, ancestorViews: views,
		link: v.link, linkOverlay: v.linkOverlay, linkBoundTime: v.linkBoundTime,
	}
}

// Path returns this cursor's LightweightPath from the root.
func (v TSView) Path() LightweightPath { return v.path }

/* -------------------------------------------------------------------------
   MutableTSView: write access. Mutability is a separate trait,
   implemented here as a thin wrapper exactly like pkg/value.MutableView
   wraps View.
   ------------------------------------------------------------------------- */

// MutableTSView adds write methods to TSView.
type MutableTSView struct{ TSView }

// MutableView returns the underlying mutable value.MutableView.
func (m MutableTSView) MutableView() value.MutableView {
	return value.NewMutableView(m.data, m.schema)
}

// bubble propagates a leaf write at time t up through every ancestor,
// stamping container-level last_modified and pushing list-index delta
// entries at any TSL ancestor the path passes through an ElementAt step
// of (see SetValue's doc comment below for why TSD/TSS add/remove deltas
// are NOT pushed here).
func (m MutableTSView) bubble(t EngineTime) {
	for i := len(m.ancestors) - 1; i >= 0; i-- {
		anc := m.ancestors[i]
		anc.MarkContainerModified(t)
		step := m.ancestorSteps[i]
		if anc.Kind == overlay.KindTSL && step.Kind == StepElementAt {
			anc.PushListIndex(t, step.Index)
		}
	}
}

// SetValue writes a scalar host value through this cursor at its
// CurrentTime, under a strict write-time discipline: current_time
// captured at cursor construction IS the stamp; there is no clamping.
// Only valid on TS/SIGNAL scalar leaves; TSW uses ApplyDelta instead,
// since apply_delta is TSW's only write path.
//
// Note on TSD/TSS deltas: a write that adds or removes a map/set entry
// goes through that collection's own Set/Remove method (see dict.go /
// setview.go), which pushes the added/removed delta explicitly — generic
// leaf-write bubbling only stamps container timestamps and, for TSL,
// maintains the per-index delta buffer, since TSL elements can be
// rewritten in place (unlike map/set membership, which is inherently an
// add/remove event, not an in-place overwrite).
func (m MutableTSView) SetValue(host any) error {
	if m.meta.Kind != overlay.KindTS && m.meta.Kind != overlay.KindSignal {
		return tserr.NewSchemaError("SetValue", "TS or SIGNAL", m.meta.Kind.String())
	}
	if err := m.schema.Scalar.FromHost(m.data, host); err != nil {
		return err
	}
	m.ov.StampLeaf(m.currentTime)
	m.bubble(m.currentTime)
	return nil
}

// Invalidate clears this leaf's validity without changing its stored
// bytes' meaning beyond "not currently set". Implemented by resetting
// last_modified to MinTime — a leaf's validity is entirely a function of
// its overlay timestamp, so no value-level clearing is needed.
func (m MutableTSView) Invalidate() error {
	m.ov.StampLeaf(overlay.MinTime)
	return nil
}
