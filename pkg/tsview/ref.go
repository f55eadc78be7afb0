package tsview

import (
	"github.com/flowgraph/tscore/pkg/overlay"
	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/value"
)

// IsEmpty reports whether this REF cell is currently unbound: an Empty
// ref yields an invalid view on dereference.
func (v TSView) IsEmpty() bool {
	rv, ok := value.AsRef(v.View())
	if !ok {
		return true
	}
	return rv.IsEmpty()
}

// Deref transparently dereferences a bound REF cell, returning a cursor
// over the target's storage built from the borrowed data/overlay/schema.
// The returned cursor's Modified() implements sampling: if this ref was
// itself (re)bound at exactly the returned cursor's CurrentTime,
// Modified() reports true regardless of the target's own overlay.
func (v TSView) Deref() (TSView, error) {
	if v.meta.Kind != overlay.KindRef {
		return TSView{}, tserr.NewSchemaError("Deref", "REF", v.meta.Kind.String())
	}
	rv, _ := value.AsRef(v.View())
	target, err := rv.Target()
	if err != nil {
		if v.root != nil {
			v.root.metrics.IncRefUnresolved()
		}
		return TSView{}, err
	}
	targetOv, _ := target.Overlay.(*overlay.Overlay)
	targetMeta, _ := target.Owner.(*targetMetaCarrier)
	var childMeta *overlay.TSMeta
	if targetMeta != nil {
		childMeta = targetMeta.meta
	} else {
		// Fall back to a scalar TS wrapper over the raw schema when the
		// target wasn't captured through BindTarget (e.g. a hand-built
		// ValueRef in a test) — dereferencing through it still observes
		// sampling correctly since that only depends on the ref's own
		// overlay, not the target's.
		childMeta = overlay.NewScalarTSMeta(overlay.KindTS, target.Schema)
	}
	child := TSView{
		meta: childMeta, ov: targetOv, data: target.Data, schema: target.Schema,
		currentTime: v.currentTime, path: v.path, root: v.root,
		link: &target, linkOverlay: v.ov, linkBoundTime: v.ov.LastModified(),
	}
	return child, nil
}

// targetMetaCarrier lets BindTarget stash the bound TSValue's TSMeta
// alongside its Owner pointer in value.ValueRef, so Deref can reconstruct
// a correctly-kinded child cursor instead of always falling back to a
// bare scalar wrapper.
type targetMetaCarrier struct {
	meta  *overlay.TSMeta
	value *TSValue
}

// BindTarget binds this REF cell to target at the cursor's CurrentTime,
// setting RefStorage = Bound(ValueRef{...}) and updating last_modified =
// current_time on the ref's overlay.
func (m MutableTSView) BindTarget(target *TSValue) error {
	if m.meta.Kind != overlay.KindRef {
		return tserr.NewSchemaError("BindTarget", "REF", m.meta.Kind.String())
	}
	mv, ok := value.AsMutableRef(m.MutableView())
	if !ok {
		return tserr.ErrNotMutable
	}
	ref := value.ValueRef{
		Data:    target.val.View().Data(),
		Schema:  target.meta.Value,
		Overlay: target.ov,
		Owner:   &targetMetaCarrier{meta: target.meta, value: target},
	}
	if err := mv.Bind(ref); err != nil {
		return err
	}
	m.ov.StampLeaf(m.currentTime)
	m.bubble(m.currentTime)
	if m.root != nil {
		m.root.metrics.IncRefRebinds()
	}
	return nil
}

// Unbind restores Empty at this position; this counts as a modification.
func (m MutableTSView) Unbind() error {
	if m.meta.Kind != overlay.KindRef {
		return tserr.NewSchemaError("Unbind", "REF", m.meta.Kind.String())
	}
	mv, ok := value.AsMutableRef(m.MutableView())
	if !ok {
		return tserr.ErrNotMutable
	}
	if err := mv.Unbind(); err != nil {
		return err
	}
	m.ov.StampLeaf(m.currentTime)
	m.bubble(m.currentTime)
	if m.root != nil {
		m.root.metrics.IncRefRebinds()
	}
	return nil
}
