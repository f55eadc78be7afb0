package tsview

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/flowgraph/tscore/pkg/overlay"
	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/value"
)

// SetSize returns the live element count.
func (v TSView) SetSize() int {
	sv, ok := value.AsSet(v.View())
	if !ok {
		return 0
	}
	return sv.Size()
}

// SetContains reports whether host is a member.
func (v TSView) SetContains(host any) (bool, error) {
	sv, ok := value.AsSet(v.View())
	if !ok {
		return false, tserr.NewSchemaError("SetContains", "TSS", v.meta.Kind.String())
	}
	return sv.Contains(host)
}

// SetWasAdded reports whether host was added to the set at exactly tick t.
func (v TSView) SetWasAdded(host any, t EngineTime) bool {
	added, _ := v.ov.SetDelta(t)
	return containsHost(added, host)
}

// SetWasRemoved reports whether host was removed from the set at exactly t.
func (v TSView) SetWasRemoved(host any, t EngineTime) bool {
	_, removed := v.ov.SetDelta(t)
	return containsHost(removed, host)
}

// SetDelta is the result of TSSView.DeltaView: this tick's added and
// removed values.
type SetDelta struct {
	AddedValues   []any
	RemovedValues []any
}

// SetDeltaView returns this tick's additions/removals.
func (v TSView) SetDeltaView(t EngineTime) (SetDelta, error) {
	if v.meta.Kind != overlay.KindTSS {
		return SetDelta{}, tserr.NewSchemaError("SetDeltaView", "TSS", v.meta.Kind.String())
	}
	added, removed := v.ov.SetDelta(t)
	return SetDelta{AddedValues: added, RemovedValues: removed}, nil
}

/* -------------------------------------------------------------------------
   MutableTSView set writes
   ------------------------------------------------------------------------- */

// Add inserts host into the set, pushing an added-value delta entry only
// if it was not already a member: a double-add is one delta entry, with
// an idempotent size.
func (m MutableTSView) Add(host any) error {
	if m.meta.Kind != overlay.KindTSS {
		return tserr.NewSchemaError("Add", "TSS", m.meta.Kind.String())
	}
	mv, ok := value.AsMutableSet(m.MutableView())
	if !ok {
		return tserr.ErrNotMutable
	}
	_, added, err := mv.Add(host)
	if err != nil {
		return err
	}
	if added {
		m.ov.MarkContainerModified(m.currentTime)
		m.ov.PushAddedValue(m.currentTime, hostHash(host), host)
		m.bubble(m.currentTime)
	}
	return nil
}

// SetRemove erases host from the set, pushing a removed-value delta entry
// if it was present.
func (m MutableTSView) SetRemove(host any) error {
	if m.meta.Kind != overlay.KindTSS {
		return tserr.NewSchemaError("SetRemove", "TSS", m.meta.Kind.String())
	}
	mv, ok := value.AsMutableSet(m.MutableView())
	if !ok {
		return tserr.ErrNotMutable
	}
	_, removed, err := mv.Remove(host)
	if err != nil {
		return err
	}
	if removed {
		m.ov.MarkContainerModified(m.currentTime)
		m.ov.PushRemovedValue(m.currentTime, host)
		m.bubble(m.currentTime)
	}
	return nil
}

// hostHash gives added-value dedup within a tick a stable key without
// needing the element's schema at this call site; it is not used for
// storage identity (pkg/value's KeySet owns that), only for the overlay's
// own within-tick delta dedup.
func hostHash(host any) uint64 {
	switch v := host.(type) {
	case int64:
		return uint64(v)
	case int:
		return uint64(v)
	case float64:
		return math.Float64bits(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return xxhash.Sum64String(v)
	default:
		return xxhash.Sum64String(fmt.Sprintf("%T:%v", v, v))
	}
}
