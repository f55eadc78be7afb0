package tsview

import (
	"github.com/flowgraph/tscore/pkg/overlay"
	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/value"
)

// Value returns this cursor's scalar value. Valid on TS/SIGNAL/TSW only;
// for TSW this is the newest retained value.
func (v TSView) Value() (value.View, error) {
	switch v.meta.Kind {
	case overlay.KindTS, overlay.KindSignal:
		if !v.Valid() {
			return value.View{}, tserr.ErrInvalidView
		}
		return value.NewView(v.data, v.schema), nil
	case overlay.KindTSW:
		w := v.ov.Window()
		if w.Len() == 0 {
			return value.View{}, tserr.ErrInvalidView
		}
		return w.Value(), nil
	default:
		return value.View{}, tserr.NewSchemaError("Value", "TS, SIGNAL or TSW", v.meta.Kind.String())
	}
}

// HasDelta reports whether this tick produced a change at this scalar
// leaf.
func (v TSView) HasDelta() bool { return v.ov.Modified(v.currentTime) }

/* -------------------------------------------------------------------------
   TSW (windowed time series)
   ------------------------------------------------------------------------- */

// ApplyDelta is TSW's only write path: push-with-eviction at the cursor's
// CurrentTime.
func (m MutableTSView) ApplyDelta(src value.View) error {
	if m.meta.Kind != overlay.KindTSW {
		return tserr.NewSchemaError("ApplyDelta", "TSW", m.meta.Kind.String())
	}
	if src.Schema() != m.schema {
		return tserr.NewSchemaError("ApplyDelta", m.schema.String(), src.Schema().String())
	}
	m.ov.Window().Push(src, m.currentTime)
	m.ov.StampLeaf(m.currentTime)
	m.bubble(m.currentTime)
	return nil
}

// FirstModifiedTime returns the oldest retained value's write time.
func (v TSView) FirstModifiedTime() (EngineTime, error) {
	if v.meta.Kind != overlay.KindTSW {
		return overlay.MinTime, tserr.NewSchemaError("FirstModifiedTime", "TSW", v.meta.Kind.String())
	}
	return v.ov.Window().FirstModifiedTime(), nil
}

// HasRemovedValue reports whether this tick's ApplyDelta evicted a value.
func (v TSView) HasRemovedValue() bool {
	if v.meta.Kind != overlay.KindTSW {
		return false
	}
	return v.ov.Window().HasRemovedValue()
}

// RemovedValue returns the evicted value (only meaningful when
// HasRemovedValue is true).
func (v TSView) RemovedValue() value.View {
	if v.meta.Kind != overlay.KindTSW {
		return value.View{}
	}
	return v.ov.Window().RemovedValue()
}

// RemovedValueCount is 0 or 1 for this implementation (see Window's doc).
func (v TSView) RemovedValueCount() int {
	if v.meta.Kind != overlay.KindTSW {
		return 0
	}
	return v.ov.Window().RemovedValueCount()
}
