// Package overlay tracks modification history and deltas for time-series
// values: for every TypeMeta used in a time-series role, a TSMeta records
// the TSKind and the shape of a parallel Overlay that tracks, per leaf,
// engine_time_t last_modified, and for collection kinds, per-tick
// add/remove buffers.
//
// TSMeta construction mirrors pkg/typesys.Registry's interning style (same
// structural shape builds the same tree once) but TSMeta trees are built
// directly from an already-interned TypeMeta rather than independently
// interned themselves — a TSMeta has no existence apart from the
// TSValue/Overlay pair it describes, so graph.Graph builds one per
// TSValue factory call rather than caching them in a second registry.
//
// © 2025 tscore authors. MIT License.
package overlay

import "github.com/flowgraph/tscore/pkg/typesys"

// EngineTime is the strictly monotone tick stamp assigned by the scheduler.
// MinTime marks "never modified".
type EngineTime int64

// MinTime is the sentinel meaning "this leaf has never been written": a
// scalar is set iff overlay.last_modified != MinTime.
const MinTime EngineTime = -1

// TSKind enumerates the time-series shapes.
type TSKind uint8

const (
	KindTS TSKind = iota
	KindSignal
	KindTSW
	KindTSB
	KindTSL
	KindTSD
	KindTSS
	KindRef
)

func (k TSKind) String() string {
	switch k {
	case KindTS:
		return "TS"
	case KindSignal:
		return "SIGNAL"
	case KindTSW:
		return "TSW"
	case KindTSB:
		return "TSB"
	case KindTSL:
		return "TSL"
	case KindTSD:
		return "TSD"
	case KindTSS:
		return "TSS"
	case KindRef:
		return "REF"
	default:
		return "?"
	}
}

// TSMeta declares the time-series shape for one value schema. For
// composite TS kinds, Children holds one TSMeta per field (TSB) or
// describes the element/value series (TSL/TSD/TSS); scalar kinds
// (TS/SIGNAL/TSW/REF) have no children.
type TSMeta struct {
	Kind         TSKind
	Value        *typesys.TypeMeta // the underlying value schema this TS wraps
	Children     []*TSMeta         // TSB: one per field, in field order
	Elem         *TSMeta           // TSL/TSD/TSS: the per-slot/per-key series kind
	DeltaEnabled bool
	WindowSize   int // TSW only: retention capacity
}

// NewScalarTSMeta builds a TS or SIGNAL leaf over a scalar value schema.
func NewScalarTSMeta(kind TSKind, value *typesys.TypeMeta) *TSMeta {
	return &TSMeta{Kind: kind, Value: value, DeltaEnabled: true}
}

// NewWindowTSMeta builds a TSW leaf with the given retention capacity.
func NewWindowTSMeta(value *typesys.TypeMeta, capacity int) *TSMeta {
	return &TSMeta{Kind: KindTSW, Value: value, WindowSize: capacity, DeltaEnabled: true}
}

// NewBundleTSMeta builds a TSB over a Bundle/Tuple value schema, with one
// child TSMeta per field in declaration order.
func NewBundleTSMeta(value *typesys.TypeMeta, fields []*TSMeta) *TSMeta {
	return &TSMeta{Kind: KindTSB, Value: value, Children: fields, DeltaEnabled: true}
}

// NewListTSMeta builds a TSL over a List value schema, whose elements are
// each tracked per elem's TSMeta shape.
func NewListTSMeta(value *typesys.TypeMeta, elem *TSMeta) *TSMeta {
	return &TSMeta{Kind: KindTSL, Value: value, Elem: elem, DeltaEnabled: true}
}

// NewDictTSMeta builds a TSD over a Map value schema.
func NewDictTSMeta(value *typesys.TypeMeta, elem *TSMeta) *TSMeta {
	return &TSMeta{Kind: KindTSD, Value: value, Elem: elem, DeltaEnabled: true}
}

// NewSetTSMeta builds a TSS over a Set value schema.
func NewSetTSMeta(value *typesys.TypeMeta) *TSMeta {
	return &TSMeta{Kind: KindTSS, Value: value, DeltaEnabled: true}
}

// NewRefTSMeta builds a REF series over a Ref value schema.
func NewRefTSMeta(value *typesys.TypeMeta) *TSMeta {
	return &TSMeta{Kind: KindRef, Value: value, DeltaEnabled: true}
}
