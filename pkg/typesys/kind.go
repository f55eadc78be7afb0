// Package typesys implements the interned TypeMeta registry. A TypeMeta
// describes the size, alignment, and structural shape of every storable
// type, plus — for scalar leaves, where Go's own type
// system cannot dispatch across an open-ended set of user types — a
// function-pointer vtable of operations (construct/destroy/copy/move/
// equals/hash/to_string/host-conversion).
//
// Composite kinds (bundle, tuple, list, set, map, cyclic buffer, queue,
// ref) do not carry a second per-instance vtable: their "operations" are a
// single generic algorithm per kind (implemented once, in pkg/value) that
// reads the already-interned TypeMeta shape (field offsets, element type,
// key type...) at call time. This maps cleanly onto Go's idioms for
// tagged unions: a kind-indexed type switch plays the role a vtable union
// would play for composites, while real per-registered-type function
// pointers are reserved for the one place Go cannot get around them:
// scalar leaves.
//
// © 2025 tscore authors. MIT License.
package typesys

import "fmt"

// Kind enumerates the storage shapes a TypeMeta can describe.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindScalar
	KindBundle
	KindTuple
	KindList
	KindSet
	KindMap
	KindCyclicBuffer
	KindQueue
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "Scalar"
	case KindBundle:
		return "Bundle"
	case KindTuple:
		return "Tuple"
	case KindList:
		return "List"
	case KindSet:
		return "Set"
	case KindMap:
		return "Map"
	case KindCyclicBuffer:
		return "CyclicBuffer"
	case KindQueue:
		return "Queue"
	case KindRef:
		return "Ref"
	default:
		return "Invalid"
	}
}

// FieldDesc describes one field of a Bundle/Tuple: its interned name, its
// byte offset into the bundle's data region (validity bits live in a
// separate tail region addressed by field index, not by this offset), and
// its type.
type FieldDesc struct {
	Name   string // empty for positional tuple fields
	Offset uintptr
	Type   *TypeMeta
}

// TypeMeta is interned, process-lifetime, and compared by pointer identity.
// Never construct one directly outside Registry —
// use Registry.RegisterXxx, which guarantees interning.
type TypeMeta struct {
	id        uint64 // interning id, stable for process lifetime, used for fast equality/serialisation
	Kind      Kind
	Size      uintptr // byte size of one instance's data region (excludes validity tail for composites)
	Align     uintptr
	Name      string // human-readable, not part of structural identity

	// Scalar
	Scalar *ScalarOps // non-nil iff Kind == KindScalar

	// Bundle / Tuple
	Fields []FieldDesc // field order is declaration order; validity tail follows Size bytes

	// List / Set / Map / CyclicBuffer / Queue
	Elem      *TypeMeta // element type (List/Set/CyclicBuffer/Queue) or value type (Map)
	Key       *TypeMeta // key type (Map only)
	FixedSize int       // List: 0 = dynamic; CyclicBuffer: capacity; Queue: 0 = unbounded max capacity

	// Ref
	Value     *TypeMeta // pointee schema
	ItemCount int       // 0 = atomic ref, >0 = composite ref with this many unbound slots
}

// ID returns the interning identifier, usable as a map key or in a
// serialised schema_id alongside a Value's encoded bytes.
func (t *TypeMeta) ID() uint64 { return t.id }

// String renders a short structural description, for diagnostics/logging
// only (never parsed back).
func (t *TypeMeta) String() string {
	if t == nil {
		return "<nil TypeMeta>"
	}
	switch t.Kind {
	case KindScalar:
		return fmt.Sprintf("Scalar(%s)", t.Name)
	case KindBundle:
		return fmt.Sprintf("Bundle(%s, %d fields)", t.Name, len(t.Fields))
	case KindTuple:
		return fmt.Sprintf("Tuple(%d fields)", len(t.Fields))
	case KindList:
		if t.FixedSize > 0 {
			return fmt.Sprintf("List[%d](%s)", t.FixedSize, t.Elem)
		}
		return fmt.Sprintf("List(%s)", t.Elem)
	case KindSet:
		return fmt.Sprintf("Set(%s)", t.Elem)
	case KindMap:
		return fmt.Sprintf("Map(%s -> %s)", t.Key, t.Elem)
	case KindCyclicBuffer:
		return fmt.Sprintf("CyclicBuffer[%d](%s)", t.FixedSize, t.Elem)
	case KindQueue:
		return fmt.Sprintf("Queue[%d](%s)", t.FixedSize, t.Elem)
	case KindRef:
		return fmt.Sprintf("Ref(%s, items=%d)", t.Value, t.ItemCount)
	default:
		return "Invalid"
	}
}

// FieldIndex returns the index of the named field, or -1. Bundle field
// access by name is implemented as an O(field_count) linear scan; a small
// perfect-hash side table is unnecessary complexity, and typical field
// counts are well within the range where a linear scan over interned
// (pointer-comparable) strings is faster than building one.
func (t *TypeMeta) FieldIndex(name string) int {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// validityOffset is the byte offset, within a bundle/tuple's storage
// region, where the validity bitmap tail begins.
func (t *TypeMeta) validityOffset() uintptr {
	return t.Size
}
