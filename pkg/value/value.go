// Package value implements owning, type-erased storage
// plus non-owning View / MutableView handles. A Value owns a byte buffer
// shaped by its TypeMeta; a View is a (data pointer, schema, mutability)
// triple that borrows from a Value (or from a parent View, for nested
// access) without owning anything.
//
// Specialised storage for composite kinds lives alongside this file:
// bundle.go (bundle/tuple), list.go (dynamic/fixed list), keyset.go (shared
// stable-slot hash set for Set and Map), setmap.go (Set/Map proper),
// cyclicbuffer.go, queue.go, ref.go.
//
// © 2025 tscore authors. MIT License.
package value

import (
	"fmt"
	"unsafe"

	"github.com/flowgraph/tscore/internal/arena"
	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/typesys"
)

// Value is owning storage for one instance of a TypeMeta: a buffer, its
// schema, and an optional cache slot. The buffer is either arena-backed
// (when constructed with an *arena.Arena) or heap-backed (nil arena);
// Destroy runs the schema's element-wise destroy either way, since
// arena.Free only reclaims memory — it never calls destructors (see
// internal/arena's package doc for why this is a deliberately safer
// failure mode than a true bulk free).
type Value struct {
	schema *typesys.TypeMeta
	data   unsafe.Pointer
	buf    []byte // keeps the backing array alive when heap-allocated (data aliases buf[0])
	cache  any    // last to_host_object() result; invalidated by every mutation
}

// totalSize is the number of bytes a Value of this schema occupies,
// including the validity tail for composite kinds that have one.
func totalSize(t *typesys.TypeMeta) uintptr {
	switch t.Kind {
	case typesys.KindBundle, typesys.KindTuple:
		return t.Size + uintptr(bitsetSizeBytes(len(t.Fields)))
	case typesys.KindList:
		return unsafe.Sizeof(listHeader{})
	case typesys.KindSet:
		return unsafe.Sizeof((*keySet)(nil))
	case typesys.KindMap:
		return unsafe.Sizeof(mapHeader{})
	case typesys.KindCyclicBuffer:
		return unsafe.Sizeof(cyclicHeader{})
	case typesys.KindQueue:
		return unsafe.Sizeof(queueHeader{})
	case typesys.KindRef:
		return unsafe.Sizeof(RefStorage{})
	default:
		return t.Size
	}
}

// New constructs a zero-valued Value for schema, allocating from a (heap
// allocator if a==nil, else the given arena.
func New(schema *typesys.TypeMeta, a *arena.Arena) *Value {
	n := int(totalSize(schema))
	if n == 0 {
		n = 1 // keep data non-nil even for zero-size schemas (e.g. Tuple())
	}
	var buf []byte
	var data unsafe.Pointer
	if a != nil {
		buf = arena.MakeSlice[byte](a, n)
	} else {
		buf = make([]byte, n)
	}
	data = unsafe.Pointer(&buf[0])
	v := &Value{schema: schema, data: data, buf: buf}
	constructInPlace(schema, data)
	return v
}

// FromScalar constructs a Value holding a single scalar, converted from a
// host value via the schema's FromHost.
func FromScalar(schema *typesys.TypeMeta, host any) (*Value, error) {
	if schema.Kind != typesys.KindScalar {
		return nil, tserr.NewSchemaError("FromScalar", "Scalar", schema.Kind.String())
	}
	v := New(schema, nil)
	if err := schema.Scalar.FromHost(v.data, host); err != nil {
		return nil, err
	}
	return v, nil
}

// Schema returns the value's interned type.
func (v *Value) Schema() *typesys.TypeMeta { return v.schema }

// Destroy runs the schema's element-wise destructor over the value's
// storage. After Destroy, the Value must not be used again.
func (v *Value) Destroy() {
	destroyInPlace(v.schema, v.data)
	v.cache = nil
}

// View returns a read-only, non-owning handle over v's storage.
func (v *Value) View() View { return View{data: v.data, schema: v.schema} }

// MutView returns an exclusive, mutating handle over v's storage. It also
// invalidates any cached host-object handle, since a cached handle must
// not survive a mutation.
func (v *Value) MutView() MutableView {
	v.cache = nil
	return MutableView{View{data: v.data, schema: v.schema, mutable: true}, v}
}

// InvalidateCache drops the cached to_host_object result without
// otherwise touching storage.
func (v *Value) InvalidateCache() { v.cache = nil }

/* -------------------------------------------------------------------------
   View / MutableView
   ------------------------------------------------------------------------- */

// View is a non-owning (data pointer, schema, mutability) triple. It is
// trivially copyable and carries no destructor semantics —
// the owning Value (or owning container) must outlive every View derived
// from it.
type View struct {
	data    unsafe.Pointer
	schema  *typesys.TypeMeta
	mutable bool
}

// NewView wraps an arbitrary (data, schema) pair as a read-only view. Used
// by pkg/overlay and pkg/tsview to build views over composite element
// storage that isn't backed by a standalone Value.
func NewView(data unsafe.Pointer, schema *typesys.TypeMeta) View {
	return View{data: data, schema: schema}
}

// NewMutableView is NewView's mutable counterpart.
func NewMutableView(data unsafe.Pointer, schema *typesys.TypeMeta) MutableView {
	return MutableView{View{data: data, schema: schema, mutable: true}, nil}
}

func (v View) Schema() *typesys.TypeMeta { return v.schema }
func (v View) Data() unsafe.Pointer      { return v.data }
func (v View) IsMutable() bool           { return v.mutable }
func (v View) IsValid() bool             { return v.data != nil && v.schema != nil }

// ToHost converts this view to a dynamically-typed host object. Scalars
// defer to the schema's Scalar.ToHost; every composite kind dispatches to
// its own ToHost defined alongside its storage (BundleView.ToHost in
// bundle.go, ListView.ToHost in list.go, SetView.ToHost/MapView.ToHost in
// setmap.go, CyclicBufferView.ToHost in cyclicbuffer.go,
// QueueView.ToHost in queue.go), each recursing into View.ToHost for
// nested elements so arbitrarily nested schemas convert in one call.
func (v View) ToHost() (any, error) {
	if !v.IsValid() {
		return nil, tserr.ErrInvalidView
	}
	switch v.schema.Kind {
	case typesys.KindScalar:
		return v.schema.Scalar.ToHost(v.data), nil
	case typesys.KindBundle, typesys.KindTuple:
		bv, _ := AsBundle(v)
		return bv.ToHost()
	case typesys.KindList:
		lv, _ := AsList(v)
		return lv.ToHost()
	case typesys.KindSet:
		sv, _ := AsSet(v)
		return sv.ToHost()
	case typesys.KindMap:
		mv, _ := AsMap(v)
		return mv.ToHost()
	case typesys.KindCyclicBuffer:
		cv, _ := AsCyclicBuffer(v)
		return cv.ToHost()
	case typesys.KindQueue:
		qv, _ := AsQueue(v)
		return qv.ToHost()
	default:
		return nil, tserr.NewSchemaError("ToHost", "convertible kind", v.schema.Kind.String())
	}
}

func (v View) String() string {
	if !v.IsValid() {
		return "<invalid view>"
	}
	if v.schema.Kind == typesys.KindScalar {
		return v.schema.Scalar.ToString(v.data)
	}
	return fmt.Sprintf("<%s view>", v.schema)
}

// MutableView is View plus write access. owner is non-nil only when the
// view was obtained directly from a Value (as opposed to a nested child
// view), and exists so MutableView can route cache invalidation upward;
// nested views rely on their ancestor TSView/overlay for that instead (see
// pkg/tsview).
type MutableView struct {
	View
	owner *Value
}

// AsReadOnly downgrades a MutableView to a View.
func (m MutableView) AsReadOnly() View { return m.View }

// SetValue writes a host value into this view's storage. Scalars defer to
// the schema's Scalar.FromHost; every composite kind dispatches to its own
// FromHost (MutableBundleView.FromHost, MutableListView.FromHost,
// MutableSetView.FromHost/MutableMapView.FromHost,
// MutableCyclicBufferView.FromHost, MutableQueueView.FromHost),
// accepting the host shapes documented on each: map[string]any or []any
// for a Bundle/Tuple, []any for List/Set/CyclicBuffer/Queue, map[any]any
// for Map. Returns tserr.ErrNotMutable if the view is read-only.
func (m MutableView) SetValue(host any) error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	if m.owner != nil {
		m.owner.cache = nil
	}
	switch m.schema.Kind {
	case typesys.KindScalar:
		return m.schema.Scalar.FromHost(m.data, host)
	case typesys.KindBundle, typesys.KindTuple:
		mb, _ := AsMutableBundle(m)
		return mb.FromHost(host)
	case typesys.KindList:
		ml, _ := AsMutableList(m)
		return ml.FromHost(host)
	case typesys.KindSet:
		ms, _ := AsMutableSet(m)
		return ms.FromHost(host)
	case typesys.KindMap:
		mm, _ := AsMutableMap(m)
		return mm.FromHost(host)
	case typesys.KindCyclicBuffer:
		mc, _ := AsMutableCyclicBuffer(m)
		return mc.FromHost(host)
	case typesys.KindQueue:
		mq, _ := AsMutableQueue(m)
		return mq.FromHost(host)
	default:
		return tserr.NewSchemaError("SetValue", "convertible kind", m.schema.Kind.String())
	}
}

// hostToScratchValue builds a throwaway owning Value of schema, populated
// from host via View/MutableView's own SetValue dispatch (so nested
// composites convert recursively through the same rules as the top-level
// call). The caller must Destroy the returned Value once its bytes have
// been copied into their final destination.
func hostToScratchValue(schema *typesys.TypeMeta, host any) (*Value, error) {
	v := New(schema, nil)
	if err := v.MutView().SetValue(host); err != nil {
		v.Destroy()
		return nil, err
	}
	return v, nil
}

/* -------------------------------------------------------------------------
   Generic element-wise construct/destroy/copy, dispatched by Kind.
   Composite kinds have no per-type vtable (see pkg/typesys/kind.go's
   package doc); these functions are the "generic algorithm per kind" that
   design calls for.
   ------------------------------------------------------------------------- */

func constructInPlace(t *typesys.TypeMeta, data unsafe.Pointer) {
	switch t.Kind {
	case typesys.KindScalar:
		t.Scalar.Construct(data)
	case typesys.KindBundle, typesys.KindTuple:
		constructBundle(t, data)
	case typesys.KindList:
		constructList(t, data)
	case typesys.KindSet:
		constructSet(t, data)
	case typesys.KindMap:
		constructMap(t, data)
	case typesys.KindCyclicBuffer:
		constructCyclicBuffer(t, data)
	case typesys.KindQueue:
		constructQueue(t, data)
	case typesys.KindRef:
		constructRef(t, data)
	default:
		panic(fmt.Sprintf("value: unknown kind %v", t.Kind))
	}
}

func destroyInPlace(t *typesys.TypeMeta, data unsafe.Pointer) {
	switch t.Kind {
	case typesys.KindScalar:
		t.Scalar.Destroy(data)
	case typesys.KindBundle, typesys.KindTuple:
		destroyBundle(t, data)
	case typesys.KindList:
		destroyList(t, data)
	case typesys.KindSet:
		destroySet(t, data)
	case typesys.KindMap:
		destroyMap(t, data)
	case typesys.KindCyclicBuffer:
		destroyCyclicBuffer(t, data)
	case typesys.KindQueue:
		destroyQueue(t, data)
	case typesys.KindRef:
		destroyRef(t, data)
	default:
		panic(fmt.Sprintf("value: unknown kind %v", t.Kind))
	}
}

// copyInPlace deep-copies src into dst, both already constructed and of
// schema t.
func copyInPlace(t *typesys.TypeMeta, dst, src unsafe.Pointer) {
	switch t.Kind {
	case typesys.KindScalar:
		t.Scalar.Copy(dst, src)
	case typesys.KindBundle, typesys.KindTuple:
		copyBundle(t, dst, src)
	case typesys.KindList:
		copyList(t, dst, src)
	case typesys.KindSet:
		copySet(t, dst, src)
	case typesys.KindMap:
		copyMap(t, dst, src)
	case typesys.KindCyclicBuffer:
		copyCyclicBuffer(t, dst, src)
	case typesys.KindQueue:
		copyQueue(t, dst, src)
	case typesys.KindRef:
		copyRef(t, dst, src)
	default:
		panic(fmt.Sprintf("value: unknown kind %v", t.Kind))
	}
}

// hashInPlace hashes a constructed value of schema t. Composites XOR-fold
// each slot's hash with a per-slot rotation, a null slot contributing a
// fixed nullity constant perturbed by index; scalars defer to their
// vtable's Hash.
func hashInPlace(t *typesys.TypeMeta, data unsafe.Pointer) uint64 {
	switch t.Kind {
	case typesys.KindScalar:
		return t.Scalar.Hash(data)
	case typesys.KindBundle, typesys.KindTuple:
		valid := bundleValidity(t, data)
		var h uint64
		for i, f := range t.Fields {
			h ^= rotl64(slotHash(valid.Get(i), f.Type, bundleFieldPtr(t, data, i)), uint(i))
		}
		return h
	case typesys.KindList:
		lh := listHeaderPtr(data)
		valid := listValidity(t, lh)
		var h uint64
		for i := 0; i < lh.size; i++ {
			h ^= rotl64(slotHash(valid.Get(i), t.Elem, listElemPtr(t, lh, i)), uint(i))
		}
		return h
	default:
		return 0
	}
}

const nullityConstant uint64 = 0x9e3779b97f4a7c15

func slotHash(valid bool, elem *typesys.TypeMeta, data unsafe.Pointer) uint64 {
	if !valid {
		return nullityConstant
	}
	return hashInPlace(elem, data)
}

func rotl64(x uint64, n uint) uint64 {
	n %= 64
	return (x << n) | (x >> (64 - n))
}

// equalsInPlace compares two constructed values of schema t, treating
// "both invalid" as equal at every composite slot.
func equalsInPlace(t *typesys.TypeMeta, a, b unsafe.Pointer) bool {
	switch t.Kind {
	case typesys.KindScalar:
		return t.Scalar.Equals(a, b)
	case typesys.KindBundle, typesys.KindTuple:
		return equalsBundle(t, a, b)
	case typesys.KindList:
		return equalsList(t, a, b)
	case typesys.KindSet:
		return equalsSet(t, a, b)
	case typesys.KindMap:
		return equalsMap(t, a, b)
	case typesys.KindRef:
		return equalsRef(*(*RefStorage)(a), *(*RefStorage)(b))
	default:
		return a == b
	}
}
