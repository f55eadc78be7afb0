package typesys

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/flowgraph/tscore/internal/unsafehelpers"
)

// Registry interns TypeMeta by structural signature: two calls with
// structurally-equal arguments return the pointer-equal TypeMeta.
//
// Registration is expected at graph-build time and is comparatively rare;
// concurrent registration of the *same* structural shape from independent
// goroutines (e.g. two node builders both wanting Bundle{price,qty}) must
// still produce one interned TypeMeta and do the construction work once —
// exactly the thundering-herd shape singleflight.Group solves for cache
// loads, so the registry reuses it for interning instead of a plain
// mutex-guarded check-then-insert (which would still be correct, just
// wasteful under contention).
type Registry struct {
	mu         sync.RWMutex
	byKey      map[string]*TypeMeta
	nextID     atomic.Uint64
	sf         singleflight.Group
	onRegister func() // optional: called once per newly-built entry, see SetRegistrationHook
}

// NewRegistry constructs an empty registry pre-populated with no types,
// pre-sizing the interning map to capHint entries; callers typically call
// RegisterScalar for their built-in scalar kinds immediately after
// (graph.New does this for int64/float64/bool/string/bytes).
func NewRegistry(capHint int) *Registry {
	if capHint <= 0 {
		capHint = 64
	}
	return &Registry{byKey: make(map[string]*TypeMeta, capHint)}
}

// SetRegistrationHook installs fn to be called once for every interning
// call that builds a new TypeMeta (a cache miss), letting an embedding
// metrics sink count registrations without this package depending on
// pkg/metrics directly. graph.Graph installs its Sink's IncRegistrations
// here right after constructing the registry.
func (r *Registry) SetRegistrationHook(fn func()) { r.onRegister = fn }

// Len returns the number of interned TypeMeta, for metrics/diagnostics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}

func (r *Registry) lookup(key string) (*TypeMeta, bool) {
	r.mu.RLock()
	tm, ok := r.byKey[key]
	r.mu.RUnlock()
	return tm, ok
}

// intern resolves key to an interned TypeMeta, building it via build() at
// most once even if called concurrently with the same key. build() must be
// pure with respect to key (same key -> structurally identical result).
func (r *Registry) intern(key string, build func() *TypeMeta) *TypeMeta {
	if tm, ok := r.lookup(key); ok {
		return tm
	}
	v, _, _ := r.sf.Do(key, func() (any, error) {
		// Re-check under the singleflight key: another caller may have
		// completed registration between our lookup and Do taking the
		// group's internal lock.
		if tm, ok := r.lookup(key); ok {
			return tm, nil
		}
		tm := build()
		tm.id = r.nextID.Add(1)
		r.mu.Lock()
		r.byKey[key] = tm
		r.mu.Unlock()
		if r.onRegister != nil {
			r.onRegister()
		}
		return tm, nil
	})
	return v.(*TypeMeta)
}

/* -------------------------------------------------------------------------
   Scalars
   ------------------------------------------------------------------------- */

// RegisterScalar interns one of the built-in scalar kinds under the given
// name. Idempotent: the same name+kind always yields the same *TypeMeta.
func (r *Registry) RegisterScalar(name string, kind scalarKind) *TypeMeta {
	key := fmt.Sprintf("scalar:%s:%d", name, kind)
	return r.intern(key, func() *TypeMeta {
		size, align := sizeOfScalar(kind)
		return &TypeMeta{
			Kind:   KindScalar,
			Name:   name,
			Size:   size,
			Align:  align,
			Scalar: builtinScalarOps(kind),
		}
	})
}

// RegisterCustomScalar interns a scalar type whose layout and operations
// are entirely caller-supplied (the host-conversion boundary for a
// scalar type this core has no built-in knowledge of, e.g. a fixed-point
// decimal or a date type supplied by the embedding language binding).
func (r *Registry) RegisterCustomScalar(name string, size, align uintptr, ops *ScalarOps) *TypeMeta {
	key := "customscalar:" + name
	return r.intern(key, func() *TypeMeta {
		return &TypeMeta{Kind: KindScalar, Name: name, Size: size, Align: align, Scalar: ops}
	})
}

// Builtins returns (and lazily interns, once per Registry) the five
// built-in scalar TypeMetas. graph.New calls this during construction so
// int64/float64/bool/string/bytes are always available without a node
// builder needing to register them by hand.
func (r *Registry) Builtins() (int64T, float64T, boolT, stringT, bytesT *TypeMeta) {
	return r.RegisterScalar("int64", scalarInt64),
		r.RegisterScalar("float64", scalarFloat64),
		r.RegisterScalar("bool", scalarBool),
		r.RegisterScalar("string", scalarString),
		r.RegisterScalar("bytes", scalarBytes)
}

/* -------------------------------------------------------------------------
   Bundle / Tuple
   ------------------------------------------------------------------------- */

// BundleField is the input shape for RegisterBundle: a name paired with an
// already-interned field type.
type BundleField struct {
	Name string
	Type *TypeMeta
}

func layoutFields(fields []BundleField) ([]FieldDesc, uintptr, uintptr) {
	out := make([]FieldDesc, len(fields))
	var offset, maxAlign uintptr = 0, 1
	for i, f := range fields {
		align := f.Type.Align
		if align == 0 {
			align = 1
		}
		offset = unsafehelpers.AlignUp(offset, align)
		out[i] = FieldDesc{Name: f.Name, Offset: offset, Type: f.Type}
		offset += f.Type.Size
		if align > maxAlign {
			maxAlign = align
		}
	}
	offset = unsafehelpers.AlignUp(offset, maxAlign)
	return out, offset, maxAlign
}

func structuralKey(prefix string, fields []BundleField) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, f := range fields {
		b.WriteByte('|')
		b.WriteString(f.Name)
		b.WriteByte(':')
		fmt.Fprintf(&b, "%d", f.Type.id)
	}
	return b.String()
}

// RegisterBundle interns a named-field composite: field_count and an
// array of (name, offset, type) plus a tail region holding a validity
// bitmap. Idempotent: the same ordered set of
// (name, type) pairs always interns to the same TypeMeta, even across
// concurrent callers.
func (r *Registry) RegisterBundle(fields []BundleField) *TypeMeta {
	key := structuralKey("bundle", fields)
	return r.intern(key, func() *TypeMeta {
		fds, size, align := layoutFields(fields)
		return &TypeMeta{Kind: KindBundle, Name: "bundle", Size: size, Align: align, Fields: fds}
	})
}

// RegisterTuple interns a positional composite; field names are empty.
func (r *Registry) RegisterTuple(elems ...*TypeMeta) *TypeMeta {
	fields := make([]BundleField, len(elems))
	for i, e := range elems {
		fields[i] = BundleField{Type: e}
	}
	key := structuralKey("tuple", fields)
	return r.intern(key, func() *TypeMeta {
		fds, size, align := layoutFields(fields)
		return &TypeMeta{Kind: KindTuple, Name: "tuple", Size: size, Align: align, Fields: fds}
	})
}

/* -------------------------------------------------------------------------
   List / Set / Map / CyclicBuffer / Queue / Ref
   ------------------------------------------------------------------------- */

// RegisterList interns a List<elem> TypeMeta. fixedSize == 0 means dynamic
// (grows via pkg/value's dynamic-list storage); fixedSize > 0 means a
// fixed-capacity list of exactly that many slots.
func (r *Registry) RegisterList(elem *TypeMeta, fixedSize int) *TypeMeta {
	key := fmt.Sprintf("list:%d:%d", elem.id, fixedSize)
	return r.intern(key, func() *TypeMeta {
		return &TypeMeta{Kind: KindList, Name: "list", Elem: elem, FixedSize: fixedSize}
	})
}

// RegisterSet interns a Set<elem> TypeMeta, backed by a KeySet.
func (r *Registry) RegisterSet(elem *TypeMeta) *TypeMeta {
	key := fmt.Sprintf("set:%d", elem.id)
	return r.intern(key, func() *TypeMeta {
		return &TypeMeta{Kind: KindSet, Name: "set", Elem: elem}
	})
}

// RegisterMap interns a Map<key, value> TypeMeta, backed by a KeySet plus a
// parallel value array.
func (r *Registry) RegisterMap(key, value *TypeMeta) *TypeMeta {
	k := fmt.Sprintf("map:%d:%d", key.id, value.id)
	return r.intern(k, func() *TypeMeta {
		return &TypeMeta{Kind: KindMap, Name: "map", Key: key, Elem: value}
	})
}

// RegisterCyclicBuffer interns a fixed-capacity ring buffer of elem.
func (r *Registry) RegisterCyclicBuffer(elem *TypeMeta, size int) *TypeMeta {
	key := fmt.Sprintf("cyclic:%d:%d", elem.id, size)
	return r.intern(key, func() *TypeMeta {
		return &TypeMeta{Kind: KindCyclicBuffer, Name: "cyclic_buffer", Elem: elem, FixedSize: size}
	})
}

// RegisterQueue interns a FIFO queue of elem. max == 0 means unbounded.
func (r *Registry) RegisterQueue(elem *TypeMeta, max int) *TypeMeta {
	key := fmt.Sprintf("queue:%d:%d", elem.id, max)
	return r.intern(key, func() *TypeMeta {
		return &TypeMeta{Kind: KindQueue, Name: "queue", Elem: elem, FixedSize: max}
	})
}

// RegisterRef interns a reference cell whose pointee schema is value.
// itemCount == 0 means an atomic ref (one ValueRef); itemCount > 0 means a
// composite ref with that many independently-bindable element slots, e.g.
// REF[TSB] or REF[TSL] with element-wise binding.
func (r *Registry) RegisterRef(value *TypeMeta, itemCount int) *TypeMeta {
	key := fmt.Sprintf("ref:%d:%d", value.id, itemCount)
	return r.intern(key, func() *TypeMeta {
		return &TypeMeta{Kind: KindRef, Name: "ref", Value: value, ItemCount: itemCount}
	})
}
