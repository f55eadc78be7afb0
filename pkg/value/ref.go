package value

import (
	"unsafe"

	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/typesys"
)

// ValueRef is the non-owning contents of a bound reference cell: a data
// pointer, overlay pointer, schema, and owner pointer. Overlay is carried
// as an opaque any rather than a concrete *overlay.Overlay to avoid an
// import cycle (pkg/overlay already depends on pkg/value for View);
// pkg/tsview, which depends on both, type-asserts it back when following
// a link. Owner is carried the same way, for consumers that need further
// navigation.
type ValueRef struct {
	Data    unsafe.Pointer
	Schema  *typesys.TypeMeta
	Overlay any
	Owner   any // the owning *Value or *TSValue-equivalent, for lifetime bookkeeping only
}

// Equal is RefStorage equality: pointer-identity on Data.
func (r ValueRef) Equal(other ValueRef) bool { return r.Data == other.Data }

// refStorageKind tags which variant a RefStorage cell currently holds.
type refStorageKind uint8

const (
	refEmpty refStorageKind = iota
	refBound
	refUnbound
)

// RefStorage is the runtime contents of a Ref-kind Value: Empty,
// Bound(ValueRef), or Unbound([]RefStorage). Unbound holds one child
// RefStorage per composite-ref element, e.g. a REF[TSB] with item_count
// fields each independently bindable — collapsing these into one REF was
// rejected, so every slot gets its own cell.
type RefStorage struct {
	kind     refStorageKind
	bound    ValueRef
	children []RefStorage
}

func constructRef(t *typesys.TypeMeta, data unsafe.Pointer) {
	rs := (*RefStorage)(data)
	if t.ItemCount > 0 {
		*rs = RefStorage{kind: refUnbound, children: make([]RefStorage, t.ItemCount)}
		return
	}
	*rs = RefStorage{kind: refEmpty}
}

func destroyRef(t *typesys.TypeMeta, data unsafe.Pointer) {
	*(*RefStorage)(data) = RefStorage{}
}

func copyRef(t *typesys.TypeMeta, dst, src unsafe.Pointer) {
	s := *(*RefStorage)(src)
	children := make([]RefStorage, len(s.children))
	copy(children, s.children)
	*(*RefStorage)(dst) = RefStorage{kind: s.kind, bound: s.bound, children: children}
}

func equalsRef(a, b RefStorage) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case refEmpty:
		return true
	case refBound:
		return a.bound.Equal(b.bound)
	case refUnbound:
		if len(a.children) != len(b.children) {
			return false
		}
		for i := range a.children {
			if !equalsRef(a.children[i], b.children[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// RefView adapts a View over a Ref schema.
type RefView struct{ View }

func AsRef(v View) (RefView, bool) {
	if v.schema == nil || v.schema.Kind != typesys.KindRef {
		return RefView{}, false
	}
	return RefView{v}, true
}

func (r RefView) storage() *RefStorage { return (*RefStorage)(r.data) }

// IsEmpty reports whether this ref cell (at the root, i.e. not a composite
// ref) is unbound.
func (r RefView) IsEmpty() bool { return r.storage().kind == refEmpty }

// Target returns the bound ValueRef, or tserr.ErrRefUnresolved if the cell
// is Empty. For an Unbound composite ref, use Child instead.
func (r RefView) Target() (ValueRef, error) {
	s := r.storage()
	if s.kind != refBound {
		return ValueRef{}, tserr.ErrRefUnresolved
	}
	return s.bound, nil
}

// Child returns the i'th element's RefView for a composite (Unbound) ref.
// Structural access (field, element) selects the matching child
// RefStorage. The child reuses the parent's Ref TypeMeta for
// navigation purposes — only its ItemCount differs conceptually (each
// child is an atomic ref), and nothing in RefView's own methods reads
// ItemCount, so no separate per-child TypeMeta is interned.
func (r RefView) Child(i int) (RefView, error) {
	s := r.storage()
	if s.kind != refUnbound || i < 0 || i >= len(s.children) {
		return RefView{}, tserr.ErrOutOfRange
	}
	return RefView{View{data: unsafe.Pointer(&s.children[i]), schema: r.schema}}, nil
}

// MutableRefView adds Bind/Unbind.
type MutableRefView struct{ RefView }

func AsMutableRef(m MutableView) (MutableRefView, bool) {
	rv, ok := AsRef(m.View)
	if !ok {
		return MutableRefView{}, false
	}
	return MutableRefView{rv}, true
}

// Bind sets this cell to Bound(target). Timestamp bookkeeping
// (last_modified = current_time on the ref's own
// overlay) is the caller's responsibility (pkg/tsview), since RefStorage
// itself has no overlay awareness beyond carrying one opaquely.
func (m MutableRefView) Bind(target ValueRef) error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	*m.storage() = RefStorage{kind: refBound, bound: target}
	return nil
}

// Unbind restores Empty at this position.
func (m MutableRefView) Unbind() error {
	if !m.mutable {
		return tserr.ErrNotMutable
	}
	*m.storage() = RefStorage{kind: refEmpty}
	return nil
}
