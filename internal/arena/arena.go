// Package arena provides a thin bump-allocator used as the backing store for
// owned Value buffers: Value buffers allocate from the graph's arena where
// available, otherwise from the general allocator.
//
// Go's experimental `arena` package, gated behind
// `//go:build goexperiment.arenas`, is not guaranteed to be enabled in an
// embedding host's build, and this package must compile unconditionally, so
// it keeps a tiny surface — New/Free/NewValue/MakeSlice/AllocBytes — backed
// by a slab allocator over ordinary GC-managed memory: each slab is a large
// []byte, allocations bump an offset into the current slab, and a new slab
// is appended when the current one is exhausted.
//
// This trades true O(1) bulk-free for a GC-assisted one: Free() drops the
// arena's references to its slabs so the GC can reclaim them once nothing
// still points into them. It is the host's obligation not to dereference a
// View/ValueRef after its owning Value (and therefore arena) is destroyed —
// Free() upholds that contract by making such a dereference merely stale
// rather than a crash.
//
// Concurrency: Arena is *not* thread-safe. A graph's Values are
// single-writer; the embedding graph instance is responsible for
// serialising access.
//
// © 2025 tscore authors. MIT License.
package arena

import "unsafe"

// defaultSlabSize is the size in bytes of each slab. Chosen to comfortably
// hold a few hundred typical bundle/tuple instances before a new slab is
// needed.
const defaultSlabSize = 64 << 10 // 64 KiB

// Arena is a thin new-type wrapper that prevents external packages from
// depending on the slab representation directly, giving us the freedom to
// swap in a real arena (or goexperiment.arenas, behind a build tag) later
// without touching call sites.
type Arena struct {
	slabs    [][]byte
	cur      []byte
	off      int
	slabSize int
}

// New constructs an empty arena ready for allocations, using the default
// slab size.
func New() *Arena {
	return NewSize(defaultSlabSize)
}

// NewSize constructs an arena whose slabs are slabSize bytes each.
func NewSize(slabSize int) *Arena {
	if slabSize <= 0 {
		slabSize = defaultSlabSize
	}
	return &Arena{slabSize: slabSize}
}

// Free releases the arena's references to all slabs. After the call, any
// pointer previously returned from NewValue/MakeSlice/AllocBytes must not be
// dereferenced (see package doc). The arena is immediately reusable for new
// allocations as if freshly constructed.
func (a *Arena) Free() {
	a.slabs = nil
	a.cur = nil
	a.off = 0
}

// Bytes returns the total number of bytes currently committed across all
// slabs (including the active one), for metrics/diagnostics.
func (a *Arena) Bytes() int64 {
	total := int64(0)
	for _, s := range a.slabs {
		total += int64(cap(s))
	}
	total += int64(cap(a.cur))
	return total
}

func (a *Arena) reserve(n int, align int) unsafe.Pointer {
	if align < 1 {
		align = 1
	}
	aligned := (a.off + align - 1) &^ (align - 1)
	if a.cur == nil || aligned+n > cap(a.cur) {
		size := a.slabSize
		if n > size {
			size = n
		}
		if a.cur != nil {
			a.slabs = append(a.slabs, a.cur)
		}
		a.cur = make([]byte, size)
		a.off = 0
		aligned = 0
	}
	ptr := unsafe.Pointer(&a.cur[aligned])
	a.off = aligned + n
	return ptr
}

// NewValue allocates zero-initialised T inside the arena and returns a
// pointer to it. The pointer is valid until Free() on the arena.
func NewValue[T any](a *Arena) *T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	align := int(unsafe.Alignof(zero))
	p := a.reserve(size, align)
	return (*T)(p)
}

// MakeSlice allocates a slice of length==cap==n inside the arena and
// returns it. The backing array is owned by the arena and is released on
// Free().
func MakeSlice[T any](a *Arena, n int) []T {
	if n <= 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	align := int(unsafe.Alignof(zero))
	p := a.reserve(size*n, align)
	return unsafe.Slice((*T)(p), n)
}

// AllocBytes copies buf into the arena and returns a reference to the new
// memory. Used when a scalar's raw bytes must be moved into owned storage
// (e.g. constructing a string/bytes scalar from a host value).
func AllocBytes(a *Arena, buf []byte) []byte {
	if len(buf) == 0 {
		return nil
	}
	p := a.reserve(len(buf), 1)
	dst := unsafe.Slice((*byte)(p), len(buf))
	copy(dst, buf)
	return dst
}

// UnsafePointer converts an arena-backed pointer to unsafe.Pointer so it can
// be stored inside View/ValueRef metadata.
func UnsafePointer[T any](p *T) unsafe.Pointer { return unsafe.Pointer(p) }
