// Package bitset implements the small fixed-width validity bitmap that sits
// in the tail region of a bundle/tuple's storage: an array of (name, offset,
// type) descriptors plus a tail region holding one validity bit per field.
// It is a raw, in-place bit-packed region addressed by byte offset, not a
// general-purpose collection. pkg/value also uses it for dynamic List
// validity, over a byte slice that the list regrows itself; only KeySet
// liveness tracking uses github.com/RoaringBitmap/roaring/v2.
//
// © 2025 tscore authors. MIT License.
package bitset

import "unsafe"

// SizeBytes returns the number of bytes needed to hold n validity bits.
func SizeBytes(n int) int {
	return (n + 7) / 8
}

// View is a non-owning handle over a validity bitmap living at a fixed
// memory address (the tail of a bundle's storage, or any other raw buffer).
type View struct {
	base unsafe.Pointer
	n    int
}

// NewView wraps an existing byte region of at least SizeBytes(n) bytes as a
// validity bitmap for n slots.
func NewView(base unsafe.Pointer, n int) View {
	return View{base: base, n: n}
}

func (v View) byteAt(i int) *byte {
	return (*byte)(unsafe.Add(v.base, i>>3))
}

// Get reports whether slot i is marked valid.
func (v View) Get(i int) bool {
	if i < 0 || i >= v.n {
		return false
	}
	b := *v.byteAt(i)
	return b&(1<<uint(i&7)) != 0
}

// Set marks slot i valid (true) or invalid (false).
func (v View) Set(i int, val bool) {
	if i < 0 || i >= v.n {
		return
	}
	p := v.byteAt(i)
	mask := byte(1 << uint(i&7))
	if val {
		*p |= mask
	} else {
		*p &^= mask
	}
}

// ClearAll zeroes every bit (used when growing a dynamic container: new
// trailing bits must start invalid).
func (v View) ClearAll() {
	n := SizeBytes(v.n)
	for i := 0; i < n; i++ {
		*(*byte)(unsafe.Add(v.base, i)) = 0
	}
}

// All reports whether every one of the n slots is valid (used by
// TSB.all_valid-style composite checks over a raw bundle outside the
// overlay, e.g. from_host_object round-trip tests).
func (v View) All() bool {
	for i := 0; i < v.n; i++ {
		if !v.Get(i) {
			return false
		}
	}
	return true
}

// Count returns the number of valid slots.
func (v View) Count() int {
	c := 0
	for i := 0; i < v.n; i++ {
		if v.Get(i) {
			c++
		}
	}
	return c
}
