// Package unsafehelpers centralises **all** unavoidable usage of the
// `unsafe` standard-library package so that the rest of tscore stays clean
// and easier to audit. Every helper is documented with clear pre-/post-
// conditions.
//
// ⚠️  **DISCLAIMER**   These helpers deliberately break the Go memory-safety
// model for the sake of zero-allocation, type-erased value storage. Use ONLY
// inside this repository; they are not part of the public API and may change
// without notice. Misuse will lead to subtle data races or corrupted values.
//
// All functions are `go:linkname`-free, cgo-free and pure Go.
//
// © 2025 tscore authors. MIT License.
package unsafehelpers

import "unsafe"

/* -------------------------------------------------------------------------
   1. Zero-copy string/[]byte conversions
   ------------------------------------------------------------------------- */

// BytesToString converts a mutable byte slice to an immutable string without
// allocating. The caller must guarantee that `b` will never be modified for
// the lifetime of the resulting string; otherwise the program exhibits
// undefined behaviour.
//
// Typical use inside tscore: hashing a scalar cell's raw bytes in the
// default TypeOps.Hash implementation.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// StringToBytes re-interprets string data as a byte slice without copying.
// The slice MUST remain read-only; writing to it mutates immutable string
// storage and is undefined behaviour.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

/* -------------------------------------------------------------------------
   2. Generic pointer <-> slice helpers
   ------------------------------------------------------------------------- */

// PtrSlice converts an arbitrary *T pointer + element count into a `[]T`
// without copying. Used to view a bundle/list/cyclic-buffer's raw storage
// region as a typed Go slice for iteration without materialising a copy.
func PtrSlice[T any](ptr *T, n int) []T {
	if n == 0 {
		return nil
	}
	return unsafe.Slice(ptr, n)
}

// ByteSliceFrom returns a []byte view of raw memory starting at `ptr` with
// the given length. Caller must ensure the memory block is at least
// `length` bytes. Used for hashing/equals/copy on scalar TypeOps where only
// the pointer and schema-declared size are known at runtime.
func ByteSliceFrom(ptr unsafe.Pointer, length uintptr) []byte {
	if length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), length)
}

// Add returns ptr advanced by off bytes. Used for bundle/tuple field
// addressing: TypeMeta stores a byte offset per field, and navigation adds
// it to the bundle's base data pointer.
func Add(ptr unsafe.Pointer, off uintptr) unsafe.Pointer {
	return unsafe.Add(ptr, off)
}

/* -------------------------------------------------------------------------
   3. Alignment helpers
   ------------------------------------------------------------------------- */

// AlignUp rounds x up to the nearest multiple of align (which must be a
// power of two). Used when laying out bundle field offsets and the trailing
// validity-bitmap region.
func AlignUp(x, align uintptr) uintptr {
	return (x + align - 1) &^ (align - 1)
}

// IsPowerOfTwo returns true if x is a power of two (exactly one bit set).
func IsPowerOfTwo(x uintptr) bool {
	return x != 0 && (x&(x-1)) == 0
}
