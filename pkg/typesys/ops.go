package typesys

import "unsafe"

// ScalarOps is the function-pointer vtable for a scalar leaf TypeMeta.
// Every registered scalar type gets exactly one ScalarOps, built once at
// registration time and shared by every cell of that type thereafter —
// playing the role a hash-by-type-switch would play, generalised from
// "whatever K happens to be" to an open-ended, runtime-registered set of
// scalar types.
type ScalarOps struct {
	// Construct zero-initialises dst, which points at Size bytes of raw
	// storage. Construct must not allocate on the heap outside of the
	// arena/byte buffer it is handed (composite scalars like strings copy
	// their backing bytes into the destination region's owning arena via
	// the caller, not here).
	Construct func(dst unsafe.Pointer)

	// Destroy releases anything obj owns beyond its raw Size bytes (no-op
	// for fixed-width scalars; releases auxiliary heap backing for
	// variable-length scalars represented as a header in the fixed region).
	Destroy func(obj unsafe.Pointer)

	// Copy copies src into dst (both Size bytes), deep enough that
	// mutating one afterwards never affects the other.
	Copy func(dst, src unsafe.Pointer)

	// Move transfers src's value into dst and resets src to its
	// zero/empty state. dst must already be constructed.
	Move func(dst, src unsafe.Pointer)

	// MoveConstruct is Move into an uninitialised dst (skips any
	// destroy-before-overwrite step Move would need for an
	// already-constructed destination).
	MoveConstruct func(dst, src unsafe.Pointer)

	// Equals compares two constructed values of this type.
	Equals func(a, b unsafe.Pointer) bool

	// Hash returns a 64-bit hash of the value, consistent with Equals
	// (a == b implies hash(a) == hash(b)).
	Hash func(obj unsafe.Pointer) uint64

	// ToString renders a debug/display string.
	ToString func(obj unsafe.Pointer) string

	// ToHost converts the value to a dynamically-typed host object. Never
	// called on an invalid slot (composite validity is checked by the
	// caller first); a scalar TS/SIGNAL view with last_modified == MIN
	// presents as host-null without calling ToHost at all.
	ToHost func(obj unsafe.Pointer) any

	// FromHost converts a host object into dst (already-constructed
	// storage). The built-in scalars return a plain conversion error for a
	// nil src. Map keys and set elements never reach FromHost with nil —
	// pkg/value rejects those with tserr.ErrNullNotAllowed first — and a
	// bundle/list field with a nil host value has its validity bit cleared
	// instead of being passed through to FromHost.
	FromHost func(dst unsafe.Pointer, src any) error
}
