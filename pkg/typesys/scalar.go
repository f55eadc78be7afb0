package typesys

import (
	"fmt"
	"math"
	"strconv"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"github.com/flowgraph/tscore/internal/unsafehelpers"
)

// scalarKind identifies one of the built-in, fixed-layout scalar types the
// registry provides out of the box. User-defined scalars (beyond this set)
// are supported via Registry.RegisterCustomScalar with a caller-supplied
// ScalarOps.
type scalarKind uint8

const (
	scalarInt64 scalarKind = iota
	scalarFloat64
	scalarBool
	scalarString
	scalarBytes
)

// builtinScalarOps builds the ScalarOps vtable for one of the built-in
// kinds. Fixed-width numeric/bool scalars store their bit pattern directly
// in the Size-byte region; string/bytes store a Go string/[]byte header in
// that region (16 and 24 bytes respectively on 64-bit) and therefore do
// not need a separate arena-owned backing allocation for Copy to be
// correct — Go's own string immutability (for string) and a fresh backing
// array on every bytes Copy/FromHost keep copies independent. This generalises a hash-by-type-switch approach into
// named per-kind vtables instead of one hard-coded switch over a single
// key type.
func builtinScalarOps(kind scalarKind) *ScalarOps {
	switch kind {
	case scalarInt64:
		return &ScalarOps{
			Construct: func(dst unsafe.Pointer) { *(*int64)(dst) = 0 },
			Destroy:   func(unsafe.Pointer) {},
			Copy:      func(dst, src unsafe.Pointer) { *(*int64)(dst) = *(*int64)(src) },
			Move: func(dst, src unsafe.Pointer) {
				*(*int64)(dst) = *(*int64)(src)
				*(*int64)(src) = 0
			},
			MoveConstruct: func(dst, src unsafe.Pointer) {
				*(*int64)(dst) = *(*int64)(src)
				*(*int64)(src) = 0
			},
			Equals:   func(a, b unsafe.Pointer) bool { return *(*int64)(a) == *(*int64)(b) },
			Hash:     func(obj unsafe.Pointer) uint64 { return hashBytes(unsafehelpers.ByteSliceFrom(obj, 8)) },
			ToString: func(obj unsafe.Pointer) string { return strconv.FormatInt(*(*int64)(obj), 10) },
			ToHost:   func(obj unsafe.Pointer) any { return *(*int64)(obj) },
			FromHost: func(dst unsafe.Pointer, src any) error {
				v, err := toInt64(src)
				if err != nil {
					return err
				}
				*(*int64)(dst) = v
				return nil
			},
		}
	case scalarFloat64:
		return &ScalarOps{
			Construct: func(dst unsafe.Pointer) { *(*float64)(dst) = 0 },
			Destroy:   func(unsafe.Pointer) {},
			Copy:      func(dst, src unsafe.Pointer) { *(*float64)(dst) = *(*float64)(src) },
			Move: func(dst, src unsafe.Pointer) {
				*(*float64)(dst) = *(*float64)(src)
				*(*float64)(src) = 0
			},
			MoveConstruct: func(dst, src unsafe.Pointer) {
				*(*float64)(dst) = *(*float64)(src)
				*(*float64)(src) = 0
			},
			Equals: func(a, b unsafe.Pointer) bool { return *(*float64)(a) == *(*float64)(b) },
			Hash: func(obj unsafe.Pointer) uint64 {
				bits := math.Float64bits(*(*float64)(obj))
				var buf [8]byte
				for i := 0; i < 8; i++ {
					buf[i] = byte(bits >> (8 * i))
				}
				return hashBytes(buf[:])
			},
			ToString: func(obj unsafe.Pointer) string { return strconv.FormatFloat(*(*float64)(obj), 'g', -1, 64) },
			ToHost:   func(obj unsafe.Pointer) any { return *(*float64)(obj) },
			FromHost: func(dst unsafe.Pointer, src any) error {
				v, err := toFloat64(src)
				if err != nil {
					return err
				}
				*(*float64)(dst) = v
				return nil
			},
		}
	case scalarBool:
		return &ScalarOps{
			Construct: func(dst unsafe.Pointer) { *(*bool)(dst) = false },
			Destroy:   func(unsafe.Pointer) {},
			Copy:      func(dst, src unsafe.Pointer) { *(*bool)(dst) = *(*bool)(src) },
			Move: func(dst, src unsafe.Pointer) {
				*(*bool)(dst) = *(*bool)(src)
				*(*bool)(src) = false
			},
			MoveConstruct: func(dst, src unsafe.Pointer) {
				*(*bool)(dst) = *(*bool)(src)
				*(*bool)(src) = false
			},
			Equals: func(a, b unsafe.Pointer) bool { return *(*bool)(a) == *(*bool)(b) },
			Hash: func(obj unsafe.Pointer) uint64 {
				if *(*bool)(obj) {
					return 1
				}
				return 0
			},
			ToString: func(obj unsafe.Pointer) string { return strconv.FormatBool(*(*bool)(obj)) },
			ToHost:   func(obj unsafe.Pointer) any { return *(*bool)(obj) },
			FromHost: func(dst unsafe.Pointer, src any) error {
				v, ok := src.(bool)
				if !ok {
					return fmt.Errorf("tscore: expected bool, got %T", src)
				}
				*(*bool)(dst) = v
				return nil
			},
		}
	case scalarString:
		return &ScalarOps{
			Construct: func(dst unsafe.Pointer) { *(*string)(dst) = "" },
			Destroy:   func(dst unsafe.Pointer) { *(*string)(dst) = "" },
			Copy:      func(dst, src unsafe.Pointer) { *(*string)(dst) = *(*string)(src) },
			Move: func(dst, src unsafe.Pointer) {
				*(*string)(dst) = *(*string)(src)
				*(*string)(src) = ""
			},
			MoveConstruct: func(dst, src unsafe.Pointer) {
				*(*string)(dst) = *(*string)(src)
				*(*string)(src) = ""
			},
			Equals:   func(a, b unsafe.Pointer) bool { return *(*string)(a) == *(*string)(b) },
			Hash:     func(obj unsafe.Pointer) uint64 { return hashBytes(unsafehelpers.StringToBytes(*(*string)(obj))) },
			ToString: func(obj unsafe.Pointer) string { return *(*string)(obj) },
			ToHost:   func(obj unsafe.Pointer) any { return *(*string)(obj) },
			FromHost: func(dst unsafe.Pointer, src any) error {
				v, ok := src.(string)
				if !ok {
					return fmt.Errorf("tscore: expected string, got %T", src)
				}
				*(*string)(dst) = v
				return nil
			},
		}
	case scalarBytes:
		return &ScalarOps{
			Construct: func(dst unsafe.Pointer) { *(*[]byte)(dst) = nil },
			Destroy:   func(dst unsafe.Pointer) { *(*[]byte)(dst) = nil },
			Copy: func(dst, src unsafe.Pointer) {
				s := *(*[]byte)(src)
				cp := make([]byte, len(s))
				copy(cp, s)
				*(*[]byte)(dst) = cp
			},
			Move: func(dst, src unsafe.Pointer) {
				*(*[]byte)(dst) = *(*[]byte)(src)
				*(*[]byte)(src) = nil
			},
			MoveConstruct: func(dst, src unsafe.Pointer) {
				*(*[]byte)(dst) = *(*[]byte)(src)
				*(*[]byte)(src) = nil
			},
			Equals:   func(a, b unsafe.Pointer) bool { return string(*(*[]byte)(a)) == string(*(*[]byte)(b)) },
			Hash:     func(obj unsafe.Pointer) uint64 { return hashBytes(*(*[]byte)(obj)) },
			ToString: func(obj unsafe.Pointer) string { return fmt.Sprintf("%x", *(*[]byte)(obj)) },
			ToHost:   func(obj unsafe.Pointer) any { return append([]byte(nil), *(*[]byte)(obj)...) },
			FromHost: func(dst unsafe.Pointer, src any) error {
				v, ok := src.([]byte)
				if !ok {
					return fmt.Errorf("tscore: expected []byte, got %T", src)
				}
				cp := make([]byte, len(v))
				copy(cp, v)
				*(*[]byte)(dst) = cp
				return nil
			},
		}
	default:
		panic("typesys: unknown builtin scalar kind")
	}
}

// hashBytes is the single place raw-byte hashing happens for scalar
// ScalarOps.Hash. xxhash is used here instead of hash/maphash because
// ScalarOps.Hash must be stable for the
// lifetime of a process without a per-shard seed (scalar hashes flow into
// KeySet, which must produce the same slot for the same key regardless of
// which shard/goroutine computed it first).
func hashBytes(b []byte) uint64 { return xxhash.Sum64(b) }

func toInt64(src any) (int64, error) {
	switch v := src.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("tscore: expected integer, got %T", src)
	}
}

func toFloat64(src any) (float64, error) {
	switch v := src.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("tscore: expected number, got %T", src)
	}
}

func sizeOfScalar(kind scalarKind) (size, align uintptr) {
	switch kind {
	case scalarInt64:
		return unsafe.Sizeof(int64(0)), unsafe.Alignof(int64(0))
	case scalarFloat64:
		return unsafe.Sizeof(float64(0)), unsafe.Alignof(float64(0))
	case scalarBool:
		return unsafe.Sizeof(bool(false)), unsafe.Alignof(bool(false))
	case scalarString:
		var s string
		return unsafe.Sizeof(s), unsafe.Alignof(s)
	case scalarBytes:
		var b []byte
		return unsafe.Sizeof(b), unsafe.Alignof(b)
	default:
		panic("typesys: unknown builtin scalar kind")
	}
}
