package arena

import "testing"

func TestNewValueZeroedAndWritable(t *testing.T) {
	a := New()
	p := NewValue[int64](a)
	if *p != 0 {
		t.Fatalf("expected zero-initialised value, got %d", *p)
	}
	*p = 42
	if *p != 42 {
		t.Fatalf("write through arena pointer did not stick")
	}
}

func TestMakeSliceLengthAndIndependence(t *testing.T) {
	a := New()
	s := MakeSlice[int32](a, 4)
	if len(s) != 4 {
		t.Fatalf("len(s) = %d, want 4", len(s))
	}
	for i := range s {
		if s[i] != 0 {
			t.Fatalf("element %d not zeroed: %d", i, s[i])
		}
	}
	s[0] = 7
	s2 := MakeSlice[int32](a, 4)
	if s2[0] == 7 {
		t.Fatalf("expected a fresh MakeSlice call to allocate independent storage")
	}
}

func TestAllocBytesCopiesInput(t *testing.T) {
	a := NewSize(64)
	src := []byte{1, 2, 3}
	dst := AllocBytes(a, src)
	src[0] = 99
	if dst[0] == 99 {
		t.Fatalf("AllocBytes must copy, not alias, the input")
	}
	if len(dst) != 3 || dst[1] != 2 || dst[2] != 3 {
		t.Fatalf("unexpected AllocBytes output: %v", dst)
	}
}

func TestAllocBytesEmptyReturnsNil(t *testing.T) {
	a := New()
	if got := AllocBytes(a, nil); got != nil {
		t.Fatalf("expected nil for an empty input, got %v", got)
	}
}

func TestReserveGrowsANewSlabWhenFull(t *testing.T) {
	a := NewSize(16)
	// Allocate enough int64 values to force the arena across multiple
	// 16-byte slabs and verify Bytes() tracks every committed slab.
	for i := 0; i < 10; i++ {
		p := NewValue[int64](a)
		*p = int64(i)
	}
	if a.Bytes() < 16*5 {
		t.Fatalf("Bytes() = %d, expected several slabs to have been committed", a.Bytes())
	}
}

func TestFreeResetsState(t *testing.T) {
	a := New()
	_ = NewValue[int64](a)
	if a.Bytes() == 0 {
		t.Fatalf("expected a non-zero committed size before Free")
	}
	a.Free()
	if a.Bytes() != 0 {
		t.Fatalf("Bytes() after Free() = %d, want 0", a.Bytes())
	}
	// The arena must be immediately reusable.
	p := NewValue[int64](a)
	*p = 5
	if *p != 5 {
		t.Fatalf("arena not reusable after Free()")
	}
}

func TestNewSizeRejectsNonPositive(t *testing.T) {
	a := NewSize(0)
	if a.slabSize != defaultSlabSize {
		t.Fatalf("NewSize(0) should fall back to defaultSlabSize, got %d", a.slabSize)
	}
}
