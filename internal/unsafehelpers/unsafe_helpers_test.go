package unsafehelpers

import (
	"testing"
	"unsafe"
)

func TestBytesToStringAndBack(t *testing.T) {
	b := []byte("hello")
	s := BytesToString(b)
	if s != "hello" {
		t.Fatalf("BytesToString = %q, want %q", s, "hello")
	}
	if BytesToString(nil) != "" {
		t.Fatalf("BytesToString(nil) should be empty string")
	}
}

func TestStringToBytesAndBack(t *testing.T) {
	s := "world"
	b := StringToBytes(s)
	if string(b) != s {
		t.Fatalf("StringToBytes round trip = %q, want %q", b, s)
	}
	if StringToBytes("") != nil {
		t.Fatalf("StringToBytes(\"\") should be nil")
	}
}

func TestPtrSlice(t *testing.T) {
	arr := [4]int32{10, 20, 30, 40}
	s := PtrSlice(&arr[0], 4)
	if len(s) != 4 || s[2] != 30 {
		t.Fatalf("PtrSlice = %v, want [10 20 30 40]", s)
	}
	if PtrSlice[int32](&arr[0], 0) != nil {
		t.Fatalf("PtrSlice with n=0 should be nil")
	}
}

func TestByteSliceFrom(t *testing.T) {
	var buf [3]byte
	buf[0], buf[1], buf[2] = 1, 2, 3
	b := ByteSliceFrom(unsafe.Pointer(&buf[0]), 3)
	if len(b) != 3 || b[1] != 2 {
		t.Fatalf("ByteSliceFrom = %v, want [1 2 3]", b)
	}
	if ByteSliceFrom(unsafe.Pointer(&buf[0]), 0) != nil {
		t.Fatalf("ByteSliceFrom with length 0 should be nil")
	}
}

func TestAdd(t *testing.T) {
	var buf [8]byte
	base := unsafe.Pointer(&buf[0])
	p := Add(base, 4)
	if uintptr(p)-uintptr(base) != 4 {
		t.Fatalf("Add offset mismatch")
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct{ x, align, want uintptr }{
		{0, 8, 0}, {1, 8, 8}, {8, 8, 8}, {9, 8, 16}, {3, 4, 4},
	}
	for _, c := range cases {
		if got := AlignUp(c.x, c.align); got != c.want {
			t.Fatalf("AlignUp(%d, %d) = %d, want %d", c.x, c.align, got, c.want)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, x := range []uintptr{1, 2, 4, 8, 1024} {
		if !IsPowerOfTwo(x) {
			t.Fatalf("IsPowerOfTwo(%d) = false, want true", x)
		}
	}
	for _, x := range []uintptr{0, 3, 5, 6, 1023} {
		if IsPowerOfTwo(x) {
			t.Fatalf("IsPowerOfTwo(%d) = true, want false", x)
		}
	}
}
