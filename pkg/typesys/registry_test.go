package typesys

import (
	"sync"
	"testing"
)

func TestRegisterScalarIdempotent(t *testing.T) {
	r := NewRegistry(0)
	a := r.RegisterScalar("int64", scalarInt64)
	b := r.RegisterScalar("int64", scalarInt64)
	if a != b {
		t.Fatalf("expected pointer-equal TypeMeta for repeated registration, got %p != %p", a, b)
	}
	if a.Kind != KindScalar || a.Size != 8 {
		t.Fatalf("unexpected scalar layout: %+v", a)
	}
}

func TestRegisterBundleStructuralInterning(t *testing.T) {
	r := NewRegistry(0)
	int64T, float64T, _, _, _ := r.Builtins()

	b1 := r.RegisterBundle([]BundleField{
		{Name: "price", Type: float64T},
		{Name: "qty", Type: int64T},
	})
	b2 := r.RegisterBundle([]BundleField{
		{Name: "price", Type: float64T},
		{Name: "qty", Type: int64T},
	})
	if b1 != b2 {
		t.Fatalf("expected identical field lists to intern to the same TypeMeta")
	}

	b3 := r.RegisterBundle([]BundleField{
		{Name: "qty", Type: int64T},
		{Name: "price", Type: float64T},
	})
	if b1 == b3 {
		t.Fatalf("expected different field order to produce a distinct TypeMeta")
	}

	if idx := b1.FieldIndex("qty"); idx != 1 {
		t.Fatalf("FieldIndex(qty) = %d, want 1", idx)
	}
	if idx := b1.FieldIndex("missing"); idx != -1 {
		t.Fatalf("FieldIndex(missing) = %d, want -1", idx)
	}
}

func TestInternConcurrentSameKeyBuildsOnce(t *testing.T) {
	r := NewRegistry(0)
	int64T, _, _, _, _ := r.Builtins()

	const goroutines = 32
	var wg sync.WaitGroup
	results := make([]*TypeMeta, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = r.RegisterList(int64T, 0)
		}(i)
	}
	wg.Wait()

	first := results[0]
	for i, tm := range results {
		if tm != first {
			t.Fatalf("goroutine %d got a different TypeMeta pointer than goroutine 0", i)
		}
	}
}

func TestRegisterListFixedVsDynamic(t *testing.T) {
	r := NewRegistry(0)
	int64T, _, _, _, _ := r.Builtins()

	dyn := r.RegisterList(int64T, 0)
	fixed := r.RegisterList(int64T, 10)
	if dyn == fixed {
		t.Fatalf("expected fixed-size and dynamic lists to intern separately")
	}
	if fixed.FixedSize != 10 {
		t.Fatalf("FixedSize = %d, want 10", fixed.FixedSize)
	}
}

func TestRegistryLen(t *testing.T) {
	r := NewRegistry(0)
	if r.Len() != 0 {
		t.Fatalf("fresh registry Len() = %d, want 0", r.Len())
	}
	r.Builtins()
	if r.Len() != 5 {
		t.Fatalf("after Builtins() Len() = %d, want 5", r.Len())
	}
}
