package value

import "testing"

func TestCyclicBufferPushWithinCapacity(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterCyclicBuffer(int64T, 3)
	v := New(schema, nil)
	defer v.Destroy()

	mc, ok := AsMutableCyclicBuffer(v.MutView())
	if !ok {
		t.Fatal("AsMutableCyclicBuffer failed")
	}
	for i := 0; i < 2; i++ {
		elem, err := FromScalar(int64T, int64(i))
		if err != nil {
			t.Fatal(err)
		}
		if err := mc.Push(elem.View()); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
		elem.Destroy()
	}

	cv, _ := AsCyclicBuffer(v.View())
	if cv.Length() != 2 {
		t.Fatalf("Length() = %d, want 2", cv.Length())
	}
	first, err := cv.At(0)
	if err != nil {
		t.Fatal(err)
	}
	host, err := first.ToHost()
	if err != nil {
		t.Fatal(err)
	}
	if host != int64(0) {
		t.Fatalf("At(0) = %v, want 0", host)
	}
}

func TestCyclicBufferPushEvictsOldestAtCapacity(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterCyclicBuffer(int64T, 2)
	v := New(schema, nil)
	defer v.Destroy()

	mc, _ := AsMutableCyclicBuffer(v.MutView())
	for i := 0; i < 3; i++ {
		elem, err := FromScalar(int64T, int64(i))
		if err != nil {
			t.Fatal(err)
		}
		if err := mc.Push(elem.View()); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
		elem.Destroy()
	}

	cv, _ := AsCyclicBuffer(v.View())
	if cv.Length() != 2 {
		t.Fatalf("Length() = %d, want 2 (capped)", cv.Length())
	}
	oldest, err := cv.At(0)
	if err != nil {
		t.Fatal(err)
	}
	host, _ := oldest.ToHost()
	if host != int64(1) {
		t.Fatalf("At(0) after eviction = %v, want 1 (element 0 evicted)", host)
	}
	newest, err := cv.At(1)
	if err != nil {
		t.Fatal(err)
	}
	host2, _ := newest.ToHost()
	if host2 != int64(2) {
		t.Fatalf("At(1) = %v, want 2", host2)
	}
}

func TestCyclicBufferClear(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterCyclicBuffer(int64T, 2)
	v := New(schema, nil)
	defer v.Destroy()

	mc, _ := AsMutableCyclicBuffer(v.MutView())
	elem, _ := FromScalar(int64T, int64(1))
	if err := mc.Push(elem.View()); err != nil {
		t.Fatal(err)
	}
	elem.Destroy()

	if err := mc.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	cv, _ := AsCyclicBuffer(v.View())
	if cv.Length() != 0 {
		t.Fatalf("Length() after Clear = %d, want 0", cv.Length())
	}
	if _, err := cv.At(0); err == nil {
		t.Fatalf("expected At(0) to fail on an empty buffer")
	}
}

func TestCyclicBufferAtOutOfRange(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterCyclicBuffer(int64T, 2)
	v := New(schema, nil)
	defer v.Destroy()

	cv, _ := AsCyclicBuffer(v.View())
	if _, err := cv.At(-1); err == nil {
		t.Fatalf("expected error for negative index")
	}
	if _, err := cv.At(0); err == nil {
		t.Fatalf("expected error on an empty buffer")
	}
}
