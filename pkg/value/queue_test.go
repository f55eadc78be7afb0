package value

import "testing"

func TestQueuePushPopFIFOOrder(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterQueue(int64T, 0)
	v := New(schema, nil)
	defer v.Destroy()

	mq, ok := AsMutableQueue(v.MutView())
	if !ok {
		t.Fatal("AsMutableQueue failed")
	}
	for i := 0; i < 3; i++ {
		elem, err := FromScalar(int64T, int64(i))
		if err != nil {
			t.Fatal(err)
		}
		if err := mq.Push(elem.View()); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
		elem.Destroy()
	}

	qv, _ := AsQueue(v.View())
	if qv.Length() != 3 {
		t.Fatalf("Length() = %d, want 3", qv.Length())
	}
	front, err := qv.Front()
	if err != nil {
		t.Fatal(err)
	}
	host, _ := front.ToHost()
	if host != int64(0) {
		t.Fatalf("Front() = %v, want 0", host)
	}

	if err := mq.Pop(); err != nil {
		t.Fatalf("Pop: %v", err)
	}
	front2, err := qv.Front()
	if err != nil {
		t.Fatal(err)
	}
	host2, _ := front2.ToHost()
	if host2 != int64(1) {
		t.Fatalf("Front() after Pop = %v, want 1", host2)
	}
	if qv.Length() != 2 {
		t.Fatalf("Length() after Pop = %d, want 2", qv.Length())
	}
}

func TestQueuePopOnEmptyErrors(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterQueue(int64T, 0)
	v := New(schema, nil)
	defer v.Destroy()

	mq, _ := AsMutableQueue(v.MutView())
	if err := mq.Pop(); err == nil {
		t.Fatalf("expected error popping an empty queue")
	}
	qv, _ := AsQueue(v.View())
	if _, err := qv.Front(); err == nil {
		t.Fatalf("expected error reading Front of an empty queue")
	}
}

func TestQueueFixedSizeRejectsPushPastCapacity(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterQueue(int64T, 2)
	v := New(schema, nil)
	defer v.Destroy()

	mq, _ := AsMutableQueue(v.MutView())
	for i := 0; i < 2; i++ {
		elem, _ := FromScalar(int64T, int64(i))
		if err := mq.Push(elem.View()); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
		elem.Destroy()
	}
	elem, _ := FromScalar(int64T, int64(99))
	defer elem.Destroy()
	if err := mq.Push(elem.View()); err == nil {
		t.Fatalf("expected FixedSizeViolation pushing past capacity")
	}
}

func TestQueueClear(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterQueue(int64T, 0)
	v := New(schema, nil)
	defer v.Destroy()

	mq, _ := AsMutableQueue(v.MutView())
	elem, _ := FromScalar(int64T, int64(1))
	if err := mq.Push(elem.View()); err != nil {
		t.Fatal(err)
	}
	elem.Destroy()

	if err := mq.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	qv, _ := AsQueue(v.View())
	if qv.Length() != 0 {
		t.Fatalf("Length() after Clear = %d, want 0", qv.Length())
	}
}
