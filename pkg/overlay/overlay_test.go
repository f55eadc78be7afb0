package overlay

import (
	"testing"

	"github.com/flowgraph/tscore/pkg/typesys"
	"github.com/flowgraph/tscore/pkg/value"
)

func builtins() (*typesys.Registry, *typesys.TypeMeta) {
	r := typesys.NewRegistry(0)
	int64T, _, _, _, _ := r.Builtins()
	return r, int64T
}

func TestScalarOverlayStampAndModified(t *testing.T) {
	_, int64T := builtins()
	o := New(NewScalarTSMeta(KindTS, int64T))

	if o.Valid() {
		t.Fatalf("fresh overlay should be invalid")
	}
	o.StampLeaf(5)
	if !o.Valid() {
		t.Fatalf("expected valid after StampLeaf")
	}
	if !o.Modified(5) {
		t.Fatalf("Modified(5) should be true for a write at t=5")
	}
	if o.Modified(6) {
		t.Fatalf("Modified(6) should be false for a write at t=5")
	}
	if !o.Modified(0) {
		t.Fatalf("Modified(0) should be true: 5 >= 0")
	}
}

func TestBundleOverlayFieldsAndAllValid(t *testing.T) {
	_, int64T := builtins()
	meta := NewBundleTSMeta(int64T, []*TSMeta{
		NewScalarTSMeta(KindTS, int64T),
		NewScalarTSMeta(KindTS, int64T),
	})
	o := New(meta)
	if AllValid(o) {
		t.Fatalf("expected AllValid false before any field write")
	}
	o.Field(0).StampLeaf(1)
	if AllValid(o) {
		t.Fatalf("expected AllValid false with only one field set")
	}
	o.Field(1).StampLeaf(1)
	if !AllValid(o) {
		t.Fatalf("expected AllValid true once all fields set")
	}
}

func TestListPushIndexDedupeAndPrune(t *testing.T) {
	_, int64T := builtins()
	elem := NewScalarTSMeta(KindTS, int64T)
	meta := NewListTSMeta(int64T, elem)
	o := New(meta)

	o.PushListIndex(1, 3)
	o.PushListIndex(1, 3) // duplicate within same tick
	o.PushListIndex(1, 5)
	idxs := o.ModifiedIndices(1)
	if len(idxs) != 2 {
		t.Fatalf("ModifiedIndices(1) = %v, want 2 deduped entries", idxs)
	}

	o.PushListIndex(2, 7) // new tick: should prune tick-1 entries
	idxsOld := o.ModifiedIndices(1)
	if idxsOld != nil {
		t.Fatalf("ModifiedIndices(1) after tick advanced = %v, want nil", idxsOld)
	}
	idxsNew := o.ModifiedIndices(2)
	if len(idxsNew) != 1 || idxsNew[0] != 7 {
		t.Fatalf("ModifiedIndices(2) = %v, want [7]", idxsNew)
	}
}

func TestDictDeltaAddedRemovedKeys(t *testing.T) {
	_, int64T := builtins()
	elem := NewScalarTSMeta(KindTS, int64T)
	meta := NewDictTSMeta(int64T, elem)
	o := New(meta)

	o.PushAddedKey(10, 0, "a")
	o.PushAddedKey(10, 0, "a") // dedupe by slot within tick
	o.PushAddedKey(10, 1, "b")
	o.PushRemovedKey(10, "c")

	added, removed := o.DictDelta(10)
	if len(added) != 2 {
		t.Fatalf("added keys = %v, want 2 entries", added)
	}
	if len(removed) != 1 || removed[0] != "c" {
		t.Fatalf("removed keys = %v, want [c]", removed)
	}

	addedStale, removedStale := o.DictDelta(11)
	if addedStale != nil || removedStale != nil {
		t.Fatalf("DictDelta at a tick never written should be nil, nil")
	}
}

func TestSetDeltaDedupeByHash(t *testing.T) {
	_, int64T := builtins()
	meta := NewSetTSMeta(int64T)
	o := New(meta)

	o.PushAddedValue(3, 111, int64(5))
	o.PushAddedValue(3, 111, int64(5)) // same hash, should dedupe
	o.PushAddedValue(3, 222, int64(6))
	added, _ := o.SetDelta(3)
	if len(added) != 2 {
		t.Fatalf("SetDelta added = %v, want 2 entries", added)
	}
}

func TestSlotOverlayCreatedOnceAndReused(t *testing.T) {
	_, int64T := builtins()
	elem := NewScalarTSMeta(KindTS, int64T)
	meta := NewListTSMeta(int64T, elem)
	o := New(meta)

	s1 := o.SlotOverlay(2, elem)
	s2 := o.SlotOverlay(2, elem)
	if s1 != s2 {
		t.Fatalf("expected SlotOverlay to return the same overlay for a repeated slot")
	}
	s1.StampLeaf(4)
	if !o.SlotOverlay(2, elem).Valid() {
		t.Fatalf("expected stamping through s1 to be visible via a fresh SlotOverlay lookup")
	}
}

func TestWindowPushEvictsOldest(t *testing.T) {
	_, int64T := builtins()
	w := NewWindow(int64T, 2)

	push := func(n int64, t EngineTime) {
		sv, err := value.FromScalar(int64T, n)
		if err != nil {
			panic(err)
		}
		w.Push(sv.View(), t)
		sv.Destroy()
	}

	push(1, 1)
	if w.Len() != 1 || w.HasRemovedValue() {
		t.Fatalf("after first push: len=%d removed=%v", w.Len(), w.HasRemovedValue())
	}
	push(2, 2)
	if w.Len() != 2 || w.HasRemovedValue() {
		t.Fatalf("after second push (at capacity, no eviction yet): len=%d removed=%v", w.Len(), w.HasRemovedValue())
	}
	push(3, 3)
	if w.Len() != 2 || !w.HasRemovedValue() {
		t.Fatalf("after third push (over capacity): len=%d removed=%v, want len=2 removed=true", w.Len(), w.HasRemovedValue())
	}
	removedHost, err := w.RemovedValue().ToHost()
	if err != nil {
		t.Fatal(err)
	}
	if removedHost != int64(1) {
		t.Fatalf("evicted value = %v, want 1 (the oldest)", removedHost)
	}
	newestHost, err := w.Value().ToHost()
	if err != nil {
		t.Fatal(err)
	}
	if newestHost != int64(3) {
		t.Fatalf("newest value = %v, want 3", newestHost)
	}
	if w.FirstModifiedTime() != 2 {
		t.Fatalf("FirstModifiedTime() = %d, want 2 (the write time of the now-oldest retained value)", w.FirstModifiedTime())
	}
}
