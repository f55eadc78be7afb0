package value

import (
	"testing"

	"github.com/flowgraph/tscore/pkg/typesys"
)

func newTestRegistry() (*typesys.Registry, *typesys.TypeMeta, *typesys.TypeMeta) {
	r := typesys.NewRegistry(0)
	int64T, float64T, _, _, _ := r.Builtins()
	return r, int64T, float64T
}

func TestScalarValueRoundTrip(t *testing.T) {
	_, int64T, _ := newTestRegistry()
	v := New(int64T, nil)
	defer v.Destroy()

	mv := v.MutView()
	if err := mv.SetValue(int64(7)); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	host, err := v.View().ToHost()
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	if host != int64(7) {
		t.Fatalf("ToHost = %v, want 7", host)
	}
}

func TestReadOnlyViewRejectsWrite(t *testing.T) {
	_, int64T, _ := newTestRegistry()
	v := New(int64T, nil)
	defer v.Destroy()

	ro := MutableView{View: v.View()}
	if err := ro.SetValue(int64(1)); err == nil {
		t.Fatalf("expected error writing through a non-mutable view")
	}
}

func TestBundleFieldAccess(t *testing.T) {
	r, int64T, float64T := newTestRegistry()
	schema := r.RegisterBundle([]typesys.BundleField{
		{Name: "price", Type: float64T},
		{Name: "qty", Type: int64T},
	})
	v := New(schema, nil)
	defer v.Destroy()

	mb, ok := AsMutableBundle(v.MutView())
	if !ok {
		t.Fatal("AsMutableBundle failed")
	}
	priceVal, err := FromScalar(float64T, 101.5)
	if err != nil {
		t.Fatal(err)
	}
	defer priceVal.Destroy()
	if err := mb.SetField("price", priceVal.View()); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	b, ok := AsBundle(v.View())
	if !ok {
		t.Fatal("AsBundle failed")
	}
	fv, err := b.Field("price")
	if err != nil {
		t.Fatal(err)
	}
	host, err := fv.ToHost()
	if err != nil {
		t.Fatal(err)
	}
	if host != 101.5 {
		t.Fatalf("price = %v, want 101.5", host)
	}
	if !b.FieldValid(0) {
		t.Fatalf("expected price field to be valid after SetField")
	}
	if !b.FieldValid(1) {
		t.Fatalf("expected qty field to be valid after construction, with no write")
	}
}

func TestListPushAndAt(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterList(int64T, 0)
	v := New(schema, nil)
	defer v.Destroy()

	ml, ok := AsMutableList(v.MutView())
	if !ok {
		t.Fatal("AsMutableList failed")
	}
	for i := 0; i < 3; i++ {
		elem, err := FromScalar(int64T, int64(i*10))
		if err != nil {
			t.Fatal(err)
		}
		if err := ml.Push(elem.View()); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
		elem.Destroy()
	}

	lv, _ := AsList(v.View())
	if lv.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", lv.Size())
	}
	el, err := lv.At(1)
	if err != nil {
		t.Fatal(err)
	}
	host, err := el.ToHost()
	if err != nil {
		t.Fatal(err)
	}
	if host != int64(10) {
		t.Fatalf("element 1 = %v, want 10", host)
	}
}

func TestSetAddContainsRemove(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterSet(int64T)
	v := New(schema, nil)
	defer v.Destroy()

	ms, ok := AsMutableSet(v.MutView())
	if !ok {
		t.Fatal("AsMutableSet failed")
	}
	if _, added, err := ms.Add(int64(5)); err != nil || !added {
		t.Fatalf("Add(5) = added=%v err=%v, want added=true", added, err)
	}
	if _, added, err := ms.Add(int64(5)); err != nil || added {
		t.Fatalf("Add(5) again = added=%v err=%v, want added=false", added, err)
	}

	sv, _ := AsSet(v.View())
	ok2, err := sv.Contains(int64(5))
	if err != nil || !ok2 {
		t.Fatalf("Contains(5) = %v, %v, want true, nil", ok2, err)
	}
	if sv.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", sv.Size())
	}

	if _, removed, err := ms.Remove(int64(5)); err != nil || !removed {
		t.Fatalf("Remove(5) = removed=%v err=%v, want true", removed, err)
	}
	ok3, err := sv.Contains(int64(5))
	if err != nil || ok3 {
		t.Fatalf("Contains(5) after remove = %v, %v, want false", ok3, err)
	}
}

func TestMapSetItemAndAt(t *testing.T) {
	r, int64T, float64T := newTestRegistry()
	schema := r.RegisterMap(int64T, float64T)
	v := New(schema, nil)
	defer v.Destroy()

	mm, ok := AsMutableMap(v.MutView())
	if !ok {
		t.Fatal("AsMutableMap failed")
	}
	val, err := FromScalar(float64T, 3.14)
	if err != nil {
		t.Fatal(err)
	}
	defer val.Destroy()
	if _, added, err := mm.SetItem(int64(1), val.View()); err != nil || !added {
		t.Fatalf("SetItem = added=%v err=%v, want true", added, err)
	}

	mvw, _ := AsMap(v.View())
	got, err := mvw.At(int64(1))
	if err != nil {
		t.Fatal(err)
	}
	host, err := got.ToHost()
	if err != nil {
		t.Fatal(err)
	}
	if host != 3.14 {
		t.Fatalf("At(1) = %v, want 3.14", host)
	}
	if mvw.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", mvw.Size())
	}
}
