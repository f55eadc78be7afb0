package value

import (
	"reflect"
	"testing"

	"github.com/flowgraph/tscore/pkg/typesys"
)

func TestBundleHostRoundTrip(t *testing.T) {
	r, int64T, float64T := newTestRegistry()
	schema := r.RegisterBundle([]typesys.BundleField{
		{Name: "price", Type: float64T},
		{Name: "qty", Type: int64T},
	})
	v := New(schema, nil)
	defer v.Destroy()

	if err := v.MutView().SetValue(map[string]any{"price": 101.5, "qty": int64(3)}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	host, err := v.View().ToHost()
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	want := map[string]any{"price": 101.5, "qty": int64(3)}
	if !reflect.DeepEqual(host, want) {
		t.Fatalf("ToHost = %#v, want %#v", host, want)
	}
}

func TestBundleHostRoundTripDeactivatesNilField(t *testing.T) {
	r, int64T, float64T := newTestRegistry()
	schema := r.RegisterBundle([]typesys.BundleField{
		{Name: "price", Type: float64T},
		{Name: "qty", Type: int64T},
	})
	v := New(schema, nil)
	defer v.Destroy()

	if err := v.MutView().SetValue(map[string]any{"price": 9.0, "qty": nil}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	b, _ := AsBundle(v.View())
	if b.FieldValid(1) {
		t.Fatalf("expected qty invalid after nil host entry")
	}
	host, err := v.View().ToHost()
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	m := host.(map[string]any)
	if m["qty"] != nil {
		t.Fatalf("qty = %v, want nil (host-null for invalid field)", m["qty"])
	}
}

func TestTupleHostRoundTrip(t *testing.T) {
	r, int64T, float64T := newTestRegistry()
	schema := r.RegisterTuple(int64T, float64T)
	v := New(schema, nil)
	defer v.Destroy()

	if err := v.MutView().SetValue([]any{int64(4), 2.5}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	host, err := v.View().ToHost()
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	want := []any{int64(4), 2.5}
	if !reflect.DeepEqual(host, want) {
		t.Fatalf("ToHost = %#v, want %#v", host, want)
	}
}

func TestListHostRoundTripDynamic(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterList(int64T, 0)
	v := New(schema, nil)
	defer v.Destroy()

	if err := v.MutView().SetValue([]any{int64(1), int64(2), int64(3)}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	host, err := v.View().ToHost()
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	want := []any{int64(1), int64(2), int64(3)}
	if !reflect.DeepEqual(host, want) {
		t.Fatalf("ToHost = %#v, want %#v", host, want)
	}
}

func TestListHostRoundTripFixedSizeAndNilSlot(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterList(int64T, 3)
	v := New(schema, nil)
	defer v.Destroy()

	if err := v.MutView().SetValue([]any{int64(1), nil, int64(3)}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	host, err := v.View().ToHost()
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	want := []any{int64(1), nil, int64(3)}
	if !reflect.DeepEqual(host, want) {
		t.Fatalf("ToHost = %#v, want %#v", host, want)
	}

	ml, _ := AsMutableList(v.MutView())
	if err := ml.FromHost([]any{int64(1), int64(2)}); err == nil {
		t.Fatalf("expected FixedSizeViolation for wrong-length host on a fixed list")
	}
}

func TestSetHostRoundTrip(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterSet(int64T)
	v := New(schema, nil)
	defer v.Destroy()

	if err := v.MutView().SetValue([]any{int64(1), int64(2), int64(1)}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	host, err := v.View().ToHost()
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	items := host.([]any)
	if len(items) != 2 {
		t.Fatalf("ToHost len = %d, want 2 (dup collapsed)", len(items))
	}
}

func TestMapHostRoundTrip(t *testing.T) {
	r, int64T, float64T := newTestRegistry()
	schema := r.RegisterMap(int64T, float64T)
	v := New(schema, nil)
	defer v.Destroy()

	if err := v.MutView().SetValue(map[any]any{int64(1): 1.5, int64(2): nil}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	host, err := v.View().ToHost()
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	m := host.(map[any]any)
	if m[int64(1)] != 1.5 {
		t.Fatalf("m[1] = %v, want 1.5", m[int64(1)])
	}
	if v, ok := m[int64(2)]; !ok || v != nil {
		t.Fatalf("m[2] = %v, ok=%v, want nil,true (deferred-value key)", v, ok)
	}
}

func TestCyclicBufferHostRoundTrip(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterCyclicBuffer(int64T, 3)
	v := New(schema, nil)
	defer v.Destroy()

	if err := v.MutView().SetValue([]any{int64(1), int64(2), int64(3), int64(4)}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	host, err := v.View().ToHost()
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	want := []any{int64(2), int64(3), int64(4)}
	if !reflect.DeepEqual(host, want) {
		t.Fatalf("ToHost = %#v, want %#v (oldest entry evicted)", host, want)
	}
}

func TestQueueHostRoundTrip(t *testing.T) {
	r, int64T, _ := newTestRegistry()
	schema := r.RegisterQueue(int64T, 0)
	v := New(schema, nil)
	defer v.Destroy()

	if err := v.MutView().SetValue([]any{int64(1), int64(2), int64(3)}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	host, err := v.View().ToHost()
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	want := []any{int64(1), int64(2), int64(3)}
	if !reflect.DeepEqual(host, want) {
		t.Fatalf("ToHost = %#v, want %#v", host, want)
	}
}

func TestNestedBundleInListHostRoundTrip(t *testing.T) {
	r, int64T, float64T := newTestRegistry()
	itemT := r.RegisterBundle([]typesys.BundleField{
		{Name: "id", Type: int64T},
		{Name: "weight", Type: float64T},
	})
	schema := r.RegisterList(itemT, 0)
	v := New(schema, nil)
	defer v.Destroy()

	host := []any{
		map[string]any{"id": int64(1), "weight": 1.0},
		map[string]any{"id": int64(2), "weight": 2.5},
	}
	if err := v.MutView().SetValue(host); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	got, err := v.View().ToHost()
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	if !reflect.DeepEqual(got, host) {
		t.Fatalf("ToHost = %#v, want %#v", got, host)
	}
}
