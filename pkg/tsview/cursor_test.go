package tsview

import (
	"testing"

	"github.com/flowgraph/tscore/internal/arena"
	"github.com/flowgraph/tscore/pkg/overlay"
	"github.com/flowgraph/tscore/pkg/typesys"
	"github.com/flowgraph/tscore/pkg/value"
)

func TestDictKeysValuesItems(t *testing.T) {
	reg := typesys.NewRegistry(0)
	intT, _, _, _, _ := reg.Builtins()
	dictSchema := reg.RegisterMap(intT, intT)
	elemTS := overlay.NewScalarTSMeta(overlay.KindTS, intT)

	a := arena.New()
	tv := NewTSValue(overlay.NewDictTSMeta(dictSchema, elemTS), a)
	defer tv.Destroy()

	w := tv.RootMutable(1)
	if err := w.Set(int64(1), int64(10)); err != nil {
		t.Fatal(err)
	}
	if err := w.SetDeferred(int64(2)); err != nil {
		t.Fatal(err)
	}

	root := tv.Root(1)
	keys, err := root.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("Keys() = %v, want 2 entries (including the deferred key)", keys)
	}

	validKeys, err := root.ValidKeys()
	if err != nil {
		t.Fatal(err)
	}
	if len(validKeys) != 1 || validKeys[0] != int64(1) {
		t.Fatalf("ValidKeys() = %v, want [1]", validKeys)
	}

	items, err := root.Items()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("Items() len = %d, want 2", len(items))
	}
	var sawDeferred bool
	for _, it := range items {
		if it.Key == int64(2) {
			sawDeferred = true
			if it.Value.meta != nil {
				t.Fatalf("expected the deferred key's entry to carry the zero TSView")
			}
		}
	}
	if !sawDeferred {
		t.Fatalf("expected Items() to include the deferred key")
	}

	validItems, err := root.ValidItems()
	if err != nil {
		t.Fatal(err)
	}
	if len(validItems) != 1 {
		t.Fatalf("ValidItems() len = %d, want 1", len(validItems))
	}
	host, err := validItems[0].Value.Value()
	if err != nil {
		t.Fatal(err)
	}
	hv, err := host.ToHost()
	if err != nil {
		t.Fatal(err)
	}
	if hv != int64(10) {
		t.Fatalf("ValidItems()[0].Value = %v, want 10", hv)
	}

	validValues, err := root.ValidValues()
	if err != nil {
		t.Fatal(err)
	}
	if len(validValues) != 1 {
		t.Fatalf("ValidValues() len = %d, want 1", len(validValues))
	}
}

func TestDictKeySetView(t *testing.T) {
	reg := typesys.NewRegistry(0)
	intT, _, _, _, _ := reg.Builtins()
	dictSchema := reg.RegisterMap(intT, intT)
	elemTS := overlay.NewScalarTSMeta(overlay.KindTS, intT)

	a := arena.New()
	tv := NewTSValue(overlay.NewDictTSMeta(dictSchema, elemTS), a)
	defer tv.Destroy()

	w := tv.RootMutable(1)
	if err := w.Set(int64(1), int64(10)); err != nil {
		t.Fatal(err)
	}
	if err := w.Set(int64(2), int64(20)); err != nil {
		t.Fatal(err)
	}

	root := tv.Root(1)
	snap, sv, err := root.KeySetView()
	if err != nil {
		t.Fatal(err)
	}
	defer snap.Destroy()
	if sv.Size() != 2 {
		t.Fatalf("KeySetView Size() = %d, want 2", sv.Size())
	}
	ok, err := sv.Contains(int64(1))
	if err != nil || !ok {
		t.Fatalf("KeySetView Contains(1) = %v, %v, want true", ok, err)
	}
}

func TestListValidIndicesValuesItems(t *testing.T) {
	reg := typesys.NewRegistry(0)
	intT, _, _, _, _ := reg.Builtins()
	listSchema := reg.RegisterList(intT, 0)
	elemTS := overlay.NewScalarTSMeta(overlay.KindTS, intT)

	a := arena.New()
	tv := NewTSValue(overlay.NewListTSMeta(listSchema, elemTS), a)
	defer tv.Destroy()

	w := tv.RootMutable(1)
	zero := value.New(intT, a).View()
	if err := w.Push(zero); err != nil {
		t.Fatal(err)
	}
	if err := w.Push(zero); err != nil {
		t.Fatal(err)
	}
	if err := w.SetElement(0, int64(7)); err != nil {
		t.Fatal(err)
	}

	root := tv.Root(1)
	idxs, err := root.ValidIndices()
	if err != nil {
		t.Fatal(err)
	}
	if len(idxs) != 2 {
		t.Fatalf("ValidIndices() = %v, want both elements present (they default-construct valid)", idxs)
	}

	items, err := root.ValidItems()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Index != 0 {
		t.Fatalf("ValidItems() = %+v, want index 0 first", items)
	}
}

func TestBundleItemsAndValidFiltering(t *testing.T) {
	r := typesys.NewRegistry(0)
	int64T, float64T, _, _, _ := r.Builtins()
	schema := r.RegisterBundle([]typesys.BundleField{
		{Name: "price", Type: float64T},
		{Name: "qty", Type: int64T},
	})
	children := []*overlay.TSMeta{
		overlay.NewScalarTSMeta(overlay.KindTS, float64T),
		overlay.NewScalarTSMeta(overlay.KindTS, int64T),
	}
	a := arena.New()
	tv := NewTSValue(overlay.NewBundleTSMeta(schema, children), a)
	defer tv.Destroy()

	w := tv.RootMutable(5)
	if err := w.SetField("price", 101.5); err != nil {
		t.Fatal(err)
	}

	root := tv.Root(5)
	items, err := root.Items()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("Items() len = %d, want 2", len(items))
	}

	validKeys, err := root.ValidKeys()
	if err != nil {
		t.Fatal(err)
	}
	if len(validKeys) != 1 || validKeys[0] != "price" {
		t.Fatalf("ValidKeys() = %v, want [price]", validKeys)
	}

	validItems, err := root.ValidItems()
	if err != nil {
		t.Fatal(err)
	}
	if len(validItems) != 1 || validItems[0].Name != "price" {
		t.Fatalf("ValidItems() = %+v, want just price", validItems)
	}
}
