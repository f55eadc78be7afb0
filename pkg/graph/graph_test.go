package graph

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flowgraph/tscore/pkg/overlay"
	"github.com/flowgraph/tscore/pkg/typesys"
)

func TestNewAppliesDefaults(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if g.Int64T == nil || g.Float64T == nil || g.BoolT == nil || g.StringT == nil || g.BytesT == nil {
		t.Fatalf("expected all five builtin scalars to be populated")
	}
	if g.Registry().Len() != 5 {
		t.Fatalf("Registry().Len() = %d, want 5", g.Registry().Len())
	}
}

func TestNewRejectsNonPositiveSlabBytes(t *testing.T) {
	if _, err := New(WithArenaSlabBytes(0)); err == nil {
		t.Fatalf("expected an error for a zero arena slab size")
	}
	if _, err := New(WithArenaSlabBytes(-1)); err == nil {
		t.Fatalf("expected an error for a negative arena slab size")
	}
}

func TestWithInternTableSizeHintIgnoresNonPositive(t *testing.T) {
	cfg, err := applyOptions([]Option{WithInternTableSizeHint(0)})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.internTableCap != defaultConfig().internTableCap {
		t.Fatalf("expected a non-positive hint to be ignored, got %d", cfg.internTableCap)
	}
	cfg, err = applyOptions([]Option{WithInternTableSizeHint(1024)})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.internTableCap != 1024 {
		t.Fatalf("internTableCap = %d, want 1024", cfg.internTableCap)
	}
}

func TestNewTSScalarWriteAndRead(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatal(err)
	}
	tv := g.NewTS(g.Int64T)
	defer tv.Destroy()

	w := g.RootMutable(tv, 1)
	if err := w.SetValue(int64(5)); err != nil {
		t.Fatal(err)
	}
	r := g.Root(tv, 1)
	if !r.Modified() {
		t.Fatalf("expected Modified() true at the write tick")
	}
	val, err := r.Value()
	if err != nil {
		t.Fatal(err)
	}
	host, err := val.ToHost()
	if err != nil {
		t.Fatal(err)
	}
	if host != int64(5) {
		t.Fatalf("value = %v, want 5", host)
	}
}

func TestFactoriesTrackLiveCounts(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatal(err)
	}

	tv1 := g.NewTS(g.Int64T)
	defer tv1.Destroy()
	tv2 := g.NewTS(g.Int64T)
	defer tv2.Destroy()
	tw := g.NewTSW(g.Float64T, 4)
	defer tw.Destroy()
	tset := g.NewTSS(g.Int64T)
	defer tset.Destroy()
	tref := g.NewRef(g.Int64T)
	defer tref.Destroy()

	snap := g.Snapshot()
	byKind, ok := snap["live_by_kind"].(map[string]int64)
	if !ok {
		t.Fatalf("live_by_kind has unexpected type %T", snap["live_by_kind"])
	}
	if byKind[overlay.KindTS.String()] != 2 {
		t.Fatalf("live TS count = %d, want 2", byKind[overlay.KindTS.String()])
	}
	if byKind[overlay.KindTSW.String()] != 1 {
		t.Fatalf("live TSW count = %d, want 1", byKind[overlay.KindTSW.String()])
	}
	if byKind[overlay.KindTSS.String()] != 1 {
		t.Fatalf("live TSS count = %d, want 1", byKind[overlay.KindTSS.String()])
	}
	if byKind[overlay.KindRef.String()] != 1 {
		t.Fatalf("live Ref count = %d, want 1", byKind[overlay.KindRef.String()])
	}
	if snap["registry_size"].(int) != 5 {
		t.Fatalf("registry_size = %v, want 5", snap["registry_size"])
	}
}

func TestNewTSBUsesGraphRegistrySchema(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatal(err)
	}
	schema := g.Registry().RegisterBundle([]typesys.BundleField{
		{Name: "a", Type: g.Int64T},
	})
	fields := []*overlay.TSMeta{overlay.NewScalarTSMeta(overlay.KindTS, g.Int64T)}
	tv := g.NewTSB(schema, fields)
	defer tv.Destroy()

	w := g.RootMutable(tv, 1)
	if err := w.SetField("a", int64(3)); err != nil {
		t.Fatal(err)
	}
	r := g.Root(tv, 1)
	if !r.Modified() {
		t.Fatalf("expected the bundle to report modified after a field write")
	}
}

func TestSnapshotReflectsArenaBytes(t *testing.T) {
	g, err := New(WithArenaSlabBytes(4096))
	if err != nil {
		t.Fatal(err)
	}
	before := g.Snapshot()["arena_bytes"].(int64)
	tv := g.NewTS(g.Int64T)
	defer tv.Destroy()
	after := g.Snapshot()["arena_bytes"].(int64)
	if after < before {
		t.Fatalf("arena_bytes decreased after allocation: before=%d after=%d", before, after)
	}
}

func TestWithMetricsRegistersPrometheusCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	g, err := New(WithMetrics(reg))
	if err != nil {
		t.Fatal(err)
	}
	tv := g.NewTS(g.Int64T)
	defer tv.Destroy()
	w := g.RootMutable(tv, 1)
	if err := w.SetValue(int64(1)); err != nil {
		t.Fatal(err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) == 0 {
		t.Fatalf("expected at least one registered metric family")
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestRegistrationHookCountsInternMisses(t *testing.T) {
	reg := prometheus.NewRegistry()
	g, err := New(WithMetrics(reg))
	if err != nil {
		t.Fatal(err)
	}
	before := counterValue(t, reg, "tscore_type_registrations_total")

	g.Registry().RegisterList(g.Int64T, 0)
	g.Registry().RegisterList(g.Int64T, 0) // same shape, must not re-register

	after := counterValue(t, reg, "tscore_type_registrations_total")
	if after != before+1 {
		t.Fatalf("type_registrations_total went from %v to %v, want +1", before, after)
	}
}

func TestRefBindUnbindAndEmptyDerefCountThroughGraphMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	g, err := New(WithMetrics(reg))
	if err != nil {
		t.Fatal(err)
	}

	target := g.NewTS(g.Int64T)
	defer target.Destroy()
	tw := g.RootMutable(target, 1)
	if err := tw.SetValue(int64(42)); err != nil {
		t.Fatal(err)
	}

	ref := g.NewRef(g.Int64T)
	defer ref.Destroy()

	// Dereferencing an unbound ref must count as unresolved.
	if _, err := g.Root(ref, 1).Deref(); err == nil {
		t.Fatalf("expected Deref() of an unbound ref to error")
	}
	if got := counterValue(t, reg, "tscore_ref_unresolved_total"); got != 1 {
		t.Fatalf("ref_unresolved_total = %v, want 1", got)
	}

	rw := g.RootMutable(ref, 2)
	if err := rw.BindTarget(target); err != nil {
		t.Fatal(err)
	}
	if got := counterValue(t, reg, "tscore_ref_rebinds_total"); got != 1 {
		t.Fatalf("ref_rebinds_total after BindTarget = %v, want 1", got)
	}

	rw2 := g.RootMutable(ref, 3)
	if err := rw2.Unbind(); err != nil {
		t.Fatal(err)
	}
	if got := counterValue(t, reg, "tscore_ref_rebinds_total"); got != 2 {
		t.Fatalf("ref_rebinds_total after Unbind = %v, want 2", got)
	}
}
