// Package graph is the constructor-injected aggregate that owns a type
// registry, an arena, a metrics sink, and a logger, and exposes the
// TSValue factories and cursor entry points node builders (out of scope)
// actually hold. It is the thing that glues together pkg/typesys,
// pkg/value, pkg/overlay, and pkg/tsview into one embeddable unit.
//
// © 2025 tscore authors. MIT License.
package graph

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/flowgraph/tscore/internal/arena"
	"github.com/flowgraph/tscore/pkg/metrics"
	"github.com/flowgraph/tscore/pkg/overlay"
	"github.com/flowgraph/tscore/pkg/tsview"
	"github.com/flowgraph/tscore/pkg/typesys"
)

// Graph bundles a type registry, an arena, a metrics sink, and a logger.
// The registry guards its own state, but the arena does not (see
// internal/arena's concurrency note), so TSValue factory calls on one
// Graph are not safe to make concurrently; a Graph's TSValues are
// single-writer.
type Graph struct {
	registry *typesys.Registry
	arena    *arena.Arena
	metrics  metrics.Sink
	logger   *zap.Logger

	// Built-in scalar TypeMetas, registered once at construction.
	Int64T, Float64T, BoolT, StringT, BytesT *typesys.TypeMeta

	liveCount map[overlay.TSKind]*atomic.Int64
	liveMu    sync.RWMutex
}

// New constructs a Graph, validating and applying opts.
func New(opts ...Option) (*Graph, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	g := &Graph{
		registry: typesys.NewRegistry(cfg.internTableCap),
		arena:    arena.NewSize(cfg.arenaSlabBytes),
		metrics:  metrics.New(cfg.registry),
		logger:   cfg.logger,
		liveCount: map[overlay.TSKind]*atomic.Int64{
			overlay.KindTS: {}, overlay.KindSignal: {}, overlay.KindTSW: {},
			overlay.KindTSB: {}, overlay.KindTSL: {}, overlay.KindTSD: {},
			overlay.KindTSS: {}, overlay.KindRef: {},
		},
	}
	g.registry.SetRegistrationHook(g.metrics.IncRegistrations)
	g.Int64T, g.Float64T, g.BoolT, g.StringT, g.BytesT = g.registry.Builtins()
	g.logger.Debug("graph constructed", zap.Int("builtin_scalars", 5))
	return g, nil
}

// Registry returns the graph's type registry, for callers building schemas
// beyond the five built-in scalars (RegisterBundle, RegisterList, ...).
func (g *Graph) Registry() *typesys.Registry { return g.registry }

/* -------------------------------------------------------------------------
   TSValue factories — one per TSKind, building the value + overlay tree
   in lockstep via tsview.NewTSValue, and tracking live counts for
   Snapshot().
   ------------------------------------------------------------------------- */

func (g *Graph) track(kind overlay.TSKind) {
	g.liveMu.RLock()
	c := g.liveCount[kind]
	g.liveMu.RUnlock()
	c.Add(1)
	g.metrics.SetArenaBytes(g.arena.Bytes())
}

// newTSValue builds a TSValue from meta and wires it to this graph's
// metrics sink, so its REF cursors (if any, nested or at the root) report
// bind/unbind/deref-empty events through the same sink as everything else.
func (g *Graph) newTSValue(meta *overlay.TSMeta) *tsview.TSValue {
	tv := tsview.NewTSValue(meta, g.arena)
	tv.SetMetrics(g.metrics)
	return tv
}

// NewTS creates a scalar TS value over schema.
func (g *Graph) NewTS(schema *typesys.TypeMeta) *tsview.TSValue {
	g.track(overlay.KindTS)
	return g.newTSValue(overlay.NewScalarTSMeta(overlay.KindTS, schema))
}

// NewSignal creates a SIGNAL value (a TS leaf whose Modified() is consumed
// then expected to be cleared by the node body; tscore itself treats it
// identically to TS — the edge-triggered discipline is a scheduler concern
// out of scope here).
func (g *Graph) NewSignal(schema *typesys.TypeMeta) *tsview.TSValue {
	g.track(overlay.KindSignal)
	return g.newTSValue(overlay.NewScalarTSMeta(overlay.KindSignal, schema))
}

// NewTSW creates a windowed time series retaining up to capacity values.
func (g *Graph) NewTSW(schema *typesys.TypeMeta, capacity int) *tsview.TSValue {
	g.track(overlay.KindTSW)
	return g.newTSValue(overlay.NewWindowTSMeta(schema, capacity))
}

// NewTSB creates a time-series bundle whose fields are the given child
// TSMetas (build each field with NewTS/NewTSW/NewTSL/... 's Meta(), or
// directly via the overlay constructors for a nested schema not backed by
// its own TSValue).
func (g *Graph) NewTSB(schema *typesys.TypeMeta, fields []*overlay.TSMeta) *tsview.TSValue {
	g.track(overlay.KindTSB)
	return g.newTSValue(overlay.NewBundleTSMeta(schema, fields))
}

// NewTSL creates a time-series list of elem-shaped elements.
func (g *Graph) NewTSL(schema *typesys.TypeMeta, elem *overlay.TSMeta) *tsview.TSValue {
	g.track(overlay.KindTSL)
	return g.newTSValue(overlay.NewListTSMeta(schema, elem))
}

// NewTSD creates a time-series dictionary with elem-shaped values.
func (g *Graph) NewTSD(schema *typesys.TypeMeta, elem *overlay.TSMeta) *tsview.TSValue {
	g.track(overlay.KindTSD)
	return g.newTSValue(overlay.NewDictTSMeta(schema, elem))
}

// NewTSS creates a time-series set.
func (g *Graph) NewTSS(schema *typesys.TypeMeta) *tsview.TSValue {
	g.track(overlay.KindTSS)
	return g.newTSValue(overlay.NewSetTSMeta(schema))
}

// NewRef creates a reference cell over schema.
func (g *Graph) NewRef(schema *typesys.TypeMeta) *tsview.TSValue {
	g.track(overlay.KindRef)
	return g.newTSValue(overlay.NewRefTSMeta(schema))
}

/* -------------------------------------------------------------------------
   Cursor entry points — thin pass-throughs kept here so a node builder
   never has to reach into pkg/tsview directly for the common case.
   ------------------------------------------------------------------------- */

// Root is tv.Root(t), exposed on Graph purely for call-site symmetry with
// the New* factories; it does not use g's own state.
func (g *Graph) Root(tv *tsview.TSValue, t tsview.EngineTime) tsview.TSView {
	return tv.Root(t)
}

// RootMutable is tv.RootMutable(t)'s pass-through; it additionally records
// an overlay-write metric every time a caller obtains a mutable cursor,
// since that is the precondition for every subsequent bubble().
func (g *Graph) RootMutable(tv *tsview.TSValue, t tsview.EngineTime) tsview.MutableTSView {
	g.metrics.IncOverlayWrites()
	return tv.RootMutable(t)
}

/* -------------------------------------------------------------------------
   Introspection
   ------------------------------------------------------------------------- */

// Snapshot returns a point-in-time map suitable for JSON serialisation by
// an embedding host's /debug endpoint, or for cmd/tscore-inspect to render
// directly. Keys: "registry_size", "arena_bytes", "live_by_kind" (TSKind
// string -> count).
func (g *Graph) Snapshot() map[string]any {
	byKind := make(map[string]int64, len(g.liveCount))
	g.liveMu.RLock()
	for k, c := range g.liveCount {
		byKind[k.String()] = c.Load()
	}
	g.liveMu.RUnlock()
	return map[string]any{
		"registry_size": g.registry.Len(),
		"arena_bytes":   g.arena.Bytes(),
		"live_by_kind":  byKind,
	}
}
