// Package metrics is a thin abstraction over Prometheus so that tscore can
// be used with or without metrics. When the embedding host passes a
// *prometheus.Registry into graph.New via graph.WithMetrics, an unlabeled
// Prometheus sink is created; otherwise a no-op sink is used and the hot
// path never pays for metric updates.
//
// Each New call with a registry creates its own counters, registered on
// that registry; there are no per-shard labels — tscore has no sharding
// concept — but the package otherwise follows the same split as the cache package this
// is adapted from: a minimal internal interface, a no-op implementation,
// and a Prometheus implementation, selected once at construction time.
//
// © 2025 tscore authors. MIT License.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Sink is the interface abstracting the concrete backend (Prometheus vs
// noop). The concrete sink types stay unexported; graph.Graph and
// tsview.TSValue only know about the generic methods here.
type Sink interface {
	IncRegistrations()
	IncOverlayWrites()
	AddArenaBytes(delta int64)
	SetArenaBytes(value int64)
	IncRefRebinds()
	IncRefUnresolved()
}

type noopSink struct{}

func (noopSink) IncRegistrations()   {}
func (noopSink) IncOverlayWrites()   {}
func (noopSink) AddArenaBytes(int64) {}
func (noopSink) SetArenaBytes(int64) {}
func (noopSink) IncRefRebinds()      {}
func (noopSink) IncRefUnresolved()   {}

type promSink struct {
	registrations prometheus.Counter
	overlayWrites prometheus.Counter
	arenaBytes    prometheus.Gauge
	refRebinds    prometheus.Counter
	refUnresolved prometheus.Counter
}

func newPromSink(reg *prometheus.Registry) *promSink {
	p := &promSink{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tscore",
			Name:      "type_registrations_total",
			Help:      "Number of TypeMeta interning calls that built a new entry.",
		}),
		overlayWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tscore",
			Name:      "overlay_writes_total",
			Help:      "Number of mutable root cursors obtained through graph.RootMutable.",
		}),
		arenaBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tscore",
			Name:      "arena_bytes",
			Help:      "Bytes committed across the slabs of the Value arena owned by this graph.",
		}),
		refRebinds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tscore",
			Name:      "ref_rebinds_total",
			Help:      "Number of REF cell bind()/unbind() calls.",
		}),
		refUnresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tscore",
			Name:      "ref_unresolved_total",
			Help:      "Number of dereferences of an Empty REF cell.",
		}),
	}
	reg.MustRegister(p.registrations, p.overlayWrites, p.arenaBytes, p.refRebinds, p.refUnresolved)
	return p
}

func (p *promSink) IncRegistrations() { p.registrations.Inc() }
func (p *promSink) IncOverlayWrites() { p.overlayWrites.Inc() }
func (p *promSink) AddArenaBytes(d int64) {
	if d != 0 {
		p.arenaBytes.Add(float64(d))
	}
}
func (p *promSink) SetArenaBytes(v int64) { p.arenaBytes.Set(float64(v)) }
func (p *promSink) IncRefRebinds()        { p.refRebinds.Inc() }
func (p *promSink) IncRefUnresolved()     { p.refUnresolved.Inc() }

// New selects the sink implementation: a no-op sink if reg is nil,
// otherwise a Prometheus-backed one registered against reg.
func New(reg *prometheus.Registry) Sink {
	if reg == nil {
		return noopSink{}
	}
	return newPromSink(reg)
}
