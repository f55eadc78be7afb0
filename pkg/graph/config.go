package graph

// config.go defines the internal configuration object and the set of
// functional options passed to New. All fields are initialised with
// sensible defaults in defaultConfig(); options never allocate unless
// strictly necessary — they just capture pointers to external objects
// (registry, logger).
//
// © 2025 tscore authors. MIT License.

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures a Graph at construction time.
type Option func(*config)

type config struct {
	arenaSlabBytes int
	internTableCap int
	registry       *prometheus.Registry
	logger         *zap.Logger
}

func defaultConfig() *config {
	return &config{
		arenaSlabBytes: 64 * 1024,
		internTableCap: 256,
		logger:         zap.NewNop(),
	}
}

// WithArenaSlabBytes sets the slab size used by every arena a Graph hands
// out to a TSValue factory. Must be positive.
func WithArenaSlabBytes(n int) Option {
	return func(c *config) { c.arenaSlabBytes = n }
}

// WithInternTableSizeHint pre-sizes the type registry's interning map.
// Purely an allocation hint; any positive value is accepted and a
// non-positive one is ignored.
func WithInternTableSizeHint(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.internTableCap = n
		}
	}
}

// WithMetrics enables Prometheus metrics collection for this Graph.
// Passing nil disables metrics (the default).
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *config) { c.registry = reg }
}

// WithLogger plugs an external zap.Logger. The core never logs on a hot
// path; only slow or exceptional events are emitted.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func applyOptions(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.arenaSlabBytes <= 0 {
		return nil, errInvalidSlabBytes
	}
	return cfg, nil
}

var errInvalidSlabBytes = errors.New("tscore: arena slab size must be > 0")
