// Package tslog provides the ambient structured-logging facade used across
// tscore: a *zap.Logger injected via functional option, defaulting to
// zap.NewNop() so the core never allocates or logs on a hot path unless a
// caller opts in.
//
// The only log call in the core is one Debug line when graph.New finishes
// constructing a graph. Construct/destroy/navigate/modified/delta_view
// never log.
//
// © 2025 tscore authors. MIT License.
package tslog

import "go.uber.org/zap"

// Logger is the subset of *zap.Logger tscore depends on, kept narrow so a
// caller can hand us any compatible wrapper (e.g. zap.Logger.Sugar callers
// still satisfy this via .Desugar()).
type Logger = *zap.Logger

// Nop returns a logger that discards everything, the default for
// graph.New() when no WithLogger option is supplied.
func Nop() Logger { return zap.NewNop() }
