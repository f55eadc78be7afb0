// Package tsview implements cursor navigation and reference resolution
// over a TSValue: a cursor (data, overlay, schema, current_time, path)
// that navigates a TSValue's structure, observes modification state, and
// writes through mutable variants.
//
// © 2025 tscore authors. MIT License.
package tsview

import "github.com/flowgraph/tscore/pkg/value"

// StepKind tags one navigation step of a LightweightPath or StoredPath.
type StepKind uint8

const (
	StepFieldByIndex StepKind = iota
	StepElementAt
	StepSetSlot
	StepMapSlot
)

// Step is one entry of a LightweightPath: a step kind plus the slot index
// it resolved to at navigation time.
type Step struct {
	Kind  StepKind
	Index int
}

// LightweightPath is a slot-indexed navigation path held in a plain Step
// slice; there is no inline small-vector storage, and each Append
// allocates a new slice of exactly the new length. The common path depth
// in this domain is 1-3 steps.
type LightweightPath struct {
	steps []Step
}

// Append returns a new path with step appended; LightweightPath is treated
// as immutable once handed to a child cursor; siblings must not share a
// backing array across divergent Append calls, so Append always copies.
func (p LightweightPath) Append(s Step) LightweightPath {
	out := make([]Step, len(p.steps)+1)
	copy(out, p.steps)
	out[len(p.steps)] = s
	return LightweightPath{steps: out}
}

// Steps returns the ordered step list; navigation order is preserved and
// equality is pairwise.
func (p LightweightPath) Steps() []Step { return p.steps }

// Equal reports pairwise step equality.
func (p LightweightPath) Equal(other LightweightPath) bool {
	if len(p.steps) != len(other.steps) {
		return false
	}
	for i := range p.steps {
		if p.steps[i] != other.steps[i] {
			return false
		}
	}
	return true
}

/* -------------------------------------------------------------------------
   StoredPath: key-based, persistable.
   ------------------------------------------------------------------------- */

// StoredStep is one StoredPath entry: either a field name, a literal
// element index, or a literal key/value used for Set/Map navigation.
type StoredStep struct {
	Kind      StepKind
	FieldName string    // StepFieldByIndex
	Index     int       // StepElementAt
	Key       value.View // StepMapSlot: the map key; StepSetSlot: the set element
}

// StoredPath is the persistable, key-resolved counterpart of
// LightweightPath: each step is a field name, a literal element index, or
// a literal key/value. Persistable — slots are re-resolved by key on use.
type StoredPath struct {
	Steps []StoredStep
}

// Equal reports step-wise equality.
func (p StoredPath) Equal(other StoredPath) bool {
	if len(p.Steps) != len(other.Steps) {
		return false
	}
	for i := range p.Steps {
		a, b := p.Steps[i], other.Steps[i]
		if a.Kind != b.Kind || a.FieldName != b.FieldName || a.Index != b.Index {
			return false
		}
		if a.Kind == StepMapSlot || a.Kind == StepSetSlot {
			if !keysEqual(a.Key, b.Key) {
				return false
			}
		}
	}
	return true
}

func keysEqual(a, b value.View) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	ah, aerr := a.ToHost()
	bh, berr := b.ToHost()
	if aerr != nil || berr != nil {
		return false
	}
	return ah == bh
}
