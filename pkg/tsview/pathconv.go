package tsview

import (
	"github.com/flowgraph/tscore/pkg/tserr"
	"github.com/flowgraph/tscore/pkg/value"
)

// ToStoredPath converts this cursor's LightweightPath into a persistable
// StoredPath by replacing every slot index with the actual key/value at
// that slot. Used when serialising a reference. Fails if a step
// references a slot that is no longer alive. Only meaningful on a
// freshly-navigated cursor — this cursor must not outlive a structural
// modification to any ancestor container.
func (v TSView) ToStoredPath() (StoredPath, error) {
	out := StoredPath{Steps: make([]StoredStep, len(v.ancestorSteps))}
	for i, step := range v.ancestorSteps {
		container := v.ancestorViews[i]
		switch step.Kind {
		case StepFieldByIndex:
			bv, ok := value.AsBundle(container)
			if !ok || step.Index < 0 || step.Index >= len(container.Schema().Fields) {
				return StoredPath{}, tserr.ErrInvalidView
			}
			_ = bv
			out.Steps[i] = StoredStep{Kind: StepFieldByIndex, FieldName: container.Schema().Fields[step.Index].Name}
		case StepElementAt:
			out.Steps[i] = StoredStep{Kind: StepElementAt, Index: step.Index}
		case StepMapSlot:
			mv, ok := value.AsMap(container)
			if !ok {
				return StoredPath{}, tserr.ErrInvalidView
			}
			key, err := aliveMapKey(mv, step.Index)
			if err != nil {
				return StoredPath{}, err
			}
			out.Steps[i] = StoredStep{Kind: StepMapSlot, Key: key}
		case StepSetSlot:
			sv, ok := value.AsSet(container)
			if !ok {
				return StoredPath{}, tserr.ErrInvalidView
			}
			el, err := sv.At(step.Index)
			if err != nil {
				return StoredPath{}, tserr.ErrNotFound
			}
			out.Steps[i] = StoredStep{Kind: StepSetSlot, Key: el}
		}
	}
	return out, nil
}

func aliveMapKey(mv value.MapView, slot int) (value.View, error) {
	if _, err := mv.AtSlot(slot); err != nil {
		return value.View{}, err
	}
	return mv.KeyAt(slot), nil
}

// Resolve re-navigates a StoredPath against root at the given current
// time, re-resolving every key-based step at use time against the current
// container state; fails with NotFound if the key is gone.
func (p StoredPath) Resolve(root *TSValue, currentTime EngineTime) (TSView, error) {
	cur := root.Root(currentTime)
	for _, step := range p.Steps {
		var err error
		switch step.Kind {
		case StepFieldByIndex:
			cur, err = cur.Field(step.FieldName)
		case StepElementAt:
			cur, err = cur.Element(step.Index)
		case StepMapSlot:
			host, herr := step.Key.ToHost()
			if herr != nil {
				return TSView{}, herr
			}
			cur, err = cur.At(host)
		case StepSetSlot:
			err = tserr.NewSchemaError("Resolve", "navigable step", "set membership has no per-element cursor")
		}
		if err != nil {
			return TSView{}, err
		}
	}
	return cur, nil
}
