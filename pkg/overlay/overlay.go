package overlay

// Overlay is the parallel shadow structure carrying modification times and
// deltas for one TSValue: one of four parallel shapes depending on TS kind.
// Rather than four separate Go types unified by an interface — which would
// force every call site in pkg/tsview to type-switch anyway — Overlay is
// one struct whose populated fields depend on Kind, mirroring
// pkg/typesys.TypeMeta's own "kind-tagged struct" shape (see that package's
// doc comment for the rationale: composites don't get a second vtable, they
// get a kind switch over an already-complete description).
type Overlay struct {
	Kind TSKind

	// TS, SIGNAL, REF, and the container-level stamp for TSB/TSL/TSD/TSS.
	lastModified EngineTime

	// TSW
	window *Window

	// TSB: one child overlay per field, by index.
	fields []*Overlay

	// TSL: one child overlay per slot, plus this tick's modified indices.
	slots           []*Overlay
	modifiedTick    EngineTime
	modifiedIndices []int
	modifiedSet     map[int]bool

	// TSD: per-slot value overlays, plus this tick's added/removed keys.
	// Keys are stored as host values since slots are unstable and callers
	// may have stored references to them.
	valueOverlays map[int]*Overlay
	deltaTick     EngineTime
	addedKeys     []any
	addedKeySet   map[int]bool // by slot, to dedupe within a tick
	removedKeys   []any

	// TSS: this tick's added/removed values.
	addedValues    []any
	addedValueSet  map[uint64]bool
	removedValues  []any
}

// New builds an Overlay tree matching meta's shape, all leaves initialised
// to MinTime / empty. It is created once per Value requiring tracking; its
// child-overlay shape is fixed by the TypeMeta and mirrors its structure.
func New(meta *TSMeta) *Overlay {
	o := &Overlay{Kind: meta.Kind, lastModified: MinTime, modifiedTick: MinTime, deltaTick: MinTime}
	switch meta.Kind {
	case KindTSW:
		o.window = NewWindow(meta.Value, meta.WindowSize)
	case KindTSB:
		o.fields = make([]*Overlay, len(meta.Children))
		for i, c := range meta.Children {
			o.fields[i] = New(c)
		}
	case KindTSL:
		o.modifiedSet = make(map[int]bool)
	case KindTSD:
		o.valueOverlays = make(map[int]*Overlay)
		o.addedKeySet = make(map[int]bool)
	case KindTSS:
		o.addedValueSet = make(map[uint64]bool)
	}
	return o
}

// LastModified returns the leaf/container-level modification stamp.
func (o *Overlay) LastModified() EngineTime { return o.lastModified }

// Modified reports whether this overlay was touched at or after t.
func (o *Overlay) Modified(t EngineTime) bool { return o.lastModified >= t }

// Valid reports overlay validity: a leaf is set iff its timestamp is
// non-MIN. For composites this is used per-slot, not at the container
// level (container AllValid walks children).
func (o *Overlay) Valid() bool { return o.lastModified != MinTime }

// Window returns the TSW retention ring (KindTSW only).
func (o *Overlay) Window() *Window { return o.window }

// Field returns the i'th child overlay (KindTSB only).
func (o *Overlay) Field(i int) *Overlay { return o.fields[i] }

/* -------------------------------------------------------------------------
   Modification propagation: leaf write -> ancestor stamping -> delta push.
   ------------------------------------------------------------------------- */

// StampLeaf sets a scalar/signal/window/ref leaf's own timestamp to t.
// Idempotent: repeated calls within the same tick leave last_modified == t.
func (o *Overlay) StampLeaf(t EngineTime) { o.lastModified = t }

// MarkContainerModified sets this ancestor's container-level last_modified
// to t, idempotently within a tick. Called on every ancestor overlay while
// bubbling a leaf write from leaf to root.
func (o *Overlay) MarkContainerModified(t EngineTime) { o.lastModified = t }

// PushListIndex records that slot i of a TSL was touched at time t, first
// pruning the buffer if it holds a stale tick. Deduped: exactly one entry
// per index per tick.
func (o *Overlay) PushListIndex(t EngineTime, i int) {
	if o.modifiedTick < t {
		o.modifiedIndices = o.modifiedIndices[:0]
		o.modifiedSet = make(map[int]bool)
		o.modifiedTick = t
	}
	if !o.modifiedSet[i] {
		o.modifiedSet[i] = true
		o.modifiedIndices = append(o.modifiedIndices, i)
	}
}

// ModifiedIndices returns this tick's TSL delta indices, valid only when
// called with the tick they were recorded at.
func (o *Overlay) ModifiedIndices(t EngineTime) []int {
	if o.modifiedTick != t {
		return nil
	}
	return o.modifiedIndices
}

// SlotOverlay returns (creating if necessary) the per-slot child overlay
// for a TSL/TSD at the given slot index. elemMeta describes the shape of
// one slot's value.
func (o *Overlay) SlotOverlay(slot int, elemMeta *TSMeta) *Overlay {
	switch o.Kind {
	case KindTSL:
		for len(o.slots) <= slot {
			o.slots = append(o.slots, nil)
		}
		if o.slots[slot] == nil {
			o.slots[slot] = New(elemMeta)
		}
		return o.slots[slot]
	case KindTSD:
		if ov, ok := o.valueOverlays[slot]; ok {
			return ov
		}
		ov := New(elemMeta)
		o.valueOverlays[slot] = ov
		return ov
	default:
		panic("overlay: SlotOverlay called on non-collection kind")
	}
}

// PushAddedKey records a TSD key addition at slot, first pruning stale
// buffers.
func (o *Overlay) PushAddedKey(t EngineTime, slot int, key any) {
	o.pruneDictDelta(t)
	if !o.addedKeySet[slot] {
		o.addedKeySet[slot] = true
		o.addedKeys = append(o.addedKeys, key)
	}
}

// PushRemovedKey records a TSD key removal, retaining the key's host
// value since the slot itself may be reissued before the delta is read.
func (o *Overlay) PushRemovedKey(t EngineTime, key any) {
	o.pruneDictDelta(t)
	o.removedKeys = append(o.removedKeys, key)
}

func (o *Overlay) pruneDictDelta(t EngineTime) {
	if o.deltaTick < t {
		o.addedKeys = nil
		o.removedKeys = nil
		o.addedKeySet = make(map[int]bool)
		o.deltaTick = t
	}
}

// DictDelta returns this tick's TSD added/removed keys, valid only at
// tick t.
func (o *Overlay) DictDelta(t EngineTime) (added, removed []any) {
	if o.deltaTick != t {
		return nil, nil
	}
	return o.addedKeys, o.removedKeys
}

// PushAddedValue records a TSS value addition, deduped by hash within the
// tick: a double-add is a single delta entry.
func (o *Overlay) PushAddedValue(t EngineTime, valueHash uint64, v any) {
	o.pruneSetDelta(t)
	if !o.addedValueSet[valueHash] {
		o.addedValueSet[valueHash] = true
		o.addedValues = append(o.addedValues, v)
	}
}

// PushRemovedValue records a TSS value removal.
func (o *Overlay) PushRemovedValue(t EngineTime, v any) {
	o.pruneSetDelta(t)
	o.removedValues = append(o.removedValues, v)
}

func (o *Overlay) pruneSetDelta(t EngineTime) {
	if o.deltaTick < t {
		o.addedValues = nil
		o.removedValues = nil
		o.addedValueSet = make(map[uint64]bool)
		o.deltaTick = t
	}
}

// SetDelta returns this tick's TSS added/removed values, valid only at
// tick t.
func (o *Overlay) SetDelta(t EngineTime) (added, removed []any) {
	if o.deltaTick != t {
		return nil, nil
	}
	return o.addedValues, o.removedValues
}

// AllValid walks TSB fields and the present TSL element slots recursively
// and ANDs their results. Every other kind, TSD and TSS included, reports
// only its own Valid(); the per-key value overlays of a TSD are not
// consulted.
func AllValid(o *Overlay) bool {
	switch o.Kind {
	case KindTSB:
		for _, f := range o.fields {
			if !AllValid(f) {
				return false
			}
		}
		return true
	case KindTSL:
		for _, s := range o.slots {
			if s != nil && !AllValid(s) {
				return false
			}
		}
		return true
	default:
		return o.Valid()
	}
}
