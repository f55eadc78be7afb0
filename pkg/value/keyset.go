package value

import (
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/flowgraph/tscore/pkg/typesys"
)

// keySet is the stable-slot interning hash table shared by Set and Map.
// It is adapted from a shard[K,V] index pattern (a map[uint64]*entry plus
// an eviction ring) stripped of eviction — this core never evicts,
// it only adds/removes under explicit node control — and regrown around
// slot *identity* rather than pointer identity, since slot indices are
// what TSD/TSS and bundle/list paths serialise into a StoredPath.
//
// Liveness is tracked with a roaring.Bitmap rather than a plain
// "tombstone in the map" approach: Count()/iteration need all live slots
// in ascending order, which a roaring bitmap gives for free via its
// iterator, and compresses well since most of a KeySet's slot range is
// either entirely live or entirely free in long runs. Free slots are
// additionally chained through a classic free-list for O(1) reuse: slot
// indices are external identifiers, and the hash table stores
// slot->bucket, not pointer->bucket.
type keySet struct {
	elem     *typesys.TypeMeta
	buckets  map[uint64][]int // hash -> candidate slot indices
	slots    []unsafe.Pointer // slot index -> element storage (nil-backed slices own the bytes)
	slotBufs [][]byte
	live     *roaring.Bitmap
	freeHead int // index of first free slot, or -1
	freeNext []int
}

func newKeySet(elem *typesys.TypeMeta) *keySet {
	return &keySet{
		elem:     elem,
		buckets:  make(map[uint64][]int),
		live:     roaring.New(),
		freeHead: -1,
	}
}

func (k *keySet) slotPtr(slot int) unsafe.Pointer { return k.slots[slot] }

func (k *keySet) hashOf(data unsafe.Pointer) uint64 { return hashInPlace(k.elem, data) }

// find returns the slot holding a value equal to data, or -1.
func (k *keySet) find(data unsafe.Pointer) int {
	h := k.hashOf(data)
	for _, s := range k.buckets[h] {
		if k.live.Contains(uint32(s)) && equalsInPlace(k.elem, k.slots[s], data) {
			return s
		}
	}
	return -1
}

// Add interns data, returning its stable slot: a new slot, or the existing
// one if data is already present.
func (k *keySet) Add(data unsafe.Pointer) int {
	if s := k.find(data); s >= 0 {
		return s
	}
	var slot int
	if k.freeHead >= 0 {
		slot = k.freeHead
		k.freeHead = k.freeNext[slot]
	} else {
		slot = len(k.slots)
		k.slots = append(k.slots, nil)
		k.slotBufs = append(k.slotBufs, nil)
		k.freeNext = append(k.freeNext, -1)
	}
	buf := make([]byte, k.elem.Size)
	if len(buf) == 0 {
		buf = make([]byte, 1)
	}
	k.slotBufs[slot] = buf
	k.slots[slot] = unsafe.Pointer(&buf[0])
	constructInPlace(k.elem, k.slots[slot])
	copyInPlace(k.elem, k.slots[slot], data)
	h := k.hashOf(data)
	k.buckets[h] = append(k.buckets[h], slot)
	k.live.Add(uint32(slot))
	return slot
}

// Remove erases data's slot, destroying the stored key and returning the
// slot to the free list for reuse (retained there so it can be reissued
// later). Returns false if data was not present.
func (k *keySet) Remove(data unsafe.Pointer) bool {
	s := k.find(data)
	if s < 0 {
		return false
	}
	k.removeSlot(s)
	return true
}

func (k *keySet) removeSlot(slot int) {
	h := k.hashOf(k.slots[slot])
	bucket := k.buckets[h]
	for i, s := range bucket {
		if s == slot {
			k.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	destroyInPlace(k.elem, k.slots[slot])
	k.live.Remove(uint32(slot))
	k.freeNext[slot] = k.freeHead
	k.freeHead = slot
}

// Contains reports whether data is currently a live key.
func (k *keySet) Contains(data unsafe.Pointer) bool { return k.find(data) >= 0 }

// Count returns the number of live slots.
func (k *keySet) Count() int { return int(k.live.GetCardinality()) }

// Iter calls fn(slot) for every live slot in ascending slot order.
func (k *keySet) Iter(fn func(slot int)) {
	it := k.live.Iterator()
	for it.HasNext() {
		fn(int(it.Next()))
	}
}

// Clear destroys every live key and resets the set to empty, discarding
// the free list (slot indices are not guaranteed stable across Clear).
func (k *keySet) Clear() {
	k.Iter(func(slot int) { destroyInPlace(k.elem, k.slots[slot]) })
	k.buckets = make(map[uint64][]int)
	k.slots = nil
	k.slotBufs = nil
	k.live = roaring.New()
	k.freeHead = -1
	k.freeNext = nil
}

// clone deep-copies a keySet (used by Set/Map Copy).
func (k *keySet) clone() *keySet {
	out := newKeySet(k.elem)
	k.Iter(func(slot int) {
		buf := make([]byte, len(k.slotBufs[slot]))
		constructInPlace(k.elem, unsafe.Pointer(&buf[0]))
		copyInPlace(k.elem, unsafe.Pointer(&buf[0]), k.slots[slot])
		// Preserve original slot numbering so any StoredPath/TSD slot
		// reference taken before the copy still resolves equivalently
		// after it.
		for len(out.slots) <= slot {
			out.slots = append(out.slots, nil)
			out.slotBufs = append(out.slotBufs, nil)
			out.freeNext = append(out.freeNext, -1)
		}
		out.slotBufs[slot] = buf
		out.slots[slot] = unsafe.Pointer(&buf[0])
		h := out.hashOf(out.slots[slot])
		out.buckets[h] = append(out.buckets[h], slot)
		out.live.Add(uint32(slot))
	})
	return out
}
