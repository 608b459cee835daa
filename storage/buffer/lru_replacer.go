// this code is adapted from https://github.com/ryogrid/SamehadaDB
// (storage/buffer/clock_replacer.go, storage/buffer/circular_list.go)
//
// spec.md's REDESIGN FLAGS call for strict LRU rather than the teacher's
// clock (second-chance) approximation, so the circular-list clock hand is
// replaced with an ordered list kept in true least-recently-used order;
// the Pin/Unpin/Victim/Size surface and the "victim must be unpinned"
// contract are unchanged from the teacher.

package buffer

import (
	"container/list"
	"sync"

	"github.com/pagestore/pagestore/types"
)

// LRUReplacer tracks which unpinned frames are eligible for eviction and
// picks the least-recently-used one, per spec.md §4.2.
type LRUReplacer struct {
	mu       sync.Mutex
	order    *list.List // front = most recently unpinned, back = least recently unpinned
	elements map[types.PageID]*list.Element
}

func NewLRUReplacer() *LRUReplacer {
	return &LRUReplacer{
		order:    list.New(),
		elements: make(map[types.PageID]*list.Element),
	}
}

// Unpin marks frameID as evictable, moving it to the most-recently-used
// end. Unpinning an already-unpinned frame is a no-op.
func (r *LRUReplacer) Unpin(frameID types.PageID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.elements[frameID]; ok {
		return
	}
	r.elements[frameID] = r.order.PushFront(frameID)
}

// Pin removes frameID from eviction eligibility, e.g. once something else
// has fetched and pinned it again.
func (r *LRUReplacer) Pin(frameID types.PageID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if elem, ok := r.elements[frameID]; ok {
		r.order.Remove(elem)
		delete(r.elements, frameID)
	}
}

// Victim evicts and returns the least-recently-used frame, or
// (InvalidPageID, false) if nothing is evictable.
func (r *LRUReplacer) Victim() (types.PageID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	back := r.order.Back()
	if back == nil {
		return types.InvalidPageID, false
	}
	frameID := back.Value.(types.PageID)
	r.order.Remove(back)
	delete(r.elements, frameID)
	return frameID, true
}

// Size is how many frames are currently evictable.
func (r *LRUReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}
