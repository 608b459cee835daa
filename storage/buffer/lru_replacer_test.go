package buffer

import (
	"testing"

	"github.com/pagestore/pagestore/types"
)

func TestLRUReplacerVictimOrder(t *testing.T) {
	r := NewLRUReplacer()
	r.Unpin(types.PageID(1))
	r.Unpin(types.PageID(2))
	r.Unpin(types.PageID(3))

	// re-unpinning an already-unpinned frame is a no-op, so the order
	// stays 1 (oldest) .. 3 (newest).
	r.Unpin(types.PageID(1))

	if got, ok := r.Victim(); !ok || got != types.PageID(1) {
		t.Fatalf("Victim() = (%v, %v), want (1, true)", got, ok)
	}
	if got, ok := r.Victim(); !ok || got != types.PageID(2) {
		t.Fatalf("Victim() = (%v, %v), want (2, true)", got, ok)
	}
	if got, ok := r.Victim(); !ok || got != types.PageID(3) {
		t.Fatalf("Victim() = (%v, %v), want (3, true)", got, ok)
	}
	if _, ok := r.Victim(); ok {
		t.Fatalf("Victim() on empty replacer should report ok=false")
	}
}

func TestLRUReplacerPinRemovesFromEviction(t *testing.T) {
	r := NewLRUReplacer()
	r.Unpin(types.PageID(1))
	r.Unpin(types.PageID(2))
	r.Pin(types.PageID(1))

	if got := r.Size(); got != 1 {
		t.Fatalf("Size() = %d, want 1", got)
	}
	if got, ok := r.Victim(); !ok || got != types.PageID(2) {
		t.Fatalf("Victim() = (%v, %v), want (2, true)", got, ok)
	}
}

func TestLRUReplacerDoubleUnpinIsNoop(t *testing.T) {
	r := NewLRUReplacer()
	r.Unpin(types.PageID(1))
	r.Unpin(types.PageID(1))
	if got := r.Size(); got != 1 {
		t.Fatalf("Size() = %d, want 1 after double unpin", got)
	}
}
