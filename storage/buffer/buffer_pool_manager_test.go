// this code is adapted from https://github.com/ryogrid/SamehadaDB
// (storage/buffer/buffer_pool_manager_test.go)

package buffer

import (
	"testing"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/storage/disk"
)

func TestBufferPoolManagerFetchAndWriteBack(t *testing.T) {
	dm := disk.NewMemoryDiskManager()
	bpm := NewBufferPoolManager(common.DefaultBufferPoolConfig(2), dm)

	p, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	id := p.ID()
	copy(p.Data()[:4], []byte("abcd"))
	if err := bpm.UnpinPage(id, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if err := bpm.FlushPage(id); err != nil {
		t.Fatalf("FlushPage: %v", err)
	}

	var raw [common.PageSize]byte
	if err := dm.ReadPage(id, raw[:]); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if string(raw[:4]) != "abcd" {
		t.Fatalf("disk content = %q, want %q", raw[:4], "abcd")
	}
}

func TestBufferPoolManagerEvictsLeastRecentlyUsed(t *testing.T) {
	dm := disk.NewMemoryDiskManager()
	bpm := NewBufferPoolManager(common.DefaultBufferPoolConfig(1), dm)

	p1, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	id1 := p1.ID()
	if err := bpm.UnpinPage(id1, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}

	// pool has only one frame, so fetching a second page must evict id1.
	p2, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	id2 := p2.ID()
	if err := bpm.UnpinPage(id2, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}

	if _, ok := bpm.pageTable[id1]; ok {
		t.Fatalf("page %d should have been evicted", id1)
	}
	if _, ok := bpm.pageTable[id2]; !ok {
		t.Fatalf("page %d should still be resident", id2)
	}
}

// With PoolSize > 1, a page's id and its frame index diverge (frames are
// popped from the tail of freeList while page ids increase monotonically
// from disk.AllocatePage), so this exercises that the replacer is keyed
// by frame index rather than by page id.
func TestBufferPoolManagerEvictionWithDivergentPageIDAndFrame(t *testing.T) {
	dm := disk.NewMemoryDiskManager()
	bpm := NewBufferPoolManager(common.DefaultBufferPoolConfig(3), dm)

	p1, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage 1: %v", err)
	}
	p2, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage 2: %v", err)
	}
	p3, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage 3: %v", err)
	}
	id1, id2, id3 := p1.ID(), p2.ID(), p3.ID()

	// unpin all three, then re-touch id2 and id3 below, which leaves id1
	// the least recently used frame even though id1 < id2 < id3 and frame
	// indices were handed out in the order the free list pops them
	// (last-in-first-out).
	if err := bpm.UnpinPage(id2, false); err != nil {
		t.Fatalf("UnpinPage id2: %v", err)
	}
	if err := bpm.UnpinPage(id3, false); err != nil {
		t.Fatalf("UnpinPage id3: %v", err)
	}
	if err := bpm.UnpinPage(id1, false); err != nil {
		t.Fatalf("UnpinPage id1: %v", err)
	}
	// re-touch id2 and id3 so id1 is unambiguously the LRU victim.
	if _, err := bpm.FetchPage(id2); err != nil {
		t.Fatalf("FetchPage id2: %v", err)
	}
	if err := bpm.UnpinPage(id2, false); err != nil {
		t.Fatalf("UnpinPage id2 again: %v", err)
	}
	if _, err := bpm.FetchPage(id3); err != nil {
		t.Fatalf("FetchPage id3: %v", err)
	}
	if err := bpm.UnpinPage(id3, false); err != nil {
		t.Fatalf("UnpinPage id3 again: %v", err)
	}

	p4, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage 4 (forces eviction): %v", err)
	}
	id4 := p4.ID()
	if err := bpm.UnpinPage(id4, false); err != nil {
		t.Fatalf("UnpinPage id4: %v", err)
	}

	if _, ok := bpm.pageTable[id1]; ok {
		t.Fatalf("page %d (the true LRU victim) should have been evicted", id1)
	}
	if _, ok := bpm.pageTable[id2]; !ok {
		t.Fatalf("page %d should still be resident", id2)
	}
	if _, ok := bpm.pageTable[id3]; !ok {
		t.Fatalf("page %d should still be resident", id3)
	}
	if _, ok := bpm.pageTable[id4]; !ok {
		t.Fatalf("page %d should be resident", id4)
	}
}

func TestBufferPoolManagerFullyPinnedPoolRejectsNewPage(t *testing.T) {
	dm := disk.NewMemoryDiskManager()
	bpm := NewBufferPoolManager(common.DefaultBufferPoolConfig(1), dm)

	if _, err := bpm.NewPage(); err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	// the sole frame is still pinned (never Unpin'd), so the pool must
	// reject further allocation rather than silently evicting it.
	if _, err := bpm.NewPage(); err != common.ErrBufferPoolFull {
		t.Fatalf("NewPage on a fully-pinned pool = %v, want ErrBufferPoolFull", err)
	}
}

func TestBufferPoolManagerDeletePinnedPageFails(t *testing.T) {
	dm := disk.NewMemoryDiskManager()
	bpm := NewBufferPoolManager(common.DefaultBufferPoolConfig(1), dm)

	p, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := bpm.DeletePage(p.ID()); err != common.ErrPagePinned {
		t.Fatalf("DeletePage on a pinned page = %v, want ErrPagePinned", err)
	}
}
