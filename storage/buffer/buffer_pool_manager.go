// this code is adapted from https://github.com/ryogrid/SamehadaDB
// (lib/storage/buffer/buffer_pool_manager.go)

// Package buffer implements the fixed-size page cache sitting between the
// disk manager and every page consumer (spec.md §4.2/§4.3).
package buffer

import (
	"github.com/sasha-s/go-deadlock"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/storage/disk"
	"github.com/pagestore/pagestore/storage/page"
	"github.com/pagestore/pagestore/types"
)

// frameID indexes into the fixed frames array; it is distinct from a
// PageID but reuses the same width, following the teacher's own
// frame-id-as-int convention.
type frameID = types.PageID

// BufferPoolManager owns a fixed number of frames, evicting an unpinned
// frame chosen by an LRUReplacer when no frame is free (spec.md §4.2/§4.3).
// latch is the coarse mutex protecting the frame table, free list and
// replacer; it is distinct from each Page's own per-frame rwlatch, which
// guards structural access to that page's contents (spec.md §5).
type BufferPoolManager struct {
	latch      deadlock.Mutex
	disk       disk.DiskManager
	cfg        common.BufferPoolConfig
	frames     []*page.Page
	pageTable  map[types.PageID]frameID
	freeList   []frameID
	replacer   *LRUReplacer
}

func NewBufferPoolManager(cfg common.BufferPoolConfig, dm disk.DiskManager) *BufferPoolManager {
	free := make([]frameID, cfg.PoolSize)
	for i := range free {
		free[i] = frameID(i)
	}
	return &BufferPoolManager{
		disk:      dm,
		cfg:       cfg,
		frames:    make([]*page.Page, cfg.PoolSize),
		pageTable: make(map[types.PageID]frameID),
		freeList:  free,
		replacer:  NewLRUReplacer(),
	}
}

// findVictim returns a frame ready to hold a page, evicting and
// write-flushing a dirty victim if no frame is free. Returns false if the
// pool is fully pinned.
func (b *BufferPoolManager) findVictim() (frameID, bool) {
	if n := len(b.freeList); n > 0 {
		f := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		return f, true
	}
	victim, ok := b.replacer.Victim()
	if !ok {
		return 0, false
	}
	evicted := b.frames[victim]
	if evicted.IsDirty() {
		if err := b.disk.WritePage(evicted.ID(), evicted.Data()[:]); err != nil {
			common.ShPrintf(common.Error, "buffer pool: flush of evicted page %d failed: %v", evicted.ID(), err)
		}
	}
	delete(b.pageTable, evicted.ID())
	return victim, true
}

// FetchPage returns the requested page, pinned, fetching it from disk on
// a cache miss. Callers must UnpinPage exactly once per FetchPage/NewPage.
func (b *BufferPoolManager) FetchPage(pageID types.PageID) (*page.Page, error) {
	b.latch.Lock()
	defer b.latch.Unlock()

	if f, ok := b.pageTable[pageID]; ok {
		p := b.frames[f]
		p.IncPinCount()
		b.replacer.Pin(f)
		return p, nil
	}

	f, ok := b.findVictim()
	if !ok {
		return nil, common.ErrBufferPoolFull
	}

	var buf [common.PageSize]byte
	if err := b.disk.ReadPage(pageID, buf[:]); err != nil {
		b.freeList = append(b.freeList, f)
		return nil, err
	}
	p := page.New(pageID, &buf)
	b.frames[f] = p
	b.pageTable[pageID] = f
	return p, nil
}

// NewPage allocates a fresh page on disk and returns it pinned.
func (b *BufferPoolManager) NewPage() (*page.Page, error) {
	b.latch.Lock()
	defer b.latch.Unlock()

	f, ok := b.findVictim()
	if !ok {
		return nil, common.ErrBufferPoolFull
	}

	pageID := b.disk.AllocatePage()
	p := page.NewEmpty(pageID)
	b.frames[f] = p
	b.pageTable[pageID] = f
	return p, nil
}

// UnpinPage releases one pin on pageID. isDirty ORs into the page's dirty
// flag — it never clears it. Once the pin count reaches zero the frame
// becomes replacer-evictable; with EagerFlush configured, a page is
// written back to disk the moment it is last unpinned rather than waiting
// for eviction (spec.md §4.2).
func (b *BufferPoolManager) UnpinPage(pageID types.PageID, isDirty bool) error {
	b.latch.Lock()
	defer b.latch.Unlock()

	f, ok := b.pageTable[pageID]
	if !ok {
		return common.ErrPageNotFound
	}
	p := b.frames[f]
	if isDirty {
		p.SetIsDirty(true)
	}
	p.DecPinCount()
	if p.PinCount() == 0 {
		b.replacer.Unpin(f)
		if b.cfg.EagerFlush && p.IsDirty() {
			if err := b.disk.WritePage(p.ID(), p.Data()[:]); err != nil {
				return err
			}
			p.SetIsDirty(false)
		}
	}
	return nil
}

// FlushPage forces pageID to disk regardless of its dirty flag.
func (b *BufferPoolManager) FlushPage(pageID types.PageID) error {
	b.latch.Lock()
	defer b.latch.Unlock()

	f, ok := b.pageTable[pageID]
	if !ok {
		return common.ErrPageNotFound
	}
	p := b.frames[f]
	if err := b.disk.WritePage(p.ID(), p.Data()[:]); err != nil {
		return err
	}
	p.SetIsDirty(false)
	return nil
}

// FlushAllPages forces every resident page to disk.
func (b *BufferPoolManager) FlushAllPages() error {
	b.latch.Lock()
	defer b.latch.Unlock()

	for pageID, f := range b.pageTable {
		p := b.frames[f]
		if err := b.disk.WritePage(pageID, p.Data()[:]); err != nil {
			return err
		}
		p.SetIsDirty(false)
	}
	return nil
}

// DeletePage removes pageID from the pool and deallocates it on disk. It
// fails if the page is still pinned.
func (b *BufferPoolManager) DeletePage(pageID types.PageID) error {
	b.latch.Lock()
	defer b.latch.Unlock()

	f, ok := b.pageTable[pageID]
	if !ok {
		b.disk.DeallocatePage(pageID)
		return nil
	}
	p := b.frames[f]
	if p.PinCount() > 0 {
		return common.ErrPagePinned
	}
	b.replacer.Pin(f)
	delete(b.pageTable, pageID)
	b.frames[f] = nil
	b.freeList = append(b.freeList, f)
	b.disk.DeallocatePage(pageID)
	return nil
}
