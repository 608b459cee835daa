// this code is adapted from https://github.com/ryogrid/SamehadaDB
// (lib/container/hash/linear_probe_hash_table.go)

// Package hash implements a linear-probe hash index backed by the buffer
// pool: a header page holding an array of block-page ids, each block
// holding a fixed array of (key, value) slots plus occupied/readable
// bitmaps (spec.md §4.5).
package hash

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/storage/buffer"
	"github.com/pagestore/pagestore/storage/page"
	"github.com/pagestore/pagestore/types"
)

// Table is a named linear-probe hash index. Non-unique keys are
// supported: Insert rejects only an exact (key, rid) duplicate, and
// GetValue returns every rid stored under key.
type Table struct {
	bpm          *buffer.BufferPoolManager
	name         string
	latch        *common.ReaderWriterLatch
	headerPageID types.PageID
}

// NewTable opens (or creates, if name is not yet recorded) a hash index
// called name with numBlocks blocks of page.BlockArraySize slots each.
// numBlocks is only consulted on creation; an existing index keeps
// whatever block count its last Resize left it with.
func NewTable(bpm *buffer.BufferPoolManager, name string, numBlocks int) (*Table, error) {
	t := &Table{bpm: bpm, name: name, latch: common.NewRWLatch()}

	hp, err := bpm.FetchPage(types.PageID(common.HeaderPageID))
	if err != nil {
		return nil, err
	}
	hp.WLatch()
	if page.NodeTypeOf(hp.Data()) != page.DirectoryType {
		page.AsDirectoryPage(hp.Data()).Init()
	}
	existing, found := page.AsDirectoryPage(hp.Data()).Lookup(name)
	hp.WUnlatch()

	if found {
		if err := bpm.UnpinPage(hp.ID(), true); err != nil {
			return nil, err
		}
		t.headerPageID = existing
		return t, nil
	}

	headerPage, err := bpm.NewPage()
	if err != nil {
		bpm.UnpinPage(hp.ID(), true)
		return nil, err
	}
	header := page.AsHashHeaderPage(headerPage.Data())
	header.Init(headerPage.ID())
	for i := 0; i < numBlocks; i++ {
		bp, err := bpm.NewPage()
		if err != nil {
			return nil, err
		}
		page.AsHashBlockPage(bp.Data()).Init(bp.ID())
		header.AddBlockPageID(bp.ID())
		bpm.UnpinPage(bp.ID(), true)
	}
	t.headerPageID = headerPage.ID()
	bpm.UnpinPage(headerPage.ID(), true)

	hp.WLatch()
	page.AsDirectoryPage(hp.Data()).Set(name, t.headerPageID)
	hp.WUnlatch()
	if err := bpm.UnpinPage(hp.ID(), true); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) hash(key int64) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	h := murmur3.New128()
	h.Write(buf[:])
	return binary.LittleEndian.Uint32(h.Sum(nil))
}

// probeCursor walks the circular sequence of (bucket, offset) slots
// starting from a key's home slot, fetching/unpinning block pages as it
// crosses a block boundary.
type probeCursor struct {
	bpm      *buffer.BufferPoolManager
	header   page.HashHeaderPage
	bucket   int
	offset   int
	block    *page.Page
	blockRaw page.HashBlockPage
}

func newProbeCursor(bpm *buffer.BufferPoolManager, header page.HashHeaderPage, bucket, offset int) (*probeCursor, error) {
	bp, err := bpm.FetchPage(header.BlockPageID(bucket))
	if err != nil {
		return nil, err
	}
	return &probeCursor{bpm: bpm, header: header, bucket: bucket, offset: offset, block: bp, blockRaw: page.AsHashBlockPage(bp.Data())}, nil
}

func (c *probeCursor) advance() error {
	c.offset++
	if c.offset < page.BlockArraySize {
		return nil
	}
	c.offset = 0
	c.bpm.UnpinPage(c.block.ID(), true)
	c.bucket = (c.bucket + 1) % c.header.NumBlocks()
	bp, err := c.bpm.FetchPage(c.header.BlockPageID(c.bucket))
	if err != nil {
		return err
	}
	c.block = bp
	c.blockRaw = page.AsHashBlockPage(bp.Data())
	return nil
}

func (c *probeCursor) close(dirty bool) {
	c.bpm.UnpinPage(c.block.ID(), dirty)
}

func (t *Table) homeSlot(header page.HashHeaderPage, h uint32) (int, int) {
	return int(h) % header.NumBlocks(), int(h) % page.BlockArraySize
}

// GetValue returns every rid stored under key.
func (t *Table) GetValue(key int64) ([]types.RID, error) {
	t.latch.RLock()
	defer t.latch.RUnlock()

	hp, err := t.bpm.FetchPage(t.headerPageID)
	if err != nil {
		return nil, err
	}
	header := page.AsHashHeaderPage(hp.Data())
	h := t.hash(key)
	startBucket, startOffset := t.homeSlot(header, h)

	cur, err := newProbeCursor(t.bpm, header, startBucket, startOffset)
	if err != nil {
		t.bpm.UnpinPage(t.headerPageID, false)
		return nil, err
	}

	var results []types.RID
	for cur.blockRaw.IsOccupied(cur.offset) {
		if cur.blockRaw.IsReadable(cur.offset) && cur.blockRaw.KeyAt(cur.offset) == key {
			results = append(results, types.DecodeRID(cur.blockRaw.ValueAt(cur.offset)))
		}
		if err := cur.advance(); err != nil {
			cur.close(false)
			t.bpm.UnpinPage(t.headerPageID, false)
			return nil, err
		}
		if cur.bucket == startBucket && cur.offset == startOffset {
			break
		}
	}
	cur.close(false)
	t.bpm.UnpinPage(t.headerPageID, false)
	return results, nil
}

// Insert adds (key, rid). It reports false, nil only for an exact
// (key, rid) duplicate; distinct rids under the same key are both kept.
func (t *Table) Insert(key int64, rid types.RID) (bool, error) {
	t.latch.WLock()
	defer t.latch.WUnlock()

	hp, err := t.bpm.FetchPage(t.headerPageID)
	if err != nil {
		return false, err
	}
	header := page.AsHashHeaderPage(hp.Data())
	h := t.hash(key)
	value := rid.Encode()
	startBucket, startOffset := t.homeSlot(header, h)

	cur, err := newProbeCursor(t.bpm, header, startBucket, startOffset)
	if err != nil {
		t.bpm.UnpinPage(t.headerPageID, false)
		return false, err
	}

	for {
		occupied := cur.blockRaw.IsOccupied(cur.offset)
		readable := occupied && cur.blockRaw.IsReadable(cur.offset)
		if readable && cur.blockRaw.KeyAt(cur.offset) == key && cur.blockRaw.ValueAt(cur.offset) == value {
			cur.close(false)
			t.bpm.UnpinPage(t.headerPageID, false)
			return false, nil
		}
		if !occupied || (occupied && !readable) {
			cur.blockRaw.Insert(cur.offset, key, value)
			header.SetTotalSlotCount(header.TotalSlotCount() + 1)
			cur.close(true)
			t.bpm.UnpinPage(t.headerPageID, true)
			return true, nil
		}
		if err := cur.advance(); err != nil {
			cur.close(false)
			t.bpm.UnpinPage(t.headerPageID, false)
			return false, err
		}
		if cur.bucket == startBucket && cur.offset == startOffset {
			cur.close(false)
			t.bpm.UnpinPage(t.headerPageID, false)
			return false, common.ErrHashTableFull
		}
	}
}

// Remove deletes the first (key, rid) match found along key's probe
// sequence. It is a no-op if no such entry exists.
func (t *Table) Remove(key int64, rid types.RID) error {
	t.latch.WLock()
	defer t.latch.WUnlock()

	hp, err := t.bpm.FetchPage(t.headerPageID)
	if err != nil {
		return err
	}
	header := page.AsHashHeaderPage(hp.Data())
	h := t.hash(key)
	value := rid.Encode()
	startBucket, startOffset := t.homeSlot(header, h)

	cur, err := newProbeCursor(t.bpm, header, startBucket, startOffset)
	if err != nil {
		t.bpm.UnpinPage(t.headerPageID, false)
		return err
	}

	for cur.blockRaw.IsOccupied(cur.offset) {
		if cur.blockRaw.IsReadable(cur.offset) && cur.blockRaw.KeyAt(cur.offset) == key && cur.blockRaw.ValueAt(cur.offset) == value {
			cur.blockRaw.Remove(cur.offset)
			header.SetTotalSlotCount(header.TotalSlotCount() - 1)
			cur.close(true)
			t.bpm.UnpinPage(t.headerPageID, true)
			return nil
		}
		if err := cur.advance(); err != nil {
			cur.close(false)
			t.bpm.UnpinPage(t.headerPageID, false)
			return err
		}
		if cur.bucket == startBucket && cur.offset == startOffset {
			break
		}
	}
	cur.close(false)
	t.bpm.UnpinPage(t.headerPageID, false)
	return nil
}

// GetSize is the number of live (key, rid) entries.
func (t *Table) GetSize() (int, error) {
	t.latch.RLock()
	defer t.latch.RUnlock()

	hp, err := t.bpm.FetchPage(t.headerPageID)
	if err != nil {
		return 0, err
	}
	n := page.AsHashHeaderPage(hp.Data()).TotalSlotCount()
	t.bpm.UnpinPage(t.headerPageID, false)
	return n, nil
}
