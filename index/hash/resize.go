// this code is grounded on spec.md §4.5.1's grow-by-rehash design, which
// the teacher's own linear-probe table deliberately never implements
// (its own comment reads "LinearProbeHashTable does not dynamically
// grows...").

package hash

import (
	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/storage/page"
	"github.com/pagestore/pagestore/types"
)

// Resize doubles the block count, walks every live entry out of the old
// blocks and reinserts it into new ones, then swaps the table's header
// page and drops the old one. Callers typically call Resize after an
// Insert returns ErrHashTableFull, then retry the Insert.
func (t *Table) Resize() error {
	t.latch.WLock()
	defer t.latch.WUnlock()

	oldHeaderPage, err := t.bpm.FetchPage(t.headerPageID)
	if err != nil {
		return err
	}
	oldHeader := page.AsHashHeaderPage(oldHeaderPage.Data())
	oldNumBlocks := oldHeader.NumBlocks()
	newNumBlocks := oldNumBlocks * 2

	newHeaderPage, err := t.bpm.NewPage()
	if err != nil {
		t.bpm.UnpinPage(t.headerPageID, false)
		return err
	}
	newHeader := page.AsHashHeaderPage(newHeaderPage.Data())
	newHeader.Init(newHeaderPage.ID())
	for i := 0; i < newNumBlocks; i++ {
		bp, err := t.bpm.NewPage()
		if err != nil {
			t.bpm.UnpinPage(t.headerPageID, false)
			return err
		}
		page.AsHashBlockPage(bp.Data()).Init(bp.ID())
		newHeader.AddBlockPageID(bp.ID())
		t.bpm.UnpinPage(bp.ID(), true)
	}

	for i := 0; i < oldNumBlocks; i++ {
		oldBlockID := oldHeader.BlockPageID(i)
		obp, err := t.bpm.FetchPage(oldBlockID)
		if err != nil {
			return err
		}
		obv := page.AsHashBlockPage(obp.Data())
		for s := 0; s < page.BlockArraySize; s++ {
			if !obv.IsReadable(s) {
				continue
			}
			// insertIntoBlocks rehashes the key itself to find its new
			// home slot in the grown table.
			if err := t.insertIntoBlocks(newHeader, obv.KeyAt(s), obv.ValueAt(s)); err != nil {
				t.bpm.UnpinPage(oldBlockID, false)
				return err
			}
		}
		t.bpm.UnpinPage(oldBlockID, false)
		t.bpm.DeletePage(oldBlockID)
	}
	newHeader.SetTotalSlotCount(oldHeader.TotalSlotCount())

	oldHeaderID := t.headerPageID
	t.headerPageID = newHeaderPage.ID()

	directoryPage, err := t.bpm.FetchPage(types.PageID(common.HeaderPageID))
	if err != nil {
		return err
	}
	directoryPage.WLatch()
	page.AsDirectoryPage(directoryPage.Data()).Set(t.name, t.headerPageID)
	directoryPage.WUnlatch()
	t.bpm.UnpinPage(directoryPage.ID(), true)

	t.bpm.UnpinPage(newHeaderPage.ID(), true)
	t.bpm.UnpinPage(oldHeaderID, false)
	t.bpm.DeletePage(oldHeaderID)
	return nil
}

// insertIntoBlocks probes header's own blocks directly, bypassing the
// table's read/write latch since Resize already holds it. key is the
// real stored key; its home slot is recomputed from t.hash(key) against
// header's (possibly just-grown) block count.
func (t *Table) insertIntoBlocks(header page.HashHeaderPage, key, value int64) error {
	bucket, offset := t.homeSlot(header, t.hash(key))
	startBucket, startOffset := bucket, offset

	for {
		blockID := header.BlockPageID(bucket)
		bp, err := t.bpm.FetchPage(blockID)
		if err != nil {
			return err
		}
		bv := page.AsHashBlockPage(bp.Data())
		if !bv.IsOccupied(offset) {
			bv.Insert(offset, key, value)
			t.bpm.UnpinPage(blockID, true)
			return nil
		}
		t.bpm.UnpinPage(blockID, false)

		offset++
		if offset >= page.BlockArraySize {
			offset = 0
			bucket = (bucket + 1) % header.NumBlocks()
		}
		if bucket == startBucket && offset == startOffset {
			return common.ErrHashTableFull
		}
	}
}
