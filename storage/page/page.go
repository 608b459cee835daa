// this code is adapted from https://github.com/ryogrid/SamehadaDB
// (lib/storage/page/page.go)

// Package page holds the in-memory Page wrapper plus the typed page
// layouts (B+-tree internal/leaf, hash header/block, root directory) that
// are reinterpreted from a Page's raw bytes without copying.
package page

import (
	"sync/atomic"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/types"
)

// OffsetLSN is the fixed byte offset within a page's data where its log
// sequence number lives: the last four bytes, which no typed page layout
// uses, so it never overlaps the page-type tag at offset 0. The core never
// interprets the bytes beyond reading/writing this field — WAL replay is
// out of scope.
const OffsetLSN = common.PageSize - types.SizeOfLSN

// Page is the in-memory frame wrapper the buffer pool manages. Data is
// the raw 4096-byte contents; every typed page view (B+-tree node, hash
// block, directory) is obtained by reinterpreting Data() via
// unsafe.Pointer rather than copying.
type Page struct {
	id       types.PageID
	pinCount int32 // atomic
	isDirty  bool
	data     *[common.PageSize]byte
	latch    *common.ReaderWriterLatch
}

// New wraps id and data as a page with an initial pin count of 1 (the
// caller that just fetched or created it).
func New(id types.PageID, data *[common.PageSize]byte) *Page {
	return &Page{id: id, pinCount: 1, data: data, latch: common.NewRWLatch()}
}

// NewEmpty allocates a zeroed page.
func NewEmpty(id types.PageID) *Page {
	return New(id, &[common.PageSize]byte{})
}

func (p *Page) ID() types.PageID { return p.id }

func (p *Page) IncPinCount() { atomic.AddInt32(&p.pinCount, 1) }

func (p *Page) DecPinCount() {
	common.Assert(atomic.LoadInt32(&p.pinCount) > 0, "page %d: pin count would go negative", p.id)
	atomic.AddInt32(&p.pinCount, -1)
}

func (p *Page) PinCount() int32 { return atomic.LoadInt32(&p.pinCount) }

func (p *Page) Data() *[common.PageSize]byte { return p.data }

func (p *Page) SetIsDirty(dirty bool) { p.isDirty = dirty }
func (p *Page) IsDirty() bool         { return p.isDirty }

// WLatch/WUnlatch/RLatch/RUnlatch are the per-frame latch used for
// structural concurrency (crabbing). They are distinct from the buffer
// pool's coarse mutex, which only ever protects the frame table / free
// list / replacer (spec.md §5).
func (p *Page) WLatch()   { p.latch.WLock() }
func (p *Page) WUnlatch() { p.latch.WUnlock() }
func (p *Page) RLatch()   { p.latch.RLock() }
func (p *Page) RUnlatch() { p.latch.RUnlock() }

func (p *Page) GetLSN() types.LSN {
	return types.NewLSNFromBytes(p.data[OffsetLSN : OffsetLSN+types.SizeOfLSN])
}

func (p *Page) SetLSN(lsn types.LSN) {
	copy(p.data[OffsetLSN:OffsetLSN+types.SizeOfLSN], lsn.Serialize())
}
