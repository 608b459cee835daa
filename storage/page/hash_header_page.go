// this code is adapted from https://github.com/ryogrid/SamehadaDB
// (lib/storage/page/hash_table_header_page.go)

package page

import (
	"unsafe"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/types"
)

// MaxHashBlocks bounds how many block-page ids the root directory of
// blocks can record in one header page.
const MaxHashBlocks = 1000

type hashHeaderLayout struct {
	nodeType       int32
	pageID         int32
	numBlocks      int32
	totalSlotCount int32
	blockPageIds   [MaxHashBlocks]int32
}

// HashHeaderPage is a view over a Page's raw bytes as the root directory
// of a linear-probe hash table: an ordered sequence of block-page ids plus
// the recorded total slot count (spec.md §3).
type HashHeaderPage struct {
	raw *hashHeaderLayout
}

func AsHashHeaderPage(data *[common.PageSize]byte) HashHeaderPage {
	return HashHeaderPage{raw: (*hashHeaderLayout)(unsafe.Pointer(data))}
}

func (p HashHeaderPage) Init(id types.PageID) {
	p.raw.nodeType = int32(HashHeaderType)
	p.raw.pageID = int32(id)
	p.raw.numBlocks = 0
	p.raw.totalSlotCount = 0
}

func (p HashHeaderPage) PageID() types.PageID { return types.PageID(p.raw.pageID) }

func (p HashHeaderPage) NumBlocks() int { return int(p.raw.numBlocks) }

func (p HashHeaderPage) BlockPageID(i int) types.PageID {
	return types.PageID(p.raw.blockPageIds[i])
}

func (p HashHeaderPage) AddBlockPageID(id types.PageID) {
	common.Assert(int(p.raw.numBlocks) < MaxHashBlocks, "hash header %d: block directory full", p.PageID())
	p.raw.blockPageIds[p.raw.numBlocks] = int32(id)
	p.raw.numBlocks++
}

func (p HashHeaderPage) TotalSlotCount() int      { return int(p.raw.totalSlotCount) }
func (p HashHeaderPage) SetTotalSlotCount(n int)  { p.raw.totalSlotCount = int32(n) }
