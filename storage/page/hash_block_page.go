// this code is adapted from https://github.com/ryogrid/SamehadaDB
// (storage/page/hash_table_block_page.go, lib/storage/page/hash_table_header_page.go)

package page

import (
	"unsafe"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/types"
)

// BlockArraySize is the fixed slot capacity of one hash block page
// (spec.md §3/§6). Sized generously below the 4096-byte page so the
// occupied/readable bitmaps plus the (key,value) array never approach the
// page boundary.
const BlockArraySize = 240

const bitmapBytes = BlockArraySize / 8

type hashEntry struct {
	Key   int64
	Value int64
}

type hashBlockLayout struct {
	nodeType int32
	pageID   int32
	occupied [bitmapBytes]byte
	readable [bitmapBytes]byte
	entries  [BlockArraySize]hashEntry
}

// HashBlockPage is a view over a Page's raw bytes as one linear-probe hash
// table block: BlockArraySize (key, value) slots plus occupied/readable
// bitmaps. readable[i] implies occupied[i]; occupied-but-not-readable is a
// tombstone (spec.md §3).
type HashBlockPage struct {
	raw *hashBlockLayout
}

func AsHashBlockPage(data *[common.PageSize]byte) HashBlockPage {
	return HashBlockPage{raw: (*hashBlockLayout)(unsafe.Pointer(data))}
}

func (p HashBlockPage) Init(id types.PageID) {
	p.raw.nodeType = int32(HashBlockType)
	p.raw.pageID = int32(id)
	p.raw.occupied = [bitmapBytes]byte{}
	p.raw.readable = [bitmapBytes]byte{}
}

func (p HashBlockPage) PageID() types.PageID { return types.PageID(p.raw.pageID) }

func (p HashBlockPage) KeyAt(i int) int64   { return p.raw.entries[i].Key }
func (p HashBlockPage) ValueAt(i int) int64 { return p.raw.entries[i].Value }

func (p HashBlockPage) IsOccupied(i int) bool { return p.raw.occupied[i/8]&(1<<(i%8)) != 0 }
func (p HashBlockPage) IsReadable(i int) bool { return p.raw.readable[i/8]&(1<<(i%8)) != 0 }

// Insert writes (key, value) into slot i and marks it occupied+readable.
// It does not check slot availability; callers probe first.
func (p HashBlockPage) Insert(i int, key, value int64) {
	p.raw.entries[i] = hashEntry{Key: key, Value: value}
	p.raw.occupied[i/8] |= 1 << (i % 8)
	p.raw.readable[i/8] |= 1 << (i % 8)
}

// Remove clears the readable bit only, leaving occupied set — a
// tombstone, so later probes keep scanning past it (spec.md §4.5).
func (p HashBlockPage) Remove(i int) {
	common.Assert(p.IsReadable(i), "hash block %d: Remove on a non-readable slot %d", p.PageID(), i)
	p.raw.readable[i/8] &^= 1 << (i % 8)
}
