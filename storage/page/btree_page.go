// this code is grounded on the teacher's unsafe.Pointer page-reinterpretation
// idiom (lib/container/hash/linear_probe_hash_table.go casts a fetched
// page's raw bytes to *page.HashTableHeaderPage; storage/page/skip_list_page
// does the same for its block pages) applied to spec.md §3/§4.4's B+-tree
// node layout, which the teacher repo itself never implements
// (lib/container/btree/bltree_wrapper.go panics "Not implemented yet" on
// every method — see DESIGN.md).

package page

import (
	"unsafe"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/types"
)

// NodeType tags which view a page's bytes should be read as. The zero
// value is deliberately "none" so an all-zero (never-written) page is
// never mistaken for a real leaf or internal node — spec.md §9 Open
// Question 5.
type NodeType int32

const (
	InvalidNodeType NodeType = 0
	LeafNodeType    NodeType = 1
	InternalNodeType NodeType = 2
	HashHeaderType  NodeType = 3
	HashBlockType   NodeType = 4
	DirectoryType   NodeType = 5
)

// bTreeEntry is one (key, value) slot. For an internal node, Value holds a
// child PageID; for a leaf, Value holds a types.RID packed via RID.Encode.
type bTreeEntry struct {
	Key   int64
	Value int64
}

// BTreeMaxSlots is how many entries fit in a page after the fixed header.
const BTreeMaxSlots = (common.PageSize - 24) / 16

type bTreeLayout struct {
	nodeType   int32
	pageID     int32
	parentID   int32
	size       int32
	maxSize    int32
	nextPageID int32
	entries    [BTreeMaxSlots]bTreeEntry
}

// BTreePage is a view over a Page's raw bytes as a B+-tree node. Obtain one
// with AsBTreePage; it aliases the underlying Page's memory, so mutations
// through it are only safe while the caller holds the page's latch.
type BTreePage struct {
	raw *bTreeLayout
}

// AsBTreePage reinterprets data as a B+-tree node view, with no copy.
func AsBTreePage(data *[common.PageSize]byte) BTreePage {
	return BTreePage{raw: (*bTreeLayout)(unsafe.Pointer(data))}
}

// NodeTypeOf reads the tag shared by every page layout's first four bytes
// without committing to a specific typed view, so a caller can decide
// which AsXxxPage to use (or whether the page has never been
// initialized at all).
func NodeTypeOf(data *[common.PageSize]byte) NodeType {
	return NodeType(*(*int32)(unsafe.Pointer(data)))
}

func (p BTreePage) NodeType() NodeType      { return NodeType(p.raw.nodeType) }
func (p BTreePage) SetNodeType(t NodeType)  { p.raw.nodeType = int32(t) }
func (p BTreePage) IsLeaf() bool            { return p.NodeType() == LeafNodeType }

func (p BTreePage) PageID() types.PageID     { return types.PageID(p.raw.pageID) }
func (p BTreePage) SetPageID(id types.PageID) { p.raw.pageID = int32(id) }

func (p BTreePage) ParentID() types.PageID      { return types.PageID(p.raw.parentID) }
func (p BTreePage) SetParentID(id types.PageID) { p.raw.parentID = int32(id) }

func (p BTreePage) Size() int      { return int(p.raw.size) }
func (p BTreePage) SetSize(n int)  { p.raw.size = int32(n) }

func (p BTreePage) MaxSize() int     { return int(p.raw.maxSize) }
func (p BTreePage) SetMaxSize(n int) { p.raw.maxSize = int32(n) }

// NextPageID chains leaves in ascending key order; INVALID_PAGE_ID on the
// last leaf. Meaningless on internal nodes.
func (p BTreePage) NextPageID() types.PageID      { return types.PageID(p.raw.nextPageID) }
func (p BTreePage) SetNextPageID(id types.PageID) { p.raw.nextPageID = int32(id) }

func (p BTreePage) IsFull() bool { return p.Size() >= p.MaxSize() }

// MinSize returns the minimum occupancy a non-root node of this type must
// maintain: ceil(max/2) for leaves, ceil(max/2)+1 for internal nodes
// (spec.md §3).
func (p BTreePage) MinSize() int {
	ceilHalf := (p.MaxSize() + 1) / 2
	if p.IsLeaf() {
		return ceilHalf
	}
	return ceilHalf + 1
}

func (p BTreePage) KeyAt(i int) int64      { return p.raw.entries[i].Key }
func (p BTreePage) SetKeyAt(i int, k int64) { p.raw.entries[i].Key = k }

func (p BTreePage) ValueAt(i int) int64       { return p.raw.entries[i].Value }
func (p BTreePage) SetValueAt(i int, v int64) { p.raw.entries[i].Value = v }

func (p BTreePage) SetEntryAt(i int, k, v int64) {
	p.raw.entries[i] = bTreeEntry{Key: k, Value: v}
}

// ChildAt interprets ValueAt(i) as a child PageID (internal nodes only).
func (p BTreePage) ChildAt(i int) types.PageID { return types.PageID(p.raw.entries[i].Value) }

func (p BTreePage) SetChildAt(i int, id types.PageID) {
	p.raw.entries[i].Value = int64(id)
}

// RIDAt interprets ValueAt(i) as a leaf payload RID.
func (p BTreePage) RIDAt(i int) types.RID { return types.DecodeRID(p.raw.entries[i].Value) }

func (p BTreePage) SetRIDAt(i int, rid types.RID) {
	p.raw.entries[i].Value = rid.Encode()
}

// InsertAt shifts entries [i, size) right by one and places (k, v) at i,
// growing size by one.
func (p BTreePage) InsertAt(i int, k, v int64) {
	common.Assert(p.Size() < BTreeMaxSlots, "btree page %d: insert overflows fixed slot array", p.PageID())
	for j := p.Size(); j > i; j-- {
		p.raw.entries[j] = p.raw.entries[j-1]
	}
	p.raw.entries[i] = bTreeEntry{Key: k, Value: v}
	p.SetSize(p.Size() + 1)
}

// RemoveAt shifts entries (i, size) left by one, shrinking size by one.
func (p BTreePage) RemoveAt(i int) {
	for j := i; j < p.Size()-1; j++ {
		p.raw.entries[j] = p.raw.entries[j+1]
	}
	p.SetSize(p.Size() - 1)
}

// LookupChildSlot returns the index of the child to descend into for key,
// per spec.md §4.4.2: i-1, where i is the smallest index with
// Key(i) > key, or the last child if there is no such i. Entry 0's key is
// a dummy for internal nodes.
func (p BTreePage) LookupChildSlot(key int64, cmp Comparator) int {
	common.Assert(!p.IsLeaf(), "LookupChildSlot called on a leaf page")
	for i := 1; i < p.Size(); i++ {
		if cmp(p.KeyAt(i), key) > 0 {
			return i - 1
		}
	}
	return p.Size() - 1
}

// FindKey returns (index, true) for an exact key match on a leaf,
// (insertion index, false) otherwise.
func (p BTreePage) FindKey(key int64, cmp Comparator) (int, bool) {
	lo, hi := 0, p.Size()
	for lo < hi {
		mid := (lo + hi) / 2
		c := cmp(p.KeyAt(mid), key)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

// Comparator defines the B+-tree's total order over keys. cmp(a, b) < 0
// means a sorts before b, matching spec.md §3/§4.4's "external comparator."
type Comparator func(a, b int64) int

// NumericComparator is the default ascending comparator over int64 keys.
func NumericComparator(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
