// this code is grounded on spec.md §4.4.5's leaf-chain range iterator,
// walking the NextPageID links storage/page.BTreePage.SetNextPageID
// maintains across splits and merges.

package btree

import (
	"github.com/pagestore/pagestore/storage/page"
	"github.com/pagestore/pagestore/types"
)

// Iterator walks an ordered range of (key, rid) pairs by following the
// leaf chain. A zero-value Iterator (as returned over an empty tree) is
// immediately !Valid().
type Iterator struct {
	tree *Tree
	page *page.Page
	v    page.BTreePage
	idx  int
}

// Begin returns an iterator positioned at the tree's smallest key.
func (t *Tree) Begin() (*Iterator, error) {
	return t.seek(nil)
}

// BeginAt returns an iterator positioned at key if present, or at the
// smallest key greater than it otherwise.
func (t *Tree) BeginAt(key int64) (*Iterator, error) {
	return t.seek(&key)
}

func (t *Tree) seek(key *int64) (*Iterator, error) {
	t.rootMu.Lock()
	root := t.rootPageID
	t.rootMu.Unlock()
	if root == types.InvalidPageID {
		return &Iterator{tree: t}, nil
	}

	p, err := t.fetchR(root)
	if err != nil {
		return nil, err
	}
	v := page.AsBTreePage(p.Data())
	for !v.IsLeaf() {
		idx := 0
		if key != nil {
			idx = v.LookupChildSlot(*key, t.cmp)
		}
		childID := v.ChildAt(idx)
		cp, err := t.fetchR(childID)
		if err != nil {
			p.RUnlatch()
			t.bpm.UnpinPage(p.ID(), false)
			return nil, err
		}
		p.RUnlatch()
		t.bpm.UnpinPage(p.ID(), false)
		p = cp
		v = page.AsBTreePage(p.Data())
	}

	idx := 0
	if key != nil {
		idx, _ = v.FindKey(*key, t.cmp)
	}
	it := &Iterator{tree: t, page: p, v: v, idx: idx}
	if idx >= v.Size() {
		// nothing at or after key on this leaf: continue on the next one.
		it.idx--
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// Valid reports whether Key/RID may be called.
func (it *Iterator) Valid() bool { return it.page != nil && it.idx < it.v.Size() }

func (it *Iterator) Key() int64     { return it.v.KeyAt(it.idx) }
func (it *Iterator) RID() types.RID { return it.v.RIDAt(it.idx) }

// Next advances to the following entry, crossing into the next leaf via
// NextPageID once the current one is exhausted.
func (it *Iterator) Next() error {
	it.idx++
	if it.idx < it.v.Size() {
		return nil
	}

	next := it.v.NextPageID()
	it.page.RUnlatch()
	it.tree.bpm.UnpinPage(it.page.ID(), false)
	it.page = nil

	if next == types.InvalidPageID {
		return nil
	}
	p, err := it.tree.fetchR(next)
	if err != nil {
		return err
	}
	it.page = p
	it.v = page.AsBTreePage(p.Data())
	it.idx = 0
	return nil
}

// Close releases the iterator's current leaf latch/pin. Safe to call on
// an already-exhausted or never-valid iterator.
func (it *Iterator) Close() {
	if it.page == nil {
		return
	}
	it.page.RUnlatch()
	it.tree.bpm.UnpinPage(it.page.ID(), false)
	it.page = nil
}
