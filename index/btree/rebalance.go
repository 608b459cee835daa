// this code is grounded on spec.md §4.4.4's underflow handling
// (redistribute-before-merge, root collapse when it drops to one child),
// expressed via storage/page.BTreePage the same way tree.go's split path
// is.

package btree

import (
	"github.com/pagestore/pagestore/storage/page"
	"github.com/pagestore/pagestore/types"
)

// fixUnderflow walks up from the leaf that just lost an entry, borrowing
// from or merging with a sibling at each level that has fallen below
// MinSize. It stops as soon as a level is resolved without a merge; a
// chain of merges can propagate all the way to the root, which is then
// collapsed by one level if it is left with a single child.
func (t *Tree) fixUnderflow(stack []frame, dirty map[types.PageID]bool) error {
	i := len(stack) - 1
	for i > 0 {
		node := stack[i]
		if node.v.Size() >= node.v.MinSize() {
			return nil
		}
		merged, err := t.rebalance(stack, i, dirty)
		if err != nil {
			return err
		}
		if !merged {
			return nil
		}
		i--
	}

	root := stack[0]
	if !root.v.IsLeaf() && root.v.Size() == 1 {
		newRootID := root.v.ChildAt(0)
		if err := t.updateChildParent(newRootID, types.InvalidPageID); err != nil {
			return err
		}
		t.rootMu.Lock()
		t.rootPageID = newRootID
		perr := t.persistRootLocked()
		t.rootMu.Unlock()
		if perr != nil {
			return perr
		}

		oldRootID := root.p.ID()
		root.p.WUnlatch()
		t.bpm.UnpinPage(oldRootID, false)
		t.bpm.DeletePage(oldRootID)
		stack[0] = frame{} // already released; releaseStack must skip it
	}
	return nil
}

// rebalance resolves stack[i]'s underflow against one sibling, borrowing
// if the sibling has slack or merging otherwise. It reports whether a
// merge happened (and so parent may now itself be underflowing). When a
// merge consumes stack[i]'s own page, rebalance clears stack[i] so the
// caller's final releaseStack doesn't double-release it.
func (t *Tree) rebalance(stack []frame, i int, dirty map[types.PageID]bool) (bool, error) {
	parent, node := stack[i-1], stack[i]
	childIdx := node.childIdx

	if childIdx > 0 {
		leftID := parent.v.ChildAt(childIdx - 1)
		leftPage, err := t.fetchW(leftID)
		if err != nil {
			return false, err
		}
		leftView := page.AsBTreePage(leftPage.Data())

		if leftView.Size() > leftView.MinSize() {
			if err := t.borrowFromLeft(parent.v, childIdx, leftView, node.v); err != nil {
				leftPage.WUnlatch()
				t.bpm.UnpinPage(leftID, true)
				return false, err
			}
			dirty[leftID] = true
			dirty[parent.p.ID()] = true
			dirty[node.p.ID()] = true
			leftPage.WUnlatch()
			t.bpm.UnpinPage(leftID, true)
			return false, nil
		}

		if node.v.IsLeaf() {
			mergeLeaves(leftView, node.v)
		} else if err := t.mergeInternal(leftView, parent.v.KeyAt(childIdx), node.v, leftID); err != nil {
			leftPage.WUnlatch()
			t.bpm.UnpinPage(leftID, true)
			return false, err
		}
		parent.v.RemoveAt(childIdx)
		dirty[leftID] = true
		dirty[parent.p.ID()] = true
		leftPage.WUnlatch()
		t.bpm.UnpinPage(leftID, true)

		nodeID := node.p.ID()
		delete(dirty, nodeID)
		node.p.WUnlatch()
		t.bpm.UnpinPage(nodeID, false)
		t.bpm.DeletePage(nodeID)
		stack[i] = frame{} // already released; releaseStack must skip it
		return true, nil
	}

	rightID := parent.v.ChildAt(childIdx + 1)
	rightPage, err := t.fetchW(rightID)
	if err != nil {
		return false, err
	}
	rightView := page.AsBTreePage(rightPage.Data())

	if rightView.Size() > rightView.MinSize() {
		if err := t.borrowFromRight(parent.v, childIdx, node.v, rightView); err != nil {
			rightPage.WUnlatch()
			t.bpm.UnpinPage(rightID, true)
			return false, err
		}
		dirty[rightID] = true
		dirty[parent.p.ID()] = true
		dirty[node.p.ID()] = true
		rightPage.WUnlatch()
		t.bpm.UnpinPage(rightID, true)
		return false, nil
	}

	if node.v.IsLeaf() {
		mergeLeaves(node.v, rightView)
	} else if err := t.mergeInternal(node.v, parent.v.KeyAt(childIdx+1), rightView, node.p.ID()); err != nil {
		rightPage.WUnlatch()
		t.bpm.UnpinPage(rightID, true)
		return false, err
	}
	parent.v.RemoveAt(childIdx + 1)
	dirty[node.p.ID()] = true
	dirty[parent.p.ID()] = true
	rightPage.WUnlatch()
	t.bpm.UnpinPage(rightID, false)
	t.bpm.DeletePage(rightID)
	return true, nil
}

// borrowFromLeft moves left's rightmost entry to become node's new
// first entry, rotating the separator key through parent.
func (t *Tree) borrowFromLeft(parent page.BTreePage, childIdx int, left, node page.BTreePage) error {
	if node.IsLeaf() {
		i := left.Size() - 1
		k, v := left.KeyAt(i), left.ValueAt(i)
		left.RemoveAt(i)
		node.InsertAt(0, k, v)
		parent.SetKeyAt(childIdx, node.KeyAt(0))
		return nil
	}

	i := left.Size() - 1
	borrowedKey := left.KeyAt(i)
	borrowedChild := left.ChildAt(i)
	left.RemoveAt(i)

	oldChild0 := node.ChildAt(0)
	node.SetChildAt(0, borrowedChild)
	node.InsertAt(1, parent.KeyAt(childIdx), int64(oldChild0))
	parent.SetKeyAt(childIdx, borrowedKey)
	return t.updateChildParent(borrowedChild, node.PageID())
}

// borrowFromRight is the mirror image of borrowFromLeft.
func (t *Tree) borrowFromRight(parent page.BTreePage, childIdx int, node, right page.BTreePage) error {
	if node.IsLeaf() {
		k, v := right.KeyAt(0), right.ValueAt(0)
		right.RemoveAt(0)
		node.InsertAt(node.Size(), k, v)
		parent.SetKeyAt(childIdx+1, right.KeyAt(0))
		return nil
	}

	borrowedChild := right.ChildAt(0)
	oldSep := parent.KeyAt(childIdx + 1)
	node.InsertAt(node.Size(), oldSep, int64(borrowedChild))

	newSep := right.KeyAt(1)
	right.SetChildAt(0, right.ChildAt(1))
	right.RemoveAt(1)
	parent.SetKeyAt(childIdx+1, newSep)
	return t.updateChildParent(borrowedChild, node.PageID())
}

func mergeLeaves(left, right page.BTreePage) {
	for i := 0; i < right.Size(); i++ {
		left.InsertAt(left.Size(), right.KeyAt(i), right.ValueAt(i))
	}
	left.SetNextPageID(right.NextPageID())
}

// mergeInternal appends right's entries onto left, pulling the separator
// key down from parent for right's former entry 0 (whose own key was a
// dummy), and reparents every child that moved.
func (t *Tree) mergeInternal(left page.BTreePage, sepKey int64, right page.BTreePage, newParentID types.PageID) error {
	left.InsertAt(left.Size(), sepKey, int64(right.ChildAt(0)))
	for i := 1; i < right.Size(); i++ {
		left.InsertAt(left.Size(), right.KeyAt(i), right.ValueAt(i))
	}
	for i := 0; i < right.Size(); i++ {
		if err := t.updateChildParent(right.ChildAt(i), newParentID); err != nil {
			return err
		}
	}
	return nil
}
