package btree

import (
	"testing"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/storage/buffer"
	"github.com/pagestore/pagestore/storage/disk"
	"github.com/pagestore/pagestore/types"
)

func newTestTree(t *testing.T, leafMax, internalMax int) *Tree {
	t.Helper()
	dm := disk.NewMemoryDiskManager()
	bpm := buffer.NewBufferPoolManager(common.DefaultBufferPoolConfig(64), dm)
	tree, err := NewTree(bpm, "test_index", leafMax, internalMax)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	return tree
}

func TestTreeInsertAndGetValueRoundTrip(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	want := map[int64]types.RID{}
	for i := int64(0); i < 50; i++ {
		rid := types.NewRID(types.PageID(i), uint32(i))
		ok, err := tree.Insert(i, rid)
		if err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
		if !ok {
			t.Fatalf("Insert(%d) = false, want true", i)
		}
		want[i] = rid
	}

	for k, rid := range want {
		got, found, err := tree.GetValue(k)
		if err != nil {
			t.Fatalf("GetValue(%d): %v", k, err)
		}
		if !found {
			t.Fatalf("GetValue(%d) not found", k)
		}
		if got != rid {
			t.Fatalf("GetValue(%d) = %v, want %v", k, got, rid)
		}
	}
}

func TestTreeInsertDuplicateKeyRejected(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	rid := types.NewRID(1, 0)
	if ok, err := tree.Insert(10, rid); err != nil || !ok {
		t.Fatalf("first Insert(10) = (%v, %v)", ok, err)
	}
	if ok, err := tree.Insert(10, rid); err != nil || ok {
		t.Fatalf("duplicate Insert(10) = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestTreeRemoveAndUnderflowMerge(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for i := int64(0); i < 30; i++ {
		if _, err := tree.Insert(i, types.NewRID(types.PageID(i), 0)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	for i := int64(0); i < 25; i++ {
		if err := tree.Remove(i); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
	}

	for i := int64(0); i < 25; i++ {
		if _, found, err := tree.GetValue(i); err != nil || found {
			t.Fatalf("GetValue(%d) after Remove = (found=%v, err=%v), want not found", i, found, err)
		}
	}
	for i := int64(25); i < 30; i++ {
		if _, found, err := tree.GetValue(i); err != nil || !found {
			t.Fatalf("GetValue(%d) = (found=%v, err=%v), want found", i, found, err)
		}
	}
}

func TestTreeRemoveMissingKeyIsNoop(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	if _, err := tree.Insert(1, types.NewRID(1, 0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tree.Remove(999); err != nil {
		t.Fatalf("Remove(999) on absent key: %v", err)
	}
}

func TestTreeIteratorOrdersAcrossLeaves(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for i := int64(20); i >= 0; i-- {
		if _, err := tree.Insert(i, types.NewRID(types.PageID(i), 0)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	it, err := tree.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	var got []int64
	for it.Valid() {
		got = append(got, it.Key())
		if err := it.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if len(got) != 21 {
		t.Fatalf("iterated %d keys, want 21", len(got))
	}
	for i, k := range got {
		if k != int64(i) {
			t.Fatalf("got[%d] = %d, want %d (iterator must be ascending)", i, k, i)
		}
	}
}

func TestTreeBeginAtSkipsToKey(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for i := int64(0); i < 20; i += 2 {
		if _, err := tree.Insert(i, types.NewRID(types.PageID(i), 0)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	it, err := tree.BeginAt(7)
	if err != nil {
		t.Fatalf("BeginAt: %v", err)
	}
	defer it.Close()
	if !it.Valid() {
		t.Fatalf("BeginAt(7) iterator not valid")
	}
	if got := it.Key(); got != 8 {
		t.Fatalf("BeginAt(7).Key() = %d, want 8 (next key present after 7)", got)
	}
}
