package hash

import (
	"testing"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/storage/buffer"
	"github.com/pagestore/pagestore/storage/disk"
	"github.com/pagestore/pagestore/storage/page"
	"github.com/pagestore/pagestore/types"
)

func newTestTable(t *testing.T, numBlocks int) *Table {
	t.Helper()
	dm := disk.NewMemoryDiskManager()
	bpm := buffer.NewBufferPoolManager(common.DefaultBufferPoolConfig(64), dm)
	table, err := NewTable(bpm, "test_hash_index", numBlocks)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func TestTableInsertAndGetValue(t *testing.T) {
	table := newTestTable(t, 2)
	rid := types.NewRID(3, 7)
	if ok, err := table.Insert(42, rid); err != nil || !ok {
		t.Fatalf("Insert = (%v, %v), want (true, nil)", ok, err)
	}

	got, err := table.GetValue(42)
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if len(got) != 1 || got[0] != rid {
		t.Fatalf("GetValue(42) = %v, want [%v]", got, rid)
	}
}

func TestTableSupportsNonUniqueKeys(t *testing.T) {
	table := newTestTable(t, 2)
	r1, r2 := types.NewRID(1, 0), types.NewRID(2, 0)
	if _, err := table.Insert(5, r1); err != nil {
		t.Fatalf("Insert r1: %v", err)
	}
	if _, err := table.Insert(5, r2); err != nil {
		t.Fatalf("Insert r2: %v", err)
	}

	got, err := table.GetValue(5)
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetValue(5) returned %d entries, want 2", len(got))
	}
}

func TestTableRemoveDecrementsSize(t *testing.T) {
	table := newTestTable(t, 2)
	rid := types.NewRID(9, 1)
	if _, err := table.Insert(1, rid); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if n, err := table.GetSize(); err != nil || n != 1 {
		t.Fatalf("GetSize = (%d, %v), want (1, nil)", n, err)
	}

	if err := table.Remove(1, rid); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if n, err := table.GetSize(); err != nil || n != 0 {
		t.Fatalf("GetSize after Remove = (%d, %v), want (0, nil)", n, err)
	}
	if got, err := table.GetValue(1); err != nil || len(got) != 0 {
		t.Fatalf("GetValue(1) after Remove = (%v, %v), want empty", got, err)
	}
}

func TestTableTombstoneDoesNotBreakLaterProbes(t *testing.T) {
	table := newTestTable(t, 1)
	ridA, ridB := types.NewRID(1, 0), types.NewRID(2, 0)
	if _, err := table.Insert(100, ridA); err != nil {
		t.Fatalf("Insert A: %v", err)
	}
	if _, err := table.Insert(100, ridB); err != nil {
		t.Fatalf("Insert B: %v", err)
	}
	if err := table.Remove(100, ridA); err != nil {
		t.Fatalf("Remove A: %v", err)
	}

	got, err := table.GetValue(100)
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if len(got) != 1 || got[0] != ridB {
		t.Fatalf("GetValue(100) = %v, want [%v] (tombstone must not hide entries past it)", got, ridB)
	}
}

func TestTableResizePreservesEntries(t *testing.T) {
	table := newTestTable(t, 1)
	n := page.BlockArraySize
	for i := 0; i < n; i++ {
		rid := types.NewRID(types.PageID(i), 0)
		if _, err := table.Insert(int64(i), rid); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	// n distinct inserts have filled every slot of the lone block, so one
	// more insert reports full and Resize must make room.
	rid := types.NewRID(999, 0)
	if _, err := table.Insert(int64(n), rid); err == common.ErrHashTableFull {
		if err := table.Resize(); err != nil {
			t.Fatalf("Resize: %v", err)
		}
		if ok, err := table.Insert(int64(n), rid); err != nil || !ok {
			t.Fatalf("Insert after Resize = (%v, %v), want (true, nil)", ok, err)
		}
	}

	for i := 0; i < n; i++ {
		got, err := table.GetValue(int64(i))
		if err != nil {
			t.Fatalf("GetValue(%d): %v", i, err)
		}
		if len(got) != 1 {
			t.Fatalf("GetValue(%d) after growth = %v, want exactly one entry", i, got)
		}
	}
}
