package concurrency

import (
	"testing"
	"time"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/types"
)

func TestLockManagerSharedLocksAreCompatible(t *testing.T) {
	lm := NewLockManager()
	rid := types.NewRID(1, 0)
	t1 := NewTransaction(1)
	t2 := NewTransaction(2)

	if err := lm.LockShared(t1, rid); err != nil {
		t.Fatalf("t1 LockShared: %v", err)
	}
	if err := lm.LockShared(t2, rid); err != nil {
		t.Fatalf("t2 LockShared: %v", err)
	}
	if !t1.IsSharedLocked(rid) || !t2.IsSharedLocked(rid) {
		t.Fatalf("both transactions should hold the shared lock")
	}
}

func TestLockManagerExclusiveExcludesOthers(t *testing.T) {
	lm := NewLockManager()
	rid := types.NewRID(1, 0)
	t1 := NewTransaction(1)
	t2 := NewTransaction(2)

	if err := lm.LockExclusive(t1, rid); err != nil {
		t.Fatalf("t1 LockExclusive: %v", err)
	}

	granted := make(chan struct{})
	go func() {
		if err := lm.LockShared(t2, rid); err != nil {
			t.Errorf("t2 LockShared: %v", err)
		}
		close(granted)
	}()

	select {
	case <-granted:
		t.Fatalf("t2 acquired the shared lock while t1 still holds exclusive")
	case <-time.After(100 * time.Millisecond):
	}

	if err := lm.Unlock(t1, rid); err != nil {
		t.Fatalf("t1 Unlock: %v", err)
	}

	select {
	case <-granted:
	case <-time.After(time.Second):
		t.Fatalf("t2 never acquired the shared lock after t1's Unlock")
	}
}

func TestLockManagerAbortsLockAcquisitionWhileShrinking(t *testing.T) {
	lm := NewLockManager()
	ridA, ridB := types.NewRID(1, 0), types.NewRID(2, 0)
	txn := NewTransaction(1)

	if err := lm.LockShared(txn, ridA); err != nil {
		t.Fatalf("LockShared: %v", err)
	}
	if err := lm.Unlock(txn, ridA); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if txn.State() != SHRINKING {
		t.Fatalf("txn state = %v, want SHRINKING", txn.State())
	}

	err := lm.LockShared(txn, ridB)
	abortErr, ok := err.(*common.TransactionAbort)
	if !ok {
		t.Fatalf("LockShared during SHRINKING returned %v, want *common.TransactionAbort", err)
	}
	if abortErr.Reason != common.LockOnShrinking {
		t.Fatalf("abort reason = %v, want LockOnShrinking", abortErr.Reason)
	}
	if txn.State() != ABORTED {
		t.Fatalf("txn state = %v, want ABORTED", txn.State())
	}
}

func TestLockManagerUpgradeConflictAbortsSecondUpgrader(t *testing.T) {
	lm := NewLockManager()
	rid := types.NewRID(1, 0)
	t1 := NewTransaction(1)
	t2 := NewTransaction(2)
	t3 := NewTransaction(3)

	if err := lm.LockShared(t1, rid); err != nil {
		t.Fatalf("t1 LockShared: %v", err)
	}
	if err := lm.LockShared(t2, rid); err != nil {
		t.Fatalf("t2 LockShared: %v", err)
	}
	if err := lm.LockShared(t3, rid); err != nil {
		t.Fatalf("t3 LockShared: %v", err)
	}

	upgraded := make(chan struct{})
	go func() {
		// t1 blocks here until t2 and t3 release their shared locks.
		if err := lm.LockUpgrade(t1, rid); err != nil {
			t.Errorf("t1 LockUpgrade: %v", err)
			return
		}
		close(upgraded)
	}()

	// give t1's upgrade a moment to register as in-progress on the queue.
	time.Sleep(50 * time.Millisecond)

	err := lm.LockUpgrade(t2, rid)
	abortErr, ok := err.(*common.TransactionAbort)
	if !ok {
		t.Fatalf("t2 LockUpgrade returned %v, want *common.TransactionAbort", err)
	}
	if abortErr.Reason != common.UpgradeConflict {
		t.Fatalf("abort reason = %v, want UpgradeConflict", abortErr.Reason)
	}
	if t2.State() != ABORTED {
		t.Fatalf("t2 state = %v, want ABORTED", t2.State())
	}

	if err := lm.Unlock(t2, rid); err != nil {
		t.Fatalf("t2 Unlock: %v", err)
	}
	if err := lm.Unlock(t3, rid); err != nil {
		t.Fatalf("t3 Unlock: %v", err)
	}

	select {
	case <-upgraded:
	case <-time.After(time.Second):
		t.Fatalf("t1 never completed its upgrade once t2 and t3 released")
	}
	if !t1.IsExclusiveLocked(rid) {
		t.Fatalf("t1 should hold the exclusive lock after upgrading")
	}
}

func TestLockManagerHasCycleAlwaysFalse(t *testing.T) {
	lm := NewLockManager()
	lm.AddEdge(1, 2)
	lm.AddEdge(2, 1)
	if id, found := lm.HasCycle(); found || id != types.InvalidTxnID {
		t.Fatalf("HasCycle = (%v, %v), want (InvalidTxnID, false)", id, found)
	}
}
