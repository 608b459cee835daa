// this code is adapted from https://github.com/ryogrid/SamehadaDB
// (storage/access/lock_manager.go)
//
// the teacher's own LockShared/LockExclusive return false immediately on
// conflict rather than blocking, and its AddEdge/RemoveEdge/HasCycle are
// unimplemented stubs wired to nothing. This redesigns the grant path to
// actually block callers on a per-RID condition variable (spec.md §4.6
// requires a transaction to wait, not spin-fail, on conflict) while
// keeping the deadlock graph exactly as incomplete as the teacher left
// it — see DESIGN.md's Open Question 3.

package concurrency

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sasha-s/go-deadlock"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/types"
)

type LockMode int32

const (
	Shared LockMode = iota
	Exclusive
)

type lockRequest struct {
	txnID   types.TxnID
	mode    LockMode
	granted bool
}

type lockRequestQueue struct {
	requests  []*lockRequest
	cond      *sync.Cond
	upgrading bool
}

// LockManager grants shared/exclusive row locks under strict two-phase
// locking: a transaction may acquire locks only while GROWING, must
// release them all at once on commit/abort, and is aborted if it tries
// to acquire a new lock after entering SHRINKING (spec.md §4.6/§7).
type LockManager struct {
	mu deadlock.Mutex

	table    map[types.RID]*lockRequestQueue
	waitsFor map[types.TxnID]mapset.Set[types.TxnID]
}

func NewLockManager() *LockManager {
	return &LockManager{
		table:    make(map[types.RID]*lockRequestQueue),
		waitsFor: make(map[types.TxnID]mapset.Set[types.TxnID]),
	}
}

func (lm *LockManager) queueFor(rid types.RID) *lockRequestQueue {
	q, ok := lm.table[rid]
	if !ok {
		q = &lockRequestQueue{cond: sync.NewCond(&lm.mu)}
		lm.table[rid] = q
	}
	return q
}

func removeRequest(q *lockRequestQueue, target *lockRequest) {
	for i, r := range q.requests {
		if r == target {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			return
		}
	}
}

func removeRequestByTxn(q *lockRequestQueue, txnID types.TxnID) {
	for i, r := range q.requests {
		if r.txnID == txnID {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			return
		}
	}
}

func conflictsWithExclusive(q *lockRequestQueue, self *lockRequest) bool {
	for _, r := range q.requests {
		if r == self {
			continue
		}
		if r.granted && r.mode == Exclusive {
			return true
		}
	}
	return false
}

func conflictsWithAnyGranted(q *lockRequestQueue, self *lockRequest) bool {
	for _, r := range q.requests {
		if r == self {
			continue
		}
		if r.granted {
			return true
		}
	}
	return false
}

// LockShared blocks until rid can be locked in shared mode, or the
// transaction is aborted for trying to acquire a lock while SHRINKING.
func (lm *LockManager) LockShared(txn *Transaction, rid types.RID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if txn.State() == SHRINKING {
		txn.SetState(ABORTED)
		return common.NewTransactionAbort(common.LockOnShrinking)
	}
	if txn.IsSharedLocked(rid) || txn.IsExclusiveLocked(rid) {
		return nil
	}

	q := lm.queueFor(rid)
	req := &lockRequest{txnID: txn.ID(), mode: Shared}
	q.requests = append(q.requests, req)

	for conflictsWithExclusive(q, req) {
		q.cond.Wait()
		if txn.State() == ABORTED {
			removeRequest(q, req)
			return common.NewTransactionAbort(common.LockOnShrinking)
		}
	}
	req.granted = true
	txn.sharedSet.Add(rid)
	return nil
}

// LockExclusive blocks until rid can be locked exclusively.
func (lm *LockManager) LockExclusive(txn *Transaction, rid types.RID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if txn.State() == SHRINKING {
		txn.SetState(ABORTED)
		return common.NewTransactionAbort(common.LockOnShrinking)
	}
	if txn.IsExclusiveLocked(rid) {
		return nil
	}

	q := lm.queueFor(rid)
	req := &lockRequest{txnID: txn.ID(), mode: Exclusive}
	q.requests = append(q.requests, req)

	for conflictsWithAnyGranted(q, req) {
		q.cond.Wait()
		if txn.State() == ABORTED {
			removeRequest(q, req)
			return common.NewTransactionAbort(common.LockOnShrinking)
		}
	}
	req.granted = true
	txn.exclusiveSet.Add(rid)
	return nil
}

// LockUpgrade promotes txn's existing shared lock on rid to exclusive.
// Only one upgrade may be pending per RID at a time; a second upgrader
// is aborted rather than queued behind the first (spec.md §7 "upgrade
// conflict").
func (lm *LockManager) LockUpgrade(txn *Transaction, rid types.RID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if !txn.IsSharedLocked(rid) {
		common.Assert(false, "LockUpgrade: txn %d does not hold a shared lock on %s", txn.ID(), rid)
	}

	q := lm.queueFor(rid)
	if q.upgrading {
		txn.SetState(ABORTED)
		return common.NewTransactionAbort(common.UpgradeConflict)
	}

	var self *lockRequest
	for _, r := range q.requests {
		if r.txnID == txn.ID() && r.mode == Shared {
			self = r
			break
		}
	}
	common.Assert(self != nil, "LockUpgrade: txn %d has no recorded shared request on %s", txn.ID(), rid)

	q.upgrading = true
	self.mode = Exclusive
	self.granted = false

	for conflictsWithAnyGranted(q, self) {
		q.cond.Wait()
		if txn.State() == ABORTED {
			q.upgrading = false
			return common.NewTransactionAbort(common.UpgradeConflict)
		}
	}
	self.granted = true
	q.upgrading = false
	txn.sharedSet.Remove(rid)
	txn.exclusiveSet.Add(rid)
	return nil
}

// Unlock releases every lock txn holds on rid and moves it into
// SHRINKING if it was still GROWING (spec.md §4.6).
func (lm *LockManager) Unlock(txn *Transaction, rid types.RID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if txn.State() == GROWING {
		txn.SetState(SHRINKING)
	}
	q, ok := lm.table[rid]
	if !ok {
		return nil
	}
	removeRequestByTxn(q, txn.ID())
	txn.sharedSet.Remove(rid)
	txn.exclusiveSet.Remove(rid)
	q.cond.Broadcast()
	return nil
}

// AddEdge and RemoveEdge maintain the waits-for graph that a background
// cycle-detection sweep would consult. No such sweep is wired up yet —
// HasCycle always reports none, matching the teacher's own unfinished
// deadlock detector (see DESIGN.md Open Question 3).
func (lm *LockManager) AddEdge(from, to types.TxnID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if _, ok := lm.waitsFor[from]; !ok {
		lm.waitsFor[from] = mapset.NewSet[types.TxnID]()
	}
	lm.waitsFor[from].Add(to)
}

func (lm *LockManager) RemoveEdge(from, to types.TxnID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if s, ok := lm.waitsFor[from]; ok {
		s.Remove(to)
	}
}

// HasCycle always reports none. TODO: walk lm.waitsFor with a DFS and
// return the youngest transaction on the cycle, per spec.md §4.6's
// deadlock-detection contract.
func (lm *LockManager) HasCycle() (types.TxnID, bool) {
	return types.InvalidTxnID, false
}
