// this code is adapted from https://github.com/ryogrid/SamehadaDB
// (lib/storage/access/transaction.go)

// Package concurrency implements row-level two-phase locking over the
// buffer-pool-backed indexes: a Transaction tracks which rows it holds
// locked, and a LockManager arbitrates shared/exclusive requests between
// transactions (spec.md §4.6).
package concurrency

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/pagestore/pagestore/types"
)

// TransactionState follows strict two-phase locking:
//
//	GROWING -> SHRINKING -> COMMITTED
//	   |___________|____________^
//	   v
//	ABORTED
type TransactionState int32

const (
	GROWING TransactionState = iota
	SHRINKING
	COMMITTED
	ABORTED
)

func (s TransactionState) String() string {
	switch s {
	case GROWING:
		return "GROWING"
	case SHRINKING:
		return "SHRINKING"
	case COMMITTED:
		return "COMMITTED"
	case ABORTED:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Transaction tracks the lock sets and deleted-page bookkeeping the lock
// manager and index layer consult for one logical unit of work.
type Transaction struct {
	id    types.TxnID
	state TransactionState

	sharedSet      mapset.Set[types.RID]
	exclusiveSet   mapset.Set[types.RID]
	deletedPageSet mapset.Set[types.PageID]
}

func NewTransaction(id types.TxnID) *Transaction {
	return &Transaction{
		id:             id,
		state:          GROWING,
		sharedSet:      mapset.NewSet[types.RID](),
		exclusiveSet:   mapset.NewSet[types.RID](),
		deletedPageSet: mapset.NewSet[types.PageID](),
	}
}

func (txn *Transaction) ID() types.TxnID { return txn.id }

func (txn *Transaction) State() TransactionState { return txn.state }

// SetState is exported for the lock manager; callers outside this
// package should not need it.
func (txn *Transaction) SetState(s TransactionState) { txn.state = s }

func (txn *Transaction) IsSharedLocked(rid types.RID) bool    { return txn.sharedSet.Contains(rid) }
func (txn *Transaction) IsExclusiveLocked(rid types.RID) bool { return txn.exclusiveSet.Contains(rid) }

func (txn *Transaction) SharedLockSet() []types.RID    { return txn.sharedSet.ToSlice() }
func (txn *Transaction) ExclusiveLockSet() []types.RID { return txn.exclusiveSet.ToSlice() }

// AddDeletedPage records a page this transaction deallocated, so it can
// be excluded from structures that must not resurrect it mid-abort.
func (txn *Transaction) AddDeletedPage(id types.PageID) { txn.deletedPageSet.Add(id) }

func (txn *Transaction) DeletedPageSet() []types.PageID { return txn.deletedPageSet.ToSlice() }
