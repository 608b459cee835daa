// this code is adapted from https://github.com/ryogrid/SamehadaDB (lib/common/assert.go)

package common

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the buffer pool manager (spec.md §4.2/§7).
var (
	ErrBufferPoolFull = errors.New("buffer pool: no free or evictable frame")
	ErrPageNotFound   = errors.New("buffer pool: page not resident")
	ErrPagePinned     = errors.New("buffer pool: page still pinned")
)

// ErrHashTableFull is returned by the linear-probe hash index when an
// Insert's probe sequence wraps back to its start without finding an
// empty or tombstoned slot — the caller is expected to Resize and retry
// (spec.md §4.5.1).
var ErrHashTableFull = errors.New("hash index: no free slot, resize required")

// Assert panics with msg (plus caller-supplied context) if condition is
// false. Used at invariant boundaries (§7: "Invariant breach ... the
// implementation must panic with enough context to diagnose") rather than
// for ordinary, expected failure paths.
func Assert(condition bool, msg string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf(msg, args...))
	}
}

// AbortReason names why a transaction was forced into the ABORTED state by
// the lock manager, per spec.md §7 "Protocol violation".
type AbortReason int32

const (
	LockOnShrinking AbortReason = iota
	UpgradeConflict
)

func (r AbortReason) String() string {
	switch r {
	case LockOnShrinking:
		return "LOCK_ON_SHRINKING"
	case UpgradeConflict:
		return "UPGRADE_CONFLICT"
	default:
		return "UNKNOWN_ABORT_REASON"
	}
}

// TransactionAbort is the structured error surfaced when the lock manager
// aborts a transaction for a protocol violation. The caller is expected to
// unwind (spec.md §7).
type TransactionAbort struct {
	Reason AbortReason
}

func (e *TransactionAbort) Error() string {
	return fmt.Sprintf("transaction aborted: %s", e.Reason)
}

func NewTransactionAbort(reason AbortReason) *TransactionAbort {
	return &TransactionAbort{Reason: reason}
}
