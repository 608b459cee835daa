// this code is adapted from https://github.com/ryogrid/SamehadaDB (types/txn_id.go)

package types

// TxnID identifies a transaction.
type TxnID int32

// InvalidTxnID represents the absence of a transaction.
const InvalidTxnID = TxnID(-1)
