// this code is adapted from https://github.com/ryogrid/SamehadaDB (storage/disk/disk_manager.go)

// Package disk owns the database file and its companion append-only log
// file. It is the only package that talks to the filesystem; everything
// above it addresses pages by PageID.
package disk

import "github.com/pagestore/pagestore/types"

// DiskManager is responsible for interacting with disk. Implementations
// must be safe for concurrent use.
type DiskManager interface {
	ReadPage(pageID types.PageID, out []byte) error
	WritePage(pageID types.PageID, data []byte) error
	AllocatePage() types.PageID
	DeallocatePage(pageID types.PageID)

	WriteLog(data []byte) error
	ReadLog(out []byte, offset int32) (n uint32, ok bool)

	GetNumWrites() uint64
	GetNumFlushes() uint64
	Size() int64
	ShutDown()
}
