// this code is adapted from https://github.com/ryogrid/SamehadaDB
// (storage/disk/virtual_disk_manager_impl.go)

package disk

import (
	"sync"
	"sync/atomic"

	"github.com/dsnet/golib/memfile"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/types"
)

// MemoryDiskManager is an in-memory DiskManager backed by memfile.File,
// used for fast tests and an opt-in "virtual storage" mode that never
// touches the filesystem at all. It implements the exact same
// write-back/zero-fill-past-EOF contract as FileDiskManager.
type MemoryDiskManager struct {
	db  *memfile.File
	log *memfile.File

	nextPageID int32 // atomic
	numWrites  uint64
	numFlushes uint64

	dbMu  sync.Mutex
	logMu sync.Mutex
	size  int64
}

func NewMemoryDiskManager() *MemoryDiskManager {
	return &MemoryDiskManager{
		db:  memfile.New(make([]byte, 0)),
		log: memfile.New(make([]byte, 0)),
		// page 0 is reserved for the root directory page (types.HeaderPageID)
		// and is never handed out by AllocatePage.
		nextPageID: int32(types.HeaderPageID) + 1,
	}
}

func (d *MemoryDiskManager) ShutDown() {}

func (d *MemoryDiskManager) WritePage(pageID types.PageID, data []byte) error {
	d.dbMu.Lock()
	defer d.dbMu.Unlock()

	offset := int64(pageID) * common.PageSize
	n, err := d.db.WriteAt(data, offset)
	if err != nil {
		return err
	}
	if offset+int64(n) > d.size {
		d.size = offset + int64(n)
	}
	atomic.AddUint64(&d.numWrites, 1)
	return nil
}

func (d *MemoryDiskManager) ReadPage(pageID types.PageID, out []byte) error {
	d.dbMu.Lock()
	defer d.dbMu.Unlock()

	offset := int64(pageID) * common.PageSize
	if offset >= d.size {
		for i := range out {
			out[i] = 0
		}
		return nil
	}
	n, err := d.db.ReadAt(out, offset)
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	if err != nil {
		return nil
	}
	return nil
}

func (d *MemoryDiskManager) AllocatePage() types.PageID {
	id := atomic.AddInt32(&d.nextPageID, 1) - 1
	return types.PageID(id)
}

func (d *MemoryDiskManager) DeallocatePage(types.PageID) {}

func (d *MemoryDiskManager) GetNumWrites() uint64  { return atomic.LoadUint64(&d.numWrites) }
func (d *MemoryDiskManager) GetNumFlushes() uint64 { return atomic.LoadUint64(&d.numFlushes) }

func (d *MemoryDiskManager) Size() int64 {
	d.dbMu.Lock()
	defer d.dbMu.Unlock()
	return d.size
}

func (d *MemoryDiskManager) WriteLog(data []byte) error {
	d.logMu.Lock()
	defer d.logMu.Unlock()
	if _, err := d.log.Write(data); err != nil {
		return err
	}
	atomic.AddUint64(&d.numFlushes, 1)
	return nil
}

func (d *MemoryDiskManager) ReadLog(out []byte, offset int32) (uint32, bool) {
	d.logMu.Lock()
	defer d.logMu.Unlock()
	n, err := d.log.ReadAt(out, int64(offset))
	if err != nil && n == 0 {
		return 0, false
	}
	return uint32(n), true
}
