// this code is adapted from https://github.com/ryogrid/SamehadaDB
// (lib/storage/disk/disk_manager_impl.go)

package disk

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/types"
)

// logFlushBoundedWait is how long WriteLog will wait for a prior
// outstanding flush to finish before giving up and rejecting the new
// write, per spec.md §4.1: "rejects if a prior flush is not yet done after
// a bounded wait."
const logFlushBoundedWait = 200 * time.Millisecond

// FileDiskManager is the file-backed implementation of DiskManager. It
// owns one database file and one separate append-only log file.
type FileDiskManager struct {
	db       *os.File
	fileName string
	log      *os.File
	logName  string

	nextPageID int32 // atomic

	numWrites  uint64 // atomic
	numFlushes uint64 // atomic

	dbMu  sync.Mutex
	size  int64
	logMu sync.Mutex

	flushing bool
}

// NewFileDiskManager opens (creating if absent) dbFilename and a sibling
// ".log" file, and resumes page-id allocation past whatever pages already
// exist in dbFilename.
func NewFileDiskManager(dbFilename string) *FileDiskManager {
	file, err := os.OpenFile(dbFilename, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		panic("disk: can't open db file: " + err.Error())
	}

	logName := logFileName(dbFilename)
	logFile, err := os.OpenFile(logName, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		panic("disk: can't open log file: " + err.Error())
	}

	fileInfo, err := file.Stat()
	if err != nil {
		panic("disk: file info error: " + err.Error())
	}

	logInfo, err := logFile.Stat()
	if err != nil {
		panic("disk: log file info error: " + err.Error())
	}
	logFile.Seek(logInfo.Size(), io.SeekStart)

	nPages := fileInfo.Size() / common.PageSize
	// page 0 is reserved for the root directory page (types.HeaderPageID)
	// and is never handed out by AllocatePage, even on a fresh file.
	nextPageID := nPages
	if nextPageID <= int64(types.HeaderPageID) {
		nextPageID = int64(types.HeaderPageID) + 1
	}

	return &FileDiskManager{
		db:         file,
		fileName:   dbFilename,
		log:        logFile,
		logName:    logName,
		nextPageID: int32(nextPageID),
		size:       fileInfo.Size(),
	}
}

func logFileName(dbFilename string) string {
	idx := strings.LastIndex(dbFilename, ".")
	if idx < 0 {
		return dbFilename + ".log"
	}
	return dbFilename[:idx] + ".log"
}

func (d *FileDiskManager) ShutDown() {
	d.dbMu.Lock()
	d.db.Close()
	d.dbMu.Unlock()

	d.logMu.Lock()
	d.log.Close()
	d.logMu.Unlock()
}

// WritePage seeks to pageID's offset, writes, and flushes — spec.md §4.1.
func (d *FileDiskManager) WritePage(pageID types.PageID, data []byte) error {
	d.dbMu.Lock()
	defer d.dbMu.Unlock()

	offset := int64(pageID) * common.PageSize
	if _, err := d.db.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	n, err := d.db.Write(data)
	if err != nil {
		return err
	}
	common.Assert(n == common.PageSize, "disk: short write, wrote %d of %d bytes", n, common.PageSize)

	if offset+int64(n) > d.size {
		d.size = offset + int64(n)
	}
	atomic.AddUint64(&d.numWrites, 1)
	return d.db.Sync()
}

// ReadPage seeks and reads; a short read (past EOF) is zero-filled rather
// than treated as an error, per spec.md §4.1 and §9 Open Question 5.
func (d *FileDiskManager) ReadPage(pageID types.PageID, out []byte) error {
	d.dbMu.Lock()
	defer d.dbMu.Unlock()

	offset := int64(pageID) * common.PageSize
	info, err := d.db.Stat()
	if err != nil {
		return err
	}
	if offset >= info.Size() {
		for i := range out {
			out[i] = 0
		}
		return nil
	}

	if _, err := d.db.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	n, err := io.ReadFull(d.db, out)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	return nil
}

func (d *FileDiskManager) AllocatePage() types.PageID {
	id := atomic.AddInt32(&d.nextPageID, 1) - 1
	return types.PageID(id)
}

// DeallocatePage is a no-op at this layer: there is no on-disk free list
// (spec.md §4.1).
func (d *FileDiskManager) DeallocatePage(types.PageID) {}

func (d *FileDiskManager) GetNumWrites() uint64  { return atomic.LoadUint64(&d.numWrites) }
func (d *FileDiskManager) GetNumFlushes() uint64 { return atomic.LoadUint64(&d.numFlushes) }

func (d *FileDiskManager) Size() int64 {
	d.dbMu.Lock()
	defer d.dbMu.Unlock()
	return d.size
}

// WriteLog appends data to the log file asynchronously. At most one flush
// may be outstanding; a concurrent caller waits up to logFlushBoundedWait
// for it to finish before being rejected.
func (d *FileDiskManager) WriteLog(data []byte) error {
	deadline := time.Now().Add(logFlushBoundedWait)
	d.logMu.Lock()
	for d.flushing {
		if time.Now().After(deadline) {
			d.logMu.Unlock()
			return errors.New("disk: a log flush is already in progress")
		}
		d.logMu.Unlock()
		time.Sleep(time.Millisecond)
		d.logMu.Lock()
	}
	d.flushing = true
	buf := make([]byte, len(data))
	copy(buf, data)
	d.logMu.Unlock()

	go func() {
		d.logMu.Lock()
		defer func() {
			d.flushing = false
			d.logMu.Unlock()
		}()
		if _, err := d.log.Write(buf); err != nil {
			common.ShPrintf(common.Error, "disk: log write error: %v\n", err)
			return
		}
		d.log.Sync()
		atomic.AddUint64(&d.numFlushes, 1)
	}()
	return nil
}

// ReadLog always reads sequentially from the given offset.
func (d *FileDiskManager) ReadLog(out []byte, offset int32) (uint32, bool) {
	d.logMu.Lock()
	defer d.logMu.Unlock()

	info, err := d.log.Stat()
	if err != nil || int64(offset) >= info.Size() {
		return 0, false
	}
	d.log.Seek(int64(offset), io.SeekStart)
	n, err := d.log.Read(out)
	if err != nil && err != io.EOF {
		return 0, false
	}
	return uint32(n), true
}

// RemoveFiles deletes both the db and log files. Call only after ShutDown.
func (d *FileDiskManager) RemoveFiles() {
	os.Remove(d.fileName)
	os.Remove(d.logName)
}
