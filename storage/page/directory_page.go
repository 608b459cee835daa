// this code is grounded on spec.md §3/§6 directly: the teacher repo has no
// equivalent of a lightweight name→root-page-id directory (its catalog is
// SQL-schema-based and tracks whole tables, which is out of scope here),
// but the byte-layout idiom (fixed header + fixed record array,
// unsafe.Pointer reinterpretation) is the same one used throughout the
// teacher's other page types.

package page

import (
	"unsafe"

	"github.com/pagestore/pagestore/common"
	"github.com/pagestore/pagestore/types"
)

// MaxDirectoryRecords bounds how many (name, root-page-id) records the
// header page at HeaderPageID can hold.
const MaxDirectoryRecords = 113

// DirectoryNameSize is the NUL-padded on-page width of a directory name.
const DirectoryNameSize = 32

type directoryRecord struct {
	name       [DirectoryNameSize]byte
	rootPageID int32
}

type directoryLayout struct {
	nodeType int32
	count    int32
	records  [MaxDirectoryRecords]directoryRecord
}

// DirectoryPage is a view over page 0's raw bytes: the root directory
// persisting (index-name → root-page-id) records so indexes survive
// restarts (spec.md §2/§3/§6).
type DirectoryPage struct {
	raw *directoryLayout
}

func AsDirectoryPage(data *[common.PageSize]byte) DirectoryPage {
	return DirectoryPage{raw: (*directoryLayout)(unsafe.Pointer(data))}
}

func (p DirectoryPage) Init() {
	p.raw.nodeType = int32(DirectoryType)
	p.raw.count = 0
}

func (p DirectoryPage) Count() int { return int(p.raw.count) }

// Lookup returns the root page id recorded for name, or
// (InvalidPageID, false) if no record exists.
func (p DirectoryPage) Lookup(name string) (types.PageID, bool) {
	for i := 0; i < p.Count(); i++ {
		if recordName(p.raw.records[i].name) == name {
			return types.PageID(p.raw.records[i].rootPageID), true
		}
	}
	return types.InvalidPageID, false
}

// Set updates name's root page id in place, or appends a new record if
// name is not yet present.
func (p DirectoryPage) Set(name string, rootPageID types.PageID) {
	for i := 0; i < p.Count(); i++ {
		if recordName(p.raw.records[i].name) == name {
			p.raw.records[i].rootPageID = int32(rootPageID)
			return
		}
	}
	common.Assert(p.Count() < MaxDirectoryRecords, "directory page: out of record slots")
	p.raw.records[p.raw.count] = directoryRecord{name: encodeName(name), rootPageID: int32(rootPageID)}
	p.raw.count++
}

func encodeName(name string) [DirectoryNameSize]byte {
	common.Assert(len(name) <= DirectoryNameSize, "directory record name %q exceeds %d bytes", name, DirectoryNameSize)
	var buf [DirectoryNameSize]byte
	copy(buf[:], name)
	return buf
}

func recordName(raw [DirectoryNameSize]byte) string {
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	return string(raw[:n])
}
