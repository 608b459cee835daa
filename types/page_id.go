// this code is adapted from https://github.com/ryogrid/SamehadaDB (types/page_id.go)

package types

import (
	"bytes"
	"encoding/binary"
)

// PageID identifies a page within the data file.
type PageID int32

// InvalidPageID represents the absence of a page.
const InvalidPageID = PageID(-1)

// HeaderPageID is the reserved id of the root directory page.
const HeaderPageID = PageID(0)

// IsValid reports whether id refers to a real, non-negative page.
func (id PageID) IsValid() bool {
	return id >= 0
}

// Serialize encodes id as little-endian bytes.
func (id PageID) Serialize() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, id)
	return buf.Bytes()
}

// NewPageIDFromBytes decodes a PageID previously produced by Serialize.
func NewPageIDFromBytes(data []byte) (ret PageID) {
	binary.Read(bytes.NewBuffer(data), binary.LittleEndian, &ret)
	return ret
}
