// this code is adapted from https://github.com/ryogrid/SamehadaDB (lib/types/lsn.go)

package types

import (
	"bytes"
	"encoding/binary"
)

// LSN is a log sequence number. The storage core carries it on each page
// (see Page.GetLSN/SetLSN) but never interprets it — WAL replay is out of
// scope (spec.md Non-goals).
type LSN int32

// InvalidLSN marks a page that has never been touched by the log.
const InvalidLSN = LSN(-1)

// SizeOfLSN is the on-page footprint of a serialized LSN.
const SizeOfLSN = 4

func (lsn LSN) Serialize() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, lsn)
	return buf.Bytes()
}

func NewLSNFromBytes(data []byte) (ret LSN) {
	binary.Read(bytes.NewBuffer(data), binary.LittleEndian, &ret)
	return ret
}
