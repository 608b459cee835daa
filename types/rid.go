// this code is adapted from https://github.com/ryogrid/SamehadaDB (storage/page/rid.go)

package types

import "fmt"

// RID is a row/record identifier: a page id plus a slot number within it.
// It is the payload type stored at B+-tree leaves and the value type
// stored in hash index blocks.
type RID struct {
	PageID  PageID
	SlotNum uint32
}

func NewRID(pageID PageID, slot uint32) RID {
	return RID{PageID: pageID, SlotNum: slot}
}

func (r RID) String() string {
	return fmt.Sprintf("RID(%d,%d)", r.PageID, r.SlotNum)
}

// Encode packs the RID into a single int64 so it can sit in the same
// fixed-width value slot an internal B+-tree node uses for a child PageID.
func (r RID) Encode() int64 {
	return int64(r.PageID)<<32 | int64(r.SlotNum)
}

func DecodeRID(v int64) RID {
	return RID{PageID: PageID(int32(v >> 32)), SlotNum: uint32(v)}
}
