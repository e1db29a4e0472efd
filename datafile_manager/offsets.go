package datafile

import "fmt"

// MakeOffset packs a file id and position into an index offset.
func MakeOffset(id FileID, pos uint32) uint32 {
	return uint32(id)<<24 | pos&posMask
}

// SplitOffset is the inverse of MakeOffset.
func SplitOffset(off uint32) (FileID, uint32) {
	return FileID(off >> 24), off & posMask
}

// IsEmpty reports whether off names no record at all.
func IsEmpty(off uint32) bool {
	return off == 0 || off == NoRecord
}

// IsFDA reports whether off points into FDNODE.FDA.
func IsFDA(off uint32) bool {
	id, _ := SplitOffset(off)
	return !IsEmpty(off) && id == FDNodeFile
}

func (id FileID) String() string {
	switch id {
	case NodelistFile:
		return "NODELIST"
	case FDNodeFile:
		return "FDNODE.FDA"
	case FDNetFile:
		return "FDNET.PVT"
	case FDPointFile:
		return "FDPOINT.PVT"
	case PhoneFile:
		return "PHONE.FDA"
	}
	return fmt.Sprintf("file(%#02x)", uint8(id))
}

// Text reports whether the file holds nodelist format lines.
func (id FileID) Text() bool {
	return id == NodelistFile || id == FDNetFile || id == FDPointFile
}
