package fdx

import (
	"encoding/binary"
	"time"
)

// EncodePage serializes p into a page-sized buffer.
// Format:
//   - records u8, backref u32
//   - 32 slots of record payload + link u32; unused slots are zero
func EncodePage[R any](layout PageLayout[R], p *Page[R]) []byte {
	recSize := layout.RecordSize()
	buf := make([]byte, PageSizeFor(recSize))
	buf[0] = byte(p.Count)
	binary.LittleEndian.PutUint32(buf[1:], p.Backref)

	off := pageHeaderSize
	for i := 0; i < p.Count; i++ {
		layout.EncodeRecord(buf[off:off+recSize], &p.Slots[i].Rec)
		binary.LittleEndian.PutUint32(buf[off+recSize:], p.Slots[i].Link)
		off += recSize + linkSize
	}
	return buf
}

// DecodePage fills p from a page buffer.
func DecodePage[R any](layout PageLayout[R], data []byte, p *Page[R]) error {
	recSize := layout.RecordSize()
	if len(data) != PageSizeFor(recSize) {
		return Errorf(FormatMismatch, "decode page", "page size mismatch: expected %d, got %d",
			PageSizeFor(recSize), len(data))
	}
	count := int(data[0])
	if count > MaxRecords {
		return Errorf(StructuralCorruption, "decode page", "record count %d exceeds %d", count, MaxRecords)
	}
	p.Count = count
	p.Backref = binary.LittleEndian.Uint32(data[1:])

	off := pageHeaderSize
	for i := 0; i < count; i++ {
		layout.DecodeRecord(data[off:off+recSize], &p.Slots[i].Rec)
		p.Slots[i].Link = binary.LittleEndian.Uint32(data[off+recSize:])
		off += recSize + linkSize
	}
	var zero Slot[R]
	for i := count; i < MaxRecords; i++ {
		p.Slots[i] = zero
	}
	return nil
}

const (
	stubFlags       uint32 = 0xFFFFFFFF
	headerBlock            = 256
	nodeExtLen             = 4 // length byte + 3 chars
	RevisionMajor          = 2
	RevisionMinor          = 3
	minStubPageSize        = headerBlock + 20
)

// NodelistInfo is the secondary header block at byte 256 of the stub.
type NodelistInfo struct {
	RevisionMaj uint8
	RevisionMin uint8
	ZeroWord    uint16 // nonzero marks a revision 0 database
	CountryCode uint16
	Swedish     bool
	NodeExt     string
	CompileTime uint32
}

// Revision is 0 for databases built with the legacy speed and flag tables.
func (h NodelistInfo) Revision() int {
	if h.ZeroWord != 0 {
		return 0
	}
	return 1
}

// NewNodelistInfo returns a header stamped with the current revision and time.
func NewNodelistInfo(countryCode uint16, ext string, swedish, legacy bool) NodelistInfo {
	h := NodelistInfo{
		RevisionMaj: RevisionMajor,
		RevisionMin: RevisionMinor,
		CountryCode: countryCode,
		Swedish:     swedish,
		NodeExt:     ext,
		CompileTime: uint32(time.Now().Unix()),
	}
	if legacy {
		h.ZeroWord = 1
	}
	return h
}

// Stub is page 0 of an index file.
type Stub struct {
	Flags   uint32
	PageLen uint32
	Root    uint32
	Records uint32
	Levels  uint16
	Info    NodelistInfo
}

// EncodeStub writes the stub into a buffer of pageSize bytes.
func EncodeStub(s *Stub, pageSize int) []byte {
	if pageSize < minStubPageSize {
		pageSize = minStubPageSize
	}
	buf := make([]byte, pageSize)
	binary.LittleEndian.PutUint32(buf[0:], s.Flags)
	binary.LittleEndian.PutUint32(buf[4:], s.PageLen)
	binary.LittleEndian.PutUint32(buf[8:], s.Root)
	binary.LittleEndian.PutUint32(buf[12:], s.Records)
	binary.LittleEndian.PutUint16(buf[16:], s.Levels)

	h := buf[headerBlock:]
	h[0] = s.Info.RevisionMaj
	h[1] = s.Info.RevisionMin
	binary.LittleEndian.PutUint16(h[2:], s.Info.ZeroWord)
	binary.LittleEndian.PutUint16(h[4:], s.Info.CountryCode)
	if s.Info.Swedish {
		h[6] = 1
	}
	ext := s.Info.NodeExt
	if len(ext) > nodeExtLen-1 {
		ext = ext[:nodeExtLen-1]
	}
	h[7] = byte(len(ext))
	copy(h[8:8+nodeExtLen-1], ext)
	binary.LittleEndian.PutUint32(h[16:], s.Info.CompileTime)
	return buf
}

// DecodeStub parses page 0. It only checks the flags sentinel; the page
// length is checked by the tree against its layout.
func DecodeStub(data []byte) (Stub, error) {
	var s Stub
	if len(data) < minStubPageSize {
		return s, Errorf(FormatMismatch, "decode stub", "stub too short: %d bytes", len(data))
	}
	s.Flags = binary.LittleEndian.Uint32(data[0:])
	if s.Flags != stubFlags {
		return s, Errorf(FormatMismatch, "decode stub", "bad stub flags %#08x", s.Flags)
	}
	s.PageLen = binary.LittleEndian.Uint32(data[4:])
	s.Root = binary.LittleEndian.Uint32(data[8:])
	s.Records = binary.LittleEndian.Uint32(data[12:])
	s.Levels = binary.LittleEndian.Uint16(data[16:])

	h := data[headerBlock:]
	s.Info.RevisionMaj = h[0]
	s.Info.RevisionMin = h[1]
	s.Info.ZeroWord = binary.LittleEndian.Uint16(h[2:])
	s.Info.CountryCode = binary.LittleEndian.Uint16(h[4:])
	s.Info.Swedish = h[6] != 0
	n := int(h[7])
	if n > nodeExtLen-1 {
		n = nodeExtLen - 1
	}
	s.Info.NodeExt = string(h[8 : 8+n])
	s.Info.CompileTime = binary.LittleEndian.Uint32(h[16:])
	return s, nil
}

// ReadStubPageLen peeks the page length of an index file's stub without
// knowing its layout.
func ReadStubPageLen(data []byte) (uint32, error) {
	if len(data) < 8 {
		return 0, Errorf(FormatMismatch, "read stub", "stub too short: %d bytes", len(data))
	}
	if binary.LittleEndian.Uint32(data[0:]) != stubFlags {
		return 0, Errorf(FormatMismatch, "read stub", "not an index file")
	}
	return binary.LittleEndian.Uint32(data[4:]), nil
}
