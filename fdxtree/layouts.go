package fdx

import (
	"bytes"
	"encoding/binary"
)

const addressMarker = 14

// AddressRecord is one NODELIST.FDX entry.
type AddressRecord struct {
	Addr   Address
	RNet   uint16
	RNode  uint16
	Status NodeStatus
	ESMark uint8
	Offset uint32
}

// AddressLayout: marker(1) key(8, big-endian) rnet(2) rnode(2) status(1) esmark(1) offset(4)
type AddressLayout struct{}

func (AddressLayout) Kind() TreeKind  { return NodeTree }
func (AddressLayout) RecordSize() int { return 19 }

func (AddressLayout) EncodeRecord(dst []byte, r *AddressRecord) {
	dst[0] = addressMarker
	k := AddressKey(r.Addr)
	copy(dst[1:9], k[:])
	binary.LittleEndian.PutUint16(dst[9:], r.RNet)
	binary.LittleEndian.PutUint16(dst[11:], r.RNode)
	dst[13] = byte(r.Status)
	dst[14] = r.ESMark
	binary.LittleEndian.PutUint32(dst[15:], r.Offset)
}

func (AddressLayout) DecodeRecord(src []byte, r *AddressRecord) {
	r.Addr = AddressFromKey(src[1:9])
	r.RNet = binary.LittleEndian.Uint16(src[9:])
	r.RNode = binary.LittleEndian.Uint16(src[11:])
	r.Status = NodeStatus(src[13])
	r.ESMark = src[14]
	r.Offset = binary.LittleEndian.Uint32(src[15:])
}

// Compare orders by the encoded key bytes, which is numeric address order.
func (AddressLayout) Compare(a, b *AddressRecord) int {
	ka, kb := AddressKey(a.Addr), AddressKey(b.Addr)
	return bytes.Compare(ka[:], kb[:])
}

// UserRecord is one USERLIST.FDX entry.
type UserRecord struct {
	Key    [UserKeyLen]byte
	Addr   Address
	Status NodeStatus
	Offset uint32
}

// Name returns the stored last-name-first key text.
func (r *UserRecord) Name() string { return UserKeyString(r.Key) }

// UserLayout: key(16) address(8, big-endian) status(1) offset(4)
type UserLayout struct{}

func (UserLayout) Kind() TreeKind  { return UserTree }
func (UserLayout) RecordSize() int { return UserKeyLen + 8 + 1 + 4 }

func (UserLayout) EncodeRecord(dst []byte, r *UserRecord) {
	copy(dst[:UserKeyLen], r.Key[:])
	k := AddressKey(r.Addr)
	copy(dst[UserKeyLen:], k[:])
	dst[UserKeyLen+8] = byte(r.Status)
	binary.LittleEndian.PutUint32(dst[UserKeyLen+9:], r.Offset)
}

func (UserLayout) DecodeRecord(src []byte, r *UserRecord) {
	copy(r.Key[:], src[:UserKeyLen])
	r.Addr = AddressFromKey(src[UserKeyLen:])
	r.Status = NodeStatus(src[UserKeyLen+8])
	r.Offset = binary.LittleEndian.Uint32(src[UserKeyLen+9:])
}

// Compare orders by name, skipping the marker byte, then by address, so
// a sysop running several systems keeps one entry per address.
func (UserLayout) Compare(a, b *UserRecord) int {
	if c := bytes.Compare(a.Key[1:], b.Key[1:]); c != 0 {
		return c
	}
	return a.Addr.Compare(b.Addr)
}

// PhoneRecord is one PHONE.FDX entry; Offset is a PHONE.FDA record number.
type PhoneRecord struct {
	Key    [PhoneKeyLen]byte
	Offset uint32
}

func (r *PhoneRecord) Match() string { return PhoneKeyString(r.Key) }

// PhoneLayout: key(21, length prefixed) offset(4)
type PhoneLayout struct{}

func (PhoneLayout) Kind() TreeKind  { return PhoneTree }
func (PhoneLayout) RecordSize() int { return PhoneKeyLen + 4 }

func (PhoneLayout) EncodeRecord(dst []byte, r *PhoneRecord) {
	copy(dst[:PhoneKeyLen], r.Key[:])
	binary.LittleEndian.PutUint32(dst[PhoneKeyLen:], r.Offset)
}

func (PhoneLayout) DecodeRecord(src []byte, r *PhoneRecord) {
	copy(r.Key[:], src[:PhoneKeyLen])
	r.Offset = binary.LittleEndian.Uint32(src[PhoneKeyLen:])
}

func (PhoneLayout) Compare(a, b *PhoneRecord) int {
	return ComparePascal(a.Key[:], b.Key[:], PhoneKeyLen)
}
