package datafile

import (
	"encoding/binary"

	fdx "NodelistDB/fdxtree"
)

// FDNODE.FDA record layout, little-endian
const (
	offErased     = 0
	offStatus     = 1
	offZone       = 2
	offNet        = 4
	offNode       = 6
	offPoint      = 8
	offRoutNet    = 10
	offRoutNode   = 12
	offCost       = 14
	offCapability = 16
	offMaxBaud    = 20
	offName       = 21
	offTelephone  = offName + NameLen
	offLocation   = offTelephone + TelephoneLen
	offUser       = offLocation + LocationLen
	offSelectTag  = offUser + UserLen
)

// putPascal stores s as a length-prefixed string in dst, truncating to fit.
func putPascal(dst []byte, s string) {
	if len(s) > len(dst)-1 {
		s = s[:len(dst)-1]
	}
	dst[0] = byte(len(s))
	copy(dst[1:], s)
}

func getPascal(src []byte) string {
	n := int(src[0])
	if n > len(src)-1 {
		n = len(src) - 1
	}
	return string(src[1 : 1+n])
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func EncodeNodeRecord(r *NodeRecord) []byte {
	buf := make([]byte, NodeRecordSize)
	buf[offErased] = boolByte(r.Erased)
	buf[offStatus] = r.Status
	binary.LittleEndian.PutUint16(buf[offZone:], r.Zone)
	binary.LittleEndian.PutUint16(buf[offNet:], r.Net)
	binary.LittleEndian.PutUint16(buf[offNode:], r.Node)
	binary.LittleEndian.PutUint16(buf[offPoint:], r.Point)
	binary.LittleEndian.PutUint16(buf[offRoutNet:], r.RoutNet)
	binary.LittleEndian.PutUint16(buf[offRoutNode:], r.RoutNode)
	binary.LittleEndian.PutUint16(buf[offCost:], r.Cost)
	binary.LittleEndian.PutUint32(buf[offCapability:], r.Capability)
	buf[offMaxBaud] = r.MaxBaud
	putPascal(buf[offName:offName+NameLen], r.Name)
	putPascal(buf[offTelephone:offTelephone+TelephoneLen], r.Telephone)
	putPascal(buf[offLocation:offLocation+LocationLen], r.Location)
	putPascal(buf[offUser:offUser+UserLen], r.User)
	putPascal(buf[offSelectTag:offSelectTag+SelectTagLen], r.SelectTag)
	return buf
}

func DecodeNodeRecord(buf []byte) (NodeRecord, error) {
	var r NodeRecord
	if len(buf) != NodeRecordSize {
		return r, fdx.Errorf(fdx.FormatMismatch, "decode node record", "expected %d bytes, got %d", NodeRecordSize, len(buf))
	}
	r.Erased = buf[offErased] != 0
	r.Status = buf[offStatus]
	r.Zone = binary.LittleEndian.Uint16(buf[offZone:])
	r.Net = binary.LittleEndian.Uint16(buf[offNet:])
	r.Node = binary.LittleEndian.Uint16(buf[offNode:])
	r.Point = binary.LittleEndian.Uint16(buf[offPoint:])
	r.RoutNet = binary.LittleEndian.Uint16(buf[offRoutNet:])
	r.RoutNode = binary.LittleEndian.Uint16(buf[offRoutNode:])
	r.Cost = binary.LittleEndian.Uint16(buf[offCost:])
	r.Capability = binary.LittleEndian.Uint32(buf[offCapability:])
	r.MaxBaud = buf[offMaxBaud]
	r.Name = getPascal(buf[offName : offName+NameLen])
	r.Telephone = getPascal(buf[offTelephone : offTelephone+TelephoneLen])
	r.Location = getPascal(buf[offLocation : offLocation+LocationLen])
	r.User = getPascal(buf[offUser : offUser+UserLen])
	r.SelectTag = getPascal(buf[offSelectTag : offSelectTag+SelectTagLen])
	return r, nil
}

func EncodePhoneRecord(r *PhoneRecord) []byte {
	buf := make([]byte, PhoneRecordSize)
	putPascal(buf[:TelephoneLen], r.Telephone)
	buf[TelephoneLen] = boolByte(r.Erased)
	binary.LittleEndian.PutUint16(buf[TelephoneLen+1:], r.Cost)
	binary.LittleEndian.PutUint32(buf[TelephoneLen+3:], r.Baudrate)
	return buf
}

func DecodePhoneRecord(buf []byte) (PhoneRecord, error) {
	var r PhoneRecord
	if len(buf) != PhoneRecordSize {
		return r, fdx.Errorf(fdx.FormatMismatch, "decode phone record", "expected %d bytes, got %d", PhoneRecordSize, len(buf))
	}
	r.Telephone = getPascal(buf[:TelephoneLen])
	r.Erased = buf[TelephoneLen] != 0
	r.Cost = binary.LittleEndian.Uint16(buf[TelephoneLen+1:])
	r.Baudrate = binary.LittleEndian.Uint32(buf[TelephoneLen+3:])
	return r, nil
}
