package datafile

import (
	"os"
	"sync"
)

// FileID is the high byte of an index offset and names the backing file.
type FileID uint8

const (
	NodelistFile FileID = 0x00 // NODELIST.<ext>, byte offsets
	FDNodeFile   FileID = 0x01 // FDNODE.FDA, record numbers
	FDNetFile    FileID = 0x10 // FDNET.PVT, byte offsets
	FDPointFile  FileID = 0x20 // FDPOINT.PVT, byte offsets
	PhoneFile    FileID = 0xF0 // PHONE.FDA; never appears in an offset
)

const (
	// NoRecord and the zero offset both mean "nothing to resolve".
	NoRecord  uint32 = 0xFFFFFFFF
	posMask   uint32 = 0x00FFFFFF
	MaxOffset        = int64(posMask)
)

// ############################################# ---- FDA RECORDS ----- #############################################
const (
	NameLen      = 31 // Pascal fields: length byte + text
	TelephoneLen = 41
	LocationLen  = 41
	UserLen      = 37
	SelectTagLen = 16

	NodeRecordSize  = 187
	PhoneRecordSize = 48
)

// NodeRecord is one FDNODE.FDA entry.
type NodeRecord struct {
	Erased     bool
	Status     uint8
	Zone       uint16
	Net        uint16
	Node       uint16
	Point      uint16
	RoutNet    uint16
	RoutNode   uint16
	Cost       uint16
	Capability uint32
	MaxBaud    uint8
	Name       string
	Telephone  string
	Location   string
	User       string
	SelectTag  string
}

// PhoneRecord is one PHONE.FDA entry: the translation for a PHONE.FDX key.
// A Telephone of "=" only carries a cost.
type PhoneRecord struct {
	Telephone string
	Erased    bool
	Cost      uint16
	Baudrate  uint32
}

// DataFile is one lazily opened backing file.
type DataFile struct {
	id       FileID
	file     *os.File
	filePath string
	size     int64
	mu       sync.RWMutex
}

// Manager owns every data file of one nodelist directory.
type Manager struct {
	baseDir   string
	extension string
	readOnly  bool
	files     map[FileID]*DataFile
	mu        sync.RWMutex
}
