package datafile

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	fdx "NodelistDB/fdxtree"
	"NodelistDB/logger"
)

// NewManager creates a data file manager for one nodelist directory.
// Files are opened on first use.
func NewManager(baseDir, extension string, readOnly bool) (*Manager, error) {
	if baseDir == "" {
		return nil, fdx.Errorf(fdx.InvalidArgument, "datafile", "empty base directory")
	}
	return &Manager{
		baseDir:   baseDir,
		extension: strings.ToUpper(extension),
		readOnly:  readOnly,
		files:     make(map[FileID]*DataFile),
	}, nil
}

// FileName is the on-disk name of a data file.
func (m *Manager) FileName(id FileID) string {
	switch id {
	case NodelistFile:
		return "NODELIST." + m.extension
	case FDNodeFile:
		return "FDNODE.FDA"
	case FDNetFile:
		return "FDNET.PVT"
	case FDPointFile:
		return "FDPOINT.PVT"
	case PhoneFile:
		return "PHONE.FDA"
	}
	return ""
}

func (m *Manager) BaseDir() string { return m.baseDir }

// load returns the open handle for id, opening it if needed.
func (m *Manager) load(id FileID) (*DataFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if df, exists := m.files[id]; exists {
		return df, nil
	}
	name := m.FileName(id)
	if name == "" {
		return nil, fdx.Errorf(fdx.InvalidArgument, "datafile", "unknown file id %s", id)
	}

	filePath := filepath.Join(m.baseDir, name)
	flags := os.O_RDWR | os.O_CREATE
	if m.readOnly {
		flags = os.O_RDONLY
	}
	file, err := os.OpenFile(filePath, flags, 0644)
	if err != nil {
		return nil, fdx.Wrap(fdx.IoFailure, "datafile", errors.Wrapf(err, "failed to open %s", filePath))
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fdx.Wrap(fdx.IoFailure, "datafile", errors.Wrapf(err, "failed to stat %s", filePath))
	}

	df := &DataFile{id: id, file: file, filePath: filePath, size: stat.Size()}
	m.files[id] = df
	return df, nil
}

// ReadLine returns the nodelist line an index offset points into, from
// the offset to the end of the line, without the line terminator.
func (m *Manager) ReadLine(offset uint32) (string, error) {
	if IsEmpty(offset) {
		return "", fdx.Errorf(fdx.InvalidArgument, "read line", "no record at offset %#08x", offset)
	}
	id, pos := SplitOffset(offset)
	if !id.Text() {
		return "", fdx.Errorf(fdx.InvalidArgument, "read line", "%s is not a text file", id)
	}
	df, err := m.load(id)
	if err != nil {
		return "", err
	}

	df.mu.RLock()
	defer df.mu.RUnlock()
	if int64(pos) >= df.size {
		return "", fdx.Errorf(fdx.IoFailure, "read line", "offset %d beyond end of %s", pos, df.filePath)
	}
	r := bufio.NewReader(io.NewSectionReader(df.file, int64(pos), df.size-int64(pos)))
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fdx.Wrap(fdx.IoFailure, "read line", errors.Wrapf(err, "read %s at %d", df.filePath, pos))
	}
	return strings.TrimRight(line, "\r\n\x1a"), nil
}

// AppendNodelistLine appends one line to a text data file and returns the
// index offset of its system name field, the field after "Keyword,Number,".
func (m *Manager) AppendNodelistLine(id FileID, line string) (uint32, error) {
	if !id.Text() {
		return 0, fdx.Errorf(fdx.InvalidArgument, "append line", "%s is not a text file", id)
	}
	line = strings.TrimRight(line, "\r\n")
	first := strings.IndexByte(line, ',')
	second := -1
	if first >= 0 {
		if i := strings.IndexByte(line[first+1:], ','); i >= 0 {
			second = first + 1 + i
		}
	}
	if second < 0 {
		return 0, fdx.Errorf(fdx.InvalidArgument, "append line", "no name field in %q", line)
	}

	pos, err := m.appendBytes(id, []byte(line+"\r\n"))
	if err != nil {
		return 0, err
	}
	fieldPos := pos + int64(second) + 1
	if fieldPos > MaxOffset {
		return 0, fdx.Errorf(fdx.InvalidArgument, "append line", "%s exceeds the 16 MB offset range", m.FileName(id))
	}
	return MakeOffset(id, uint32(fieldPos)), nil
}

func (m *Manager) appendBytes(id FileID, data []byte) (int64, error) {
	if m.readOnly {
		return 0, fdx.Errorf(fdx.IoFailure, "append", "data files are open read-only")
	}
	df, err := m.load(id)
	if err != nil {
		return 0, err
	}

	df.mu.Lock()
	defer df.mu.Unlock()
	pos := df.size
	if _, err := df.file.WriteAt(data, pos); err != nil {
		return 0, fdx.Wrap(fdx.IoFailure, "append", errors.Wrapf(err, "write %s", df.filePath))
	}
	df.size += int64(len(data))
	return pos, nil
}

// readRecord reads fixed-size record n; record 0 is the reserved header.
func (m *Manager) readRecord(id FileID, n uint32, size int) ([]byte, error) {
	if n == 0 {
		return nil, fdx.Errorf(fdx.InvalidArgument, "read record", "record 0 of %s is reserved", m.FileName(id))
	}
	df, err := m.load(id)
	if err != nil {
		return nil, err
	}

	df.mu.RLock()
	defer df.mu.RUnlock()
	off := int64(n) * int64(size)
	if off+int64(size) > df.size {
		return nil, fdx.Errorf(fdx.IoFailure, "read record", "record %d beyond end of %s", n, df.filePath)
	}
	buf := make([]byte, size)
	if _, err := df.file.ReadAt(buf, off); err != nil {
		return nil, fdx.Wrap(fdx.IoFailure, "read record", errors.Wrapf(err, "read %s record %d", df.filePath, n))
	}
	return buf, nil
}

// appendRecord appends a fixed-size record and returns its number. An
// empty file first gets a zeroed header record.
func (m *Manager) appendRecord(id FileID, data []byte) (uint32, error) {
	df, err := m.load(id)
	if err != nil {
		return 0, err
	}
	df.mu.RLock()
	empty := df.size == 0
	df.mu.RUnlock()
	if empty {
		if _, err := m.appendBytes(id, make([]byte, len(data))); err != nil {
			return 0, err
		}
	}
	pos, err := m.appendBytes(id, data)
	if err != nil {
		return 0, err
	}
	n := pos / int64(len(data))
	if n > MaxOffset {
		return 0, fdx.Errorf(fdx.InvalidArgument, "append record", "%s is full", m.FileName(id))
	}
	return uint32(n), nil
}

func (m *Manager) ReadNodeRecord(n uint32) (NodeRecord, error) {
	buf, err := m.readRecord(FDNodeFile, n, NodeRecordSize)
	if err != nil {
		return NodeRecord{}, err
	}
	return DecodeNodeRecord(buf)
}

// AppendNodeRecord stores rec in FDNODE.FDA and returns its index offset.
func (m *Manager) AppendNodeRecord(rec *NodeRecord) (uint32, error) {
	n, err := m.appendRecord(FDNodeFile, EncodeNodeRecord(rec))
	if err != nil {
		return 0, err
	}
	return MakeOffset(FDNodeFile, n), nil
}

func (m *Manager) ReadPhoneRecord(n uint32) (PhoneRecord, error) {
	buf, err := m.readRecord(PhoneFile, n, PhoneRecordSize)
	if err != nil {
		return PhoneRecord{}, err
	}
	return DecodePhoneRecord(buf)
}

// AppendPhoneRecord stores rec in PHONE.FDA and returns its record number.
func (m *Manager) AppendPhoneRecord(rec *PhoneRecord) (uint32, error) {
	return m.appendRecord(PhoneFile, EncodePhoneRecord(rec))
}

// Truncate empties a data file, as a destructive rebuild does.
func (m *Manager) Truncate(id FileID) error {
	if m.readOnly {
		return fdx.Errorf(fdx.IoFailure, "truncate", "data files are open read-only")
	}
	df, err := m.load(id)
	if err != nil {
		return err
	}
	df.mu.Lock()
	defer df.mu.Unlock()
	if err := df.file.Truncate(0); err != nil {
		return fdx.Wrap(fdx.IoFailure, "truncate", errors.Wrapf(err, "truncate %s", df.filePath))
	}
	df.size = 0
	return nil
}

// Exists reports whether a data file is present on disk.
func (m *Manager) Exists(id FileID) bool {
	_, err := os.Stat(filepath.Join(m.baseDir, m.FileName(id)))
	return err == nil
}

// CloseAll closes all data files managed by this manager
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for id, df := range m.files {
		df.mu.Lock()
		if !m.readOnly {
			if err := df.file.Sync(); err != nil {
				lastErr = fdx.Wrap(fdx.IoFailure, "close", err)
			}
		}
		if err := df.file.Close(); err != nil {
			logger.Errorf("error closing %s: %v", df.filePath, err)
			lastErr = fdx.Wrap(fdx.IoFailure, "close", err)
		}
		df.mu.Unlock()
		delete(m.files, id)
	}
	return lastErr
}
