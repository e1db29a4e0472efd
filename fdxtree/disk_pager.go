package fdx

import (
	"os"
	"sync"

	"github.com/pkg/errors"
)

// OnDiskPager implements the Pager interface over an *.FDX file
type OnDiskPager struct {
	file     *os.File
	filePath string
	pageSize int
	mode     OpenMode
	numPages uint32
	mu       sync.RWMutex
}

// NewOnDiskPager opens an index file with fixed pageSize pages.
func NewOnDiskPager(indexPath string, pageSize int, mode OpenMode) (*OnDiskPager, error) {
	flags := os.O_RDWR | os.O_CREATE
	switch mode {
	case ReadOnly:
		flags = os.O_RDONLY
	case Destroy:
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(indexPath, flags, 0644)
	if err != nil {
		return nil, Wrap(IoFailure, "open", errors.Wrapf(err, "failed to open index file %s", indexPath))
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, Wrap(IoFailure, "open", errors.Wrap(err, "failed to stat index file"))
	}

	return &OnDiskPager{
		file:     file,
		filePath: indexPath,
		pageSize: pageSize,
		mode:     mode,
		numPages: uint32(stat.Size() / int64(pageSize)),
	}, nil
}

// ReadPage reads page n. A short read is an I/O failure: pages are never
// partially written by this package.
func (p *OnDiskPager) ReadPage(n uint32) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.file == nil {
		return nil, Errorf(IoFailure, "read page", "pager file is closed")
	}
	if n >= p.numPages {
		return nil, Errorf(IoFailure, "read page", "page %d beyond end of %s (%d pages)", n, p.filePath, p.numPages)
	}

	page := make([]byte, p.pageSize)
	if _, err := p.file.ReadAt(page, int64(n)*int64(p.pageSize)); err != nil {
		return nil, Wrap(IoFailure, "read page", errors.Wrapf(err, "failed to read page %d", n))
	}
	return page, nil
}

// WritePage writes page n; writing beyond the end extends the file.
func (p *OnDiskPager) WritePage(n uint32, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return Errorf(IoFailure, "write page", "pager file is closed")
	}
	if p.mode == ReadOnly {
		return Errorf(IoFailure, "write page", "%s is open read-only", p.filePath)
	}
	if len(data) != p.pageSize {
		return Errorf(InvalidArgument, "write page", "data size %d does not match page size %d", len(data), p.pageSize)
	}

	if _, err := p.file.WriteAt(data, int64(n)*int64(p.pageSize)); err != nil {
		return Wrap(IoFailure, "write page", errors.Wrapf(err, "failed to write page %d", n))
	}
	if n >= p.numPages {
		p.numPages = n + 1
	}
	return nil
}

func (p *OnDiskPager) TotalPages() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.numPages
}

func (p *OnDiskPager) PageSize() int { return p.pageSize }

func (p *OnDiskPager) Path() string { return p.filePath }

// Sync flushes all pending writes to disk
func (p *OnDiskPager) Sync() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return Errorf(IoFailure, "sync", "pager file is closed")
	}
	if p.mode == ReadOnly {
		return nil
	}
	return Wrap(IoFailure, "sync", p.file.Sync())
}

// Close closes the index file
func (p *OnDiskPager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return nil // Already closed
	}

	if p.mode != ReadOnly {
		if err := p.file.Sync(); err != nil {
			p.file.Close()
			p.file = nil
			return Wrap(IoFailure, "close", errors.Wrap(err, "failed to sync before close"))
		}
	}

	err := p.file.Close()
	p.file = nil
	return Wrap(IoFailure, "close", err)
}
