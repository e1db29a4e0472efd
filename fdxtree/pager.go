package fdx

import (
	"sync"
)

// Pager is random access to fixed-size pages of one index file.
type Pager interface {
	ReadPage(n uint32) ([]byte, error)
	WritePage(n uint32, data []byte) error
	TotalPages() uint32 // pages present, stub included
	PageSize() int
	Sync() error
	Close() error
}

// OpenMode selects how an index file is opened.
type OpenMode int

const (
	ReadOnly OpenMode = iota
	Update            // open, or create when missing
	Destroy           // truncate or create
)

func (m OpenMode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case Update:
		return "update"
	case Destroy:
		return "destroy"
	}
	return "unknown"
}

type InMemoryPager struct {
	pages    map[uint32][]byte
	pageSize int
	total    uint32
	mu       sync.RWMutex
	closed   bool
}

func NewInMemoryPager(pageSize int) *InMemoryPager {
	return &InMemoryPager{
		pages:    make(map[uint32][]byte),
		pageSize: pageSize,
	}
}

func (p *InMemoryPager) ReadPage(n uint32) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, Errorf(IoFailure, "read page", "pager is closed")
	}
	data, ok := p.pages[n]
	if !ok {
		return nil, Errorf(IoFailure, "read page", "page %d beyond end of file", n)
	}
	// Return a copy so the caller cannot modify internal state directly
	out := make([]byte, p.pageSize)
	copy(out, data)
	return out, nil
}

func (p *InMemoryPager) WritePage(n uint32, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Errorf(IoFailure, "write page", "pager is closed")
	}
	if len(data) != p.pageSize {
		return Errorf(InvalidArgument, "write page", "data size %d does not match page size %d", len(data), p.pageSize)
	}
	dest := make([]byte, p.pageSize)
	copy(dest, data)
	p.pages[n] = dest
	// writing past the end extends the file, gaps read as zero pages
	for p.total <= n {
		if _, ok := p.pages[p.total]; !ok {
			p.pages[p.total] = make([]byte, p.pageSize)
		}
		p.total++
	}
	return nil
}

func (p *InMemoryPager) TotalPages() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}

func (p *InMemoryPager) PageSize() int { return p.pageSize }

func (p *InMemoryPager) Sync() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return Errorf(IoFailure, "sync", "pager is closed")
	}
	return nil
}

// Close is idempotent. The pages survive so a test can reopen the same
// pager contents with Reopen.
func (p *InMemoryPager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Reopen makes a closed in-memory pager usable again.
func (p *InMemoryPager) Reopen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = false
}
