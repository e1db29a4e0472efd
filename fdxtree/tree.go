package fdx

import (
	"github.com/sirupsen/logrus"

	"NodelistDB/logger"
)

// Options configure a tree when it is opened.
type Options struct {
	Promote    int  // split pivot, 1..31
	UseDupes   bool // overwrite duplicates instead of rejecting them
	CachePages int  // 0 = uncached
	ReadOnly   bool
	Clock      *TouchClock
	Errors     *ErrorState // receives non-fatal conditions
	Header     NodelistInfo
	Log        *logrus.Entry
}

// Tree is one paged B-tree index file.
type Tree[R any, L PageLayout[R]] struct {
	layout   L
	pager    Pager
	pageSize int
	stub     Stub
	pages    uint32 // high-water mark of data pages
	promote  int
	useDupes bool
	readOnly bool

	cache    *PageCache
	rootPage uint32
	rootData []byte

	stamp  uint64 // bumped on every mutation
	errors *ErrorState
	log    *logrus.Entry
}

// OpenTree binds a layout to a pager. An empty file gets a fresh stub;
// otherwise the stub is read and its page length checked.
func OpenTree[R any, L PageLayout[R]](layout L, pager Pager, opts Options) (*Tree[R, L], error) {
	t := &Tree[R, L]{
		layout:   layout,
		pager:    pager,
		pageSize: PageSizeFor(layout.RecordSize()),
		promote:  DefaultPromote,
		useDupes: opts.UseDupes,
		readOnly: opts.ReadOnly,
		errors:   opts.Errors,
		log:      opts.Log,
	}
	if t.errors == nil {
		t.errors = &ErrorState{}
	}
	if t.log == nil {
		t.log = logger.ForTree(layout.Kind().String())
	}
	if pager.PageSize() != t.pageSize {
		return nil, Errorf(FormatMismatch, "open "+layout.Kind().FileName(), "pager page size %d, layout needs %d",
			pager.PageSize(), t.pageSize)
	}
	if opts.Promote != 0 {
		if err := t.SetFlags(opts.UseDupes, opts.Promote); err != nil {
			t.errors.Signal(err)
		}
	}

	if pager.TotalPages() == 0 {
		t.stub = Stub{Flags: stubFlags, PageLen: uint32(t.pageSize), Info: opts.Header}
		if err := t.writeStub(); err != nil {
			return nil, err
		}
	} else {
		if err := t.readStub(); err != nil {
			return nil, err
		}
		t.pages = pager.TotalPages() - 1
	}

	if opts.CachePages != 0 {
		cache, err := NewPageCache(opts.CachePages, opts.Clock, t.RawWritePage, t.log)
		if err != nil {
			t.errors.Signal(err)
			t.log.Warnf("%v", err)
		}
		t.cache = cache
	}
	return t, nil
}

func (t *Tree[R, L]) readStub() error {
	data, err := t.pager.ReadPage(0)
	if err != nil {
		return err
	}
	stub, err := DecodeStub(data)
	if err != nil {
		return err
	}
	if int(stub.PageLen) != t.pageSize {
		return Errorf(FormatMismatch, "open "+t.layout.Kind().FileName(), "stub page length %d, expected %d",
			stub.PageLen, t.pageSize)
	}
	t.stub = stub
	return nil
}

func (t *Tree[R, L]) writeStub() error {
	return t.RawWritePage(0, EncodeStub(&t.stub, t.pageSize))
}

// RawReadPage reads straight from the file, bypassing the cache.
func (t *Tree[R, L]) RawReadPage(n uint32) ([]byte, error) {
	data, err := t.pager.ReadPage(n)
	if err != nil {
		return nil, Wrap(KindOf(err), "raw read", err)
	}
	return data, nil
}

// RawWritePage writes straight to the file, bypassing the cache.
func (t *Tree[R, L]) RawWritePage(n uint32, data []byte) error {
	if err := t.pager.WritePage(n, data); err != nil {
		return Wrap(KindOf(err), "raw write", err)
	}
	return nil
}

// ReadPage consults the root slot, then the cache, then the file. Pages
// read from the file enter the cache clean.
func (t *Tree[R, L]) ReadPage(n uint32) ([]byte, error) {
	if n == t.rootPage && n == t.stub.Root && t.rootData != nil {
		return append([]byte(nil), t.rootData...), nil
	}
	if t.cache != nil {
		if data, ok := t.cache.Lookup(n); ok {
			return data, nil
		}
	}
	data, err := t.RawReadPage(n)
	if err != nil {
		return nil, err
	}
	if t.cache != nil {
		// eviction failures are reported but the read succeeded
		t.errors.Signal(t.cache.Insert(n, data, false))
	}
	if n == t.stub.Root {
		t.setRoot(n, data)
	}
	return data, nil
}

// WritePage stages a dirty page in the cache, or writes it through when
// the tree is uncached. The root slot is refreshed on root writes.
func (t *Tree[R, L]) WritePage(n uint32, data []byte) error {
	if t.cache != nil {
		t.errors.Signal(t.cache.Insert(n, data, true))
	} else if err := t.RawWritePage(n, data); err != nil {
		return err
	}
	if n == t.stub.Root {
		t.setRoot(n, data)
	} else if n == t.rootPage {
		t.rootPage, t.rootData = 0, nil
	}
	return nil
}

func (t *Tree[R, L]) setRoot(n uint32, data []byte) {
	t.rootPage = n
	t.rootData = append(t.rootData[:0], data...)
}

// readNode loads and checks a reachable page.
func (t *Tree[R, L]) readNode(n uint32) (*Page[R], error) {
	if n == 0 || n > t.pages {
		return nil, Errorf(StructuralCorruption, "read node", "%s: page %d outside 1..%d",
			t.layout.Kind().FileName(), n, t.pages)
	}
	data, err := t.ReadPage(n)
	if err != nil {
		return nil, err
	}
	p := new(Page[R])
	if err := DecodePage[R](t.layout, data, p); err != nil {
		return nil, err
	}
	if p.Count == 0 {
		return nil, Errorf(StructuralCorruption, "read node", "%s: page %d has no records",
			t.layout.Kind().FileName(), n)
	}
	if p.Backref > t.pages {
		return nil, Errorf(StructuralCorruption, "read node", "%s: page %d backref %d beyond %d",
			t.layout.Kind().FileName(), n, p.Backref, t.pages)
	}
	if !p.Leaf() {
		for i := 0; i < p.Count; i++ {
			if l := p.Slots[i].Link; l == 0 || l > t.pages {
				return nil, Errorf(StructuralCorruption, "read node", "%s: page %d slot %d link %d invalid",
					t.layout.Kind().FileName(), n, i, l)
			}
		}
	}
	return p, nil
}

func (t *Tree[R, L]) writeNode(n uint32, p *Page[R]) error {
	return t.WritePage(n, EncodePage[R](t.layout, p))
}

// SetFlags sets the duplicate policy and split pivot. An out of range
// pivot falls back to the default and is reported.
func (t *Tree[R, L]) SetFlags(useDupes bool, promote int) error {
	t.useDupes = useDupes
	if promote < 1 || promote >= MaxRecords {
		t.promote = DefaultPromote
		return Errorf(InvalidArgument, "set flags", "promote record %d outside 1..%d", promote, MaxRecords-1)
	}
	t.promote = promote
	return nil
}

func (t *Tree[R, L]) Info() Info {
	return Info{
		Kind:     t.layout.Kind(),
		Root:     t.stub.Root,
		Pages:    t.pages,
		Levels:   int(t.stub.Levels),
		Records:  t.stub.Records,
		Promote:  t.promote,
		UseDupes: t.useDupes,
		PageSize: t.pageSize,
	}
}

// Header is the stub's secondary block.
func (t *Tree[R, L]) Header() NodelistInfo { return t.stub.Info }

// SetHeader replaces the secondary block; it is written on Flush.
func (t *Tree[R, L]) SetHeader(h NodelistInfo) { t.stub.Info = h }

// Stamp changes whenever the tree is modified.
func (t *Tree[R, L]) Stamp() uint64 { return t.stamp }

func (t *Tree[R, L]) Cache() *PageCache { return t.cache }

// ResetCache drops every cached page, including the root slot, without
// writing anything.
func (t *Tree[R, L]) ResetCache() {
	if t.cache != nil {
		t.cache.Reset()
	}
	t.rootPage, t.rootData = 0, nil
}

// Flush writes every dirty page and the stub, then syncs the file.
func (t *Tree[R, L]) Flush() error {
	var first error
	if t.cache != nil {
		first = t.cache.FlushAll()
	}
	if err := t.writeStub(); err != nil && first == nil {
		first = err
	}
	if err := t.pager.Sync(); err != nil && first == nil {
		first = Wrap(IoFailure, "flush", err)
	}
	return first
}

// Close flushes and closes the file. Read-only trees only close.
func (t *Tree[R, L]) Close() error {
	var first error
	if t.dirty() {
		first = t.Flush()
	}
	if err := t.pager.Close(); err != nil && first == nil {
		first = err
	}
	t.ResetCache()
	return first
}

func (t *Tree[R, L]) dirty() bool {
	if t.stamp != 0 {
		return true
	}
	return t.cache != nil && t.cache.Dirty() > 0
}
