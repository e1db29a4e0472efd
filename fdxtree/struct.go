// Structure of an FDX index file
/*
File
 ├── Page 0: stub (flags, pagelen, root page, secondary header block @256)
 ├── Page 1..N: B-tree pages
 │      records  u8        count in use (1..32)
 │      backref  u32       subtree with keys below every record; 0 => leaf
 │      slot[32]           record payload + link u32
 │                         link = subtree with keys between this record and the next

- every page of a level is either leaf (backref == 0) or internal
- records within a page are strictly ordered by the tree's comparator
- keys live in internal pages too; an in-order walk visits the left
  subtree, the record, then the record's link subtree
- pages are appended, never freed
*/
package fdx

const (
	MaxRecords     = 32 // records per page
	DefaultPromote = 16
	MaxHeight      = 64

	pageHeaderSize = 5 // records(1) + backref(4)
	linkSize       = 4

	// OffIndex is the on-disk sentinel for "beyond the last key"
	OffIndex uint32 = 0xFFFFFFFF
)

// TreeKind names the three parallel indices.
type TreeKind int

const (
	NodeTree TreeKind = iota
	UserTree
	PhoneTree
)

func (k TreeKind) String() string {
	switch k {
	case NodeTree:
		return "NODELIST"
	case UserTree:
		return "USERLIST"
	case PhoneTree:
		return "PHONE"
	}
	return "UNKNOWN"
}

// FileName is the index file name of the tree kind.
func (k TreeKind) FileName() string {
	return k.String() + ".FDX"
}

// PageLayout describes one tree's on-disk record format and ordering.
// Implementations are zero-size value types.
type PageLayout[R any] interface {
	Kind() TreeKind
	RecordSize() int // payload bytes, link excluded
	EncodeRecord(dst []byte, r *R)
	DecodeRecord(src []byte, r *R)
	// Compare orders records for insertion and duplicate detection.
	Compare(a, b *R) int
}

// PageSizeFor is the on-disk size of a page holding records of recordSize bytes.
func PageSizeFor(recordSize int) int {
	return pageHeaderSize + MaxRecords*(recordSize+linkSize)
}

type Slot[R any] struct {
	Rec  R
	Link uint32
}

type Page[R any] struct {
	Count   int
	Backref uint32
	Slots   [MaxRecords]Slot[R]
}

func (p *Page[R]) Leaf() bool { return p.Backref == 0 }

// childLeftOf returns the subtree holding keys below record i.
// i == Count addresses the subtree after the last record.
func (p *Page[R]) childLeftOf(i int) uint32 {
	if i == 0 {
		return p.Backref
	}
	return p.Slots[i-1].Link
}

// Frame is one level of a root-to-leaf path. On the top frame Record is
// the current record; on lower frames it is the record whose left
// subtree the path continues into.
type Frame struct {
	Page   uint32
	Record int
	Count  int
}

// Path is an explicit stack of frames, root first.
type Path []Frame

func (p Path) Clone() Path {
	return append(Path(nil), p...)
}

func (p Path) Top() Frame {
	return p[len(p)-1]
}

// InsertionPoint is the writer's search result for a pending insert.
type InsertionPoint struct {
	Path      Path
	Duplicate bool
}

type InsertResult int

const (
	Rejected InsertResult = iota
	Inserted
	Replaced
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	}
	return "rejected"
}

// Status tags a lookup outcome.
type Status int

const (
	NotFound Status = iota
	Found
	OffEnd
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case OffEnd:
		return "off index"
	}
	return "not found"
}

// Result of a reader search. For Found the path points at the match, for
// NotFound at the first record ordered after the key, for OffEnd nowhere.
type Result[R any] struct {
	Status Status
	Record R
	Path   Path
}

// Probe compares a search key against a record: >0 key after record,
// 0 match, <0 key before record. Probes must be monotonic over the
// tree's order.
type Probe[R any] func(r *R) int

// Info is a snapshot of a tree's bookkeeping.
type Info struct {
	Kind     TreeKind
	Root     uint32
	Pages    uint32
	Levels   int
	Records  uint32
	Promote  int
	UseDupes bool
	PageSize int
}
