package nodelist

import (
	"strconv"
	"strings"

	"github.com/OneOfOne/xxhash"
	"github.com/dgraph-io/ristretto/v2"

	dm "NodelistDB/datafile_manager"
	fdx "NodelistDB/fdxtree"
)

// Record is a resolved nodelist entry, whichever file it came from.
type Record struct {
	Name     string
	Location string
	Sysop    string
	Phone    string
	Speed    uint32
	Flags    string

	// set for FDNODE.FDA entries only
	FDA    bool
	Erased bool
	Cost   uint16
}

// field widths kept from a resolved entry
const (
	nameWidth     = 30
	phoneWidth    = 40
	locationWidth = 40
	sysopWidth    = 36
)

// resolver turns index offsets into records. The entry resolved last is
// memoised; older ones live in a bounded ristretto cache keyed by
// generation and offset.
type resolver struct {
	data       *dm.Manager
	revision   int
	generation uint64

	last    uint32
	lastRec Record
	hasLast bool

	cache *ristretto.Cache[string, Record]
	loads int
}

func newResolver(items int) (*resolver, error) {
	r := &resolver{}
	if items <= 0 {
		return r, nil
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, Record]{
		NumCounters:        int64(items) * 10,
		MaxCost:            int64(items),
		BufferItems:        64,
		IgnoreInternalCost: true,
		KeyToHash: func(k string) (uint64, uint64) {
			return xxhash.ChecksumString64(k), xxhash.ChecksumString64S(k, 1)
		},
	})
	if err != nil {
		return nil, fdx.Wrap(fdx.InvalidArgument, "record cache", err)
	}
	r.cache = cache
	return r, nil
}

func (r *resolver) reset(data *dm.Manager, revision int, generation uint64) {
	r.data = data
	r.revision = revision
	r.generation = generation
	r.Clear()
}

// Clear forgets every resolved record.
func (r *resolver) Clear() {
	r.hasLast = false
	r.lastRec = Record{}
	if r.cache != nil {
		r.cache.Clear()
	}
}

func (r *resolver) Close() {
	if r.cache != nil {
		r.cache.Close()
		r.cache = nil
	}
}

func (r *resolver) cacheKey(offset uint32) string {
	return strconv.FormatUint(r.generation, 10) + "/" + strconv.FormatUint(uint64(offset), 16)
}

// Resolve loads the entry an index offset points at.
func (r *resolver) Resolve(offset uint32) (Record, error) {
	if r.hasLast && r.last == offset {
		return r.lastRec, nil
	}
	if dm.IsEmpty(offset) {
		return Record{}, fdx.Errorf(fdx.InvalidArgument, "resolve", "no record at offset %#08x", offset)
	}
	if r.data == nil {
		return Record{}, fdx.Errorf(fdx.FormatMismatch, "resolve", "data files are closed")
	}

	key := r.cacheKey(offset)
	if r.cache != nil {
		if rec, ok := r.cache.Get(key); ok {
			r.remember(offset, rec)
			return rec, nil
		}
	}

	rec, err := r.load(offset)
	if err != nil {
		return Record{}, err
	}
	r.loads++
	if r.cache != nil {
		r.cache.Set(key, rec, 1)
	}
	r.remember(offset, rec)
	return rec, nil
}

func (r *resolver) remember(offset uint32, rec Record) {
	r.last = offset
	r.lastRec = rec
	r.hasLast = true
}

func (r *resolver) load(offset uint32) (Record, error) {
	id, pos := dm.SplitOffset(offset)
	if id == dm.FDNodeFile {
		nr, err := r.data.ReadNodeRecord(pos)
		if err != nil {
			return Record{}, err
		}
		return r.fromFDA(&nr), nil
	}
	line, err := r.data.ReadLine(offset)
	if err != nil {
		return Record{}, err
	}
	return fromLine(line), nil
}

func (r *resolver) fromFDA(nr *dm.NodeRecord) Record {
	return Record{
		Name:     nr.Name,
		Location: nr.Location,
		Sysop:    nr.User,
		Phone:    nr.Telephone,
		Speed:    SpeedFromFDA(r.revision, nr.MaxBaud),
		Flags:    FlagsFromFDA(r.revision, nr.Capability),
		FDA:      true,
		Erased:   nr.Erased,
		Cost:     nr.Cost,
	}
}

// fromLine parses the part of a nodelist line after "Keyword,Number,":
// name, location, sysop, phone, speed, then the flags.
func fromLine(line string) Record {
	f := strings.SplitN(line, ",", 6)
	field := func(i int) string {
		if i < len(f) {
			return f[i]
		}
		return ""
	}
	speed, _ := strconv.ParseUint(strings.TrimSpace(field(4)), 10, 32)
	return Record{
		Name:     clip(spaced(field(0)), nameWidth),
		Location: clip(spaced(field(1)), locationWidth),
		Sysop:    clip(spaced(field(2)), sysopWidth),
		Phone:    clip(field(3), phoneWidth),
		Speed:    uint32(speed),
		Flags:    field(5),
	}
}

func spaced(s string) string { return strings.ReplaceAll(s, "_", " ") }

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// resolve loads the cursor's current entry.
func (c *Cursor) resolve(op string) (Record, error) {
	if c.state != Active {
		return Record{}, c.nl.errors.Signal(fdx.Errorf(fdx.InvalidArgument, op, "cursor is %s", c.stateName()))
	}
	if err := c.valid(op); err != nil {
		return Record{}, err
	}
	rec, err := c.nl.resolver.Resolve(c.offset)
	return rec, c.nl.errors.Signal(err)
}

func (c *Cursor) stateName() string {
	switch c.state {
	case Active:
		return "active"
	case Exhausted:
		return "exhausted"
	}
	return "uninitialized"
}

// Record resolves the whole entry.
func (c *Cursor) Record() (Record, error) { return c.resolve("record") }

func (c *Cursor) Sysop() (string, error) {
	rec, err := c.resolve("sysop")
	return rec.Sysop, err
}

func (c *Cursor) SystemName() (string, error) {
	rec, err := c.resolve("system name")
	return rec.Name, err
}

func (c *Cursor) Location() (string, error) {
	rec, err := c.resolve("location")
	return rec.Location, err
}

func (c *Cursor) Speed() (uint32, error) {
	rec, err := c.resolve("speed")
	return rec.Speed, err
}

// RawNumber is the phone number as listed, untranslated.
func (c *Cursor) RawNumber() (string, error) {
	rec, err := c.resolve("number")
	return rec.Phone, err
}

// Flags is the nodelist flags field; FDNODE.FDA entries get one built
// from their capability bits.
func (c *Cursor) Flags() (string, error) {
	rec, err := c.resolve("flags")
	return rec.Flags, err
}
