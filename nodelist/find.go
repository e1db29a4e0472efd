package nodelist

import (
	dm "NodelistDB/datafile_manager"
	fdx "NodelistDB/fdxtree"
)

type CursorKind int

const (
	ExactAddress CursorKind = iota
	AddressPattern
	Username
	Zones
	Nets
	Nodes
	Points
)

var kindNames = [...]string{"address", "pattern", "username", "zones", "nets", "nodes", "points"}

func (k CursorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

type CursorState int

const (
	Uninitialized CursorState = iota
	Active
	Exhausted
)

// Filter accepts or rejects a candidate match; a nil filter accepts all.
type Filter func(c *Cursor) bool

// Cursor is a search position in the address or username index. A cursor
// is only valid for the generation and mutation stamp it was created at.
type Cursor struct {
	nl     *Nodelist
	kind   CursorKind
	state  CursorState
	filter Filter

	generation uint64
	stamp      uint64
	path       fdx.Path

	// current match
	addr   fdx.Address
	status fdx.NodeStatus
	rnet   uint16
	rnode  uint16
	offset uint32
	name   string

	// search context
	patternKey string
	names      fdx.NamePattern
}

func (n *Nodelist) newCursor(kind CursorKind, filter Filter) *Cursor {
	c := &Cursor{nl: n, kind: kind, filter: filter, generation: n.generation}
	if kind == Username {
		c.stamp = n.users.Stamp()
	} else {
		c.stamp = n.nodes.Stamp()
	}
	return c
}

func (c *Cursor) Kind() CursorKind       { return c.kind }
func (c *Cursor) State() CursorState     { return c.state }
func (c *Cursor) Address() fdx.Address   { return c.addr }
func (c *Cursor) Status() fdx.NodeStatus { return c.status }

// Routing is the address mail for this entry is routed through. Username
// matches carry no routing.
func (c *Cursor) Routing() (uint16, uint16) { return c.rnet, c.rnode }

// Offset is the data file offset of the entry.
func (c *Cursor) Offset() uint32 { return c.offset }

func (c *Cursor) IsFDA() bool { return dm.IsFDA(c.offset) }

// Name is the stored user key of a username match.
func (c *Cursor) Name() string { return c.name }

func (c *Cursor) setAddress(res fdx.Result[fdx.AddressRecord]) {
	r := &res.Record
	c.path = res.Path
	c.addr = r.Addr
	c.status = r.Status
	c.rnet, c.rnode = r.RNet, r.RNode
	c.offset = r.Offset
	c.name = ""
}

func (c *Cursor) setUser(res fdx.Result[fdx.UserRecord]) {
	r := &res.Record
	c.path = res.Path
	c.addr = r.Addr
	c.status = r.Status
	c.rnet, c.rnode = 0, 0
	c.offset = r.Offset
	c.name = r.Name()
}

func (c *Cursor) accept() bool {
	if c.filter != nil && !c.filter(c) {
		return false
	}
	c.state = Active
	return true
}

func (c *Cursor) exhaust() {
	c.state = Exhausted
	c.path = nil
}

// valid checks a cursor before it is moved or resolved.
func (c *Cursor) valid(op string) error {
	n := c.nl
	if err := n.check(op); err != nil {
		return err
	}
	stamp := n.nodes.Stamp()
	if c.kind == Username {
		stamp = n.users.Stamp()
	}
	if c.generation != n.generation || c.stamp != stamp {
		return n.errors.Signal(fdx.Errorf(fdx.StaleCursor, op,
			"cursor from generation %d, stamp %d; index is at %d, %d", c.generation, c.stamp, n.generation, stamp))
	}
	return nil
}

func exactProbe(a fdx.Address) fdx.Probe[fdx.AddressRecord] {
	return func(r *fdx.AddressRecord) int { return a.Compare(r.Addr) }
}

// afterProbe positions on the first record strictly after a.
func afterProbe(a fdx.Address) fdx.Probe[fdx.AddressRecord] {
	return func(r *fdx.AddressRecord) int {
		if a.Compare(r.Addr) >= 0 {
			return 1
		}
		return -1
	}
}

// Find looks up one address. The cursor is Exhausted when the address is
// not indexed or the filter rejects it.
func (n *Nodelist) Find(addr fdx.Address, filter Filter) (*Cursor, error) {
	if err := n.check("find"); err != nil {
		return nil, err
	}
	c := n.newCursor(ExactAddress, filter)
	res, err := n.nodes.Locate(exactProbe(addr))
	if err != nil {
		return c, n.errors.Signal(err)
	}
	if res.Status == fdx.Found {
		c.setAddress(res)
		if c.accept() {
			return c, nil
		}
	}
	c.exhaust()
	return c, nil
}

// FindPattern finds the first address matching a wildcard pattern.
func (n *Nodelist) FindPattern(p fdx.AddressPattern, filter Filter) (*Cursor, error) {
	if err := n.check("find pattern"); err != nil {
		return nil, err
	}
	c := n.newCursor(AddressPattern, filter)
	c.patternKey = p.HexKey()
	res, err := n.nodes.Locate(func(r *fdx.AddressRecord) int { return c.matchPattern(r.Addr) })
	if err != nil {
		return c, n.errors.Signal(err)
	}
	return c, n.errors.Signal(c.scanPattern(res))
}

// matchPattern compares the wildcard key against an address; 0 is a match.
func (c *Cursor) matchPattern(a fdx.Address) int {
	return fdx.CompareHexKeys(c.patternKey, fdx.HexKey(a))
}

func (c *Cursor) scanPattern(res fdx.Result[fdx.AddressRecord]) error {
	var err error
	for res.Status != fdx.OffEnd && c.matchPattern(res.Record.Addr) == 0 {
		c.setAddress(res)
		if c.accept() {
			return nil
		}
		if res, err = c.nl.nodes.NextKey(res.Path); err != nil {
			return err
		}
	}
	c.exhaust()
	return nil
}

// FindByName finds a sysop by last-name-first name; a '_' makes the rest
// of the name a wildcard.
func (n *Nodelist) FindByName(name string, filter Filter) (*Cursor, error) {
	if err := n.check("find by name"); err != nil {
		return nil, err
	}
	c := n.newCursor(Username, filter)
	c.names = fdx.ParseNamePattern(name)
	res, err := n.users.Locate(func(r *fdx.UserRecord) int { return c.names.Compare(r.Key) })
	if err != nil {
		return c, n.errors.Signal(err)
	}
	return c, n.errors.Signal(c.scanNames(res))
}

func (c *Cursor) scanNames(res fdx.Result[fdx.UserRecord]) error {
	var err error
	for res.Status != fdx.OffEnd && c.names.Matches(res.Record.Key) {
		c.setUser(res)
		if c.accept() {
			return nil
		}
		if res, err = c.nl.users.NextKey(res.Path); err != nil {
			return err
		}
	}
	c.exhaust()
	return nil
}

// Continue advances a cursor to its next match. It returns false once
// the search is exhausted.
func (n *Nodelist) Continue(c *Cursor) (bool, error) {
	if c == nil || c.nl != n {
		return false, n.errors.Signal(fdx.Errorf(fdx.InvalidArgument, "continue", "cursor belongs to another nodelist"))
	}
	if c.state != Active {
		return false, nil
	}
	if err := c.valid("continue"); err != nil {
		return false, err
	}

	var err error
	switch c.kind {
	case ExactAddress:
		c.exhaust()
	case AddressPattern:
		var res fdx.Result[fdx.AddressRecord]
		if res, err = n.nodes.NextKey(c.path); err == nil {
			err = c.scanPattern(res)
		}
	case Username:
		var res fdx.Result[fdx.UserRecord]
		if res, err = n.users.NextKey(c.path); err == nil {
			err = c.scanNames(res)
		}
	case Zones:
		err = c.seekZone(c.addr.Zone)
	case Nets:
		err = c.seekNet(c.addr.Zone, c.addr.Net)
	case Nodes:
		err = c.nextNode()
	case Points:
		err = c.nextPoint()
	}
	if err != nil {
		c.exhaust()
		return false, n.errors.Signal(err)
	}
	return c.state == Active, nil
}

// IndexOffset encodes the cursor's index position: 0xFF for the address
// index or 0xFE for the username index, then the page and the record.
// Positions that do not fit return NoRecord.
func (c *Cursor) IndexOffset() uint32 {
	if c.state != Active || len(c.path) == 0 {
		return dm.NoRecord
	}
	top := c.path.Top()
	if top.Page > 0xFFFF || top.Record > 0xFF {
		return dm.NoRecord
	}
	tag := uint32(0xFF)
	if c.kind == Username {
		tag = 0xFE
	}
	return tag<<24 | top.Page<<8 | uint32(top.Record)
}

// CursorAt rebuilds an exact cursor from an IndexOffset value.
func (n *Nodelist) CursorAt(offset uint32) (*Cursor, error) {
	if err := n.check("cursor at"); err != nil {
		return nil, err
	}
	page, record := (offset>>8)&0xFFFF, int(offset&0xFF)
	where := fdx.Path{{Page: page, Record: record}}

	switch offset >> 24 {
	case 0xFF:
		rec, err := n.nodes.RecordAt(where)
		if err != nil {
			return nil, n.errors.Signal(err)
		}
		return n.Find(rec.Addr, nil)
	case 0xFE:
		rec, err := n.users.RecordAt(where)
		if err != nil {
			return nil, n.errors.Signal(err)
		}
		c := n.newCursor(Username, nil)
		c.names = fdx.NamePattern{Text: rec.Name()}
		res, err := n.users.Locate(func(r *fdx.UserRecord) int {
			if cmp := c.names.Compare(r.Key); cmp != 0 {
				return cmp
			}
			return rec.Addr.Compare(r.Addr)
		})
		if err != nil {
			return nil, n.errors.Signal(err)
		}
		return c, n.errors.Signal(c.scanNames(res))
	}
	return nil, n.errors.Signal(fdx.Errorf(fdx.InvalidArgument, "cursor at", "%#08x is not an index offset", offset))
}
