package nodelist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NodelistDB/config"
	dm "NodelistDB/datafile_manager"
	fdx "NodelistDB/fdxtree"
)

func newNodelist(t *testing.T, mutate func(cfg *config.Cfg)) *Nodelist {
	t.Helper()
	cfg := config.NewCfg()
	cfg.Dir = t.TempDir()
	cfg.Extension = "123"
	cfg.CountryCode = 44
	cfg.AddressCachePages = 8
	cfg.UserCachePages = 8
	if mutate != nil {
		mutate(cfg)
	}
	n, err := Open(cfg, fdx.Destroy)
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })
	return n
}

func at(z, net, node, point uint16) fdx.Address {
	return fdx.Address{Zone: z, Net: net, Node: node, Point: point}
}

func addAddr(t *testing.T, n *Nodelist, a fdx.Address) {
	t.Helper()
	_, err := n.AddNode(a, a.Net, a.Node, fdx.StatusNormal, dm.NodelistFile, 1)
	require.NoError(t, err)
}

// drain returns the current match and every further one.
func drain(t *testing.T, n *Nodelist, c *Cursor) []fdx.Address {
	t.Helper()
	var out []fdx.Address
	for c.State() == Active {
		out = append(out, c.Address())
		_, err := n.Continue(c)
		require.NoError(t, err)
	}
	return out
}

// seedScenario indexes a net host, one node and its point.
func seedScenario(t *testing.T, n *Nodelist) {
	t.Helper()
	for _, l := range []struct {
		addr fdx.Address
		line string
	}{
		{at(1, 1, 0, 0), "Host,1,Net_One,Somewhere,Net_Host,1-800-555-0100,9600,CM,XA"},
		{at(1, 1, 1, 0), ",1,Sysop_BBS,Anytown,John_Smith,1-555-0101,2400,CM"},
		{at(1, 1, 1, 1), "Point,1,Point_One,Anytown,Jane_Doe,-Unpublished-,300"},
	} {
		require.NoError(t, n.AppendLine(dm.NodelistFile, l.addr, l.addr.Net, l.addr.Node, l.line))
	}
}

func TestConcreteScenario(t *testing.T) {
	n := newNodelist(t, nil)
	seedScenario(t, n)

	c, err := n.Find(at(1, 1, 1, 0), nil)
	require.NoError(t, err)
	require.Equal(t, Active, c.State())
	assert.Equal(t, fdx.StatusNormal, c.Status())
	assert.False(t, c.IsFDA())

	sysop, err := c.Sysop()
	require.NoError(t, err)
	assert.Equal(t, "John Smith", sysop)
	name, err := c.SystemName()
	require.NoError(t, err)
	assert.Equal(t, "Sysop BBS", name)
	speed, err := c.Speed()
	require.NoError(t, err)
	assert.Equal(t, uint32(2400), speed)
	flags, err := c.Flags()
	require.NoError(t, err)
	assert.Equal(t, "CM", flags)
	number, err := c.RawNumber()
	require.NoError(t, err)
	assert.Equal(t, "1-555-0101", number)

	more, err := n.Continue(c)
	require.NoError(t, err)
	assert.False(t, more, "exact lookups have one match")

	for _, tc := range []struct {
		addr   fdx.Address
		status fdx.NodeStatus
	}{
		{at(1, 1, 0, 0), fdx.StatusNetCoord},
		{at(1, 1, 1, 0), fdx.StatusNormal},
		{at(1, 1, 1, 1), fdx.StatusPoint},
	} {
		c, err = n.Find(tc.addr, nil)
		require.NoError(t, err)
		require.Equal(t, Active, c.State(), tc.addr.String())
		assert.Equal(t, tc.status, c.Status(), tc.addr.String())
	}
	rnet, rnode := c.Routing()
	assert.Equal(t, [2]uint16{1, 1}, [2]uint16{rnet, rnode})

	c, err = n.GetPoints(1, 1, 1, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(1, 1, 1, 1)}, drain(t, n, c))

	c, err = n.GetNodes(1, 1, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(1, 1, 0, 0), at(1, 1, 1, 0)}, drain(t, n, c))

	c, err = n.GetZones(0, nil)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(1, 1, 0, 0)}, drain(t, n, c))

	c, err = n.GetNets(1, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(1, 1, 0, 0)}, drain(t, n, c))

	p, err := fdx.ParsePattern("1:1/*")
	require.NoError(t, err)
	c, err = n.FindPattern(p, nil)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(1, 1, 0, 0), at(1, 1, 1, 0), at(1, 1, 1, 1)}, drain(t, n, c))

	c, err = n.FindByName("SMITH_", nil)
	require.NoError(t, err)
	require.Equal(t, Active, c.State())
	assert.Equal(t, "SMITH JOHN", c.Name())
	assert.Equal(t, at(1, 1, 1, 0), c.Address())

	c, err = n.Find(at(1, 1, 2, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, Exhausted, c.State())
	_, err = c.Sysop()
	assert.True(t, fdx.IsKind(err, fdx.InvalidArgument))
}

func TestZoneEnumeration(t *testing.T) {
	n := newNodelist(t, nil)
	for _, a := range []fdx.Address{
		at(1, 1, 0, 0), at(1, 1, 5, 0),
		at(2, 5, 1, 0), // no coordinator, first net after the zone number
		at(3, 1, 1, 0), at(3, 3, 0, 0), at(3, 30, 0, 0),
		at(4, 4, 1, 0), // net 4 without its host
		at(5, 5, 0, 0),
		at(6, 2, 1, 0), at(6, 7, 0, 0),
	} {
		addAddr(t, n, a)
	}

	c, err := n.GetZones(0, nil)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(1, 1, 0, 0), at(3, 3, 0, 0), at(5, 5, 0, 0)}, drain(t, n, c))

	c, err = n.GetZones(1, nil)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(3, 3, 0, 0), at(5, 5, 0, 0)}, drain(t, n, c))

	skip3 := func(c *Cursor) bool { return c.Address().Zone != 3 }
	c, err = n.GetZones(0, skip3)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(1, 1, 0, 0), at(5, 5, 0, 0)}, drain(t, n, c))

	c, err = n.GetNets(3, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(3, 3, 0, 0), at(3, 30, 0, 0)}, drain(t, n, c))
}

func TestEnumerationAcrossPages(t *testing.T) {
	n := newNodelist(t, nil)
	var zones []fdx.Address
	for z := uint16(1); z <= 20; z++ {
		if z%2 == 1 {
			addAddr(t, n, at(z, z, 0, 0))
			zones = append(zones, at(z, z, 0, 0))
		}
		for _, net := range []uint16{100, 101, 102} {
			if net != 101 {
				addAddr(t, n, at(z, net, 0, 0))
			}
			for node := uint16(1); node <= 10; node++ {
				addAddr(t, n, at(z, net, node, 0))
			}
		}
		for p := uint16(1); p <= 3; p++ {
			addAddr(t, n, at(z, 100, 5, p))
		}
	}
	info, err := n.Info(fdx.NodeTree)
	require.NoError(t, err)
	require.Greater(t, info.Levels, 2)

	c, err := n.GetZones(0, nil)
	require.NoError(t, err)
	assert.Equal(t, zones, drain(t, n, c))

	c, err = n.GetNets(7, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(7, 7, 0, 0), at(7, 100, 0, 0), at(7, 102, 0, 0)}, drain(t, n, c))
	c, err = n.GetNets(8, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(8, 100, 0, 0), at(8, 102, 0, 0)}, drain(t, n, c))

	c, err = n.GetNodes(12, 100, 0, nil)
	require.NoError(t, err)
	got := drain(t, n, c)
	require.Len(t, got, 11)
	for i, a := range got {
		assert.Equal(t, at(12, 100, uint16(i), 0), a)
	}

	odd := func(c *Cursor) bool { return c.Address().Node%2 == 1 }
	c, err = n.GetNodes(12, 101, 4, odd)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(12, 101, 5, 0), at(12, 101, 7, 0), at(12, 101, 9, 0)}, drain(t, n, c))

	c, err = n.GetPoints(12, 100, 5, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []fdx.Address{at(12, 100, 5, 2), at(12, 100, 5, 3)}, drain(t, n, c))

	c, err = n.GetPoints(12, 100, 6, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, Exhausted, c.State())
}

func TestStaleCursor(t *testing.T) {
	n := newNodelist(t, nil)
	seedScenario(t, n)

	c, err := n.GetNodes(1, 1, 0, nil)
	require.NoError(t, err)
	require.Equal(t, Active, c.State())

	require.NoError(t, n.Freeze())
	assert.True(t, n.IsFrozen())
	_, err = n.Find(at(1, 1, 1, 0), nil)
	assert.True(t, fdx.IsKind(err, fdx.FormatMismatch))

	require.NoError(t, n.Thaw())
	_, err = n.Continue(c)
	assert.True(t, fdx.IsKind(err, fdx.StaleCursor))
	assert.True(t, fdx.IsKind(n.GetError(), fdx.StaleCursor))
	n.ClearError()
	assert.NoError(t, n.GetError())

	// a mutation also invalidates cursors
	c, err = n.GetNodes(1, 1, 0, nil)
	require.NoError(t, err)
	addAddr(t, n, at(1, 1, 9, 0))
	_, err = n.Continue(c)
	assert.True(t, fdx.IsKind(err, fdx.StaleCursor))

	// thaw kept the data
	c, err = n.Find(at(1, 1, 1, 1), nil)
	require.NoError(t, err)
	sysop, err := c.Sysop()
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", sysop)
}

func TestThawHeaderMismatch(t *testing.T) {
	n := newNodelist(t, nil)
	seedScenario(t, n)
	require.NoError(t, n.Freeze())

	path := filepath.Join(n.Config().Dir, fdx.NodeTree.FileName())
	patch := func(off int64, b byte) {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		require.NoError(t, err)
		_, err = f.WriteAt([]byte{b}, off)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	patch(256, 1) // revision major
	err := n.Thaw()
	assert.True(t, fdx.IsKind(err, fdx.FormatMismatch))
	assert.True(t, n.IsFrozen())
	_, err = n.GetZones(0, nil)
	assert.True(t, fdx.IsKind(err, fdx.FormatMismatch))

	patch(256, fdx.RevisionMajor)
	require.NoError(t, n.Thaw())
	assert.False(t, n.IsFrozen())
	c, err := n.Find(at(1, 1, 1, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, Active, c.State())

	// page length of the user index
	require.NoError(t, n.Freeze())
	path = filepath.Join(n.Config().Dir, fdx.UserTree.FileName())
	patch(4, 0x10)
	assert.True(t, fdx.IsKind(n.Thaw(), fdx.FormatMismatch))
	assert.True(t, n.IsFrozen())
}

func TestFDARecords(t *testing.T) {
	for _, tc := range []struct {
		name   string
		legacy bool
		speed  uint32
		flags  string
	}{
		{"revision 1", false, 33600, "CM,V34"},
		{"revision 0", true, 12000, "CM,V33"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			n := newNodelist(t, func(cfg *config.Cfg) { cfg.LegacyRevision = tc.legacy })
			assert.Equal(t, map[bool]int{false: 1, true: 0}[tc.legacy], n.Revision())

			off, err := n.Data().AppendNodeRecord(&dm.NodeRecord{
				Zone: 2, Net: 443, Node: 13, RoutNet: 443,
				Cost: 7, Capability: 1 | 1<<8, MaxBaud: 11,
				Name: "Northern Lights", Telephone: "46-8-555-1234",
				Location: "Stockholm", User: "Ann Lee",
			})
			require.NoError(t, err)
			file, pos := dm.SplitOffset(off)
			_, err = n.AddNode(at(2, 443, 13, 0), 443, 0, fdx.StatusHub, file, pos)
			require.NoError(t, err)

			c, err := n.Find(at(2, 443, 13, 0), nil)
			require.NoError(t, err)
			require.True(t, c.IsFDA())
			assert.Equal(t, fdx.StatusHub, c.Status())
			rnet, rnode := c.Routing()
			assert.Equal(t, [2]uint16{443, 0}, [2]uint16{rnet, rnode})

			rec, err := c.Record()
			require.NoError(t, err)
			assert.Equal(t, "Ann Lee", rec.Sysop)
			assert.Equal(t, "Northern Lights", rec.Name)
			assert.Equal(t, "Stockholm", rec.Location)
			assert.Equal(t, tc.speed, rec.Speed)
			assert.Equal(t, tc.flags, rec.Flags)
		})
	}
}

func TestResolveMemo(t *testing.T) {
	n := newNodelist(t, nil)
	seedScenario(t, n)

	c, err := n.Find(at(1, 1, 1, 0), nil)
	require.NoError(t, err)
	before := n.resolver.loads
	_, err = c.Sysop()
	require.NoError(t, err)
	_, err = c.Location()
	require.NoError(t, err)
	_, err = c.Speed()
	require.NoError(t, err)
	assert.Equal(t, before+1, n.resolver.loads)

	require.NoError(t, n.Freeze())
	require.NoError(t, n.Thaw())
	c, err = n.Find(at(1, 1, 1, 0), nil)
	require.NoError(t, err)
	_, err = c.Sysop()
	require.NoError(t, err)
	assert.Equal(t, before+2, n.resolver.loads, "freeze drops resolved records")
}

func TestDuplicatePolicy(t *testing.T) {
	n := newNodelist(t, nil)
	a := at(2, 5, 1, 0)
	res, err := n.AddNode(a, 5, 1, fdx.StatusNormal, dm.NodelistFile, 10)
	require.NoError(t, err)
	assert.Equal(t, fdx.Inserted, res)
	res, err = n.AddNode(a, 5, 1, fdx.StatusHold, dm.NodelistFile, 20)
	require.NoError(t, err)
	assert.Equal(t, fdx.Replaced, res)

	require.NoError(t, n.SetTreeFlags(fdx.NodeTree, false, fdx.DefaultPromote))
	res, err = n.AddNode(a, 5, 1, fdx.StatusDown, dm.NodelistFile, 30)
	require.NoError(t, err)
	assert.Equal(t, fdx.Rejected, res)
	assert.True(t, fdx.IsKind(n.GetError(), fdx.InvalidArgument))

	c, err := n.Find(a, nil)
	require.NoError(t, err)
	assert.Equal(t, fdx.StatusHold, c.Status())
	assert.Equal(t, uint32(20), c.Offset())

	assert.True(t, fdx.IsKind(n.SetTreeFlags(fdx.UserTree, true, 40), fdx.InvalidArgument))
	info, err := n.Info(fdx.UserTree)
	require.NoError(t, err)
	assert.Equal(t, fdx.DefaultPromote, info.Promote)
}

func TestSameSysopSeveralSystems(t *testing.T) {
	for _, useDupes := range []bool{true, false} {
		n := newNodelist(t, func(cfg *config.Cfg) { cfg.UseDupes = useDupes })
		for _, a := range []fdx.Address{at(2, 250, 2, 0), at(2, 250, 1, 0), at(1, 100, 7, 0)} {
			res, err := n.AddUser(a, "John_Smith", fdx.StatusNormal, dm.NodelistFile, uint32(a.Node))
			require.NoError(t, err)
			assert.Equal(t, fdx.Inserted, res, "%v", a)
		}
		_, err := n.AddUser(at(2, 250, 1, 0), "Jane_Smith", fdx.StatusNormal, dm.NodelistFile, 9)
		require.NoError(t, err)

		c, err := n.FindByName("SMITH JOHN", nil)
		require.NoError(t, err)
		assert.Equal(t, []fdx.Address{at(1, 100, 7, 0), at(2, 250, 1, 0), at(2, 250, 2, 0)}, drain(t, n, c))

		// the same name at the same address is still one entry
		res, err := n.AddUser(at(2, 250, 1, 0), "John_Smith", fdx.StatusHold, dm.NodelistFile, 11)
		require.NoError(t, err)
		if useDupes {
			assert.Equal(t, fdx.Replaced, res)
		} else {
			assert.Equal(t, fdx.Rejected, res)
		}
		info, err := n.Info(fdx.UserTree)
		require.NoError(t, err)
		assert.Equal(t, uint32(4), info.Records)

		// an index position names one of the systems, not the first
		c, err = n.FindByName("SMITH JOHN", nil)
		require.NoError(t, err)
		_, err = n.Continue(c)
		require.NoError(t, err)
		require.Equal(t, at(2, 250, 1, 0), c.Address())
		back, err := n.CursorAt(c.IndexOffset())
		require.NoError(t, err)
		assert.Equal(t, at(2, 250, 1, 0), back.Address())
		assert.Equal(t, []fdx.Address{at(2, 250, 1, 0), at(2, 250, 2, 0)}, drain(t, n, back))
	}
}

func TestIndexOffsetRoundTrip(t *testing.T) {
	n := newNodelist(t, nil)
	seedScenario(t, n)
	for i := uint16(2); i < 80; i++ {
		addAddr(t, n, at(1, 2, i, 0))
	}

	for _, a := range []fdx.Address{at(1, 1, 1, 1), at(1, 2, 40, 0), at(1, 2, 79, 0)} {
		c, err := n.Find(a, nil)
		require.NoError(t, err)
		off := c.IndexOffset()
		assert.Equal(t, uint32(0xFF), off>>24)

		back, err := n.CursorAt(off)
		require.NoError(t, err)
		assert.Equal(t, a, back.Address())
		assert.Equal(t, Active, back.State())
	}

	c, err := n.FindByName("DOE JANE", nil)
	require.NoError(t, err)
	off := c.IndexOffset()
	assert.Equal(t, uint32(0xFE), off>>24)
	back, err := n.CursorAt(off)
	require.NoError(t, err)
	assert.Equal(t, "DOE JANE", back.Name())
	assert.Equal(t, at(1, 1, 1, 1), back.Address())

	_, err = n.CursorAt(0x12000000)
	assert.True(t, fdx.IsKind(err, fdx.InvalidArgument))
}

func TestReadOnlyReopen(t *testing.T) {
	n := newNodelist(t, nil)
	seedScenario(t, n)
	cfg := n.Config()
	require.NoError(t, n.Close())

	ro, err := Open(cfg, fdx.ReadOnly)
	require.NoError(t, err)
	defer ro.Close()

	c, err := ro.FindByName("smith john", nil)
	require.NoError(t, err)
	require.Equal(t, Active, c.State())
	location, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "Anytown", location)

	_, err = ro.AddNode(at(1, 1, 7, 0), 1, 7, fdx.StatusNormal, dm.NodelistFile, 1)
	assert.True(t, fdx.IsKind(err, fdx.IoFailure))
}
