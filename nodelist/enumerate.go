package nodelist

import fdx "NodelistDB/fdxtree"

// Enumerations walk the address index one level of the hierarchy at a
// time, jumping over whole subtrees with a fresh descent instead of
// stepping record by record.

// GetZones enumerates zone coordinators, zone:zone/0, for zones after start.
func (n *Nodelist) GetZones(start uint16, filter Filter) (*Cursor, error) {
	if err := n.check("get zones"); err != nil {
		return nil, err
	}
	c := n.newCursor(Zones, filter)
	return c, n.errors.Signal(c.seekZone(start))
}

// GetNets enumerates net coordinators, zone:net/0, for nets after start.
func (n *Nodelist) GetNets(zone, start uint16, filter Filter) (*Cursor, error) {
	if err := n.check("get nets"); err != nil {
		return nil, err
	}
	c := n.newCursor(Nets, filter)
	return c, n.errors.Signal(c.seekNet(zone, start))
}

// GetNodes enumerates the nodes of a net from start on, host included.
func (n *Nodelist) GetNodes(zone, net, start uint16, filter Filter) (*Cursor, error) {
	if err := n.check("get nodes"); err != nil {
		return nil, err
	}
	c := n.newCursor(Nodes, filter)
	return c, n.errors.Signal(c.seekNode(zone, net, start))
}

// GetPoints enumerates the points of a node from start on. Point 0 is the
// node itself and is never reported.
func (n *Nodelist) GetPoints(zone, net, node, start uint16, filter Filter) (*Cursor, error) {
	if err := n.check("get points"); err != nil {
		return nil, err
	}
	if start < 1 {
		start = 1
	}
	c := n.newCursor(Points, filter)
	return c, n.errors.Signal(c.seekPoint(fdx.Address{Zone: zone, Net: net, Node: node, Point: start}))
}

func (c *Cursor) seekZone(start uint16) error {
	nodes := c.nl.nodes
	for start < 0xFFFF {
		res, err := nodes.Locate(afterProbe(fdx.Address{Zone: start, Net: 0xFFFF, Node: 0xFFFF, Point: 0xFFFF}))
		if err != nil {
			return err
		}
		if res.Status == fdx.OffEnd {
			break
		}
		a := res.Record.Addr
		start = a.Zone
		// the coordinator is the zone's first record if it exists at all
		if a.Net > a.Zone || (a.Net == a.Zone && !a.IsZoneCoord()) {
			continue
		}
		if !a.IsZoneCoord() {
			zc := fdx.Address{Zone: a.Zone, Net: a.Zone}
			if res, err = nodes.Locate(exactProbe(zc)); err != nil {
				return err
			}
			if res.Status != fdx.Found {
				continue
			}
		}
		c.setAddress(res)
		if c.accept() {
			return nil
		}
	}
	c.exhaust()
	return nil
}

func (c *Cursor) seekNet(zone, start uint16) error {
	for start < 0xFFFF {
		res, err := c.nl.nodes.Locate(afterProbe(fdx.Address{Zone: zone, Net: start, Node: 0xFFFF, Point: 0xFFFF}))
		if err != nil {
			return err
		}
		if res.Status == fdx.OffEnd || res.Record.Addr.Zone != zone {
			break
		}
		a := res.Record.Addr
		start = a.Net
		if a.Node != 0 || a.Point != 0 {
			continue
		}
		c.setAddress(res)
		if c.accept() {
			return nil
		}
	}
	c.exhaust()
	return nil
}

func (c *Cursor) seekNode(zone, net, start uint16) error {
	res, err := c.nl.nodes.Locate(exactProbe(fdx.Address{Zone: zone, Net: net, Node: start}))
	if err != nil {
		return err
	}
	return c.scanNodes(zone, net, res)
}

func (c *Cursor) nextNode() error {
	res, err := c.nl.nodes.NextKey(c.path)
	if err != nil {
		return err
	}
	return c.scanNodes(c.addr.Zone, c.addr.Net, res)
}

// scanNodes accepts the first point-0 record of zone:net at or after res,
// skipping the points hanging off each rejected node.
func (c *Cursor) scanNodes(zone, net uint16, res fdx.Result[fdx.AddressRecord]) error {
	var err error
	for res.Status != fdx.OffEnd {
		a := res.Record.Addr
		if a.Zone != zone || a.Net != net {
			break
		}
		if a.Point == 0 {
			c.setAddress(res)
			if c.accept() {
				return nil
			}
		}
		if a.Node == 0xFFFF {
			break
		}
		res, err = c.nl.nodes.Locate(exactProbe(fdx.Address{Zone: zone, Net: net, Node: a.Node + 1}))
		if err != nil {
			return err
		}
	}
	c.exhaust()
	return nil
}

func (c *Cursor) seekPoint(from fdx.Address) error {
	res, err := c.nl.nodes.Locate(exactProbe(from))
	if err != nil {
		return err
	}
	return c.scanPoints(from, res)
}

func (c *Cursor) nextPoint() error {
	res, err := c.nl.nodes.NextKey(c.path)
	if err != nil {
		return err
	}
	return c.scanPoints(c.addr, res)
}

func (c *Cursor) scanPoints(of fdx.Address, res fdx.Result[fdx.AddressRecord]) error {
	var err error
	for res.Status != fdx.OffEnd {
		a := res.Record.Addr
		if a.Zone != of.Zone || a.Net != of.Net || a.Node != of.Node {
			break
		}
		if a.Point != 0 {
			c.setAddress(res)
			if c.accept() {
				return nil
			}
		}
		if res, err = c.nl.nodes.NextKey(res.Path); err != nil {
			return err
		}
	}
	c.exhaust()
	return nil
}
