package nodelist

import (
	"strings"

	dm "NodelistDB/datafile_manager"
	fdx "NodelistDB/fdxtree"
)

// AddNode indexes a node by address. file and pos name where its entry
// lives: a byte offset for text files, a record number for FDNODE.FDA.
func (n *Nodelist) AddNode(addr fdx.Address, rnet, rnode uint16, status fdx.NodeStatus,
	file dm.FileID, pos uint32) (fdx.InsertResult, error) {
	if err := n.checkWritable("add node"); err != nil {
		return fdx.Rejected, err
	}
	res, err := n.nodes.AddRecord(fdx.AddressRecord{
		Addr:   addr,
		RNet:   rnet,
		RNode:  rnode,
		Status: status,
		Offset: dm.MakeOffset(file, pos),
	})
	if err != nil {
		return res, n.errors.Signal(err)
	}
	if res == fdx.Rejected {
		n.duplicate("add node", addr.String())
	}
	return res, nil
}

// AddUser indexes a sysop name, stored last name first.
func (n *Nodelist) AddUser(addr fdx.Address, name string, status fdx.NodeStatus,
	file dm.FileID, pos uint32) (fdx.InsertResult, error) {
	if err := n.checkWritable("add user"); err != nil {
		return fdx.Rejected, err
	}
	rec := fdx.UserRecord{
		Key:    fdx.FormUserName(name),
		Addr:   addr,
		Status: status,
		Offset: dm.MakeOffset(file, pos),
	}
	res, err := n.users.AddRecord(rec)
	if err != nil {
		return res, n.errors.Signal(err)
	}
	if res == fdx.Rejected {
		n.duplicate("add user", rec.Name())
	}
	return res, nil
}

// AppendLine appends a nodelist line to a text data file and indexes it
// by address and by sysop name. The line's keyword gives the status.
func (n *Nodelist) AppendLine(file dm.FileID, addr fdx.Address, rnet, rnode uint16, line string) error {
	if err := n.checkWritable("append line"); err != nil {
		return err
	}
	offset, err := n.data.AppendNodelistLine(file, line)
	if err != nil {
		return n.errors.Signal(err)
	}
	fields := strings.Split(line, ",")
	status := fdx.ParseStatus(fields[0])
	_, pos := dm.SplitOffset(offset)

	if _, err := n.AddNode(addr, rnet, rnode, status, file, pos); err != nil {
		return err
	}
	if len(fields) > 4 && fields[4] != "" {
		if _, err := n.AddUser(addr, fields[4], status, file, pos); err != nil {
			return err
		}
	}
	return nil
}

// AddPhone stores a dial translation in PHONE.FDA and indexes it by the
// number prefix it applies to. An xlt of "=" only sets the cost.
func (n *Nodelist) AddPhone(match, xlt string, cost uint16) (fdx.InsertResult, error) {
	if err := n.checkWritable("add phone"); err != nil {
		return fdx.Rejected, err
	}
	key, truncated := fdx.PhoneKey(match)
	if truncated {
		n.errors.Signal(fdx.Errorf(fdx.InvalidArgument, "add phone", "match %q truncated to 20 chars", match))
	}
	if len(xlt) > dm.TelephoneLen-1 {
		n.errors.Signal(fdx.Errorf(fdx.InvalidArgument, "add phone", "translation %q truncated to %d chars",
			xlt, dm.TelephoneLen-1))
		xlt = xlt[:dm.TelephoneLen-1]
	}

	recno, err := n.data.AppendPhoneRecord(&dm.PhoneRecord{Telephone: xlt, Cost: cost})
	if err != nil {
		return fdx.Rejected, n.errors.Signal(err)
	}
	res, err := n.phones.AddRecord(fdx.PhoneRecord{Key: key, Offset: recno})
	if err != nil {
		return res, n.errors.Signal(err)
	}
	if res == fdx.Rejected {
		n.duplicate("add phone", match)
		return res, nil
	}

	switch match {
	case domKey:
		n.defaults.dom = recno
	case intlKey:
		n.defaults.intl = recno
	}
	return res, nil
}

// duplicate records a suppressed duplicate without failing the insert.
func (n *Nodelist) duplicate(op, key string) {
	n.log.Debugf("%s: duplicate %s suppressed", op, key)
	n.errors.Signal(fdx.Errorf(fdx.InvalidArgument, op, "duplicate %s suppressed", key))
}
