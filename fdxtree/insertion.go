package fdx

// FindInsertPoint walks from the root to the leaf that should receive
// rec. Each page is scanned right to left; an equal record stops the walk
// with Duplicate set and the top frame on the match. Otherwise every
// frame's Record is the slot where rec would go on that page.
func (t *Tree[R, L]) FindInsertPoint(rec *R) (InsertionPoint, error) {
	var ip InsertionPoint
	if t.stub.Root == 0 {
		return ip, nil
	}

	page := t.stub.Root
	for depth := 0; ; depth++ {
		if depth >= MaxHeight {
			return ip, Errorf(StructuralCorruption, "find insert point", "%s: deeper than %d levels",
				t.layout.Kind().FileName(), MaxHeight)
		}
		node, err := t.readNode(page)
		if err != nil {
			return ip, err
		}

		i := node.Count - 1
		for ; i >= 0; i-- {
			c := t.layout.Compare(rec, &node.Slots[i].Rec)
			if c == 0 {
				ip.Path = append(ip.Path, Frame{Page: page, Record: i, Count: node.Count})
				ip.Duplicate = true
				return ip, nil
			}
			if c > 0 {
				break
			}
		}

		ins := i + 1
		ip.Path = append(ip.Path, Frame{Page: page, Record: ins, Count: node.Count})
		if node.Leaf() {
			return ip, nil
		}
		page = node.childLeftOf(ins)
	}
}

// AddRecord inserts rec, or replaces an equal record when duplicates are
// allowed. A full page is split at the promote pivot and the pivot record
// moves one level up; a split at the top grows a new root.
func (t *Tree[R, L]) AddRecord(rec R) (InsertResult, error) {
	if t.readOnly {
		return Rejected, Errorf(IoFailure, "add record", "%s is open read-only", t.layout.Kind().FileName())
	}
	ip, err := t.FindInsertPoint(&rec)
	if err != nil {
		return Rejected, err
	}

	if ip.Duplicate {
		if !t.useDupes {
			return Rejected, nil
		}
		f := ip.Path.Top()
		node, err := t.readNode(f.Page)
		if err != nil {
			return Rejected, err
		}
		// the slot keeps its link
		node.Slots[f.Record].Rec = rec
		if err := t.writeNode(f.Page, node); err != nil {
			return Rejected, err
		}
		t.stamp++
		return Replaced, nil
	}

	if err := t.insertAt(ip.Path, Slot[R]{Rec: rec}); err != nil {
		return Rejected, err
	}
	t.stub.Records++
	t.stamp++
	return Inserted, nil
}

// insertAt places slot at the path's leaf position and resolves splits
// bottom-up, one level per iteration. left is the page a promoted
// record's subtree split from.
func (t *Tree[R, L]) insertAt(path Path, slot Slot[R]) error {
	var left uint32
	for level := len(path) - 1; ; level-- {
		if level < 0 {
			return t.growRoot(left, slot)
		}

		f := path[level]
		node, err := t.readNode(f.Page)
		if err != nil {
			return err
		}
		ins := f.Record

		if node.Count < MaxRecords {
			copy(node.Slots[ins+1:node.Count+1], node.Slots[ins:node.Count])
			node.Slots[ins] = slot
			node.Count++
			return t.writeNode(f.Page, node)
		}

		promoted, high := t.split(node, ins, slot)
		t.pages++
		newPage := t.pages
		promoted.Link = newPage

		if err := t.writeNode(f.Page, node); err != nil {
			return err
		}
		if err := t.writeNode(newPage, high); err != nil {
			return err
		}
		t.log.Debugf("split page %d at %d (insert at %d), new page %d", f.Page, t.promote, ins, newPage)

		slot = promoted
		left = f.Page
	}
}

// split divides a full page plus the incoming slot. The low part stays in
// node, the high part goes to the returned page, and the pivot record is
// returned for promotion with its old link as the high page's backref.
func (t *Tree[R, L]) split(node *Page[R], ins int, slot Slot[R]) (Slot[R], *Page[R]) {
	var merged [MaxRecords + 1]Slot[R]
	copy(merged[:ins], node.Slots[:ins])
	merged[ins] = slot
	copy(merged[ins+1:], node.Slots[ins:])

	p := t.promote
	promoted := merged[p]

	high := &Page[R]{Count: MaxRecords - p, Backref: promoted.Link}
	copy(high.Slots[:], merged[p+1:])

	var zero Slot[R]
	copy(node.Slots[:], merged[:p])
	for i := p; i < MaxRecords; i++ {
		node.Slots[i] = zero
	}
	node.Count = p
	return promoted, high
}

// growRoot makes a new root holding only slot, with left below it.
func (t *Tree[R, L]) growRoot(left uint32, slot Slot[R]) error {
	t.pages++
	root := &Page[R]{Count: 1, Backref: left}
	root.Slots[0] = slot
	t.stub.Root = t.pages
	t.stub.Levels++
	if err := t.writeNode(t.pages, root); err != nil {
		return err
	}
	if left != 0 {
		t.log.Debugf("new root page %d, height %d", t.stub.Root, t.stub.Levels)
	}
	return t.writeStub()
}
