package fdx

// RecordAt returns the record named by the path's top frame.
func (t *Tree[R, L]) RecordAt(path Path) (R, error) {
	var zero R
	if len(path) == 0 {
		return zero, Errorf(InvalidArgument, "record at", "empty path")
	}
	f := path.Top()
	node, err := t.readNode(f.Page)
	if err != nil {
		return zero, err
	}
	if f.Record < 0 || f.Record >= node.Count {
		return zero, Errorf(StructuralCorruption, "record at", "%s: record %d on page %d with %d records",
			t.layout.Kind().FileName(), f.Record, f.Page, node.Count)
	}
	return node.Slots[f.Record].Rec, nil
}

// First positions on the smallest record.
func (t *Tree[R, L]) First() (Result[R], error) {
	res := Result[R]{Status: OffEnd}
	if t.stub.Root == 0 {
		return res, nil
	}
	path, err := t.descend(nil, t.stub.Root, false)
	if err != nil {
		return res, err
	}
	return t.found(path)
}

// Last positions on the greatest record.
func (t *Tree[R, L]) Last() (Result[R], error) {
	res := Result[R]{Status: OffEnd}
	if t.stub.Root == 0 {
		return res, nil
	}
	path, err := t.descend(nil, t.stub.Root, true)
	if err != nil {
		return res, err
	}
	return t.found(path)
}

// NextKey moves to the in-order successor of the path's current record.
// The input path is not modified. OffEnd means the index is exhausted.
func (t *Tree[R, L]) NextKey(path Path) (Result[R], error) {
	res := Result[R]{Status: OffEnd}
	if len(path) == 0 {
		return res, nil
	}
	path = path.Clone()
	top := &path[len(path)-1]
	node, err := t.readNode(top.Page)
	if err != nil {
		return res, err
	}

	if !node.Leaf() {
		// successor is the leftmost record of the right subtree
		child := node.Slots[top.Record].Link
		top.Record++
		path, err = t.descend(path, child, false)
		if err != nil {
			return res, err
		}
		return t.found(path)
	}

	if top.Record+1 < node.Count {
		top.Record++
		return t.found(path)
	}
	path = popExhausted(path[:len(path)-1])
	if len(path) == 0 {
		return res, nil
	}
	return t.found(path)
}

// PrevKey moves to the in-order predecessor. OffEnd means the path was on
// the first record.
func (t *Tree[R, L]) PrevKey(path Path) (Result[R], error) {
	res := Result[R]{Status: OffEnd}
	if len(path) == 0 {
		return res, nil
	}
	path = path.Clone()
	top := &path[len(path)-1]
	node, err := t.readNode(top.Page)
	if err != nil {
		return res, err
	}

	if !node.Leaf() {
		// predecessor is the rightmost record of the left subtree
		child := node.childLeftOf(top.Record)
		path, err = t.descend(path, child, true)
		if err != nil {
			return res, err
		}
		return t.found(path)
	}

	if top.Record > 0 {
		top.Record--
		return t.found(path)
	}
	path = path[:len(path)-1]
	for len(path) > 0 && path.Top().Record == 0 {
		path = path[:len(path)-1]
	}
	if len(path) == 0 {
		return res, nil
	}
	path[len(path)-1].Record--
	return t.found(path)
}

// descend walks from page to a leaf along the leftmost or rightmost
// edge, pushing a frame per level.
func (t *Tree[R, L]) descend(path Path, page uint32, rightmost bool) (Path, error) {
	for {
		if len(path) >= MaxHeight {
			return nil, Errorf(StructuralCorruption, "descend", "%s: deeper than %d levels",
				t.layout.Kind().FileName(), MaxHeight)
		}
		node, err := t.readNode(page)
		if err != nil {
			return nil, err
		}
		f := Frame{Page: page, Count: node.Count}
		if rightmost {
			f.Record = node.Count
			if node.Leaf() {
				f.Record = node.Count - 1
			}
		}
		path = append(path, f)
		if node.Leaf() {
			return path, nil
		}
		page = node.childLeftOf(f.Record)
	}
}

func (t *Tree[R, L]) found(path Path) (Result[R], error) {
	rec, err := t.RecordAt(path)
	if err != nil {
		return Result[R]{Status: OffEnd}, err
	}
	return Result[R]{Status: Found, Record: rec, Path: path}, nil
}

// Walk visits every page breadth first, root level first.
func (t *Tree[R, L]) Walk(fn func(level int, page uint32, node *Page[R]) error) error {
	if t.stub.Root == 0 {
		return nil
	}
	queue := []uint32{t.stub.Root}
	for level := 0; len(queue) > 0; level++ {
		if level >= MaxHeight {
			return Errorf(StructuralCorruption, "walk", "%s: deeper than %d levels",
				t.layout.Kind().FileName(), MaxHeight)
		}
		size := len(queue)
		for _, page := range queue[:size] {
			node, err := t.readNode(page)
			if err != nil {
				return err
			}
			if err := fn(level, page, node); err != nil {
				return err
			}
			if !node.Leaf() {
				queue = append(queue, node.Backref)
				for i := 0; i < node.Count; i++ {
					queue = append(queue, node.Slots[i].Link)
				}
			}
		}
		queue = queue[size:]
	}
	return nil
}
