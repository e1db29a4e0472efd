package fdx

// Locate finds the first record, in index order, for which probe is not
// positive. When the probe matches it, the result is Found; otherwise it
// is NotFound with the path on that first greater record, or OffEnd when
// every record orders before the probe.
func (t *Tree[R, L]) Locate(probe Probe[R]) (Result[R], error) {
	var res Result[R]
	res.Status = OffEnd
	if t.stub.Root == 0 {
		return res, nil
	}

	var path Path
	page := t.stub.Root
	for depth := 0; ; depth++ {
		if depth >= MaxHeight {
			return res, Errorf(StructuralCorruption, "locate", "%s: deeper than %d levels",
				t.layout.Kind().FileName(), MaxHeight)
		}
		node, err := t.readNode(page)
		if err != nil {
			return res, err
		}
		i := 0
		for i < node.Count && probe(&node.Slots[i].Rec) > 0 {
			i++
		}
		path = append(path, Frame{Page: page, Record: i, Count: node.Count})
		if node.Leaf() {
			break
		}
		page = node.childLeftOf(i)
	}

	path = popExhausted(path)
	if len(path) == 0 {
		return res, nil
	}
	rec, err := t.RecordAt(path)
	if err != nil {
		return res, err
	}
	res.Path = path
	res.Record = rec
	if probe(&rec) == 0 {
		res.Status = Found
	} else {
		res.Status = NotFound
	}
	return res, nil
}

// Floor finds the last record for which probe is not negative: an exact
// match, or the greatest record ordered before the key. OffEnd means
// every record orders after the key.
func (t *Tree[R, L]) Floor(probe Probe[R]) (Result[R], error) {
	after := func(r *R) int {
		if probe(r) >= 0 {
			return 1
		}
		return -1
	}
	res, err := t.Locate(after)
	if err != nil {
		return res, err
	}
	if res.Status == OffEnd {
		res, err = t.Last()
	} else {
		res, err = t.PrevKey(res.Path)
	}
	if err != nil || res.Status == OffEnd {
		return res, err
	}
	if probe(&res.Record) == 0 {
		res.Status = Found
	} else {
		res.Status = NotFound
	}
	return res, nil
}

// popExhausted drops frames whose Record has run past the page end, so
// the top frame names an existing record.
func popExhausted(path Path) Path {
	for len(path) > 0 && path.Top().Record >= path.Top().Count {
		path = path[:len(path)-1]
	}
	return path
}
