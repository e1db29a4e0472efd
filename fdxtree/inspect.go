// Package fdx: index file inspection for debugging.
// Use InspectIndexFile(path) to print a human-readable dump of an *.FDX file.

package fdx

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// InspectIndexFile prints the structure of an index file to stdout.
func InspectIndexFile(indexPath string) error {
	return InspectIndexFileTo(os.Stdout, indexPath)
}

// KindForPageSize maps a stub page length to the tree kind using it.
func KindForPageSize(pageLen int) (TreeKind, bool) {
	switch pageLen {
	case PageSizeFor(AddressLayout{}.RecordSize()):
		return NodeTree, true
	case PageSizeFor(UserLayout{}.RecordSize()):
		return UserTree, true
	case PageSizeFor(PhoneLayout{}.RecordSize()):
		return PhoneTree, true
	}
	return 0, false
}

// InspectIndexFileTo writes the stub and then every level breadth first,
// one line per page with its xxhash fingerprint and one line per record.
func InspectIndexFileTo(w io.Writer, indexPath string) error {
	pageLen, err := peekPageLen(indexPath)
	if err != nil {
		return err
	}
	kind, ok := KindForPageSize(int(pageLen))
	if !ok {
		return Errorf(FormatMismatch, "inspect", "%s: unknown page length %d", indexPath, pageLen)
	}
	pager, err := NewOnDiskPager(indexPath, int(pageLen), ReadOnly)
	if err != nil {
		return err
	}
	defer pager.Close()

	switch kind {
	case NodeTree:
		t, err := OpenTree[AddressRecord](AddressLayout{}, pager, Options{ReadOnly: true})
		if err != nil {
			return err
		}
		return inspectTree(w, indexPath, t, func(r *AddressRecord) string {
			return fmt.Sprintf("%-18s %-6s route %d/%d %s", r.Addr, r.Status, r.RNet, r.RNode, FormatOffset(r.Offset))
		})
	case UserTree:
		t, err := OpenTree[UserRecord](UserLayout{}, pager, Options{ReadOnly: true})
		if err != nil {
			return err
		}
		return inspectTree(w, indexPath, t, func(r *UserRecord) string {
			return fmt.Sprintf("%-16q %-18s %s", r.Name(), r.Addr, FormatOffset(r.Offset))
		})
	default:
		t, err := OpenTree[PhoneRecord](PhoneLayout{}, pager, Options{ReadOnly: true})
		if err != nil {
			return err
		}
		return inspectTree(w, indexPath, t, func(r *PhoneRecord) string {
			return fmt.Sprintf("%-22q -> PHONE.FDA #%d", r.Match(), r.Offset)
		})
	}
}

func peekPageLen(indexPath string) (uint32, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return 0, Wrap(IoFailure, "inspect", errors.Wrapf(err, "open %s", indexPath))
	}
	defer f.Close()
	head := make([]byte, 8)
	if _, err := io.ReadFull(f, head); err != nil {
		return 0, Wrap(IoFailure, "inspect", errors.Wrapf(err, "read stub of %s", indexPath))
	}
	return ReadStubPageLen(head)
}

func inspectTree[R any, L PageLayout[R]](w io.Writer, indexPath string, t *Tree[R, L], format func(*R) string) error {
	p := func(format string, args ...interface{}) { fmt.Fprintf(w, format, args...) }
	pln := func(s string) { fmt.Fprintln(w, s) }

	info := t.Info()
	h := t.Header()
	size := uint64(info.Pages+1) * uint64(info.PageSize)

	p("Index file: %s (%s)\n", indexPath, info.Kind)
	p("  Page 0 (stub): pagelen=%d root=%d levels=%d records=%s pages=%s size=%s\n",
		info.PageSize, info.Root, info.Levels, humanize.Comma(int64(info.Records)),
		humanize.Comma(int64(info.Pages)), humanize.Bytes(size))
	p("  Header: revision %d.%d (db rev %d) country=%d swedish=%v ext=%q compiled %s\n",
		h.RevisionMaj, h.RevisionMin, h.Revision(), h.CountryCode, h.Swedish, h.NodeExt,
		time.Unix(int64(h.CompileTime), 0).UTC().Format(time.RFC3339))
	if info.Root == 0 {
		pln("  (empty tree)")
		return nil
	}

	pln("\n  Pages (BFS):")
	pln("  ---")
	current := -1
	err := t.Walk(func(level int, page uint32, node *Page[R]) error {
		if level != current {
			if current >= 0 {
				pln("  ---")
			}
			p("  Level %d:\n", level)
			current = level
		}
		kind := "LEAF"
		if !node.Leaf() {
			kind = "INTERNAL"
		}
		raw, err := t.ReadPage(page)
		if err != nil {
			return err
		}
		p("    [page %d] %s records=%d backref=%d xxh=%016x\n", page, kind, node.Count, node.Backref, xxhash.Checksum64(raw))
		for i := 0; i < node.Count; i++ {
			s := &node.Slots[i]
			if node.Leaf() {
				p("      %s\n", format(&s.Rec))
			} else {
				p("      %s -> %d\n", format(&s.Rec), s.Link)
			}
		}
		return nil
	})
	pln("  ---")
	return err
}

// FormatOffset renders a data file offset as file tag plus position.
func FormatOffset(off uint32) string {
	if off == 0 || off == OffIndex {
		return "(none)"
	}
	pos := off & 0x00FFFFFF
	switch off >> 24 {
	case 0x00:
		return fmt.Sprintf("nodelist@%d", pos)
	case 0x01:
		return fmt.Sprintf("fdnode#%d", pos)
	case 0x10:
		return fmt.Sprintf("fdnet@%d", pos)
	case 0x20:
		return fmt.Sprintf("fdpoint@%d", pos)
	}
	return fmt.Sprintf("%#08x", off)
}
