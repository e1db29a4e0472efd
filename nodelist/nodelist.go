package nodelist

import (
	"github.com/sirupsen/logrus"

	"NodelistDB/config"
	dm "NodelistDB/datafile_manager"
	fdx "NodelistDB/fdxtree"
	"NodelistDB/logger"
)

type (
	nodeTree  = fdx.Tree[fdx.AddressRecord, fdx.AddressLayout]
	userTree  = fdx.Tree[fdx.UserRecord, fdx.UserLayout]
	phoneTree = fdx.Tree[fdx.PhoneRecord, fdx.PhoneLayout]
)

// Nodelist is the set of three indices over one nodelist directory plus
// the data files they point into. It is not safe for concurrent use.
type Nodelist struct {
	cfg  *config.Cfg
	mode fdx.OpenMode

	clock  fdx.TouchClock
	errors fdx.ErrorState

	nodes  *nodeTree
	users  *userTree
	phones *phoneTree
	data   *dm.Manager

	resolver   *resolver
	frozen     bool
	closed     bool
	generation uint64
	defaults   phoneDefaults
	instance   int

	log *logrus.Entry
}

// Open opens or creates the index set described by cfg. Destroy starts
// every index and the internal data files from scratch; later thaws
// reopen them for update.
func Open(cfg *config.Cfg, mode fdx.OpenMode) (*Nodelist, error) {
	if cfg == nil {
		cfg = config.NewCfg()
	}
	cfg.Normalize()
	n := &Nodelist{
		cfg:      cfg,
		mode:     mode,
		instance: noInstance,
		log:      logger.Logger.WithField("dir", cfg.Dir),
	}

	res, err := newResolver(cfg.RecordCacheItems)
	if err != nil {
		return nil, err
	}
	n.resolver = res

	if err := n.open(mode); err != nil {
		n.resolver.Close()
		return nil, err
	}
	n.generation = 1
	n.resolver.reset(n.data, n.Revision(), n.generation)
	n.createInstance()
	return n, nil
}

// open opens the data manager and the three trees and checks headers.
// On failure everything opened so far is closed again.
func (n *Nodelist) open(mode fdx.OpenMode) (err error) {
	data, err := dm.NewManager(n.cfg.Dir, n.cfg.Extension, mode == fdx.ReadOnly)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			n.closeTrees()
			data.CloseAll()
			n.data = nil
		}
	}()
	n.data = data

	if mode == fdx.Destroy {
		for _, id := range []dm.FileID{dm.FDNodeFile, dm.PhoneFile} {
			if err := data.Truncate(id); err != nil {
				return err
			}
		}
	}

	header := fdx.NewNodelistInfo(n.cfg.CountryCode, n.cfg.Extension, n.cfg.Swedish, n.cfg.LegacyRevision)
	if n.nodes, err = openTree[fdx.AddressRecord](n, fdx.AddressLayout{}, mode, header,
		n.cfg.AddressPromote, n.cfg.AddressCachePages); err != nil {
		return err
	}
	if n.users, err = openTree[fdx.UserRecord](n, fdx.UserLayout{}, mode, header,
		n.cfg.UserPromote, n.cfg.UserCachePages); err != nil {
		return err
	}
	// the phone index is never cached
	if n.phones, err = openTree[fdx.PhoneRecord](n, fdx.PhoneLayout{}, mode, header,
		n.cfg.PhonePromote, 0); err != nil {
		return err
	}

	if h := n.nodes.Header(); h.RevisionMaj != fdx.RevisionMajor {
		err = fdx.Errorf(fdx.FormatMismatch, "open", "%s revision %d.%d, expected major %d",
			fdx.NodeTree.FileName(), h.RevisionMaj, h.RevisionMin, fdx.RevisionMajor)
		logger.Errorf("%v", err)
		return err
	}

	n.defaults, err = n.loadDefaults()
	return err
}

func openTree[R any, L fdx.PageLayout[R]](n *Nodelist, layout L, mode fdx.OpenMode, header fdx.NodelistInfo,
	promote, cachePages int) (*fdx.Tree[R, L], error) {
	path := n.cfg.Dir + "/" + layout.Kind().FileName()
	pager, err := fdx.NewOnDiskPager(path, fdx.PageSizeFor(layout.RecordSize()), mode)
	if err != nil {
		return nil, err
	}
	tree, err := fdx.OpenTree[R](layout, pager, fdx.Options{
		Promote:    promote,
		UseDupes:   n.cfg.UseDupes,
		CachePages: cachePages,
		ReadOnly:   mode == fdx.ReadOnly,
		Clock:      &n.clock,
		Errors:     &n.errors,
		Header:     header,
		Log:        logger.ForTree(layout.Kind().String()),
	})
	if err != nil {
		pager.Close()
		if fdx.IsKind(err, fdx.FormatMismatch) {
			logger.Errorf("%s: %v", path, err)
		}
		return nil, err
	}
	return tree, nil
}

func (n *Nodelist) closeTrees() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if n.nodes != nil {
		keep(n.nodes.Close())
		n.nodes = nil
	}
	if n.users != nil {
		keep(n.users.Close())
		n.users = nil
	}
	if n.phones != nil {
		keep(n.phones.Close())
		n.phones = nil
	}
	return first
}

// check fails every operation on a frozen or closed set.
func (n *Nodelist) check(op string) error {
	if n.closed {
		return n.errors.Signal(fdx.Errorf(fdx.StructuralCorruption, op, "nodelist is closed"))
	}
	if n.frozen {
		return n.errors.Signal(fdx.Errorf(fdx.FormatMismatch, op, "nodelist is frozen"))
	}
	return nil
}

func (n *Nodelist) checkWritable(op string) error {
	if err := n.check(op); err != nil {
		return err
	}
	if n.mode == fdx.ReadOnly {
		return n.errors.Signal(fdx.Errorf(fdx.IoFailure, op, "nodelist is open read-only"))
	}
	return nil
}

// Freeze writes every dirty page and both stubs, closes all files and
// drops resolved records, so another process may replace the files.
func (n *Nodelist) Freeze() error {
	if n.closed {
		return n.check("freeze")
	}
	if n.frozen {
		return nil
	}
	err := n.closeTrees()
	if n.data != nil {
		if cerr := n.data.CloseAll(); cerr != nil && err == nil {
			err = cerr
		}
		n.data = nil
	}
	n.resolver.Clear()
	n.deleteInstance()
	n.frozen = true
	logger.Infof("nodelist %s frozen", n.cfg.Dir)
	return n.errors.Signal(err)
}

// Thaw reopens the files and revalidates every header. On a mismatch the
// set stays frozen. A successful thaw invalidates all cursors.
func (n *Nodelist) Thaw() error {
	if n.closed {
		return n.check("thaw")
	}
	if !n.frozen {
		return nil
	}
	mode := fdx.Update
	if n.mode == fdx.ReadOnly {
		mode = fdx.ReadOnly
	}
	if err := n.open(mode); err != nil {
		logger.Errorf("thaw %s failed, staying frozen: %v", n.cfg.Dir, err)
		return n.errors.Signal(err)
	}
	n.frozen = false
	n.generation++
	n.resolver.reset(n.data, n.Revision(), n.generation)
	n.createInstance()
	logger.Infof("nodelist %s thawed, generation %d", n.cfg.Dir, n.generation)
	return nil
}

func (n *Nodelist) IsFrozen() bool { return n.frozen }

// Close freezes the set for good.
func (n *Nodelist) Close() error {
	if n.closed {
		return nil
	}
	err := n.Freeze()
	n.resolver.Close()
	n.closed = true
	return err
}

// Flush writes dirty pages and stubs without closing anything.
func (n *Nodelist) Flush() error {
	if err := n.checkWritable("flush"); err != nil {
		return err
	}
	for _, f := range []func() error{n.nodes.Flush, n.users.Flush, n.phones.Flush} {
		if err := f(); err != nil {
			return n.errors.Signal(err)
		}
	}
	return nil
}

// SetTreeFlags sets one index's duplicate policy and split pivot.
func (n *Nodelist) SetTreeFlags(kind fdx.TreeKind, useDupes bool, promote int) error {
	if err := n.check("set tree flags"); err != nil {
		return err
	}
	switch kind {
	case fdx.NodeTree:
		return n.errors.Signal(n.nodes.SetFlags(useDupes, promote))
	case fdx.UserTree:
		return n.errors.Signal(n.users.SetFlags(useDupes, promote))
	case fdx.PhoneTree:
		return n.errors.Signal(n.phones.SetFlags(useDupes, promote))
	}
	return n.errors.Signal(fdx.Errorf(fdx.InvalidArgument, "set tree flags", "unknown tree %d", kind))
}

func (n *Nodelist) Info(kind fdx.TreeKind) (fdx.Info, error) {
	if err := n.check("info"); err != nil {
		return fdx.Info{}, err
	}
	switch kind {
	case fdx.NodeTree:
		return n.nodes.Info(), nil
	case fdx.UserTree:
		return n.users.Info(), nil
	case fdx.PhoneTree:
		return n.phones.Info(), nil
	}
	return fdx.Info{}, n.errors.Signal(fdx.Errorf(fdx.InvalidArgument, "info", "unknown tree %d", kind))
}

// Header is the NODELIST.FDX secondary header block.
func (n *Nodelist) Header() fdx.NodelistInfo {
	if n.nodes == nil {
		return fdx.NodelistInfo{}
	}
	return n.nodes.Header()
}

// Revision selects the speed and flag tables of FDNODE.FDA records.
func (n *Nodelist) Revision() int { return n.Header().Revision() }

// GetError returns the last error recorded by any operation.
func (n *Nodelist) GetError() error { return n.errors.Last() }

func (n *Nodelist) ClearError() { n.errors.Clear() }

// Data exposes the backing data files, for writers appending lines.
func (n *Nodelist) Data() *dm.Manager { return n.data }

func (n *Nodelist) Config() *config.Cfg { return n.cfg }

func (n *Nodelist) Generation() uint64 { return n.generation }
