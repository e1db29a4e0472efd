package nodelist

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	fdx "NodelistDB/fdxtree"
	"NodelistDB/logger"
)

/*

Semaphore directory
────────────────────────────────────
FDNC.NOW        compiler running, everyone freezes
FDNLFREZ.ALL    freeze every task
FDNLFREZ.<task> freeze one task
FDNODE<i>.<tag> busy marker of one open instance, i = 0..ff,
                tag = task number or BSY
────────────────────────────────────

*/

const (
	maxInstance = 0xFF
	noInstance  = -1
)

// FreezeState is the outcome of one AutoFreezeThaw poll.
type FreezeState int

const (
	StayedFrozen FreezeState = iota
	StayedOpen
	JustFrozen
	JustThawed
	ThawFailed
)

func (s FreezeState) String() string {
	switch s {
	case StayedFrozen:
		return "stayed frozen"
	case StayedOpen:
		return "stayed open"
	case JustFrozen:
		return "frozen"
	case JustThawed:
		return "thawed"
	case ThawFailed:
		return "thaw failed"
	}
	return "unknown"
}

func (n *Nodelist) semaphoreDir() string { return n.cfg.SemaphoreDir }

func (n *Nodelist) taskTag() string {
	if n.cfg.Task == 0 {
		return "BSY"
	}
	return strconv.Itoa(int(n.cfg.Task))
}

// freezeRequested reports whether any marker asks this task to freeze.
func (n *Nodelist) freezeRequested() bool {
	dir := n.semaphoreDir()
	for _, name := range []string{"FDNC.NOW", "FDNLFREZ.ALL", "FDNLFREZ." + strconv.Itoa(int(n.cfg.Task))} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// AutoFreezeThaw polls the semaphore directory and freezes or thaws the
// set to follow it. Applications call it periodically. Without a
// semaphore directory it only reports the current state.
func (n *Nodelist) AutoFreezeThaw() (FreezeState, error) {
	if n.closed {
		return StayedFrozen, n.check("auto freeze")
	}
	want := n.semaphoreDir() != "" && n.freezeRequested()
	switch {
	case want && n.frozen:
		return StayedFrozen, nil
	case want:
		return JustFrozen, n.Freeze()
	case n.frozen:
		if err := n.Thaw(); err != nil {
			return ThawFailed, err
		}
		return JustThawed, nil
	}
	return StayedOpen, nil
}

// Instance is the number of this set's busy marker, or -1 without one.
func (n *Nodelist) Instance() int { return n.instance }

// createInstance claims the first free busy marker. Running out of
// markers is recorded but does not stop the set from opening.
func (n *Nodelist) createInstance() {
	n.instance = noInstance
	dir := n.semaphoreDir()
	if dir == "" {
		return
	}
	for i := 0; i <= maxInstance; i++ {
		path := filepath.Join(dir, fmt.Sprintf("FDNODE%x.%s", i, n.taskTag()))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			n.errors.Signal(fdx.Wrap(fdx.IoFailure, "create instance", errors.Wrapf(err, "create %s", path)))
			logger.Warnf("busy semaphore %s: %v", path, err)
			return
		}
		f.Close()
		n.instance = i
		n.log.Debugf("busy semaphore %s", path)
		return
	}
	n.errors.Signal(fdx.Errorf(fdx.IoFailure, "create instance", "all %d busy semaphores in %s taken", maxInstance+1, dir))
	logger.Warnf("no free busy semaphore in %s", dir)
}

func (n *Nodelist) deleteInstance() {
	if n.instance == noInstance {
		return
	}
	path := filepath.Join(n.semaphoreDir(), fmt.Sprintf("FDNODE%x.%s", n.instance, n.taskTag()))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warnf("remove busy semaphore %s: %v", path, err)
	}
	n.instance = noInstance
}
