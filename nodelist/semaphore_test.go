package nodelist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NodelistDB/config"
	fdx "NodelistDB/fdxtree"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, nil, 0644))
}

func TestAutoFreezeThaw(t *testing.T) {
	sem := t.TempDir()
	n := newNodelist(t, func(cfg *config.Cfg) {
		cfg.SemaphoreDir = sem
		cfg.Task = 3
	})
	seedScenario(t, n)
	assert.Equal(t, 0, n.Instance())
	assert.FileExists(t, filepath.Join(sem, "FDNODE0.3"))

	state, err := n.AutoFreezeThaw()
	require.NoError(t, err)
	assert.Equal(t, StayedOpen, state)

	// another task's marker is ignored
	touch(t, filepath.Join(sem, "FDNLFREZ.4"))
	state, err = n.AutoFreezeThaw()
	require.NoError(t, err)
	assert.Equal(t, StayedOpen, state)

	for _, marker := range []string{"FDNLFREZ.3", "FDNLFREZ.ALL", "FDNC.NOW"} {
		path := filepath.Join(sem, marker)
		touch(t, path)

		state, err = n.AutoFreezeThaw()
		require.NoError(t, err, marker)
		assert.Equal(t, JustFrozen, state, marker)
		assert.True(t, n.IsFrozen())
		assert.Equal(t, noInstance, n.Instance())
		assert.NoFileExists(t, filepath.Join(sem, "FDNODE0.3"))

		state, err = n.AutoFreezeThaw()
		require.NoError(t, err)
		assert.Equal(t, StayedFrozen, state, marker)

		require.NoError(t, os.Remove(path))
		state, err = n.AutoFreezeThaw()
		require.NoError(t, err)
		assert.Equal(t, JustThawed, state, marker)
		assert.False(t, n.IsFrozen())
		assert.FileExists(t, filepath.Join(sem, "FDNODE0.3"))
	}

	c, err := n.Find(at(1, 1, 1, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, Active, c.State())
}

func TestAutoFreezeThawFailedThaw(t *testing.T) {
	sem := t.TempDir()
	n := newNodelist(t, func(cfg *config.Cfg) { cfg.SemaphoreDir = sem })
	seedScenario(t, n)

	marker := filepath.Join(sem, "FDNLFREZ.ALL")
	touch(t, marker)
	state, err := n.AutoFreezeThaw()
	require.NoError(t, err)
	require.Equal(t, JustFrozen, state)

	f, err := os.OpenFile(filepath.Join(n.Config().Dir, fdx.UserTree.FileName()), os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0x10}, 4) // page length
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, os.Remove(marker))
	state, err = n.AutoFreezeThaw()
	assert.Error(t, err)
	assert.True(t, fdx.IsKind(err, fdx.FormatMismatch))
	assert.Equal(t, ThawFailed, state)
	assert.True(t, n.IsFrozen())
	assert.Equal(t, noInstance, n.Instance())
}

func TestBusyInstances(t *testing.T) {
	sem := t.TempDir()
	touch(t, filepath.Join(sem, "FDNODE0.BSY"))
	touch(t, filepath.Join(sem, "FDNODE1.BSY"))

	n := newNodelist(t, func(cfg *config.Cfg) { cfg.SemaphoreDir = sem })
	assert.Equal(t, 2, n.Instance())
	assert.FileExists(t, filepath.Join(sem, "FDNODE2.BSY"))

	require.NoError(t, n.Close())
	assert.NoFileExists(t, filepath.Join(sem, "FDNODE2.BSY"))
	assert.FileExists(t, filepath.Join(sem, "FDNODE0.BSY"))
}

func TestNoSemaphoreDir(t *testing.T) {
	n := newNodelist(t, nil)
	assert.Equal(t, noInstance, n.Instance())
	state, err := n.AutoFreezeThaw()
	require.NoError(t, err)
	assert.Equal(t, StayedOpen, state)

	require.NoError(t, n.Freeze())
	state, err = n.AutoFreezeThaw()
	require.NoError(t, err)
	assert.Equal(t, JustThawed, state)
}
