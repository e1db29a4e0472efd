package fdx

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	written map[uint32][]byte
	fail    map[uint32]bool
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{written: map[uint32][]byte{}, fail: map[uint32]bool{}}
}

func (w *recordingWriter) write(page uint32, data []byte) error {
	if w.fail[page] {
		return errors.Errorf("disk full writing page %d", page)
	}
	w.written[page] = append([]byte(nil), data...)
	return nil
}

func page(b byte) []byte { return []byte{b, b, b, b} }

func TestPageCacheCapacity(t *testing.T) {
	_, err := NewPageCache(0, nil, nil, nil)
	assert.True(t, IsKind(err, CapacityExhausted))
	_, err = NewPageCache(MaxCacheEntries+1, nil, nil, nil)
	assert.True(t, IsKind(err, CapacityExhausted))

	c, err := NewPageCache(3, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Capacity())
	assert.Equal(t, 0, c.Len())
}

func TestPageCacheEvictsLeastRecentlyTouched(t *testing.T) {
	w := newRecordingWriter()
	c, err := NewPageCache(3, &TouchClock{}, w.write, nil)
	require.NoError(t, err)

	require.NoError(t, c.Insert(1, page(1), true))
	require.NoError(t, c.Insert(2, page(2), false))
	require.NoError(t, c.Insert(3, page(3), false))

	// touching 1 makes 2 the oldest
	_, ok := c.Lookup(1)
	require.True(t, ok)
	require.NoError(t, c.Insert(4, page(4), false))

	_, ok = c.Lookup(2)
	assert.False(t, ok)
	assert.Empty(t, w.written, "clean victim must not be written")

	// 3 is now the oldest, then 1 (dirty)
	require.NoError(t, c.Insert(5, page(5), false))
	require.NoError(t, c.Insert(6, page(6), false))
	assert.Equal(t, page(1), w.written[1], "dirty victim written back")
	assert.Equal(t, 3, c.Len())
}

func TestPageCacheOwnSlotKeepsDirtyBit(t *testing.T) {
	w := newRecordingWriter()
	c, err := NewPageCache(2, &TouchClock{}, w.write, nil)
	require.NoError(t, err)

	require.NoError(t, c.Insert(7, page(1), true))
	require.NoError(t, c.Insert(7, page(2), false))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Dirty())

	got, ok := c.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, page(2), got)

	require.NoError(t, c.FlushAll())
	assert.Equal(t, page(2), w.written[7])
	assert.Equal(t, 0, c.Dirty())
}

func TestPageCacheEvictionFailureKeepsFetchedPage(t *testing.T) {
	w := newRecordingWriter()
	w.fail[1] = true
	c, err := NewPageCache(1, &TouchClock{}, w.write, nil)
	require.NoError(t, err)

	require.NoError(t, c.Insert(1, page(1), true))
	err = c.Insert(2, page(2), false)
	assert.True(t, IsKind(err, IoFailure))

	got, ok := c.Lookup(2)
	require.True(t, ok, "the inserted page survives a failed write-back")
	assert.Equal(t, page(2), got)
	_, ok = c.Lookup(1)
	assert.False(t, ok, "the evicted page's data is lost")
}

func TestPageCacheLookupReturnsCopy(t *testing.T) {
	c, err := NewPageCache(2, nil, newRecordingWriter().write, nil)
	require.NoError(t, err)
	require.NoError(t, c.Insert(1, page(1), false))

	got, _ := c.Lookup(1)
	got[0] = 99
	again, _ := c.Lookup(1)
	assert.Equal(t, page(1), again)

	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.Error(t, c.Insert(0, page(0), false))
}

func TestTouchClockSharedAcrossCaches(t *testing.T) {
	clock := &TouchClock{}
	a, err := NewPageCache(1, clock, newRecordingWriter().write, nil)
	require.NoError(t, err)
	b, err := NewPageCache(1, clock, newRecordingWriter().write, nil)
	require.NoError(t, err)

	require.NoError(t, a.Insert(1, page(1), false))
	require.NoError(t, b.Insert(1, page(1), false))
	assert.Equal(t, uint64(2), clock.now)
}
