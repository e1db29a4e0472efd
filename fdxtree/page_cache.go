package fdx

import (
	"github.com/sirupsen/logrus"
)

// MaxCacheEntries bounds a page cache; larger requests disable it.
const MaxCacheEntries = 4096

// TouchClock hands out monotonically increasing touch stamps. One clock
// is shared by every cache of a tree set.
type TouchClock struct {
	now uint64
}

func (c *TouchClock) Tick() uint64 {
	c.now++
	return c.now
}

// RawWriter writes a page straight to the backing file.
type RawWriter func(page uint32, data []byte) error

type cacheSlot struct {
	page    uint32 // 0 = empty; page 0 is the stub and never cached
	data    []byte
	touched uint64
	dirty   bool
}

// PageCache is a fixed-capacity write-back page cache with least
// recently touched eviction. It is not safe for concurrent use.
type PageCache struct {
	slots []cacheSlot
	clock *TouchClock
	write RawWriter
	log   *logrus.Entry
}

// NewPageCache returns a cache of capacity pages. A capacity outside
// 1..MaxCacheEntries yields a CapacityExhausted error and no cache.
func NewPageCache(capacity int, clock *TouchClock, write RawWriter, log *logrus.Entry) (*PageCache, error) {
	if capacity <= 0 || capacity > MaxCacheEntries {
		return nil, Errorf(CapacityExhausted, "page cache", "capacity %d outside 1..%d, cache disabled", capacity, MaxCacheEntries)
	}
	if clock == nil {
		clock = &TouchClock{}
	}
	return &PageCache{
		slots: make([]cacheSlot, capacity),
		clock: clock,
		write: write,
		log:   log,
	}, nil
}

// Lookup returns a copy of the cached page and stamps its slot.
func (c *PageCache) Lookup(page uint32) ([]byte, bool) {
	if page == 0 {
		return nil, false
	}
	for i := range c.slots {
		s := &c.slots[i]
		if s.page == page {
			s.touched = c.clock.Tick()
			return append([]byte(nil), s.data...), true
		}
	}
	return nil, false
}

// Insert stores data for page. The page's own slot is reused first, then
// an empty slot, then the least recently touched one. A dirty victim is
// written back before it is replaced; if that write fails the insert
// still completes and the error is returned afterwards.
func (c *PageCache) Insert(page uint32, data []byte, dirty bool) error {
	if page == 0 {
		return Errorf(InvalidArgument, "cache insert", "page 0 is not cacheable")
	}

	victim := -1
	for i := range c.slots {
		if c.slots[i].page == page {
			victim = i
			dirty = dirty || c.slots[i].dirty
			break
		}
	}
	if victim < 0 {
		for i := range c.slots {
			if c.slots[i].page == 0 {
				victim = i
				break
			}
		}
	}

	var writeErr error
	if victim < 0 {
		victim = 0
		for i := 1; i < len(c.slots); i++ {
			if c.slots[i].touched < c.slots[victim].touched {
				victim = i
			}
		}
		old := &c.slots[victim]
		if old.dirty {
			if err := c.write(old.page, old.data); err != nil {
				writeErr = Wrap(IoFailure, "cache evict", err)
				if c.log != nil {
					c.log.WithField("page", old.page).Warnf("write-back on eviction failed, page contents lost: %v", err)
				}
			}
		}
	}

	s := &c.slots[victim]
	if s.page != page || s.data == nil {
		s.data = make([]byte, len(data))
	}
	copy(s.data, data)
	s.page = page
	s.dirty = dirty
	s.touched = c.clock.Tick()
	return writeErr
}

// FlushAll writes every dirty slot. All slots are attempted; the first
// failure is returned.
func (c *PageCache) FlushAll() error {
	var first error
	for i := range c.slots {
		s := &c.slots[i]
		if s.page == 0 || !s.dirty {
			continue
		}
		if err := c.write(s.page, s.data); err != nil {
			if first == nil {
				first = Wrap(IoFailure, "cache flush", err)
			}
			continue
		}
		s.dirty = false
	}
	return first
}

// Reset empties the cache without writing anything.
func (c *PageCache) Reset() {
	for i := range c.slots {
		c.slots[i] = cacheSlot{}
	}
}

// Len is the number of occupied slots.
func (c *PageCache) Len() int {
	n := 0
	for i := range c.slots {
		if c.slots[i].page != 0 {
			n++
		}
	}
	return n
}

func (c *PageCache) Capacity() int { return len(c.slots) }

// Dirty is the number of slots awaiting write-back.
func (c *PageCache) Dirty() int {
	n := 0
	for i := range c.slots {
		if c.slots[i].page != 0 && c.slots[i].dirty {
			n++
		}
	}
	return n
}
