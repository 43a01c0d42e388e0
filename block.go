package bcache

import "github.com/hupe1980/bcache/internal/slot"

// Block is a locked cache block. The buffer stays valid and pinned until
// Release; the cache never writes back or reclaims a held block.
//
// A Block is owned by the goroutine that obtained it.
type Block struct {
	c        *Cache
	s        *slot.Slot
	index    uint64
	released bool
}

// Index returns the block address.
func (b *Block) Index() uint64 { return b.index }

// Data returns the block buffer, or nil after Release.
func (b *Block) Data() []byte {
	if b.released {
		return nil
	}
	return b.s.Data
}

// Release drops the lock. The last release of a dirty block queues it for
// writeback; a barrier flushes the whole cache.
func (b *Block) Release() error {
	if b.released {
		return &BlockError{Op: "release", Block: b.index, Err: ErrReleased}
	}
	b.released = true
	return b.c.release(b.s)
}

// Close is Release, so a Block can be deferred like any io.Closer.
func (b *Block) Close() error { return b.Release() }

func (c *Cache) release(s *slot.Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.RefCount <= 0 {
		return &BlockError{Op: "release", Block: s.Index, Err: ErrNotLocked}
	}
	s.RefCount--
	if s.RefCount > 0 {
		return nil
	}
	c.nrLocked--

	if s.Has(slot.Dirty) && !s.Has(slot.PreviouslyDirty) {
		c.lists.MoveTo(s.ID, s.Category())
		c.nrDirty++
		s.Set(slot.PreviouslyDirty)
	}

	barrier := s.Has(slot.Flush)
	s.Clear(slot.Flush)

	if err := c.usable(); err != nil {
		return err
	}
	switch {
	case barrier:
		return c.flush()
	case s.Has(slot.Dirty):
		return c.preemptiveWriteback()
	}
	return nil
}
