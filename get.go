package bcache

import (
	"reflect"

	"github.com/hupe1980/bcache/device"
	"github.com/hupe1980/bcache/internal/lists"
	"github.com/hupe1980/bcache/internal/slot"
	"github.com/hupe1980/bcache/validator"
)

// GetFlags selects how Get prepares a block.
type GetFlags uint8

const (
	// Read returns the block's current contents.
	Read GetFlags = 0
	// Zero returns a zero-filled dirty block without reading the device.
	Zero GetFlags = 1 << 0
	// Dirty takes a write lock: the block is written back after release.
	Dirty GetFlags = 1 << 1
	// Barrier flushes the whole cache when the block is released.
	Barrier GetFlags = 1 << 2
)

// Get locks block index and returns a handle to it, reading it from the
// device on a miss. v interprets the block; nil means validator.Noop.
// Validators are compared with ==, typically as pointers. A validator of
// a non-comparable type never matches, so every Get re-checks the block.
//
// Get fails for out-of-bounds addresses, when no slot can be reclaimed,
// when the block's I/O failed, when v rejects the block, and when a Zero
// or Dirty request finds the block already held.
func (c *Cache) Get(index uint64, flags GetFlags, v validator.Validator) (*Block, error) {
	if v == nil {
		v = validator.Noop
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return nil, err
	}
	if err := c.checkIndex("get", index); err != nil {
		return nil, err
	}

	s, err := c.lookupOrRead(index, flags, v)
	if err != nil {
		return nil, err
	}

	if s.RefCount == 0 {
		c.nrLocked++
	}
	s.RefCount++

	if flags&Barrier != 0 {
		s.Set(slot.Flush)
	}
	if flags&Dirty != 0 {
		s.Set(slot.Dirty)
	}
	c.lists.MoveTo(s.ID, s.Category())

	return &Block{c: c, s: s, index: index}, nil
}

func (c *Cache) lookupOrRead(index uint64, flags GetFlags, v validator.Validator) (*slot.Slot, error) {
	if s, ok := c.pool.Find(index); ok {
		if s.Has(slot.IOPending) {
			c.recordGet(false, flags)
			if err := c.waitSpecific(s); err != nil {
				return nil, err
			}
		} else {
			c.recordGet(true, flags)
		}

		if s.Err != nil {
			return nil, &BlockError{Op: "get", Block: index, Err: s.Err}
		}
		if s.Locked() && flags&(Zero|Dirty) != 0 {
			return nil, &BlockError{Op: "get", Block: index, Err: ErrWriteLockConflict}
		}

		if flags&Zero != 0 {
			c.zero(s)
		} else if !sameValidator(s.V, v) {
			// Reinterpretation: bring the buffer to its on-disk form under
			// the old validator, then check it under the new one.
			if s.Has(slot.Dirty) {
				s.V.Prepare(s.Data, index)
			}
			if err := v.Check(s.Data, index); err != nil {
				return nil, &ValidationError{Block: index, Err: err}
			}
		}
		s.V = v
		return s, nil
	}

	c.recordGet(false, flags)

	s, err := c.newBlock(index, true)
	if err != nil {
		return nil, err
	}

	if flags&Zero != 0 {
		c.zero(s)
	} else {
		if err := c.issue(s, device.OpRead); err != nil {
			return nil, err
		}
		if err := c.waitSpecific(s); err != nil {
			return nil, err
		}
		if s.Err != nil {
			return nil, &BlockError{Op: "read", Block: index, Err: s.Err}
		}
		if err := v.Check(s.Data, index); err != nil {
			return nil, &ValidationError{Block: index, Err: err}
		}
	}
	s.V = v
	return s, nil
}

func sameValidator(a, b validator.Validator) bool {
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}
	return a == b
}

func (c *Cache) zero(s *slot.Slot) {
	c.stats.writeZeroes++
	clear(s.Data)
	s.Set(slot.Dirty)
}

// newBlock claims a slot for index and indexes it. With mayWait it writes
// back and waits for in-flight I/O to free a slot; without it only free
// and unused clean slots are considered.
func (c *Cache) newBlock(index uint64, mayWait bool) (*slot.Slot, error) {
	s, ok := c.pool.ClaimFree()
	if !ok {
		s, ok = c.findUnusedClean()
	}

	if !ok && mayWait {
		if c.engine.Pending() == 0 {
			if _, err := c.writeback(c.opts.writebackBatch); err != nil {
				return nil, err
			}
		}
		for !ok && c.engine.Pending() > 0 {
			if err := c.waitSome(); err != nil {
				return nil, err
			}
			s, ok = c.findUnusedClean()
		}
	}

	if !ok {
		return nil, &BlockError{Op: "get", Block: index, Err: ErrNoReclaimableBlock}
	}

	s.Reset(index, validator.Noop)
	c.pool.Insert(s)
	return s, nil
}

// findUnusedClean evicts the least recently used unlocked clean slot.
func (c *Cache) findUnusedClean() (*slot.Slot, bool) {
	var found *slot.Slot
	c.lists.Each(lists.Clean, func(id int32) bool {
		s := c.pool.Slot(id)
		if s.Locked() {
			return true
		}
		found = s
		return false
	})
	if found == nil {
		return nil, false
	}
	c.pool.Remove(found)
	c.lists.Unlink(found.ID)
	return found, true
}

// Prefetch starts reading block index without waiting for it. It does
// nothing if the block is cached or no slot is free or cleanly
// reclaimable; it never writes back or waits.
func (c *Cache) Prefetch(index uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return err
	}
	if err := c.checkIndex("prefetch", index); err != nil {
		return err
	}
	if _, ok := c.pool.Find(index); ok {
		return nil
	}

	s, err := c.newBlock(index, false)
	if err != nil {
		// No slot to spare; a later Get reads the block itself.
		return nil
	}
	c.stats.prefetches++
	return c.issue(s, device.OpRead)
}

// Discard drops block index from the cache without writing it back,
// clearing any I/O error so the next Get reads the device again. Dirty
// contents are lost. Discarding an uncached block is a no-op.
func (c *Cache) Discard(index uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return err
	}
	if err := c.checkIndex("discard", index); err != nil {
		return err
	}

	s, ok := c.pool.Find(index)
	if !ok {
		return nil
	}
	if s.Locked() || s.Has(slot.IOPending) {
		return &BlockError{Op: "discard", Block: index, Err: ErrBlockBusy}
	}
	if s.Has(slot.PreviouslyDirty) {
		c.nrDirty--
	}
	c.pool.Free(s)
	return nil
}
