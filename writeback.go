package bcache

import (
	"errors"
	"time"

	"github.com/hupe1980/bcache/device"
	"github.com/hupe1980/bcache/internal/lists"
)

// Flush writes every unlocked dirty block, waits for all I/O to finish
// and reports every block left in the errored state. Locked dirty blocks
// are skipped and stay dirty.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return err
	}
	return c.flush()
}

func (c *Cache) flush() error {
	start := time.Now()
	issued := 0

	// Submission failures land the block on the errored list, which is
	// reported below.
	c.lists.Each(lists.Dirty, func(id int32) bool {
		s := c.pool.Slot(id)
		if s.Locked() {
			return true
		}
		if c.issue(s, device.OpWrite) == nil {
			issued++
		}
		return true
	})

	var errs []error
	if err := c.waitAll(); err != nil {
		errs = append(errs, err)
	}
	c.lists.Each(lists.Errored, func(id int32) bool {
		s := c.pool.Slot(id)
		errs = append(errs, &BlockError{Op: "flush", Block: s.Index, Err: s.Err})
		return true
	})

	err := errors.Join(errs...)
	d := time.Since(start)
	c.opts.metricsCollector.RecordFlush(issued, d, err)
	c.opts.logger.LogFlush(issued, d, err)
	return err
}

// Writeback issues writes for up to limit unlocked dirty blocks, least
// recently used first, and returns how many it issued. It does not wait
// for them.
func (c *Cache) Writeback(limit int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return 0, err
	}
	return c.writeback(limit)
}

func (c *Cache) writeback(limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}

	issued := 0
	var err error
	c.lists.Each(lists.Dirty, func(id int32) bool {
		s := c.pool.Slot(id)
		if s.Locked() {
			return true
		}
		if err = c.issue(s, device.OpWrite); err != nil {
			return false
		}
		issued++
		return issued < limit
	})

	if issued > 0 {
		c.opts.metricsCollector.RecordWriteback(issued)
	}
	c.opts.logger.LogWriteback(limit, issued, err)
	return issued, err
}

// preemptiveWriteback starts writeback when the slots that are neither
// dirty nor being written fall under the low water mark, aiming for the
// high water mark.
func (c *Cache) preemptiveWriteback() error {
	available := c.capacity - (c.nrDirty - c.nrWritesPending)
	low := c.opts.writebackLow * c.capacity / 100
	if available >= low {
		return nil
	}
	high := c.opts.writebackHigh * c.capacity / 100
	_, err := c.writeback(high - available)
	return err
}
