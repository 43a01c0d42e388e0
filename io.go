package bcache

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bcache/device"
	"github.com/hupe1980/bcache/internal/aio"
	"github.com/hupe1980/bcache/internal/lists"
	"github.com/hupe1980/bcache/internal/slot"
)

// issue submits a transfer for s. Writes run the slot's validator first.
// A submission failure resolves the slot as errored immediately and is
// returned to the caller.
func (c *Cache) issue(s *slot.Slot, op device.Op) error {
	if s.Has(slot.IOPending) {
		panic(fmt.Sprintf("bcache: %s issued for block %d with i/o in flight", op, s.Index))
	}

	if op == device.OpWrite {
		s.V.Prepare(s.Data, s.Index)
		c.nrWritesPending++
	}
	s.Set(slot.IOPending)
	c.lists.MoveTo(s.ID, lists.IOPending)

	err := c.engine.Submit(aio.Request{
		Tag:    s.ID,
		Op:     op,
		Buf:    s.Data,
		Offset: int64(s.Index) * int64(c.blockSize),
	})
	if err != nil {
		err = submitError(err)
		c.opts.metricsCollector.RecordIO(op.String(), 0, err)
		c.resolve(s, op, err)
		return &BlockError{Op: op.String(), Block: s.Index, Err: err}
	}

	if op == device.OpWrite {
		c.stats.writes++
	} else {
		c.stats.reads++
	}
	return nil
}

// resolve finishes a transfer: the slot leaves the io-pending list for
// errored or clean. A successful write of a dirty block makes it clean.
func (c *Cache) resolve(s *slot.Slot, op device.Op, err error) {
	s.Clear(slot.IOPending)
	if op == device.OpWrite {
		c.nrWritesPending--
	}

	if err != nil {
		s.Err = err
		c.stats.ioErrors++
		c.opts.logger.LogIOError(op.String(), s.Index, err)
	} else {
		s.Err = nil
		if op == device.OpWrite && s.Has(slot.Dirty) {
			if s.Has(slot.PreviouslyDirty) {
				c.nrDirty--
			}
			s.Clear(slot.Dirty | slot.PreviouslyDirty)
		}
	}
	c.lists.MoveTo(s.ID, s.Category())
}

// complete resolves one completion. It returns an error only for a
// protocol violation, which also disables the cache.
func (c *Cache) complete(cp aio.Completion) error {
	s := c.pool.Slot(cp.Tag)
	c.opts.metricsCollector.RecordIO(cp.Op.String(), cp.Duration, cp.Err)

	switch {
	case cp.Err != nil:
		c.resolve(s, cp.Op, ioError(cp.Err))
		return nil
	case cp.N == c.blockSize:
		c.resolve(s, cp.Op, nil)
		return nil
	}

	perr := &ProtocolError{Op: cp.Op.String(), Block: s.Index, Got: cp.N, Want: c.blockSize}
	c.resolve(s, cp.Op, perr)
	if c.fatal == nil {
		c.fatal = perr
		c.opts.logger.LogProtocolViolation(perr)
	}
	return perr
}

// waitSome blocks for at least one completion and resolves every
// completion collected with it.
func (c *Cache) waitSome() error {
	if c.engine.Pending() == 0 {
		return nil
	}
	c.scratch = c.engine.Wait(c.scratch[:0])

	var fatal error
	for _, cp := range c.scratch {
		if err := c.complete(cp); err != nil && fatal == nil {
			fatal = err
		}
	}
	return fatal
}

// waitAll drains every pending transfer.
func (c *Cache) waitAll() error {
	for c.engine.Pending() > 0 {
		if err := c.waitSome(); err != nil {
			return err
		}
	}
	return nil
}

// waitSpecific waits until s has no transfer in flight. Completions for
// other slots seen on the way are resolved too.
func (c *Cache) waitSpecific(s *slot.Slot) error {
	for s.Has(slot.IOPending) {
		if c.engine.Pending() == 0 {
			return errors.New("bcache: slot marked pending with no transfer in flight")
		}
		if err := c.waitSome(); err != nil {
			return err
		}
	}
	return nil
}
