package bcache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/bcache/device"
	"github.com/hupe1980/bcache/internal/aio"
	"github.com/hupe1980/bcache/internal/conv"
	"github.com/hupe1980/bcache/internal/lists"
	"github.com/hupe1980/bcache/internal/mem"
	"github.com/hupe1980/bcache/internal/slot"
)

// SectorShift converts a sector count to bytes.
const SectorShift = 9

// MaxBlockSectors bounds the block size at 16 MiB. With the slot floor
// the smallest pool is then 256 MiB.
const MaxBlockSectors = 1 << 15

const maxInt = int(^uint(0) >> 1)

// Cache is a fixed-capacity block cache over a device.
//
// All methods are safe for concurrent use; they serialize on one lock,
// which is also held while waiting for I/O.
type Cache struct {
	mu sync.Mutex

	dev    device.Device
	engine *aio.Engine
	pool   *slot.Pool
	lists  *lists.Manager
	memory []byte

	blockSize int
	nrBlocks  uint64
	capacity  int
	reserved  int64

	nrLocked        int
	nrDirty         int // slots accounted on the dirty list
	nrWritesPending int

	stats   counters
	scratch []aio.Completion

	fatal  error
	closed bool

	opts options
}

// Open builds a cache over dev. Block size is blockSectors 512-byte
// sectors; nrBlocks bounds the valid addresses. The slot count is derived
// from memBudget, with a floor of 16 slots.
func Open(dev device.Device, blockSectors uint32, nrBlocks uint64, memBudget int64, optFns ...Option) (*Cache, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrInvalidArgument)
	}
	if blockSectors == 0 {
		return nil, fmt.Errorf("%w: block size must be at least one sector", ErrInvalidArgument)
	}
	if blockSectors > MaxBlockSectors {
		return nil, fmt.Errorf("%w: block size of %d sectors exceeds %d", ErrInvalidArgument, blockSectors, MaxBlockSectors)
	}
	if nrBlocks == 0 {
		return nil, fmt.Errorf("%w: device has no blocks", ErrInvalidArgument)
	}

	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}

	blockSize := int(blockSectors) << SectorShift
	if _, err := conv.Offset(nrBlocks, blockSize); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	capacity := slot.Capacity(memBudget, blockSize)
	poolBytes := int64(capacity) * int64(blockSize)
	if poolBytes > int64(maxInt-mem.PageSize) {
		return nil, fmt.Errorf("%w: pool of %d slots of %d bytes is not addressable", ErrInvalidArgument, capacity, blockSize)
	}

	if err := o.resources.AcquireMemory(poolBytes); err != nil {
		return nil, fmt.Errorf("reserve %d bytes for %d slots: %w", poolBytes, capacity, err)
	}

	memory := mem.AllocAligned(capacity*blockSize, mem.PageSize)
	if memory == nil {
		o.resources.ReleaseMemory(poolBytes)
		return nil, fmt.Errorf("allocate %d slots of %d bytes failed", capacity, blockSize)
	}
	pool := slot.NewPool(mem.Split(memory, capacity, blockSize))

	engine, err := aio.New(dev, aio.Config{
		Workers:    o.ioWorkers,
		Depth:      capacity,
		Controller: o.resources,
	})
	if err != nil {
		o.resources.ReleaseMemory(poolBytes)
		return nil, fmt.Errorf("start i/o engine: %w", err)
	}

	c := &Cache{
		dev:       dev,
		engine:    engine,
		pool:      pool,
		lists:     pool.Lists(),
		memory:    memory,
		blockSize: blockSize,
		nrBlocks:  nrBlocks,
		capacity:  capacity,
		reserved:  poolBytes,
		scratch:   make([]aio.Completion, 0, capacity),
		opts:      o,
	}

	o.logger.Debug("cache opened",
		"block_size", blockSize,
		"nr_blocks", nrBlocks,
		"slots", capacity,
	)
	return c, nil
}

// BlockSize returns the block size in bytes.
func (c *Cache) BlockSize() int { return c.blockSize }

// NrBlocks returns the number of addressable blocks.
func (c *Cache) NrBlocks() uint64 { return c.nrBlocks }

// Capacity returns the number of slots.
func (c *Cache) Capacity() int { return c.capacity }

// NrLocked returns the number of slots with outstanding handles.
func (c *Cache) NrLocked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nrLocked
}

// Close flushes dirty blocks, drains pending I/O, stops the engine,
// returns the memory budget and closes the device. It fails with
// ErrBlocksLocked, leaving the cache usable, while handles are held.
//
// After a protocol violation nothing is flushed; Close still tears down
// and returns the violation.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.nrLocked > 0 {
		return fmt.Errorf("%w: %d", ErrBlocksLocked, c.nrLocked)
	}

	var errs []error
	if c.fatal == nil {
		if err := c.flush(); err != nil {
			errs = append(errs, err)
		}
	} else {
		errs = append(errs, c.fatal)
	}

	if err := c.engine.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.fatal == nil {
		if err := c.dev.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync device: %w", err))
		}
	}
	if err := c.dev.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close device: %w", err))
	}

	c.opts.resources.ReleaseMemory(c.reserved)
	c.memory = nil
	c.closed = true

	err := errors.Join(errs...)
	c.opts.logger.LogClose(c.snapshot(), err)
	return err
}

// usable reports why the cache cannot serve a request, if it cannot.
func (c *Cache) usable() error {
	if c.closed {
		return ErrClosed
	}
	return c.fatal
}

func (c *Cache) checkIndex(op string, index uint64) error {
	if index >= c.nrBlocks {
		return &BlockError{
			Op:    op,
			Block: index,
			Err:   fmt.Errorf("%w (%d >= %d)", ErrOutOfBounds, index, c.nrBlocks),
		}
	}
	return nil
}
