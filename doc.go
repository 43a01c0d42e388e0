// Package bcache provides a fixed-capacity, direct-I/O block cache.
//
// A Cache mediates every access to a block device: callers lock blocks by
// address, read or modify the locked buffer, and release it. The cache
// decides when to read from the device, when to write dirty blocks back
// and when a slot can be reused for another address.
//
// # Quick Start
//
//	dev, _ := device.OpenFile("/dev/vdb", device.ReadWrite|device.Direct)
//	c, _ := bcache.Open(dev, 8, nrBlocks, 64<<20) // 4 KiB blocks, 64 MiB of slots
//	defer c.Close()
//
//	b, err := c.Get(5, bcache.Dirty, nil)
//	if err != nil {
//	    return err
//	}
//	copy(b.Data(), payload)
//	b.Release()
//
//	if err := c.Flush(); err != nil {
//	    return err
//	}
//
// # Slots and Lists
//
// The memory budget is turned into a fixed number of page-aligned slots
// (never fewer than 16) in one allocation. Every occupied slot is on
// exactly one list: clean, dirty, errored or io-pending. Unused slots sit
// on the free list.
//
// A miss takes a free slot, or reclaims the least recently used clean slot
// nobody holds. If neither exists and nothing is in flight, a batch of
// dirty blocks is written back first; the miss then waits for completions
// until a slot turns clean. Locked blocks are never written back or
// reclaimed. When nothing can be reclaimed, Get fails with
// ErrNoReclaimableBlock rather than blocking.
//
// # Writeback
//
// Releasing a dirty block queues it for writeback. When fewer than a third
// of the slots are available (neither dirty nor being written), writes are
// issued until two thirds are. Flush writes everything unlocked and waits;
// a Barrier handle flushes on release.
//
// # Validators
//
// Each Get names a validator.Validator for the block. Prepare runs before
// every write, Check after every read and whenever a cached block is
// requested under a different validator.
//
// # Errors
//
// Failures are returned as *BlockError values naming the block and the
// operation; match causes with errors.Is (ErrOutOfBounds, ErrIO,
// ErrWriteLockConflict, ...). A block whose I/O failed stays in the errored
// state until Discard. A transfer that moves the wrong number of bytes
// without an error is a *ProtocolError: the cache refuses all further
// work with it.
//
// # Concurrency
//
// Methods are safe for concurrent use and serialize on a single lock held
// across I/O waits. Transfers run on the cache's worker goroutines.
package bcache
