package bcache

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hupe1980/bcache/device"
	"github.com/hupe1980/bcache/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSectors   = 8
	testBlockSize = testSectors << SectorShift
	testBlocks    = 1000
)

func newFaulty(t *testing.T) (*device.Memory, *device.Faulty) {
	t.Helper()
	mem := device.NewMemory(testBlocks * testBlockSize)
	return mem, device.NewFaulty(mem, testBlockSize)
}

// openTest opens a 16-slot cache over dev.
func openTest(t *testing.T, dev device.Device, opts ...Option) *Cache {
	t.Helper()
	c, err := Open(dev, testSectors, testBlocks, 0, opts...)
	require.NoError(t, err)
	require.Equal(t, 16, c.Capacity())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func pattern(b byte) []byte {
	return bytes.Repeat([]byte{b}, testBlockSize)
}

func fill(t *testing.T, dev device.Device, n int) {
	t.Helper()
	for i := range n {
		_, err := dev.WriteAt(pattern(byte(i)), int64(i)*testBlockSize)
		require.NoError(t, err)
	}
}

func onDevice(mem *device.Memory, index uint64) []byte {
	off := index * testBlockSize
	return mem.Bytes()[off : off+testBlockSize]
}

func TestReadAfterWrite(t *testing.T) {
	mem, dev := newFaulty(t)
	c := openTest(t, dev)

	b, err := c.Get(5, Dirty, nil)
	require.NoError(t, err)
	copy(b.Data(), pattern(0xAB))
	require.NoError(t, b.Release())

	b, err = c.Get(5, Read, nil)
	require.NoError(t, err)
	assert.Equal(t, pattern(0xAB), b.Data())
	require.NoError(t, b.Release())

	require.NoError(t, c.Flush())
	assert.Equal(t, pattern(0xAB), onDevice(mem, 5))
}

func TestGetReleaseLeavesBlockClean(t *testing.T) {
	_, dev := newFaulty(t)
	c := openTest(t, dev)

	b, err := c.Get(7, Read, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), b.Index())
	assert.Equal(t, 1, c.NrLocked())
	require.NoError(t, b.Release())

	want := Stats{
		ReadMisses: 1,
		Reads:      1,
		Capacity:   16,
		Clean:      1,
		Free:       15,
	}
	if diff := cmp.Diff(want, c.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestOutOfBounds(t *testing.T) {
	_, dev := newFaulty(t)
	c := openTest(t, dev)

	_, err := c.Get(testBlocks, Read, nil)
	require.ErrorIs(t, err, ErrOutOfBounds)

	var be *BlockError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, uint64(testBlocks), be.Block)
	assert.Equal(t, "get", be.Op)

	assert.ErrorIs(t, c.Prefetch(testBlocks), ErrOutOfBounds)
	assert.ErrorIs(t, c.Discard(testBlocks+1), ErrOutOfBounds)

	assert.Zero(t, dev.Reads())
	assert.Zero(t, dev.Writes())
}

func TestNoReclaimableBlock(t *testing.T) {
	_, dev := newFaulty(t)
	c := openTest(t, dev)

	held := make([]*Block, 0, 16)
	for i := range 16 {
		b, err := c.Get(uint64(i), Dirty, nil)
		require.NoError(t, err)
		held = append(held, b)
	}
	reads := dev.Reads()

	_, err := c.Get(16, Read, nil)
	require.ErrorIs(t, err, ErrNoReclaimableBlock)
	assert.Equal(t, reads, dev.Reads())
	assert.Zero(t, dev.Writes())

	for _, b := range held {
		require.NoError(t, b.Release())
	}

	b, err := c.Get(16, Read, nil)
	require.NoError(t, err)
	require.NoError(t, b.Release())
}

func TestWriteLockConflict(t *testing.T) {
	_, dev := newFaulty(t)
	c := openTest(t, dev)

	r1, err := c.Get(3, Read, nil)
	require.NoError(t, err)
	copy(r1.Data(), pattern(0x11))

	_, err = c.Get(3, Dirty, nil)
	assert.ErrorIs(t, err, ErrWriteLockConflict)

	// The conflict is detected before zeroing.
	_, err = c.Get(3, Zero, nil)
	assert.ErrorIs(t, err, ErrWriteLockConflict)
	assert.Equal(t, pattern(0x11), r1.Data())

	// Shared read locks are allowed.
	r2, err := c.Get(3, Read, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.NrLocked())

	require.NoError(t, r1.Release())
	require.NoError(t, r2.Release())
	assert.Zero(t, c.NrLocked())

	w, err := c.Get(3, Dirty, nil)
	require.NoError(t, err)
	_, err = c.Get(3, Dirty, nil)
	assert.ErrorIs(t, err, ErrWriteLockConflict)
	require.NoError(t, w.Close())
}

func TestDoubleRelease(t *testing.T) {
	_, dev := newFaulty(t)
	c := openTest(t, dev)

	b, err := c.Get(1, Read, nil)
	require.NoError(t, err)
	require.NoError(t, b.Release())

	assert.ErrorIs(t, b.Release(), ErrReleased)
	assert.ErrorIs(t, b.Close(), ErrReleased)
	assert.Nil(t, b.Data())
	assert.Zero(t, c.NrLocked())
}

func TestFlushIdempotent(t *testing.T) {
	mem, dev := newFaulty(t)
	c := openTest(t, dev)

	for i := range 10 {
		b, err := c.Get(uint64(i), Zero, nil)
		require.NoError(t, err)
		copy(b.Data(), pattern(byte(i+1)))
		require.NoError(t, b.Release())
	}

	require.NoError(t, c.Flush())
	assert.Equal(t, int64(10), dev.Writes())
	assert.Zero(t, dev.Reads())

	st := c.Stats()
	assert.Zero(t, st.Dirty)
	assert.Zero(t, st.IOPending)
	assert.Equal(t, 10, st.Clean)
	for i := range 10 {
		assert.Equal(t, pattern(byte(i+1)), onDevice(mem, uint64(i)))
	}

	require.NoError(t, c.Flush())
	assert.Equal(t, int64(10), dev.Writes())
}

func TestFlushSkipsLockedBlocks(t *testing.T) {
	_, dev := newFaulty(t)
	c := openTest(t, dev)

	b, err := c.Get(1, Zero, nil)
	require.NoError(t, err)
	require.NoError(t, b.Release())

	b, err = c.Get(1, Read, nil)
	require.NoError(t, err)

	require.NoError(t, c.Flush())
	assert.Zero(t, dev.Writes())
	assert.Equal(t, 1, c.Stats().Dirty)

	require.NoError(t, b.Release())
	require.NoError(t, c.Flush())
	assert.Equal(t, int64(1), dev.Writes())
	assert.Zero(t, c.Stats().Dirty)
}

func TestWritebackLimit(t *testing.T) {
	_, dev := newFaulty(t)
	c := openTest(t, dev, WithWritebackThresholds(0, 0))

	for i := range 10 {
		b, err := c.Get(uint64(i), Zero, nil)
		require.NoError(t, err)
		require.NoError(t, b.Release())
	}
	assert.Zero(t, c.Stats().Writes)

	n, err := c.Writeback(3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	st := c.Stats()
	assert.Equal(t, uint64(3), st.Writes)
	assert.Equal(t, 3, st.IOPending)

	// A held dirty block is skipped.
	held, err := c.Get(5, Read, nil)
	require.NoError(t, err)

	n, err = c.Writeback(100)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = c.Writeback(0)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, c.Flush())
	assert.Equal(t, uint64(9), c.Stats().Writes)
	assert.Equal(t, 1, c.Stats().Dirty)

	require.NoError(t, held.Release())
	require.NoError(t, c.Flush())
	assert.Equal(t, uint64(10), c.Stats().Writes)
	assert.Zero(t, c.Stats().Dirty)
}

func TestPreemptiveWriteback(t *testing.T) {
	_, dev := newFaulty(t)
	c := openTest(t, dev)

	// 16 slots: low water mark 5, high water mark 10.
	for i := range 11 {
		b, err := c.Get(uint64(i), Zero, nil)
		require.NoError(t, err)
		require.NoError(t, b.Release())
	}
	assert.Zero(t, c.Stats().Writes)

	b, err := c.Get(11, Zero, nil)
	require.NoError(t, err)
	require.NoError(t, b.Release())

	// 12 dirty leaves 4 available: write enough to reach 10.
	assert.Equal(t, uint64(6), c.Stats().Writes)
}

func TestBarrier(t *testing.T) {
	mem, dev := newFaulty(t)
	c := openTest(t, dev)

	b, err := c.Get(3, Zero|Barrier, nil)
	require.NoError(t, err)
	copy(b.Data(), pattern(0x33))
	require.NoError(t, b.Release())

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Writes)
	assert.Zero(t, st.Dirty)
	assert.Zero(t, st.IOPending)
	assert.Equal(t, pattern(0x33), onDevice(mem, 3))
}

func TestPrefetch(t *testing.T) {
	_, dev := newFaulty(t)
	fill(t, dev, 10)
	c := openTest(t, dev)

	require.NoError(t, c.Prefetch(8))
	require.NoError(t, c.Prefetch(8))
	st := c.Stats()
	assert.Equal(t, uint64(1), st.Prefetches)
	assert.Equal(t, uint64(1), st.Reads)
	assert.Equal(t, 1, st.IOPending)

	// Waiting on a prefetched block is a miss without new I/O.
	b, err := c.Get(8, Read, nil)
	require.NoError(t, err)
	assert.Equal(t, pattern(8), b.Data())
	require.NoError(t, b.Release())

	st = c.Stats()
	assert.Equal(t, uint64(1), st.ReadMisses)
	assert.Equal(t, uint64(1), st.Reads)
}

func TestWaitResolvesOtherCompletions(t *testing.T) {
	const n = 9
	_, dev := newFaulty(t)
	fill(t, dev, n+1)
	dev.AddRule(n, device.Fault{Delay: 50 * time.Millisecond})
	c := openTest(t, dev)

	for i := uint64(1); i <= n; i++ {
		require.NoError(t, c.Prefetch(i))
	}

	// The slow block completes last, so waiting for it drains the rest.
	b, err := c.Get(n, Read, nil)
	require.NoError(t, err)
	assert.Equal(t, pattern(n), b.Data())
	require.NoError(t, b.Release())

	st := c.Stats()
	assert.Zero(t, st.IOPending)
	assert.Equal(t, n, st.Clean)
	assert.Equal(t, uint64(n), st.Reads)
	assert.Equal(t, int64(n), dev.Reads())

	// Every prefetched block is now a hit.
	for i := uint64(1); i < n; i++ {
		b, err := c.Get(i, Read, nil)
		require.NoError(t, err)
		assert.Equal(t, pattern(byte(i)), b.Data())
		require.NoError(t, b.Release())
	}
	assert.Equal(t, uint64(n-1), c.Stats().ReadHits)
	assert.Equal(t, int64(n), dev.Reads())
}

func TestPrefetchNeverWaits(t *testing.T) {
	_, dev := newFaulty(t)
	c := openTest(t, dev)

	held := make([]*Block, 0, 16)
	for i := range 16 {
		b, err := c.Get(uint64(i), Zero, nil)
		require.NoError(t, err)
		held = append(held, b)
	}

	require.NoError(t, c.Prefetch(100))
	st := c.Stats()
	assert.Zero(t, st.Prefetches)
	assert.Zero(t, st.Reads)
	assert.Zero(t, st.Writes)

	for _, b := range held {
		require.NoError(t, b.Release())
	}
}

func TestReadError(t *testing.T) {
	boom := errors.New("boom")
	_, dev := newFaulty(t)
	dev.AddRule(6, device.Fault{ReadErr: boom})
	c := openTest(t, dev)

	_, err := c.Get(6, Read, nil)
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, boom)

	st := c.Stats()
	assert.Equal(t, 1, st.Errored)
	assert.Equal(t, uint64(1), st.IOErrors)
	assert.Zero(t, c.NrLocked())

	// The error sticks until the block is discarded.
	dev.ClearRule(6)
	_, err = c.Get(6, Read, nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, c.Flush(), ErrIO)

	require.NoError(t, c.Discard(6))
	b, err := c.Get(6, Read, nil)
	require.NoError(t, err)
	require.NoError(t, b.Release())
	require.NoError(t, c.Flush())
}

func TestWriteErrorSurfacesOnFlush(t *testing.T) {
	_, dev := newFaulty(t)
	dev.AddRule(2, device.Fault{WriteErr: device.ErrInjected})
	c := openTest(t, dev)

	b, err := c.Get(2, Zero, nil)
	require.NoError(t, err)
	require.NoError(t, b.Release())

	err = c.Flush()
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, device.ErrInjected)
	var be *BlockError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, uint64(2), be.Block)

	st := c.Stats()
	assert.Equal(t, 1, st.Errored)
	assert.Equal(t, 1, st.Dirty)

	_, err = c.Get(2, Read, nil)
	assert.ErrorIs(t, err, device.ErrInjected)

	require.NoError(t, c.Discard(2))
	assert.Zero(t, c.Stats().Dirty)
	require.NoError(t, c.Flush())
}

func TestSubmitFailure(t *testing.T) {
	_, dev := newFaulty(t)
	dev.AddRule(4, device.Fault{Reject: device.ErrInjected})
	c := openTest(t, dev)

	_, err := c.Get(4, Read, nil)
	require.ErrorIs(t, err, ErrSubmit)
	require.ErrorIs(t, err, device.ErrInjected)
	var be *BlockError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, uint64(4), be.Block)
	assert.Equal(t, "read", be.Op)
	assert.Zero(t, dev.Reads())

	_, err = c.Get(4, Read, nil)
	assert.ErrorIs(t, err, ErrSubmit)
	assert.ErrorIs(t, c.Flush(), ErrSubmit)

	dev.ClearRule(4)
	require.NoError(t, c.Discard(4))
	b, err := c.Get(4, Read, nil)
	require.NoError(t, err)
	require.NoError(t, b.Release())
}

func TestSubmitFailureOnWriteback(t *testing.T) {
	_, dev := newFaulty(t)
	dev.AddRule(1, device.Fault{Reject: device.ErrInjected})
	c := openTest(t, dev, WithWritebackThresholds(0, 0))

	for i := range 3 {
		b, err := c.Get(uint64(i), Zero, nil)
		require.NoError(t, err)
		require.NoError(t, b.Release())
	}

	n, err := c.Writeback(3)
	assert.ErrorIs(t, err, ErrSubmit)
	assert.Equal(t, 1, n)

	// Flush writes the rest and reports the rejected block.
	err = c.Flush()
	require.ErrorIs(t, err, ErrSubmit)
	assert.Equal(t, int64(2), dev.Writes())
	assert.Equal(t, 1, c.Stats().Errored)
}

func TestProtocolViolation(t *testing.T) {
	_, dev := newFaulty(t)
	dev.AddRule(9, device.Fault{ShortRead: true})
	c, err := Open(dev, testSectors, testBlocks, 0)
	require.NoError(t, err)

	_, err = c.Get(9, Read, nil)
	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, uint64(9), pe.Block)
	assert.Equal(t, testBlockSize/2, pe.Got)
	assert.Equal(t, testBlockSize, pe.Want)
	assert.Equal(t, "read", pe.Op)

	// Fatal: every later operation fails the same way.
	_, err = c.Get(1, Read, nil)
	assert.ErrorAs(t, err, &pe)
	assert.ErrorAs(t, c.Flush(), &pe)
	assert.ErrorAs(t, c.Prefetch(2), &pe)
	_, err = c.Writeback(1)
	assert.ErrorAs(t, err, &pe)

	assert.ErrorAs(t, c.Close(), &pe)
	assert.ErrorIs(t, c.Close(), ErrClosed)
}

func TestShortWriteIsFatal(t *testing.T) {
	_, dev := newFaulty(t)
	dev.AddRule(3, device.Fault{ShortWrite: true})
	c := openTest(t, dev)

	b, err := c.Get(3, Zero, nil)
	require.NoError(t, err)
	require.NoError(t, b.Release())

	var pe *ProtocolError
	require.ErrorAs(t, c.Flush(), &pe)
	assert.Equal(t, "write", pe.Op)
	assert.Equal(t, uint64(3), pe.Block)
}

func TestValidator(t *testing.T) {
	mem, dev := newFaulty(t)
	c := openTest(t, dev)

	ck, err := validator.NewChecksum(validator.CRC32C, 1234)
	require.NoError(t, err)
	other, err := validator.NewChecksum(validator.CRC32C, 5678)
	require.NoError(t, err)

	t.Run("prepare on write", func(t *testing.T) {
		b, err := c.Get(2, Zero, ck)
		require.NoError(t, err)
		copy(validator.Payload(b.Data()), "superblock")
		require.NoError(t, b.Release())
		require.NoError(t, c.Flush())

		require.NoError(t, ck.Check(onDevice(mem, 2), 2))
		require.NoError(t, c.Discard(2))

		b, err = c.Get(2, Read, ck)
		require.NoError(t, err)
		assert.Equal(t, "superblock", string(validator.Payload(b.Data())[:10]))
		require.NoError(t, b.Release())
	})

	t.Run("check on read", func(t *testing.T) {
		_, err := c.Get(3, Read, ck)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, uint64(3), ve.Block)
		assert.ErrorIs(t, err, validator.ErrChecksum)
		assert.Zero(t, c.NrLocked())
	})

	t.Run("reinterpretation", func(t *testing.T) {
		b, err := c.Get(4, Zero, ck)
		require.NoError(t, err)
		require.NoError(t, b.Release())

		// The dirty block is prepared under ck and checked under other.
		_, err = c.Get(4, Read, other)
		assert.ErrorIs(t, err, validator.ErrChecksum)

		// A failed switch keeps the old validator.
		b, err = c.Get(4, Read, ck)
		require.NoError(t, err)
		require.NoError(t, b.Release())

		b, err = c.Get(4, Read, nil)
		require.NoError(t, err)
		require.NoError(t, b.Release())
	})
}

// tagValidator is a value type holding a slice, so it cannot be compared.
type tagValidator struct {
	tags   []string
	checks *int
}

func (tagValidator) Prepare([]byte, uint64) {}

func (v tagValidator) Check([]byte, uint64) error {
	*v.checks++
	return nil
}

func TestNonComparableValidator(t *testing.T) {
	_, dev := newFaulty(t)
	c := openTest(t, dev)

	checks := 0
	v := tagValidator{tags: []string{"meta"}, checks: &checks}

	for range 3 {
		b, err := c.Get(1, Read, v)
		require.NoError(t, err)
		require.NoError(t, b.Release())
	}
	assert.Equal(t, 3, checks)
	assert.Equal(t, uint64(1), c.Stats().Reads)

	b, err := c.Get(1, Read, nil)
	require.NoError(t, err)
	require.NoError(t, b.Release())
	assert.Equal(t, 3, checks)
}

func TestDiscard(t *testing.T) {
	_, dev := newFaulty(t)
	c := openTest(t, dev)

	require.NoError(t, c.Discard(9))

	require.NoError(t, c.Prefetch(3))
	assert.ErrorIs(t, c.Discard(3), ErrBlockBusy)

	b, err := c.Get(3, Dirty, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Discard(3), ErrBlockBusy)
	require.NoError(t, b.Release())

	assert.Equal(t, 1, c.Stats().Dirty)
	require.NoError(t, c.Discard(3))
	st := c.Stats()
	assert.Zero(t, st.Dirty)
	assert.Equal(t, 16, st.Free)

	require.NoError(t, c.Flush())
	assert.Zero(t, dev.Writes())
}

func TestClose(t *testing.T) {
	mem := device.NewMemory(testBlocks * testBlockSize)
	c, err := Open(mem, testSectors, testBlocks, 0)
	require.NoError(t, err)

	b, err := c.Get(10, Zero, nil)
	require.NoError(t, err)
	copy(b.Data(), pattern(0x42))

	assert.ErrorIs(t, c.Close(), ErrBlocksLocked)
	require.NoError(t, b.Release())

	require.NoError(t, c.Close())
	assert.Equal(t, pattern(0x42), onDevice(mem, 10))

	assert.ErrorIs(t, c.Close(), ErrClosed)
	_, err = c.Get(1, Read, nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Flush(), ErrClosed)
	assert.ErrorIs(t, c.Prefetch(1), ErrClosed)
	assert.ErrorIs(t, c.Discard(1), ErrClosed)
	_, err = c.Writeback(1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReclaimUnderReadPressure(t *testing.T) {
	_, dev := newFaulty(t)
	fill(t, dev, 100)
	c := openTest(t, dev)

	for i := range 100 {
		b, err := c.Get(uint64(i), Read, nil)
		require.NoError(t, err)
		require.Equal(t, byte(i), b.Data()[0])
		require.NoError(t, b.Release())
	}
	assert.Equal(t, int64(100), dev.Reads())

	b, err := c.Get(99, Read, nil)
	require.NoError(t, err)
	require.NoError(t, b.Release())
	assert.Equal(t, int64(100), dev.Reads())
	assert.Equal(t, uint64(1), c.Stats().ReadHits)
}

func TestReclaimUnderDirtyPressure(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{"preemptive", nil},
		{"on demand", []Option{WithWritebackThresholds(0, 0)}},
		{"small batch", []Option{WithWritebackThresholds(0, 0), WithWritebackBatch(1)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mem, dev := newFaulty(t)
			c := openTest(t, dev, tc.opts...)

			for i := range 100 {
				b, err := c.Get(uint64(i), Zero, nil)
				require.NoError(t, err)
				copy(b.Data(), pattern(byte(i)))
				require.NoError(t, b.Release())
			}
			require.NoError(t, c.Flush())

			for i := range 100 {
				require.Equal(t, pattern(byte(i)), onDevice(mem, uint64(i)), "block %d", i)
			}
			assert.Equal(t, int64(100), dev.Writes())
		})
	}
}

func TestConcurrentUse(t *testing.T) {
	mem, dev := newFaulty(t)
	c := openTest(t, dev)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			base := uint64(g * 100)
			for j := range 60 {
				index := base + uint64(j%20)
				b, err := c.Get(index, Dirty, nil)
				if err != nil {
					errs <- err
					return
				}
				copy(b.Data(), pattern(byte(g+1)))
				if err := b.Release(); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.NoError(t, c.Flush())
	for g := range 8 {
		for j := range 20 {
			assert.Equal(t, pattern(byte(g+1)), onDevice(mem, uint64(g*100+j)))
		}
	}
}

func BenchmarkGetHit(b *testing.B) {
	c, err := Open(device.NewMemory(testBlocks*testBlockSize), testSectors, testBlocks, 0)
	require.NoError(b, err)
	defer c.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		blk, err := c.Get(uint64(i%8), Read, nil)
		if err != nil {
			b.Fatal(err)
		}
		_ = blk.Release()
	}
}

func BenchmarkGetReclaim(b *testing.B) {
	c, err := Open(device.NewMemory(testBlocks*testBlockSize), testSectors, testBlocks, 0)
	require.NoError(b, err)
	defer c.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		blk, err := c.Get(uint64(i%testBlocks), Dirty, nil)
		if err != nil {
			b.Fatal(err)
		}
		_ = blk.Release()
	}
}
