package device

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ErrInjected is the default error returned by fault rules that ask for a
// failure without naming one.
var ErrInjected = errors.New("injected fault error")

var _ Admitter = (*Faulty)(nil)

// Fault defines the failure behavior for one block.
type Fault struct {
	ReadErr    error         // returned by reads of the block
	WriteErr   error         // returned by writes of the block
	ShortRead  bool          // reads transfer half the buffer and report io.EOF
	ShortWrite bool          // writes transfer half the buffer and report io.ErrShortWrite
	Reject     error         // refuses the transfer at submission
	Delay      time.Duration // added latency before the transfer
}

// Faulty is a Device wrapper that can inject errors. Rules are keyed by
// block index (offset divided by the block size).
type Faulty struct {
	Device

	blockSize int64

	mu      sync.Mutex
	rules   map[uint64]Fault
	Default Fault
	gate    chan struct{}
	SyncErr error

	reads  atomic.Int64
	writes atomic.Int64
}

// NewFaulty wraps dev.
func NewFaulty(dev Device, blockSize int) *Faulty {
	return &Faulty{
		Device:    dev,
		blockSize: int64(max(blockSize, 1)),
		rules:     make(map[uint64]Fault),
	}
}

// AddRule sets the fault for a block, replacing any earlier rule.
func (f *Faulty) AddRule(block uint64, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[block] = fault
}

// ClearRule removes the fault for a block.
func (f *Faulty) ClearRule(block uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rules, block)
}

// Hold stalls every transfer until Resume is called. Transfers already past
// the gate complete normally.
func (f *Faulty) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate == nil {
		f.gate = make(chan struct{})
	}
}

// Resume releases transfers stalled by Hold.
func (f *Faulty) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// Admit reports the block's Reject error, if any.
func (f *Faulty) Admit(_ Op, off int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fault, ok := f.rules[uint64(off/f.blockSize)]
	if !ok {
		fault = f.Default
	}
	return fault.Reject
}

// Reads returns how many reads reached the wrapper.
func (f *Faulty) Reads() int64 { return f.reads.Load() }

// Writes returns how many writes reached the wrapper.
func (f *Faulty) Writes() int64 { return f.writes.Load() }

func (f *Faulty) enter(off int64) Fault {
	f.mu.Lock()
	fault, ok := f.rules[uint64(off/f.blockSize)]
	if !ok {
		fault = f.Default
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fault.Delay > 0 {
		time.Sleep(fault.Delay)
	}
	return fault
}

func (f *Faulty) ReadAt(p []byte, off int64) (int, error) {
	f.reads.Add(1)
	fault := f.enter(off)
	if fault.ReadErr != nil {
		return 0, fault.ReadErr
	}
	if fault.ShortRead {
		n, err := f.Device.ReadAt(p[:len(p)/2], off)
		if err != nil {
			return n, err
		}
		return n, io.EOF
	}
	return f.Device.ReadAt(p, off)
}

func (f *Faulty) WriteAt(p []byte, off int64) (int, error) {
	f.writes.Add(1)
	fault := f.enter(off)
	if fault.WriteErr != nil {
		return 0, fault.WriteErr
	}
	if fault.ShortWrite {
		n, err := f.Device.WriteAt(p[:len(p)/2], off)
		if err != nil {
			return n, err
		}
		return n, io.ErrShortWrite
	}
	return f.Device.WriteAt(p, off)
}

func (f *Faulty) Sync() error {
	f.mu.Lock()
	err := f.SyncErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Device.Sync()
}

// Close releases any held transfers and closes the wrapped device.
func (f *Faulty) Close() error {
	f.Resume()
	return f.Device.Close()
}
