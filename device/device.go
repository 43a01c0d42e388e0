package device

import (
	"errors"
	"io"
)

// ErrClosed is returned for operations on a closed device.
var ErrClosed = errors.New("device closed")

// Device is the I/O channel of a cache.
//
// ReadAt and WriteAt follow the io.ReaderAt and io.WriterAt contracts:
// a transfer shorter than the buffer returns a non-nil error. A short
// transfer with io.EOF (reads) or io.ErrShortWrite (writes) reports that
// the device moved fewer bytes without failing.
type Device interface {
	io.ReaderAt
	io.WriterAt

	// Size returns the device size in bytes.
	Size() (int64, error)

	// Sync flushes device write caches.
	Sync() error

	// Close releases the device.
	Close() error
}

// Op names a transfer direction.
type Op uint8

const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	if o == OpWrite {
		return "write"
	}
	return "read"
}

// Admitter is implemented by devices that can refuse a transfer before it
// is queued. The refusal surfaces to the submitter, not as a completion.
type Admitter interface {
	Admit(op Op, off int64) error
}

// Blocks returns how many whole blocks of blockSize bytes fit on dev.
func Blocks(dev Device, blockSize int) (uint64, error) {
	if blockSize <= 0 {
		return 0, errors.New("device: block size must be positive")
	}
	size, err := dev.Size()
	if err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, nil
	}
	return uint64(size) / uint64(blockSize), nil
}
