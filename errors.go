package bcache

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned by Open for unusable parameters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfBounds is returned for block addresses at or past the end of
	// the device. No I/O is issued.
	ErrOutOfBounds = errors.New("block out of bounds")

	// ErrNoReclaimableBlock is returned when every slot is locked, dirty,
	// errored or in flight and waiting for I/O freed nothing.
	ErrNoReclaimableBlock = errors.New("no reclaimable block")

	// ErrWriteLockConflict is returned when a block is requested for
	// writing while another handle holds it.
	ErrWriteLockConflict = errors.New("concurrent write lock")

	// ErrNotLocked is returned when releasing a block nobody holds.
	ErrNotLocked = errors.New("block not locked")

	// ErrReleased is returned when a handle is released twice.
	ErrReleased = errors.New("block handle already released")

	// ErrBlocksLocked is returned by Close while handles are outstanding.
	ErrBlocksLocked = errors.New("blocks still locked")

	// ErrClosed is returned for operations on a closed cache.
	ErrClosed = errors.New("cache closed")

	// ErrIO wraps errors reported by the device for a transfer.
	ErrIO = errors.New("i/o error")

	// ErrSubmit wraps errors raised while queueing a transfer.
	ErrSubmit = errors.New("i/o submission failed")

	// ErrBlockBusy is returned by Discard for a locked or in-flight block.
	ErrBlockBusy = errors.New("block busy")
)

// BlockError reports a failed operation on one block.
//
// The cause can be matched with errors.Is against the sentinels above.
type BlockError struct {
	Op    string
	Block uint64
	Err   error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("%s block %d: %v", e.Op, e.Block, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }

// ProtocolError reports a transfer that completed without an error but
// moved the wrong number of bytes. It is fatal: the cache refuses every
// later operation with the same error.
type ProtocolError struct {
	Op    string
	Block uint64
	Got   int
	Want  int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("incomplete %s for block %d: transferred %d of %d bytes", e.Op, e.Block, e.Got, e.Want)
}

// ValidationError reports a block rejected by its validator.
type ValidationError struct {
	Block uint64
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate block %d: %v", e.Block, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func ioError(cause error) error {
	return fmt.Errorf("%w: %w", ErrIO, cause)
}

func submitError(cause error) error {
	return fmt.Errorf("%w: %w", ErrSubmit, cause)
}
