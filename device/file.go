//go:build unix

package device

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// OpenFlags controls how OpenFile opens a device.
type OpenFlags int

const (
	// ReadOnly opens the device for reading only.
	ReadOnly OpenFlags = 0
	// ReadWrite opens the device for reading and writing.
	ReadWrite OpenFlags = 1 << iota
	// Direct bypasses the page cache (O_DIRECT) where the platform has it.
	Direct
	// Create creates a regular file if it does not exist.
	Create
)

// File is a Device backed by a file descriptor.
type File struct {
	fd     int
	name   string
	direct bool
	closed atomic.Bool
}

var _ Device = (*File)(nil)

// OpenFile opens path as a device.
func OpenFile(path string, flags OpenFlags) (*File, error) {
	mode := unix.O_RDONLY
	if flags&ReadWrite != 0 {
		mode = unix.O_RDWR
	}
	if flags&Create != 0 {
		mode |= unix.O_CREAT
	}
	direct := flags&Direct != 0 && directFlag != 0
	if direct {
		mode |= directFlag
	}

	fd, err := unix.Open(path, mode|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &File{fd: fd, name: path, direct: direct}, nil
}

// FromFD wraps an already open file descriptor. The File takes ownership
// and closes fd on Close.
func FromFD(fd int, name string) *File {
	return &File{fd: fd, name: name}
}

// Name returns the path the device was opened with.
func (f *File) Name() string { return f.name }

// Fd returns the underlying file descriptor.
func (f *File) Fd() int { return f.fd }

// Direct reports whether the device bypasses the page cache.
func (f *File) Direct() bool { return f.direct }

// ReadAt issues a single pread. A short read without an errno returns io.EOF.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.closed.Load() {
		return 0, ErrClosed
	}
	n, err := retryEINTR(func() (int, error) { return unix.Pread(f.fd, p, off) })
	if err != nil {
		return max(n, 0), fmt.Errorf("pread %s at %d: %w", f.name, off, err)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt issues a single pwrite. A short write without an errno returns
// io.ErrShortWrite.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if f.closed.Load() {
		return 0, ErrClosed
	}
	n, err := retryEINTR(func() (int, error) { return unix.Pwrite(f.fd, p, off) })
	if err != nil {
		return max(n, 0), fmt.Errorf("pwrite %s at %d: %w", f.name, off, err)
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Size seeks to the end of the descriptor, which works for regular files
// and block devices alike.
func (f *File) Size() (int64, error) {
	if f.closed.Load() {
		return 0, ErrClosed
	}
	size, err := unix.Seek(f.fd, 0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("size of %s: %w", f.name, err)
	}
	return size, nil
}

// Truncate resizes a regular file.
func (f *File) Truncate(size int64) error {
	if f.closed.Load() {
		return ErrClosed
	}
	return unix.Ftruncate(f.fd, size)
}

// Sync flushes the device.
func (f *File) Sync() error {
	if f.closed.Load() {
		return ErrClosed
	}
	return unix.Fsync(f.fd)
}

// Close closes the descriptor.
func (f *File) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return unix.Close(f.fd)
}

func retryEINTR(fn func() (int, error)) (int, error) {
	for {
		n, err := fn()
		if !errors.Is(err, unix.EINTR) {
			return n, err
		}
	}
}
