package mem

import (
	"unsafe"
)

// PageSize is the alignment used for direct I/O buffers.
const PageSize = 4096

// AllocAligned allocates a byte slice of the given size whose first byte is
// aligned to align, which must be a power of two. It returns nil for
// non-positive sizes or an invalid alignment.
//
// Note: This function allocates align extra bytes to find the aligned offset.
// The underlying array is kept alive by the returned slice.
func AllocAligned(size, align int) []byte {
	if size <= 0 || align <= 0 || align&(align-1) != 0 {
		return nil
	}

	buf := make([]byte, size+align)

	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // unsafe is required for memory alignment
	addr := uintptr(ptr)
	offset := int((uintptr(align) - (addr & uintptr(align-1))) & uintptr(align-1))

	return buf[offset : offset+size : offset+size]
}

// IsAligned reports whether the first byte of b is aligned to align.
func IsAligned(b []byte, align int) bool {
	if len(b) == 0 {
		return true
	}
	addr := uintptr(unsafe.Pointer(&b[0])) //nolint:gosec // unsafe is required for memory alignment
	return addr&uintptr(align-1) == 0
}

// Split cuts buf into count consecutive blocks of blockSize bytes. Each
// block has its capacity clipped so appends cannot spill into a neighbour.
// If buf is aligned and blockSize is a multiple of the alignment, every
// block is aligned as well.
func Split(buf []byte, count, blockSize int) [][]byte {
	if count <= 0 || blockSize <= 0 || len(buf) < count*blockSize {
		return nil
	}

	blocks := make([][]byte, count)
	for i := range blocks {
		start := i * blockSize
		blocks[i] = buf[start : start+blockSize : start+blockSize]
	}
	return blocks
}
