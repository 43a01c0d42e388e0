package image

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	bhash "github.com/hupe1980/bcache/internal/hash"
)

// Version is the format version written by Writer.
const Version = 1

// MaxBlockSize is the largest block size an image may declare.
const MaxBlockSize = 16 << 20

const (
	headerSize = 32
	frameSize  = 16
	endMarker  = ^uint64(0)

	// maxBitmapSize bounds the trailer allocation when reading.
	maxBitmapSize = 1 << 30
)

var magic = [8]byte{'B', 'C', 'I', 'M', 'A', 'G', 'E', 0}

var (
	// ErrCorrupt is returned for images that fail structural checks.
	ErrCorrupt = errors.New("corrupt image")
	// ErrOrder is returned when blocks are written out of ascending order.
	ErrOrder = errors.New("blocks must be written in ascending order")
	// ErrBlockSize is returned for blocks of the wrong length.
	ErrBlockSize = errors.New("block has wrong size")
)

// Header describes an image.
type Header struct {
	Version   uint32
	Codec     Codec
	BlockSize uint32
	NrBlocks  uint64
}

// IsZero reports whether every byte of data is zero.
func IsZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// Writer produces an image.
type Writer struct {
	out     io.Writer
	w       *bufio.Writer
	crc     hash.Hash32
	hdr     Header
	present *roaring64.Bitmap
	next    uint64
	started bool
	scratch [frameSize]byte
	closed  bool
}

// NewWriter writes the image header to w.
func NewWriter(w io.Writer, blockSize uint32, nrBlocks uint64, codec Codec) (*Writer, error) {
	if blockSize == 0 || blockSize > MaxBlockSize {
		return nil, fmt.Errorf("image: block size %d outside 1..%d", blockSize, MaxBlockSize)
	}
	if !codec.valid() {
		return nil, fmt.Errorf("image: unknown codec %d", codec)
	}

	crc := bhash.NewCRC32C()
	iw := &Writer{
		out:     w,
		w:       bufio.NewWriter(io.MultiWriter(w, crc)),
		crc:     crc,
		hdr:     Header{Version: Version, Codec: codec, BlockSize: blockSize, NrBlocks: nrBlocks},
		present: roaring64.New(),
	}

	var buf [headerSize]byte
	copy(buf[0:8], magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], Version)
	buf[12] = byte(codec)
	binary.LittleEndian.PutUint32(buf[16:20], blockSize)
	binary.LittleEndian.PutUint64(buf[24:32], nrBlocks)
	if _, err := iw.w.Write(buf[:]); err != nil {
		return nil, err
	}
	return iw, nil
}

// Header returns the image header.
func (w *Writer) Header() Header { return w.hdr }

// Blocks returns how many blocks have been stored.
func (w *Writer) Blocks() uint64 { return w.present.GetCardinality() }

// WriteBlock appends block index. All-zero blocks are skipped. Indexes
// must be strictly ascending and below the header's block count.
func (w *Writer) WriteBlock(index uint64, data []byte) error {
	if w.closed {
		return errors.New("image: writer closed")
	}
	if len(data) != int(w.hdr.BlockSize) {
		return fmt.Errorf("%w: block %d is %d bytes, want %d", ErrBlockSize, index, len(data), w.hdr.BlockSize)
	}
	if index >= w.hdr.NrBlocks {
		return fmt.Errorf("image: block %d beyond %d blocks", index, w.hdr.NrBlocks)
	}
	if w.started && index < w.next {
		return fmt.Errorf("%w: block %d after %d", ErrOrder, index, w.next-1)
	}
	w.started = true
	w.next = index + 1

	if IsZero(data) {
		return nil
	}

	stored, err := compress(data, w.hdr.Codec)
	if err != nil {
		return fmt.Errorf("image: compress block %d: %w", index, err)
	}
	payload := data
	if stored != nil {
		payload = stored
	}

	binary.LittleEndian.PutUint64(w.scratch[0:8], index)
	binary.LittleEndian.PutUint32(w.scratch[8:12], uint32(len(data)))
	binary.LittleEndian.PutUint32(w.scratch[12:16], uint32(len(stored)))
	if _, err := w.w.Write(w.scratch[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	w.present.Add(index)
	return nil
}

// Close writes the end marker and trailer. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	binary.LittleEndian.PutUint64(w.scratch[0:8], endMarker)
	binary.LittleEndian.PutUint64(w.scratch[8:16], 0)
	if _, err := w.w.Write(w.scratch[:]); err != nil {
		return err
	}

	bm, err := w.present.MarshalBinary()
	if err != nil {
		return err
	}
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(bm)))
	if _, err := w.w.Write(n[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(bm); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}

	// The checksum itself stays out of the CRC.
	binary.LittleEndian.PutUint32(n[:], w.crc.Sum32())
	_, err = w.out.Write(n[:])
	return err
}
