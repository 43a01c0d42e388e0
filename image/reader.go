package image

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	bhash "github.com/hupe1980/bcache/internal/hash"
)

// Reader decodes an image frame by frame.
type Reader struct {
	br  *bufio.Reader
	tr  io.Reader
	crc hash.Hash32
	hdr Header

	seen    *roaring64.Bitmap
	present *roaring64.Bitmap
	last    uint64
	started bool
	done    bool

	frame  [frameSize]byte
	stored []byte
}

// NewReader reads and validates the header.
func NewReader(r io.Reader) (*Reader, error) {
	crc := bhash.NewCRC32C()
	br := bufio.NewReader(r)
	ir := &Reader{
		br:   br,
		tr:   io.TeeReader(br, crc),
		crc:  crc,
		seen: roaring64.New(),
	}

	var buf [headerSize]byte
	if _, err := io.ReadFull(ir.tr, buf[:]); err != nil {
		return nil, corrupt("header", err)
	}
	if !bytes.Equal(buf[0:8], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	ir.hdr = Header{
		Version:   binary.LittleEndian.Uint32(buf[8:12]),
		Codec:     Codec(buf[12]),
		BlockSize: binary.LittleEndian.Uint32(buf[16:20]),
		NrBlocks:  binary.LittleEndian.Uint64(buf[24:32]),
	}
	if ir.hdr.Version != Version {
		return nil, fmt.Errorf("image: unsupported version %d", ir.hdr.Version)
	}
	if !ir.hdr.Codec.valid() {
		return nil, fmt.Errorf("%w: unknown codec %d", ErrCorrupt, ir.hdr.Codec)
	}
	if ir.hdr.BlockSize == 0 || ir.hdr.BlockSize > MaxBlockSize {
		return nil, fmt.Errorf("%w: block size %d", ErrCorrupt, ir.hdr.BlockSize)
	}
	return ir, nil
}

// Header returns the image header.
func (r *Reader) Header() Header { return r.hdr }

// Next returns the next stored block. After the last block it verifies the
// trailer and returns io.EOF.
func (r *Reader) Next() (uint64, []byte, error) {
	if r.done {
		return 0, nil, io.EOF
	}

	if _, err := io.ReadFull(r.tr, r.frame[:]); err != nil {
		return 0, nil, corrupt("frame", err)
	}
	index := binary.LittleEndian.Uint64(r.frame[0:8])
	rawLen := binary.LittleEndian.Uint32(r.frame[8:12])
	storedLen := binary.LittleEndian.Uint32(r.frame[12:16])

	if index == endMarker {
		if rawLen != 0 || storedLen != 0 {
			return 0, nil, fmt.Errorf("%w: malformed end marker", ErrCorrupt)
		}
		if err := r.readTrailer(); err != nil {
			return 0, nil, err
		}
		r.done = true
		return 0, nil, io.EOF
	}

	switch {
	case index >= r.hdr.NrBlocks:
		return 0, nil, fmt.Errorf("%w: block %d beyond %d blocks", ErrCorrupt, index, r.hdr.NrBlocks)
	case r.started && index <= r.last:
		return 0, nil, fmt.Errorf("%w: block %d after %d", ErrCorrupt, index, r.last)
	case rawLen != r.hdr.BlockSize:
		return 0, nil, fmt.Errorf("%w: block %d has %d bytes", ErrCorrupt, index, rawLen)
	case storedLen > rawLen:
		return 0, nil, fmt.Errorf("%w: block %d stores %d bytes", ErrCorrupt, index, storedLen)
	}
	r.started = true
	r.last = index

	var data []byte
	if storedLen == 0 {
		data = make([]byte, rawLen)
		if _, err := io.ReadFull(r.tr, data); err != nil {
			return 0, nil, corrupt("payload", err)
		}
	} else {
		if cap(r.stored) < int(storedLen) {
			r.stored = make([]byte, storedLen)
		}
		stored := r.stored[:storedLen]
		if _, err := io.ReadFull(r.tr, stored); err != nil {
			return 0, nil, corrupt("payload", err)
		}
		var err error
		if data, err = decompress(stored, int(rawLen), r.hdr.Codec); err != nil {
			return 0, nil, fmt.Errorf("%w: block %d: %w", ErrCorrupt, index, err)
		}
	}

	r.seen.Add(index)
	return index, data, nil
}

// Present returns the bitmap of stored blocks. It is nil until Next has
// returned io.EOF.
func (r *Reader) Present() *roaring64.Bitmap { return r.present }

func (r *Reader) readTrailer() error {
	var n [4]byte
	if _, err := io.ReadFull(r.tr, n[:]); err != nil {
		return corrupt("trailer", err)
	}
	size := binary.LittleEndian.Uint32(n[:])
	if size > maxBitmapSize {
		return fmt.Errorf("%w: bitmap of %d bytes", ErrCorrupt, size)
	}
	bm := make([]byte, size)
	if _, err := io.ReadFull(r.tr, bm); err != nil {
		return corrupt("trailer", err)
	}

	want := r.crc.Sum32()
	if _, err := io.ReadFull(r.br, n[:]); err != nil {
		return corrupt("checksum", err)
	}
	if got := binary.LittleEndian.Uint32(n[:]); got != want {
		return fmt.Errorf("%w: checksum %#x, computed %#x", ErrCorrupt, got, want)
	}

	present := roaring64.New()
	if err := present.UnmarshalBinary(bm); err != nil {
		return fmt.Errorf("%w: bitmap: %w", ErrCorrupt, err)
	}
	if !present.Equals(r.seen) {
		return fmt.Errorf("%w: bitmap does not match frames", ErrCorrupt)
	}
	r.present = present
	return nil
}

func corrupt(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", ErrCorrupt, what)
	}
	return fmt.Errorf("image: read %s: %w", what, err)
}
