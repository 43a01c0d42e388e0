package image

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockSize = 4096

func blocks() map[uint64][]byte {
	rng := rand.New(rand.NewPCG(1, 2))
	random := make([]byte, blockSize)
	for i := range random {
		random[i] = byte(rng.UintN(256))
	}
	text := bytes.Repeat([]byte("metadata "), blockSize/9+1)[:blockSize]
	sparse := make([]byte, blockSize)
	sparse[100] = 1

	return map[uint64][]byte{
		1:  text,
		7:  random,
		8:  sparse,
		63: bytes.Repeat([]byte{0xAB}, blockSize),
	}
}

func writeImage(t *testing.T, codec Codec, nrBlocks uint64, content map[uint64][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, blockSize, nrBlocks, codec)
	require.NoError(t, err)

	zero := make([]byte, blockSize)
	for i := range nrBlocks {
		data, ok := content[i]
		if !ok {
			data = zero
		}
		require.NoError(t, w.WriteBlock(i, data))
	}
	assert.Equal(t, uint64(len(content)), w.Blocks())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func readImage(t *testing.T, raw []byte) (Header, map[uint64][]byte, *Reader) {
	t.Helper()
	r, err := NewReader(bytes.NewReader(raw))
	require.NoError(t, err)

	got := make(map[uint64][]byte)
	for {
		index, data, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got[index] = data
	}
	return r.Header(), got, r
}

func TestRoundTrip(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecLZ4, CodecZstd} {
		t.Run(codec.String(), func(t *testing.T) {
			want := blocks()
			raw := writeImage(t, codec, 64, want)

			hdr, got, r := readImage(t, raw)
			if diff := cmp.Diff(Header{Version: Version, Codec: codec, BlockSize: blockSize, NrBlocks: 64}, hdr); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, want, got)

			require.NotNil(t, r.Present())
			assert.Equal(t, uint64(4), r.Present().GetCardinality())
			assert.True(t, r.Present().Contains(63))

			_, _, err := r.Next()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestCompressionShrinksImage(t *testing.T) {
	content := blocks()
	none := writeImage(t, CodecNone, 64, content)
	lz := writeImage(t, CodecLZ4, 64, content)
	zs := writeImage(t, CodecZstd, 64, content)

	assert.Less(t, len(lz), len(none))
	assert.Less(t, len(zs), len(none))
}

func TestZeroBlocksOmitted(t *testing.T) {
	raw := writeImage(t, CodecNone, 1000, nil)
	assert.Less(t, len(raw), 100)

	_, got, r := readImage(t, raw)
	assert.Empty(t, got)
	assert.True(t, r.Present().IsEmpty())
}

func TestWriterValidation(t *testing.T) {
	_, err := NewWriter(io.Discard, 0, 1, CodecNone)
	assert.Error(t, err)
	_, err = NewWriter(io.Discard, MaxBlockSize+1, 1, CodecNone)
	assert.Error(t, err)
	_, err = NewWriter(io.Discard, blockSize, 1, Codec(9))
	assert.Error(t, err)

	w, err := NewWriter(io.Discard, blockSize, 10, CodecNone)
	require.NoError(t, err)

	assert.ErrorIs(t, w.WriteBlock(0, make([]byte, 10)), ErrBlockSize)
	require.NoError(t, w.WriteBlock(5, bytes.Repeat([]byte{1}, blockSize)))
	assert.ErrorIs(t, w.WriteBlock(5, bytes.Repeat([]byte{1}, blockSize)), ErrOrder)
	assert.ErrorIs(t, w.WriteBlock(2, make([]byte, blockSize)), ErrOrder)
	assert.Error(t, w.WriteBlock(10, make([]byte, blockSize)))

	require.NoError(t, w.Close())
	assert.Error(t, w.WriteBlock(9, make([]byte, blockSize)))
}

func TestCorruption(t *testing.T) {
	raw := writeImage(t, CodecLZ4, 64, blocks())

	t.Run("bad magic", func(t *testing.T) {
		bad := bytes.Clone(raw)
		bad[0] = 'X'
		_, err := NewReader(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("oversized block size", func(t *testing.T) {
		bad := bytes.Clone(raw[:headerSize])
		binary.LittleEndian.PutUint32(bad[16:20], ^uint32(0))
		_, err := NewReader(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrCorrupt)

		binary.LittleEndian.PutUint32(bad[16:20], 0)
		_, err = NewReader(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	for name, off := range map[string]int{
		"payload":  headerSize + frameSize + 10,
		"trailer":  len(raw) - 6,
		"checksum": len(raw) - 1,
	} {
		t.Run("flipped "+name+" byte", func(t *testing.T) {
			bad := bytes.Clone(raw)
			bad[off] ^= 0xFF
			assert.ErrorIs(t, drain(bad), ErrCorrupt)
		})
	}

	t.Run("truncated", func(t *testing.T) {
		for _, n := range []int{10, headerSize + 5, len(raw) / 2, len(raw) - 2} {
			assert.ErrorIs(t, drain(raw[:n]), ErrCorrupt, "truncated at %d", n)
		}
	})
}

func drain(raw []byte) error {
	r, err := NewReader(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	for {
		_, _, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func TestParseCodec(t *testing.T) {
	for name, want := range map[string]Codec{"": CodecNone, "none": CodecNone, "LZ4": CodecLZ4, "zstd": CodecZstd} {
		got, err := ParseCodec(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCodec("gzip")
	assert.Error(t, err)
	assert.Equal(t, "codec(9)", Codec(9).String())
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(nil))
	assert.True(t, IsZero(make([]byte, 64)))
	b := make([]byte, 64)
	b[63] = 1
	assert.False(t, IsZero(b))
}
