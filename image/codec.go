package image

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the per-block compression.
type Codec uint8

const (
	// CodecNone stores blocks raw.
	CodecNone Codec = 0
	// CodecLZ4 is fast block compression.
	CodecLZ4 Codec = 1
	// CodecZstd trades speed for ratio.
	CodecZstd Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec parses "none", "lz4" or "zstd".
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd":
		return CodecZstd, nil
	default:
		return 0, fmt.Errorf("unknown codec %q", name)
	}
}

func (c Codec) valid() bool { return c <= CodecZstd }

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

var errSizeMismatch = errors.New("decompressed size mismatch")

// compress encodes data. It returns nil when the codec does not shrink the
// block below 90%; the caller then stores it raw.
func compress(data []byte, c Codec) ([]byte, error) {
	var out []byte
	switch c {
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil // Incompressible
		}
		out = buf[:n]
	case CodecZstd:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	default:
		return nil, nil
	}

	if float64(len(out)) > float64(len(data))*0.9 {
		return nil, nil
	}
	return out, nil
}

// decompress decodes stored into a buffer of rawLen bytes.
func decompress(stored []byte, rawLen int, c Codec) ([]byte, error) {
	result := make([]byte, rawLen)

	switch c {
	case CodecLZ4:
		n, err := lz4.UncompressBlock(stored, result)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, errSizeMismatch
		}
		return result, nil

	case CodecZstd:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(stored, result[:0])
		if err != nil {
			return nil, err
		}
		if len(decoded) != rawLen {
			return nil, errSizeMismatch
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("compressed frame in %s image", c)
	}
}
