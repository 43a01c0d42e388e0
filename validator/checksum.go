package validator

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash"
	"github.com/hupe1980/bcache/internal/hash"
	"github.com/minio/highwayhash"
)

// HeaderSize is the number of bytes a Checksum validator reserves at the
// start of every block.
const HeaderSize = 16

var (
	// ErrChecksum is returned by Check when the stored checksum does not
	// match the block contents.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrBlockAddress is returned by Check when the block records a
	// different address than the one it was read from.
	ErrBlockAddress = errors.New("block address mismatch")
	// ErrShortBlock is returned when a block cannot hold the header.
	ErrShortBlock = errors.New("block too small for checksum header")
)

// Algorithm selects the checksum function.
type Algorithm uint8

const (
	// CRC32C is CRC32-Castagnoli, zero-extended to 64 bits.
	CRC32C Algorithm = iota
	// XXHash64 is the 64-bit xxHash.
	XXHash64
	// HighwayHash64 is the keyed 64-bit HighwayHash. The key is derived
	// from the salt.
	HighwayHash64
)

func (a Algorithm) String() string {
	switch a {
	case CRC32C:
		return "crc32c"
	case XXHash64:
		return "xxhash64"
	case HighwayHash64:
		return "highwayhash64"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm maps a name produced by Algorithm.String back to its value.
func ParseAlgorithm(name string) (Algorithm, error) {
	for _, a := range []Algorithm{CRC32C, XXHash64, HighwayHash64} {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown checksum algorithm %q", name)
}

// Checksum is a Validator that stamps and verifies a checksum and the block
// address. Distinct block types should use distinct salts so a block of one
// type never validates as another.
type Checksum struct {
	algo Algorithm
	salt uint64
	key  []byte
}

// NewChecksum returns a checksum validator for the given algorithm and salt.
func NewChecksum(algo Algorithm, salt uint64) (*Checksum, error) {
	c := &Checksum{algo: algo, salt: salt}

	switch algo {
	case CRC32C, XXHash64:
	case HighwayHash64:
		c.key = make([]byte, 32)
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint64(c.key[i*8:], salt^uint64(i))
		}
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm %s", algo)
	}

	return c, nil
}

// Algorithm returns the checksum function in use.
func (c *Checksum) Algorithm() Algorithm { return c.algo }

func (c *Checksum) sum(data []byte) uint64 {
	var s uint64
	switch c.algo {
	case XXHash64:
		s = xxhash.Sum64(data)
	case HighwayHash64:
		s = highwayhash.Sum64(data, c.key)
	default:
		s = uint64(hash.CRC32C(data))
	}
	return s ^ c.salt
}

// Prepare records the block address and the checksum in the header.
// Blocks smaller than HeaderSize are left untouched.
func (c *Checksum) Prepare(data []byte, block uint64) {
	if len(data) < HeaderSize {
		return
	}
	binary.LittleEndian.PutUint64(data[8:16], block)
	binary.LittleEndian.PutUint64(data[0:8], c.sum(data[8:]))
}

// Check verifies the checksum, then the recorded block address.
func (c *Checksum) Check(data []byte, block uint64) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: %d bytes", ErrShortBlock, len(data))
	}

	stored := binary.LittleEndian.Uint64(data[0:8])
	if computed := c.sum(data[8:]); stored != computed {
		return fmt.Errorf("%w: block %d: stored %#x, computed %#x", ErrChecksum, block, stored, computed)
	}

	if recorded := binary.LittleEndian.Uint64(data[8:16]); recorded != block {
		return fmt.Errorf("%w: block %d records address %d", ErrBlockAddress, block, recorded)
	}

	return nil
}

// Payload returns the part of a block available to callers of a Checksum
// validated block.
func Payload(data []byte) []byte {
	if len(data) < HeaderSize {
		return nil
	}
	return data[HeaderSize:]
}
