// Package validator defines the per-block capability the cache uses to move
// a block between its on-disk and in-memory representations.
//
// The cache calls [Validator.Check] after a block has been read from disk
// (or when a cached block is reinterpreted under a different validator) and
// [Validator.Prepare] immediately before the block is written back.
//
// [Noop] is used for blocks with no structural interpretation. [Checksum]
// stamps a checksum and the block's own address into a 16-byte header, the
// layout used by on-disk metadata blocks:
//
//	[0:8)   checksum of bytes [8:blockSize), little endian, xor salt
//	[8:16)  block address, little endian
//	[16:)   payload
//
// Validators are shared read-only by the cache and compared with ==, so
// implementations must be comparable; pointer types are the usual choice.
package validator
