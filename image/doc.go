// Package image implements the sparse block-image format used to dump a
// device through the cache and restore it later.
//
// # Format
//
// All integers are little endian.
//
//	header   magic "BCIMAGE\x00" | version u32 | codec u8 | pad [3] | block size u32 | pad u32 | nr blocks u64
//	frame*   block u64 | raw len u32 | stored len u32 | payload
//	end      block 0xFFFFFFFFFFFFFFFF | 0 u32 | 0 u32
//	trailer  bitmap len u32 | roaring64 bitmap | crc32c u32
//
// Frames appear in ascending block order. All-zero blocks are omitted; the
// bitmap records which blocks are present. A stored length of zero means
// the payload is raw (the codec did not help), following the block header
// convention of the compressed segment format. The CRC covers every byte
// before it.
//
// Payloads are compressed per block with LZ4 or zstd, so a restore can
// stream frames straight into cache blocks.
package image
