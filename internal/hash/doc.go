// Package hash provides the CRC32-Castagnoli checksum used for block and
// image integrity.
//
// Go's crc32 package uses hardware instructions when available (SSE4.2 on
// x86-64, the CRC extension on ARM64), so checksumming a metadata block costs
// far less than reading it.
//
//	checksum := hash.CRC32C(data)
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
package hash
