// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Direct I/O requires buffers whose start address (and length) are multiples
// of the device's logical sector size; the cache uses the page size to stay
// safe on every device. [AllocAligned] performs one bulk allocation and
// returns a slice whose first byte sits on the requested boundary. [Split]
// carves that slice into equally sized, equally aligned blocks without
// further allocation.
package mem
