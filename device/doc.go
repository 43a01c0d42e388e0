// Package device provides the block devices a cache performs I/O against.
//
// The package defines one interface, [Device]: positional reads and writes
// plus size, sync and close. Implementations:
//
//   - [File]: a raw block device or regular file opened through
//     golang.org/x/sys/unix, with O_DIRECT on Linux. Buffers passed to it
//     must be aligned (the cache's page-aligned slots are).
//   - [Memory]: a RAM-backed device for tests and tooling.
//   - [Faulty]: a wrapper that injects errors, short transfers, latency and
//     stalls, for exercising the cache's failure paths.
//
// # Usage
//
//	dev, err := device.OpenFile("/dev/mapper/meta", device.ReadWrite|device.Direct)
//	if err != nil {
//	    return err
//	}
//	cache, err := bcache.Open(dev, 8, nrBlocks, 64<<20)
//
// Every implementation is safe for concurrent use: the cache's I/O engine
// issues requests from several goroutines at once.
package device
