// Package resource implements the Controller for limits shared between
// caches and tools.
//
// The Controller governs three resources:
//
//   - Memory: slot pool budgets (fail-fast reservation)
//   - Transfers: the number of device transfers in flight at once
//   - IO: a byte rate for writeback and image streaming
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                           │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Memory Limit   │  Transfers      │  IO Rate Limiter        │
//	│  (semaphore)    │  (semaphore)    │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireTransfer│  AcquireIO              │
//	│  ReleaseMemory  │  ReleaseTransfer│  RateLimitedWriter      │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Memory Management
//
// A cache reserves its whole slot pool when it opens and returns it when
// it closes. AcquireMemory fails immediately with ErrMemoryLimitExceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 256 << 20,
//	})
//	a, err := bcache.Open(devA, 8, nA, 128<<20, bcache.WithResourceController(rc))
//	b, err := bcache.Open(devB, 8, nB, 128<<20, bcache.WithResourceController(rc))
//
// # Transfers and IO Rate
//
// MaxInflightTransfers caps concurrent device transfers across every cache
// sharing the controller. IOLimitBytesPerSec throttles writes issued by
// writeback so that foreground reads keep the device:
//
//	rc := resource.NewController(resource.Config{
//	    MaxInflightTransfers: 32,
//	    IOLimitBytesPerSec:   64 << 20,
//	})
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully: they become no-ops.
package resource
