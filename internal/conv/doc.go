// Package conv provides safe integer type conversion utilities.
//
// These functions perform bounds checking to prevent integer overflow
// when converting between signed/unsigned and different bit-width integer
// types.
//
// Use cases:
//   - Validating untrusted data from images (block sizes, counts)
//   - Checking that a device's block range maps onto int64 file offsets
//
// For conversions that are provably safe by domain constraints (e.g., a
// block index already checked against the device size), use direct type
// casts instead to avoid overhead.
package conv
