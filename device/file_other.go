//go:build unix && !linux

package device

// Direct I/O is requested per file on these platforms (F_NOCACHE on
// darwin) rather than at open time; File falls back to buffered I/O.
const directFlag = 0
