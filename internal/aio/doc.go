// Package aio implements the asynchronous transfer engine behind the cache.
//
// An Engine owns a fixed set of worker goroutines that perform positional
// reads and writes against a device.Device. Requests are submitted without
// blocking; results come back as Completions tagged with the submitter's
// slot id, in whatever order the device finishes them.
//
// Submit, Wait and Pending are meant for a single owner (the cache calls
// them under its own lock). Workers never touch owner state: the request
// buffer is the only memory shared, and it is handed back through the
// completion.
//
// Short transfers that the device reports with io.EOF or io.ErrShortWrite
// complete with a nil error and the short byte count, so the owner can
// tell "the device failed" from "the device moved the wrong amount".
package aio
