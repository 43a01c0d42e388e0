package bcache

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Calls happen with the cache's lock held, so implementations must be
// quick and must not call back into the cache.
type MetricsCollector interface {
	// RecordGet is called for every successful lookup. write is true for
	// Zero and Dirty requests.
	RecordGet(hit, write bool)

	// RecordIO is called once per transfer. op is "read" or "write";
	// err is non-nil for device and submission failures.
	RecordIO(op string, duration time.Duration, err error)

	// RecordFlush is called after each flush.
	RecordFlush(issued int, duration time.Duration, err error)

	// RecordWriteback is called after each writeback pass that issued
	// at least one write.
	RecordWriteback(issued int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGet(bool, bool)                  {}
func (NoopMetricsCollector) RecordIO(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordFlush(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordWriteback(int)                   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ReadHits        atomic.Int64
	ReadMisses      atomic.Int64
	WriteHits       atomic.Int64
	WriteMisses     atomic.Int64
	Reads           atomic.Int64
	Writes          atomic.Int64
	IOErrors        atomic.Int64
	IOTotalNanos    atomic.Int64
	FlushCount      atomic.Int64
	FlushErrors     atomic.Int64
	FlushIssued     atomic.Int64
	WritebackCount  atomic.Int64
	WritebackIssued atomic.Int64
}

// RecordGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGet(hit, write bool) {
	switch {
	case hit && write:
		b.WriteHits.Add(1)
	case hit:
		b.ReadHits.Add(1)
	case write:
		b.WriteMisses.Add(1)
	default:
		b.ReadMisses.Add(1)
	}
}

// RecordIO implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIO(op string, duration time.Duration, err error) {
	if op == "write" {
		b.Writes.Add(1)
	} else {
		b.Reads.Add(1)
	}
	b.IOTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.IOErrors.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(issued int, _ time.Duration, err error) {
	b.FlushCount.Add(1)
	b.FlushIssued.Add(int64(issued))
	if err != nil {
		b.FlushErrors.Add(1)
	}
}

// RecordWriteback implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWriteback(issued int) {
	b.WritebackCount.Add(1)
	b.WritebackIssued.Add(int64(issued))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	st := BasicMetricsStats{
		ReadHits:        b.ReadHits.Load(),
		ReadMisses:      b.ReadMisses.Load(),
		WriteHits:       b.WriteHits.Load(),
		WriteMisses:     b.WriteMisses.Load(),
		Reads:           b.Reads.Load(),
		Writes:          b.Writes.Load(),
		IOErrors:        b.IOErrors.Load(),
		FlushCount:      b.FlushCount.Load(),
		FlushErrors:     b.FlushErrors.Load(),
		FlushIssued:     b.FlushIssued.Load(),
		WritebackCount:  b.WritebackCount.Load(),
		WritebackIssued: b.WritebackIssued.Load(),
	}
	if n := st.Reads + st.Writes; n > 0 {
		st.IOAvgNanos = b.IOTotalNanos.Load() / n
	}
	return st
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ReadHits        int64
	ReadMisses      int64
	WriteHits       int64
	WriteMisses     int64
	Reads           int64
	Writes          int64
	IOErrors        int64
	IOAvgNanos      int64
	FlushCount      int64
	FlushErrors     int64
	FlushIssued     int64
	WritebackCount  int64
	WritebackIssued int64
}
