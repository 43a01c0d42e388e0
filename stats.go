package bcache

import "github.com/hupe1980/bcache/internal/lists"

type counters struct {
	readHits    uint64
	readMisses  uint64
	writeHits   uint64
	writeMisses uint64
	writeZeroes uint64
	prefetches  uint64
	reads       uint64
	writes      uint64
	ioErrors    uint64
}

// Stats is a snapshot of cache counters and gauges. Counters never affect
// cache behavior.
type Stats struct {
	ReadHits    uint64
	ReadMisses  uint64
	WriteHits   uint64
	WriteMisses uint64
	WriteZeroes uint64
	Prefetches  uint64
	Reads       uint64 // reads issued
	Writes      uint64 // writes issued
	IOErrors    uint64

	Capacity  int
	Locked    int
	Dirty     int
	IOPending int
	Errored   int
	Clean     int
	Free      int
}

// HitRatio returns hits over lookups, or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	hits := s.ReadHits + s.WriteHits
	total := hits + s.ReadMisses + s.WriteMisses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Cache) snapshot() Stats {
	return Stats{
		ReadHits:    c.stats.readHits,
		ReadMisses:  c.stats.readMisses,
		WriteHits:   c.stats.writeHits,
		WriteMisses: c.stats.writeMisses,
		WriteZeroes: c.stats.writeZeroes,
		Prefetches:  c.stats.prefetches,
		Reads:       c.stats.reads,
		Writes:      c.stats.writes,
		IOErrors:    c.stats.ioErrors,
		Capacity:    c.capacity,
		Locked:      c.nrLocked,
		Dirty:       c.nrDirty,
		IOPending:   c.lists.Len(lists.IOPending),
		Errored:     c.lists.Len(lists.Errored),
		Clean:       c.lists.Len(lists.Clean),
		Free:        c.lists.Len(lists.Free),
	}
}

func (c *Cache) recordGet(hit bool, flags GetFlags) {
	write := flags&(Zero|Dirty) != 0
	switch {
	case hit && write:
		c.stats.writeHits++
	case hit:
		c.stats.readHits++
	case write:
		c.stats.writeMisses++
	default:
		c.stats.readMisses++
	}
	c.opts.metricsCollector.RecordGet(hit, write)
}
