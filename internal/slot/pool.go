package slot

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/hupe1980/bcache/internal/lists"
)

// MinSlots is the smallest cache the pool will build. Below this a single
// caller holding a handful of blocks could starve reclaim entirely.
const MinSlots = 16

// Capacity returns how many slots of blockSize bytes, including per-slot
// bookkeeping, fit into budget bytes. The result is never below MinSlots.
func Capacity(budget int64, blockSize int) int {
	if blockSize <= 0 {
		return MinSlots
	}
	perSlot := int64(blockSize) + int64(unsafe.Sizeof(Slot{}))
	n := budget / perSlot
	if n < MinSlots {
		return MinSlots
	}
	if n > int64(^uint32(0)>>1) {
		n = int64(^uint32(0) >> 1)
	}
	return int(n)
}

// Buckets returns the index bucket count for n slots: the smallest power of
// two that is at least max(8, n/4).
func Buckets(n int) int {
	want := n / 4
	if want < 8 {
		want = 8
	}
	r := 8
	for r < want {
		r <<= 1
	}
	return r
}

// Pool owns the slot arena, the address index and the membership lists.
type Pool struct {
	slots    []Slot
	buckets  []int32
	shift    uint
	lists    *lists.Manager
	occupied int
}

// NewPool builds a pool with one slot per buffer. All slots start on the
// free list.
func NewPool(buffers [][]byte) *Pool {
	n := len(buffers)
	nb := Buckets(n)

	p := &Pool{
		slots:   make([]Slot, n),
		buckets: make([]int32, nb),
		shift:   uint(64 - bits.TrailingZeros(uint(nb))),
		lists:   lists.New(n),
	}
	for i := range p.buckets {
		p.buckets[i] = lists.Nil
	}
	for i := range p.slots {
		p.slots[i] = Slot{ID: int32(i), Data: buffers[i], chain: lists.Nil}
	}
	return p
}

// Len returns the number of slots.
func (p *Pool) Len() int { return len(p.slots) }

// Occupied returns the number of indexed slots.
func (p *Pool) Occupied() int { return p.occupied }

// Lists returns the membership lists of the pool's slots.
func (p *Pool) Lists() *lists.Manager { return p.lists }

// Slot returns the slot with the given ID.
func (p *Pool) Slot(id int32) *Slot { return &p.slots[id] }

func (p *Pool) bucket(index uint64) int {
	// Fibonacci hashing spreads sequential addresses across buckets.
	return int((index * 0x9E3779B97F4A7C15) >> p.shift)
}

// Find returns the occupied slot holding block index.
func (p *Pool) Find(index uint64) (*Slot, bool) {
	for id := p.buckets[p.bucket(index)]; id != lists.Nil; id = p.slots[id].chain {
		if p.slots[id].Index == index {
			return &p.slots[id], true
		}
	}
	return nil, false
}

// ClaimFree pops a slot from the free list. The slot is left unlinked and
// unindexed.
func (p *Pool) ClaimFree() (*Slot, bool) {
	id, ok := p.lists.PopFront(lists.Free)
	if !ok {
		return nil, false
	}
	return &p.slots[id], true
}

// Insert indexes the slot under its Index. Mapping an address twice is an
// invariant violation and panics.
func (p *Pool) Insert(s *Slot) {
	if s.occupied {
		panic(fmt.Sprintf("slot: slot %d already indexed as block %d", s.ID, s.Index))
	}
	if other, ok := p.Find(s.Index); ok {
		panic(fmt.Sprintf("slot: block %d already held by slot %d", s.Index, other.ID))
	}
	b := p.bucket(s.Index)
	s.chain = p.buckets[b]
	p.buckets[b] = s.ID
	s.occupied = true
	p.occupied++
}

// Remove drops the slot from the index. The slot's list membership is not
// touched.
func (p *Pool) Remove(s *Slot) {
	if !s.occupied {
		return
	}
	b := p.bucket(s.Index)
	if p.buckets[b] == s.ID {
		p.buckets[b] = s.chain
	} else {
		for id := p.buckets[b]; id != lists.Nil; id = p.slots[id].chain {
			if p.slots[id].chain == s.ID {
				p.slots[id].chain = s.chain
				break
			}
		}
	}
	s.chain = lists.Nil
	s.occupied = false
	p.occupied--
}

// Free unindexes the slot and returns it to the free list.
func (p *Pool) Free(s *Slot) {
	p.Remove(s)
	s.Reset(0, nil)
	p.lists.MoveTo(s.ID, lists.Free)
}
