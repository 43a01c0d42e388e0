package slot

import (
	"strings"

	"github.com/hupe1980/bcache/internal/lists"
	"github.com/hupe1980/bcache/validator"
)

// Flags is the per-slot state bitset.
type Flags uint8

const (
	// IOPending is set while a read or write for the slot is in flight.
	IOPending Flags = 1 << iota
	// Dirty means the buffer differs from the disk.
	Dirty
	// PreviouslyDirty means the slot is already accounted on the dirty list.
	PreviouslyDirty
	// Flush requests a full flush when the slot is released.
	Flush
)

func (f Flags) String() string {
	if f == 0 {
		return "0"
	}
	var parts []string
	for _, x := range []struct {
		bit  Flags
		name string
	}{
		{IOPending, "io-pending"},
		{Dirty, "dirty"},
		{PreviouslyDirty, "previously-dirty"},
		{Flush, "flush"},
	} {
		if f&x.bit != 0 {
			parts = append(parts, x.name)
		}
	}
	return strings.Join(parts, "|")
}

// Slot is a fixed-size buffer plus the metadata for the block it holds.
type Slot struct {
	// ID is the slot's position in the arena. It never changes.
	ID int32
	// Index is the block address held; valid only while occupied.
	Index uint64
	// Data is the slot's aligned buffer.
	Data []byte
	// RefCount is the number of outstanding holders.
	RefCount int32
	Flags    Flags
	// Err is the last I/O error, nil if none.
	Err error
	// V is the validator associated with the current contents.
	V validator.Validator

	occupied bool
	chain    int32
}

// Has reports whether all bits of f are set.
func (s *Slot) Has(f Flags) bool { return s.Flags&f == f }

// Set sets the bits of f.
func (s *Slot) Set(f Flags) { s.Flags |= f }

// Clear clears the bits of f.
func (s *Slot) Clear(f Flags) { s.Flags &^= f }

// Locked reports whether the slot has holders.
func (s *Slot) Locked() bool { return s.RefCount > 0 }

// Occupied reports whether the slot is indexed by a block address.
func (s *Slot) Occupied() bool { return s.occupied }

// Category returns the list a resolved slot belongs on.
func (s *Slot) Category() lists.ID {
	return lists.Categorize(s.Err != nil, s.Has(Dirty))
}

// Reset prepares a claimed slot to hold block index.
func (s *Slot) Reset(index uint64, v validator.Validator) {
	s.Index = index
	s.RefCount = 0
	s.Flags = 0
	s.Err = nil
	s.V = v
}
