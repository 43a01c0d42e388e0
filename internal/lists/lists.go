package lists

import "fmt"

// ID names one of the membership lists.
type ID uint8

const (
	// None means the slot is not linked anywhere. Only transient: a slot
	// sits here between being claimed and its first categorisation.
	None ID = iota
	Free
	Clean
	Dirty
	Errored
	IOPending

	numLists
)

func (id ID) String() string {
	switch id {
	case None:
		return "none"
	case Free:
		return "free"
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Errored:
		return "errored"
	case IOPending:
		return "io-pending"
	default:
		return fmt.Sprintf("list(%d)", uint8(id))
	}
}

// Nil marks the end of a list.
const Nil int32 = -1

type list struct {
	head, tail int32
	len        int
}

// Manager partitions the slots 0..n-1 across the membership lists.
type Manager struct {
	lists [numLists]list
	next  []int32
	prev  []int32
	owner []ID
}

// New creates a Manager for n slots, all initially on the Free list in
// ascending order.
func New(n int) *Manager {
	m := &Manager{
		next:  make([]int32, n),
		prev:  make([]int32, n),
		owner: make([]ID, n),
	}
	for i := range m.lists {
		m.lists[i] = list{head: Nil, tail: Nil}
	}
	for i := 0; i < n; i++ {
		m.next[i], m.prev[i] = Nil, Nil
		m.pushBack(int32(i), Free)
	}
	return m
}

// Slots returns the number of slots managed.
func (m *Manager) Slots() int { return len(m.owner) }

// Of returns the list the slot is currently on.
func (m *Manager) Of(slot int32) ID { return m.owner[slot] }

// Len returns the number of slots on the list.
func (m *Manager) Len(id ID) int { return m.lists[id].len }

// Empty reports whether the list has no members.
func (m *Manager) Empty(id ID) bool { return m.lists[id].len == 0 }

// Front returns the first slot on the list, or Nil.
func (m *Manager) Front(id ID) int32 { return m.lists[id].head }

// Next returns the slot after slot on its list, or Nil.
func (m *Manager) Next(slot int32) int32 { return m.next[slot] }

// MoveTo unlinks the slot from wherever it is and appends it to the back
// of the list. Moving to None just unlinks.
func (m *Manager) MoveTo(slot int32, id ID) {
	m.Unlink(slot)
	if id != None {
		m.pushBack(slot, id)
	}
}

// PopFront unlinks and returns the first slot of the list.
func (m *Manager) PopFront(id ID) (int32, bool) {
	slot := m.lists[id].head
	if slot == Nil {
		return Nil, false
	}
	m.Unlink(slot)
	return slot, true
}

// Unlink removes the slot from its current list. It is a no-op for an
// unlinked slot.
func (m *Manager) Unlink(slot int32) {
	id := m.owner[slot]
	if id == None {
		return
	}
	l := &m.lists[id]

	p, n := m.prev[slot], m.next[slot]
	if p != Nil {
		m.next[p] = n
	} else {
		l.head = n
	}
	if n != Nil {
		m.prev[n] = p
	} else {
		l.tail = p
	}

	m.next[slot], m.prev[slot] = Nil, Nil
	m.owner[slot] = None
	l.len--
}

func (m *Manager) pushBack(slot int32, id ID) {
	l := &m.lists[id]
	m.prev[slot] = l.tail
	m.next[slot] = Nil
	if l.tail != Nil {
		m.next[l.tail] = slot
	} else {
		l.head = slot
	}
	l.tail = slot
	m.owner[slot] = id
	l.len++
}

// Each calls fn for the slots on the list, front to back, until fn
// returns false. The successor is captured before fn runs, so fn may
// relink the current slot (for example by issuing I/O that moves it to
// IOPending) without the walk skipping or revisiting a slot. fn must not
// relink any other slot of the same list.
func (m *Manager) Each(id ID, fn func(slot int32) bool) {
	for slot := m.lists[id].head; slot != Nil; {
		next := m.next[slot]
		if !fn(slot) {
			return
		}
		slot = next
	}
}

// Categorize returns the list a resolved (not pending) slot belongs on:
// Errored if it carries an error, else Dirty if flagged dirty, else Clean.
func Categorize(errored, dirty bool) ID {
	switch {
	case errored:
		return Errored
	case dirty:
		return Dirty
	default:
		return Clean
	}
}
