package lists

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(m *Manager, id ID) []int32 {
	var out []int32
	m.Each(id, func(slot int32) bool {
		out = append(out, slot)
		return true
	})
	return out
}

func TestNewStartsOnFree(t *testing.T) {
	m := New(4)
	assert.Equal(t, 4, m.Slots())
	assert.Equal(t, 4, m.Len(Free))
	assert.Equal(t, []int32{0, 1, 2, 3}, collect(m, Free))
	for i := int32(0); i < 4; i++ {
		assert.Equal(t, Free, m.Of(i))
	}
}

func TestMoveToIsExclusive(t *testing.T) {
	m := New(3)

	m.MoveTo(1, Dirty)
	m.MoveTo(1, Clean)
	m.MoveTo(1, IOPending)

	assert.Equal(t, IOPending, m.Of(1))
	assert.Equal(t, 1, m.Len(IOPending))
	assert.Equal(t, 0, m.Len(Clean))
	assert.Equal(t, 0, m.Len(Dirty))
	assert.Equal(t, []int32{0, 2}, collect(m, Free))

	total := 0
	for id := None; id < numLists; id++ {
		total += m.Len(id)
	}
	assert.Equal(t, 3, total, "every slot is on exactly one list")
}

func TestMoveToAppendsToBack(t *testing.T) {
	m := New(4)
	for i := int32(0); i < 4; i++ {
		m.MoveTo(i, Clean)
	}
	m.MoveTo(0, Clean)

	assert.Equal(t, []int32{1, 2, 3, 0}, collect(m, Clean))
	assert.Equal(t, int32(1), m.Front(Clean))
}

func TestPopFrontAndUnlink(t *testing.T) {
	m := New(2)

	slot, ok := m.PopFront(Free)
	require.True(t, ok)
	assert.Equal(t, int32(0), slot)
	assert.Equal(t, None, m.Of(0))

	m.Unlink(0) // no-op
	m.MoveTo(0, None)
	assert.Equal(t, None, m.Of(0))

	_, ok = m.PopFront(Free)
	require.True(t, ok)
	_, ok = m.PopFront(Free)
	assert.False(t, ok)
	assert.True(t, m.Empty(Free))
	assert.Equal(t, Nil, m.Front(Free))
}

func TestEachToleratesUnlinkOfCurrent(t *testing.T) {
	m := New(6)
	for i := int32(0); i < 6; i++ {
		m.MoveTo(i, Dirty)
	}

	var visited []int32
	m.Each(Dirty, func(slot int32) bool {
		visited = append(visited, slot)
		if slot%2 == 0 {
			m.MoveTo(slot, IOPending)
		}
		return true
	})

	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, visited)
	assert.Equal(t, []int32{1, 3, 5}, collect(m, Dirty))
	assert.Equal(t, []int32{0, 2, 4}, collect(m, IOPending))
}

func TestEachStops(t *testing.T) {
	m := New(5)
	n := 0
	m.Each(Free, func(int32) bool {
		n++
		return n < 2
	})
	assert.Equal(t, 2, n)
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, Errored, Categorize(true, true))
	assert.Equal(t, Errored, Categorize(true, false))
	assert.Equal(t, Dirty, Categorize(false, true))
	assert.Equal(t, Clean, Categorize(false, false))
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "io-pending", IOPending.String())
	assert.Equal(t, "free", Free.String())
	assert.Equal(t, "list(42)", ID(42).String())
}
