package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldRecyclesDestroyedIDs(t *testing.T) {
	w := NewWorld()
	a := w.CreateEntity()
	b := w.CreateEntity()
	w.DestroyEntity(a)
	c := w.CreateEntity()
	assert.Equal(t, a, c, "expected destroyed id to be recycled")
	assert.True(t, w.Alive(b))
	assert.True(t, w.Alive(c))
	if a != c {
		assert.False(t, w.Alive(a), "stale id should not read as alive under its old identity")
	}
}

func TestTableAddGetRemove(t *testing.T) {
	tbl := NewTable[int]()
	tbl.Add(1, 10)
	tbl.Add(2, 20)
	tbl.Add(3, 30)

	v, ok := tbl.Get(2)
	require.True(t, ok)
	assert.Equal(t, 20, *v)

	tbl.Remove(2)
	_, ok = tbl.Get(2)
	assert.False(t, ok, "expected 2 to be gone after Remove")
	assert.Equal(t, 2, tbl.Len())

	// Swap-remove must not lose the entry that filled the hole.
	v, ok = tbl.Get(3)
	require.True(t, ok, "expected entity 3 to survive the swap-remove")
	assert.Equal(t, 30, *v)
}

func TestTableEachVisitsEveryLiveEntry(t *testing.T) {
	tbl := NewTable[string]()
	tbl.Add(1, "a")
	tbl.Add(2, "b")
	tbl.Remove(1)
	tbl.Add(3, "c")

	seen := map[ID]string{}
	tbl.Each(func(id ID, v *string) { seen[id] = *v })
	assert.Equal(t, map[ID]string{2: "b", 3: "c"}, seen)
}
