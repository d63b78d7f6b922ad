// Package ecs provides the minimal entity/component store the drawer and
// render graph need to look up a voxel instance's grid, transform, and
// per-camera view state. It is not a general-purpose ECS — that is left
// to an external collaborator; it is the smallest dense-array
// store that lets push_mesh(entity)-style lookups run in O(1) and be
// exercised by tests.
package ecs

// ID identifies an entity. 0 is never issued, so the zero value of ID can
// mark "no entity" in a component field.
type ID uint32

// World allocates entity ids and tracks which are alive, mirroring
// lida_ECS_Create/lida_CreateEntity/lida_DestroyEntity's id-recycling
// shape: destroyed ids go on a free list and are reissued before the
// counter advances again.
type World struct {
	next ID
	free []ID
	live map[ID]bool
}

func NewWorld() *World {
	return &World{next: 1, live: make(map[ID]bool)}
}

func (w *World) CreateEntity() ID {
	var id ID
	if n := len(w.free); n > 0 {
		id = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		id = w.next
		w.next++
	}
	w.live[id] = true
	return id
}

func (w *World) DestroyEntity(id ID) {
	if !w.live[id] {
		return
	}
	delete(w.live, id)
	w.free = append(w.free, id)
}

func (w *World) Alive(id ID) bool { return w.live[id] }

// Table is a dense sparse-set component store for one component type T,
// grounded on lida_ComponentView's parallel ids()/data() dense arrays: a
// full scan of Table.Each walks exactly the live components with no gaps,
// and Get/Remove are O(1) via the sparse index.
type Table[T any] struct {
	ids    []ID
	data   []T
	sparse map[ID]int // entity id -> index into ids/data
}

func NewTable[T any]() *Table[T] {
	return &Table[T]{sparse: make(map[ID]int)}
}

// Add inserts or overwrites the component for id, returning a pointer into
// the dense array so callers can mutate it in place.
func (t *Table[T]) Add(id ID, v T) *T {
	if i, ok := t.sparse[id]; ok {
		t.data[i] = v
		return &t.data[i]
	}
	t.sparse[id] = len(t.ids)
	t.ids = append(t.ids, id)
	t.data = append(t.data, v)
	return &t.data[len(t.data)-1]
}

// Get returns a pointer to id's component and true, or nil and false if id
// has none.
func (t *Table[T]) Get(id ID) (*T, bool) {
	i, ok := t.sparse[id]
	if !ok {
		return nil, false
	}
	return &t.data[i], true
}

// Remove deletes id's component, if any, filling the hole with the dense
// array's last element (the standard sparse-set swap-remove) so Each never
// walks a gap.
func (t *Table[T]) Remove(id ID) {
	i, ok := t.sparse[id]
	if !ok {
		return
	}
	last := len(t.ids) - 1
	movedID := t.ids[last]
	t.ids[i] = movedID
	t.data[i] = t.data[last]
	t.sparse[movedID] = i

	t.ids = t.ids[:last]
	t.data = t.data[:last]
	delete(t.sparse, id)
}

func (t *Table[T]) Len() int { return len(t.ids) }

// Each calls fn for every live (id, *component) pair, in dense order.
func (t *Table[T]) Each(fn func(id ID, v *T)) {
	for i := range t.ids {
		fn(t.ids[i], &t.data[i])
	}
}
