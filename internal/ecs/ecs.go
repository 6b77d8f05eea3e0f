// Package ecs provides the entity registry and typed component tables that
// every simulation subsystem reads and writes.
package ecs

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// Entity is an opaque identifier. Its "type" is the set of components
// attached to it; the zero value is never a valid entity.
type Entity uint32

// Registry allocates entity ids. Entities are never destroyed — dormant
// entities simply stop being referenced by the systems that drove them.
type Registry struct {
	next  Entity
	alive map[Entity]bool
}

// NewRegistry creates an empty registry. Ids start at 1 so that 0 can be
// used as "no entity" in reference fields.
func NewRegistry() *Registry {
	return &Registry{next: 1, alive: make(map[Entity]bool)}
}

// Create allocates a fresh entity id.
func (r *Registry) Create() Entity {
	e := r.next
	r.next++
	r.alive[e] = true
	return e
}

// Restore re-registers an entity with a specific id, used by the snapshot
// loader after id remapping. The next allocated id is bumped past it.
func (r *Registry) Restore(e Entity) {
	r.alive[e] = true
	if e >= r.next {
		r.next = e + 1
	}
}

// Exists reports whether the entity has been created.
func (r *Registry) Exists(e Entity) bool { return r.alive[e] }

// Count returns the number of live entities.
func (r *Registry) Count() int { return len(r.alive) }

// All returns every entity in ascending id order.
func (r *Registry) All() []Entity {
	out := make([]Entity, 0, len(r.alive))
	for e := range r.alive {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Table is a sparse component table: at most one T per entity. Storage is
// dense (struct-of-arrays style) with a sparse index, so iteration is cheap
// and, critically, deterministic — rows are visited in insertion order,
// which keeps seeded-RNG runs reproducible.
type Table[T any] struct {
	index    map[Entity]int
	entities []Entity
	rows     []T
}

// NewTable creates an empty component table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{index: make(map[Entity]int)}
}

// Set attaches (or replaces) the component for an entity and returns a
// pointer to the stored row.
func (t *Table[T]) Set(e Entity, c T) *T {
	if i, ok := t.index[e]; ok {
		t.rows[i] = c
		return &t.rows[i]
	}
	t.index[e] = len(t.rows)
	t.entities = append(t.entities, e)
	t.rows = append(t.rows, c)
	return &t.rows[len(t.rows)-1]
}

// Get returns a pointer to the entity's component, or nil if absent.
// Presence of the component is what makes an entity "be" a city, a company,
// a factory, and so on.
func (t *Table[T]) Get(e Entity) *T {
	if i, ok := t.index[e]; ok {
		return &t.rows[i]
	}
	return nil
}

// Has reports whether the entity carries this component.
func (t *Table[T]) Has(e Entity) bool {
	_, ok := t.index[e]
	return ok
}

// Remove detaches the component from an entity. The last row is swapped
// into the hole, so removal is O(1) but perturbs iteration order; the
// simulation only removes components during snapshot restore.
func (t *Table[T]) Remove(e Entity) {
	i, ok := t.index[e]
	if !ok {
		return
	}
	last := len(t.rows) - 1
	if i != last {
		t.rows[i] = t.rows[last]
		t.entities[i] = t.entities[last]
		t.index[t.entities[i]] = i
	}
	t.rows = t.rows[:last]
	t.entities = t.entities[:last]
	delete(t.index, e)
}

// Len returns the number of rows in the table.
func (t *Table[T]) Len() int { return len(t.rows) }

// Each calls fn for every (entity, component) pair in insertion order.
// fn may mutate the component through the pointer but must not add or
// remove rows mid-iteration.
func (t *Table[T]) Each(fn func(e Entity, c *T)) {
	for i := range t.rows {
		fn(t.entities[i], &t.rows[i])
	}
}

// Entities returns the entities holding this component, in insertion order.
func (t *Table[T]) Entities() []Entity {
	out := make([]Entity, len(t.entities))
	copy(out, t.entities)
	return out
}

// Clear drops every row, keeping allocated capacity.
func (t *Table[T]) Clear() {
	t.rows = t.rows[:0]
	t.entities = t.entities[:0]
	clear(t.index)
}

// Clamp bounds v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp100 bounds a 0–100 scaled field.
func Clamp100(v float64) float64 { return Clamp(v, 0, 100) }
