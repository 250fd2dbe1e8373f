// Package entity owns unit identity: generational handles, the ark-backed
// component store, templates and the type/team indexes.
package entity

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/legion/components"
)

type slot struct {
	generation uint32
	entity     ecs.Entity
	alive      bool
}

// Registry allocates generational handles. Freed slots are reused with the
// generation incremented, so handles to the old occupant stop resolving.
type Registry struct {
	slots []slot
	free  []uint32
	alive int
}

// NewRegistry creates a registry with room for capacity slots before growing.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		slots: make([]slot, 0, capacity),
		free:  make([]uint32, 0, 64),
	}
}

// Create binds a new handle to the given ark entity.
func (r *Registry) Create(e ecs.Entity) components.Handle {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot{generation: 1})
	}

	s := &r.slots[idx]
	s.entity = e
	s.alive = true
	r.alive++
	return components.Handle{Index: idx, Generation: s.generation}
}

// IsValid reports whether h refers to a live slot with a current generation.
func (r *Registry) IsValid(h components.Handle) bool {
	if h.Generation == 0 || int(h.Index) >= len(r.slots) {
		return false
	}
	s := &r.slots[h.Index]
	return s.alive && s.generation == h.Generation
}

// Resolve returns the ark entity for a valid handle.
func (r *Registry) Resolve(h components.Handle) (ecs.Entity, bool) {
	if !r.IsValid(h) {
		return ecs.Entity{}, false
	}
	return r.slots[h.Index].entity, true
}

// Release invalidates h and returns its slot to the free list.
// Releasing a stale handle is a no-op.
func (r *Registry) Release(h components.Handle) bool {
	if !r.IsValid(h) {
		return false
	}
	s := &r.slots[h.Index]
	s.alive = false
	s.entity = ecs.Entity{}
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	r.free = append(r.free, h.Index)
	r.alive--
	return true
}

// Len returns the number of live handles.
func (r *Registry) Len() int { return r.alive }

// Cap returns the number of slots ever allocated.
func (r *Registry) Cap() int { return len(r.slots) }

// Each calls fn for every live handle in slot order.
func (r *Registry) Each(fn func(h components.Handle)) {
	for i := range r.slots {
		s := &r.slots[i]
		if s.alive {
			fn(components.Handle{Index: uint32(i), Generation: s.generation})
		}
	}
}
