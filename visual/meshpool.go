// Package visual holds the render-facing side of the simulation: the skeletal
// mesh pool and the per-tick render attribute snapshot.
package visual

import (
	"log/slog"

	"github.com/pthm-cable/legion/components"
)

// Mesh is one pooled skeletal mesh slot.
type Mesh struct {
	ID    int
	Owner components.Handle
	InUse bool
}

// MeshPool hands out a bounded number of skeletal meshes, one per unit.
// It is used from the tick goroutine only.
type MeshPool struct {
	capacity int
	meshes   []Mesh
	free     []int
	byOwner  map[components.Handle]int
}

// NewMeshPool creates a pool of at most capacity meshes and pre-creates
// min(capacity/4, 25) of them.
func NewMeshPool(capacity int) *MeshPool {
	p := &MeshPool{
		capacity: max(0, capacity),
		byOwner:  make(map[components.Handle]int),
	}
	for i := 0; i < min(p.capacity/4, 25); i++ {
		p.grow()
	}
	return p
}

func (p *MeshPool) grow() int {
	id := len(p.meshes)
	p.meshes = append(p.meshes, Mesh{ID: id, Owner: components.NilHandle})
	p.free = append(p.free, id)
	return id
}

// Acquire returns the mesh owned by unit, assigning one if needed.
// It fails when every mesh is in use and the pool is at capacity.
func (p *MeshPool) Acquire(unit components.Handle) (int, bool) {
	if id, ok := p.byOwner[unit]; ok {
		return id, true
	}
	if len(p.free) == 0 {
		if len(p.meshes) >= p.capacity {
			return components.NoMesh, false
		}
		p.grow()
	}

	id := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.meshes[id].Owner = unit
	p.meshes[id].InUse = true
	p.byOwner[unit] = id
	return id, true
}

// Release returns a mesh to the pool. Unknown or idle meshes are ignored.
func (p *MeshPool) Release(id int) {
	if id < 0 || id >= len(p.meshes) || !p.meshes[id].InUse {
		return
	}
	m := &p.meshes[id]
	delete(p.byOwner, m.Owner)
	m.Owner = components.NilHandle
	m.InUse = false
	p.free = append(p.free, id)
}

// ReleaseFor returns the mesh owned by unit, if any.
func (p *MeshPool) ReleaseFor(unit components.Handle) {
	if id, ok := p.byOwner[unit]; ok {
		p.Release(id)
	}
}

// OnUnitDestroyed is a destroy hook releasing the unit's mesh.
func (p *MeshPool) OnUnitDestroyed(unit components.Handle) {
	if _, ok := p.byOwner[unit]; ok {
		slog.Debug("mesh_released", "unit", unit.String(), "reason", "destroyed")
		p.ReleaseFor(unit)
	}
}

// InUse returns the number of meshes currently owned.
func (p *MeshPool) InUse() int { return len(p.byOwner) }

// Created returns the number of meshes allocated so far.
func (p *MeshPool) Created() int { return len(p.meshes) }

// Capacity returns the pool's upper bound.
func (p *MeshPool) Capacity() int { return p.capacity }

// Owners returns the units currently holding a mesh, in mesh order.
func (p *MeshPool) Owners() []components.Handle {
	out := make([]components.Handle, 0, len(p.byOwner))
	for _, m := range p.meshes {
		if m.InUse {
			out = append(out, m.Owner)
		}
	}
	return out
}
