package systems

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/entity"
	"github.com/pthm-cable/legion/events"
)

// ViewerSource supplies the current viewer location. ok is false when there is
// no viewer this frame.
type ViewerSource interface {
	ViewerLocation() (pos r3.Vec, ok bool)
}

// MeshPool hands out skeletal meshes by unit. Acquire fails when the pool is
// exhausted; ReleaseFor is a no-op for units without a mesh.
type MeshPool interface {
	Acquire(unit components.Handle) (int, bool)
	ReleaseFor(unit components.Handle)
}

// LODLevel returns the index of the first ascending squared threshold greater
// than distSq, or len(thresholdsSq) when none is.
func LODLevel(distSq float64, thresholdsSq []float64) int {
	for i, t := range thresholdsSq {
		if distSq < t {
			return i
		}
	}
	return len(thresholdsSq)
}

// VisibilityStats summarises one visibility pass.
type VisibilityStats struct {
	Visible      int
	Skeletal     int
	Flips        int
	PoolFailures int
}

type representationFlip struct {
	unit     components.Handle
	skeletal bool
}

// VisibilitySystem computes LOD and the skeletal/vertex representation of every
// unit from its distance to the viewer.
type VisibilitySystem struct {
	store  *entity.Store
	viewer ViewerSource
	pool   MeshPool
	events events.Dispatcher
	filter *ecs.Filter3[components.Transform, components.Visual, components.LOD]

	thresholdsSq []float64
	maxVisibleSq float64
	skeletalSq   float64
	flips        []representationFlip
	starved      bool // previous tick had pool failures
}

// NewVisibilitySystem creates the visibility system. pool and bus may be nil.
func NewVisibilitySystem(store *entity.Store, cfg *config.Config, viewer ViewerSource, pool MeshPool, bus events.Dispatcher) *VisibilitySystem {
	return &VisibilitySystem{
		store:        store,
		viewer:       viewer,
		pool:         pool,
		events:       bus,
		filter:       ecs.NewFilter3[components.Transform, components.Visual, components.LOD](store.World()),
		thresholdsSq: cfg.Derived.LODThresholdsSq,
		maxVisibleSq: cfg.Derived.MaxVisibleDistSq,
		skeletalSq:   cfg.Derived.SkeletalDistanceSq,
	}
}

// Update runs one pass. Without a viewer it does nothing.
func (s *VisibilitySystem) Update() VisibilityStats {
	var stats VisibilityStats
	if s.viewer == nil {
		return stats
	}
	viewer, ok := s.viewer.ViewerLocation()
	if !ok {
		return stats
	}

	s.flips = s.flips[:0]
	query := s.filter.Query()
	for query.Next() {
		tf, vis, lod := query.Get()

		d2 := distSq(tf.Position, viewer)
		level := LODLevel(d2, s.thresholdsSq)
		lod.Level = level
		lod.DistanceSq = d2
		vis.LODLevel = level
		vis.Visible = level < len(s.thresholdsSq) && d2 <= s.maxVisibleSq
		if vis.Visible {
			stats.Visible++
		}

		wantSkeletal := vis.Visible && d2 <= s.skeletalSq
		if wantSkeletal != vis.Skeletal {
			if h, ok := s.store.HandleOf(query.Entity()); ok {
				s.flips = append(s.flips, representationFlip{unit: h, skeletal: wantSkeletal})
			}
		} else if vis.Skeletal {
			stats.Skeletal++
		}
	}

	// Pool calls and listeners run after the query closes.
	for _, f := range s.flips {
		if s.applyFlip(f) {
			stats.Flips++
		} else {
			stats.PoolFailures++
		}
		if f.skeletal {
			if vis := s.store.Visual(f.unit); vis != nil && vis.Skeletal {
				stats.Skeletal++
			}
		}
	}

	// Warn once when the pool starts turning units away, not every tick.
	if stats.PoolFailures > 0 && !s.starved {
		slog.Warn("mesh_pool_exhausted", "waiting", stats.PoolFailures)
	}
	s.starved = stats.PoolFailures > 0
	return stats
}

// applyFlip switches a unit's representation, keeping skeletal and vertex exclusive.
func (s *VisibilitySystem) applyFlip(f representationFlip) bool {
	vis := s.store.Visual(f.unit)
	if vis == nil {
		return false
	}

	if f.skeletal {
		mesh := components.NoMesh
		if s.pool != nil {
			idx, ok := s.pool.Acquire(f.unit)
			if !ok {
				slog.Debug("mesh_pool_exhausted", "unit", f.unit.String())
				return false
			}
			mesh = idx
		}
		vis.Skeletal = true
		vis.MeshIndex = mesh
		slog.Debug("representation_flip", "unit", f.unit.String(), "to", "skeletal", "mesh", mesh)
		s.dispatch(events.VisualSkeletal, f.unit, float64(mesh))
		return true
	}

	if s.pool != nil {
		s.pool.ReleaseFor(f.unit)
	}
	vis.Skeletal = false
	vis.MeshIndex = components.NoMesh
	slog.Debug("representation_flip", "unit", f.unit.String(), "to", "vertex")
	s.dispatch(events.VisualVertex, f.unit, 0)
	return true
}

func (s *VisibilitySystem) dispatch(tag components.Tag, unit components.Handle, magnitude float64) {
	if s.events != nil {
		s.events.Dispatch(tag, unit, events.Payload{Magnitude: magnitude})
	}
}
