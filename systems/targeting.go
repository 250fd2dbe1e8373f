package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/entity"
)

// TargetingSystem gives idle-handed units the nearest living enemy within
// engage range. Units that already hold a target entity are left alone;
// combat clears targets that die or go stale.
type TargetingSystem struct {
	store    *entity.Store
	grid     *SpatialGrid
	engage   float64
	engageSq float64

	census *ecs.Filter3[components.Transform, components.UnitState, components.Team]
	filter *ecs.Filter4[components.Transform, components.UnitState, components.Target, components.Team]
}

// NewTargetingSystem creates the targeting system over the configured world.
func NewTargetingSystem(store *entity.Store, cfg *config.Config) *TargetingSystem {
	cell := cfg.Combat.EngageRange
	return &TargetingSystem{
		store:    store,
		grid:     NewSpatialGrid(cfg.World.Width, cfg.World.Height, cell),
		engage:   cfg.Combat.EngageRange,
		engageSq: cfg.Derived.EngageRangeSq,
		census:   ecs.NewFilter3[components.Transform, components.UnitState, components.Team](store.World()),
		filter:   ecs.NewFilter4[components.Transform, components.UnitState, components.Target, components.Team](store.World()),
	}
}

// Update rebuilds the grid from living units and assigns targets.
// It returns the number of targets acquired.
func (s *TargetingSystem) Update() int {
	if s.engage <= 0 {
		return 0
	}

	s.grid.Clear()
	census := s.census.Query()
	for census.Next() {
		tf, st, team := census.Get()
		if st.IsDead() {
			continue
		}
		h, _ := s.store.HandleOf(census.Entity())
		s.grid.Insert(SpatialEntry{Unit: h, Position: tf.Position, Team: team.ID})
	}

	acquired := 0
	query := s.filter.Query()
	for query.Next() {
		tf, st, tgt, team := query.Get()
		if st.IsDisabled() || !tgt.Entity.IsNil() {
			continue
		}
		self, _ := s.store.HandleOf(query.Entity())

		enemy, ok := s.grid.NearestEnemy(tf.Position, s.engage, team.ID, self)
		if !ok || enemy.DistSq > s.engageSq {
			continue
		}
		tgt.Entity = enemy.Unit
		tgt.Location = enemy.Position
		acquired++
	}
	return acquired
}
