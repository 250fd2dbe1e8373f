package entity

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/legion/components"
)

// Unit bundles the initial value of every component a spawned unit carries.
type Unit struct {
	Transform  components.Transform
	Velocity   components.Velocity
	Force      components.Force
	LookAt     components.LookAt
	State      components.UnitState
	Target     components.Target
	Team       components.Team
	Ability    components.Ability
	Visual     components.Visual
	Formation  components.Formation
	Navigation components.Navigation
	LOD        components.LOD
}

// Store is the component store. Components live in an ark world; units are
// addressed by generational handles resolved through the registry on every access.
//
// Structural changes (Create, Destroy) must not happen while a query over the
// world is open.
type Store struct {
	world   *ecs.World
	reg     *Registry
	handles map[ecs.Entity]components.Handle

	motionMapper *ecs.Map6[
		components.Transform,
		components.Velocity,
		components.Force,
		components.LookAt,
		components.UnitState,
		components.Target,
	]
	detailMapper *ecs.Map6[
		components.Team,
		components.Ability,
		components.Visual,
		components.Formation,
		components.Navigation,
		components.LOD,
	]

	transforms  *ecs.Map[components.Transform]
	velocities  *ecs.Map[components.Velocity]
	forces      *ecs.Map[components.Force]
	lookAts     *ecs.Map[components.LookAt]
	states      *ecs.Map[components.UnitState]
	targets     *ecs.Map[components.Target]
	teams       *ecs.Map[components.Team]
	abilities   *ecs.Map[components.Ability]
	visuals     *ecs.Map[components.Visual]
	formations  *ecs.Map[components.Formation]
	navigations *ecs.Map[components.Navigation]
	lods        *ecs.Map[components.LOD]
}

// NewStore creates an empty store sized for capacity units.
func NewStore(capacity int) *Store {
	world := ecs.NewWorld()
	return &Store{
		world:   world,
		reg:     NewRegistry(capacity),
		handles: make(map[ecs.Entity]components.Handle, capacity),
		motionMapper: ecs.NewMap6[
			components.Transform,
			components.Velocity,
			components.Force,
			components.LookAt,
			components.UnitState,
			components.Target,
		](world),
		detailMapper: ecs.NewMap6[
			components.Team,
			components.Ability,
			components.Visual,
			components.Formation,
			components.Navigation,
			components.LOD,
		](world),
		transforms:  ecs.NewMap[components.Transform](world),
		velocities:  ecs.NewMap[components.Velocity](world),
		forces:      ecs.NewMap[components.Force](world),
		lookAts:     ecs.NewMap[components.LookAt](world),
		states:      ecs.NewMap[components.UnitState](world),
		targets:     ecs.NewMap[components.Target](world),
		teams:       ecs.NewMap[components.Team](world),
		abilities:   ecs.NewMap[components.Ability](world),
		visuals:     ecs.NewMap[components.Visual](world),
		formations:  ecs.NewMap[components.Formation](world),
		navigations: ecs.NewMap[components.Navigation](world),
		lods:        ecs.NewMap[components.LOD](world),
	}
}

// World exposes the ark world so systems can build their own filters.
func (s *Store) World() *ecs.World { return s.world }

// Create allocates a handle and initializes every component from u.
func (s *Store) Create(u *Unit) components.Handle {
	e := s.motionMapper.NewEntity(&u.Transform, &u.Velocity, &u.Force, &u.LookAt, &u.State, &u.Target)
	s.detailMapper.Add(e, &u.Team, &u.Ability, &u.Visual, &u.Formation, &u.Navigation, &u.LOD)

	h := s.reg.Create(e)
	s.handles[e] = h
	return h
}

// IsValid reports whether h refers to a live unit.
func (s *Store) IsValid(h components.Handle) bool {
	e, ok := s.reg.Resolve(h)
	return ok && s.world.Alive(e)
}

// Destroy removes the unit's components and invalidates h. Stale handles are a no-op.
func (s *Store) Destroy(h components.Handle) bool {
	e, ok := s.reg.Resolve(h)
	if !ok {
		return false
	}
	if s.world.Alive(e) {
		s.world.RemoveEntity(e)
	}
	delete(s.handles, e)
	return s.reg.Release(h)
}

// Entity resolves h to its ark entity.
func (s *Store) Entity(h components.Handle) (ecs.Entity, bool) {
	e, ok := s.reg.Resolve(h)
	if !ok || !s.world.Alive(e) {
		return ecs.Entity{}, false
	}
	return e, true
}

// HandleOf maps an ark entity from a query back to its handle.
func (s *Store) HandleOf(e ecs.Entity) (components.Handle, bool) {
	h, ok := s.handles[e]
	return h, ok
}

// Len returns the number of live units.
func (s *Store) Len() int { return s.reg.Len() }

// Handles returns every live handle in slot order.
func (s *Store) Handles() []components.Handle {
	out := make([]components.Handle, 0, s.reg.Len())
	s.reg.Each(func(h components.Handle) { out = append(out, h) })
	return out
}

func lookup[T any](s *Store, m *ecs.Map[T], h components.Handle) *T {
	e, ok := s.Entity(h)
	if !ok || !m.Has(e) {
		return nil
	}
	return m.Get(e)
}

// Get returns a pointer to component T of h, or nil if h is stale or lacks T.
func Get[T any](s *Store, h components.Handle) *T {
	return lookup(s, ecs.NewMap[T](s.world), h)
}

// Has reports whether h is live and carries component T.
func Has[T any](s *Store, h components.Handle) bool {
	return Get[T](s, h) != nil
}

func (s *Store) Transform(h components.Handle) *components.Transform {
	return lookup(s, s.transforms, h)
}

func (s *Store) Velocity(h components.Handle) *components.Velocity {
	return lookup(s, s.velocities, h)
}

func (s *Store) Force(h components.Handle) *components.Force {
	return lookup(s, s.forces, h)
}

func (s *Store) LookAt(h components.Handle) *components.LookAt {
	return lookup(s, s.lookAts, h)
}

func (s *Store) State(h components.Handle) *components.UnitState {
	return lookup(s, s.states, h)
}

func (s *Store) Target(h components.Handle) *components.Target {
	return lookup(s, s.targets, h)
}

func (s *Store) Team(h components.Handle) *components.Team {
	return lookup(s, s.teams, h)
}

func (s *Store) Ability(h components.Handle) *components.Ability {
	return lookup(s, s.abilities, h)
}

func (s *Store) Visual(h components.Handle) *components.Visual {
	return lookup(s, s.visuals, h)
}

func (s *Store) Formation(h components.Handle) *components.Formation {
	return lookup(s, s.formations, h)
}

func (s *Store) Navigation(h components.Handle) *components.Navigation {
	return lookup(s, s.navigations, h)
}

func (s *Store) LOD(h components.Handle) *components.LOD {
	return lookup(s, s.lods, h)
}
