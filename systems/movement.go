package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/entity"
)

// MovementSystem steers units toward their formation slot or target and
// integrates velocity and position.
type MovementSystem struct {
	store  *entity.Store
	filter *ecs.Filter7[
		components.Transform,
		components.Velocity,
		components.Force,
		components.LookAt,
		components.UnitState,
		components.Target,
		components.Formation,
	]

	maxSpeed       float64
	acceleration   float64
	deceleration   float64
	turnRate       float64 // radians per second
	formationTolSq float64
	targetTolSq    float64
}

// NewMovementSystem creates the movement system.
func NewMovementSystem(store *entity.Store, cfg *config.Config) *MovementSystem {
	return &MovementSystem{
		store: store,
		filter: ecs.NewFilter7[
			components.Transform,
			components.Velocity,
			components.Force,
			components.LookAt,
			components.UnitState,
			components.Target,
			components.Formation,
		](store.World()),
		maxSpeed:       cfg.Movement.MaxSpeed,
		acceleration:   cfg.Movement.Acceleration,
		deceleration:   cfg.Movement.Deceleration,
		turnRate:       cfg.Movement.TurningRate * math.Pi / 180,
		formationTolSq: cfg.Derived.FormationToleranceSq,
		targetTolSq:    cfg.Derived.TargetToleranceSq,
	}
}

// SetAcceleration overrides the steering constants, for parameter search.
func (s *MovementSystem) SetAcceleration(accel, decel float64) {
	s.acceleration = accel
	s.deceleration = decel
}

// Update advances every unit by dt seconds.
func (s *MovementSystem) Update(dt float64) {
	query := s.filter.Query()
	for query.Next() {
		tf, vel, force, look, st, tgt, form := query.Get()

		st.StateTime += dt

		if st.IsDisabled() {
			vel.Value = r3.Vec{}
			force.Value = r3.Vec{}
			continue
		}

		dir, ok := s.desiredDirection(tf, tgt, form)
		if ok {
			if st.Current != components.StateAttacking && st.Current != components.StateInteracting {
				st.Enter(components.StateMoving)
			}
			force.Value = r3.Scale(s.acceleration, dir)
			vel.Value = clampLength(r3.Add(vel.Value, r3.Scale(dt, force.Value)), s.maxSpeed)
		} else {
			force.Value = r3.Vec{}
			s.decelerate(vel, st, dt)
		}

		if r3.Norm2(vel.Value) > 0 {
			look.Direction = r3.Unit(vel.Value)
			tf.Yaw = turnToward(tf.Yaw, yawOf(vel.Value), s.turnRate*dt)
		}
		tf.Position = r3.Add(tf.Position, r3.Scale(dt, vel.Value))
	}
}

// desiredDirection picks the formation slot first, then the target.
func (s *MovementSystem) desiredDirection(tf *components.Transform, tgt *components.Target, form *components.Formation) (r3.Vec, bool) {
	if form.InFormation() {
		toSlot := r3.Sub(tgt.Location, tf.Position)
		if r3.Norm2(toSlot) > s.formationTolSq {
			return r3.Unit(toSlot), true
		}
	}

	goal, ok := s.targetLocation(tgt)
	if !ok {
		return r3.Vec{}, false
	}
	toGoal := r3.Sub(goal, tf.Position)
	if r3.Norm2(toGoal) > s.targetTolSq {
		return r3.Unit(toGoal), true
	}
	return r3.Vec{}, false
}

// targetLocation prefers the live position of a valid target entity.
func (s *MovementSystem) targetLocation(tgt *components.Target) (r3.Vec, bool) {
	if !tgt.Entity.IsNil() {
		if other := s.store.Transform(tgt.Entity); other != nil {
			return other.Position, true
		}
	}
	if tgt.Location != (r3.Vec{}) {
		return tgt.Location, true
	}
	return r3.Vec{}, false
}

// decelerate bleeds speed at the fixed rate; a unit that comes to rest stops Moving.
func (s *MovementSystem) decelerate(vel *components.Velocity, st *components.UnitState, dt float64) {
	speed := r3.Norm(vel.Value)
	step := s.deceleration * dt
	if speed <= step {
		vel.Value = r3.Vec{}
		if st.Current == components.StateMoving {
			st.Enter(components.StateIdle)
		}
		return
	}
	vel.Value = r3.Scale((speed-step)/speed, vel.Value)
}
