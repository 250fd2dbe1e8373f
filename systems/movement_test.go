package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
)

func TestMovement_DeceleratesToIdle(t *testing.T) {
	cfg, m := newTestWorld(t)
	ms := NewMovementSystem(m.Store(), cfg)
	h := spawnAt(t, m, "infantry", r3.Vec{})

	v0 := 500.0
	m.Store().Velocity(h).Value = r3.Vec{X: v0}
	m.Store().State(h).Enter(components.StateMoving)

	maxSteps := int(math.Ceil(v0/cfg.Movement.Deceleration/testDT)) + 1
	steps := 0
	for ; steps < maxSteps+5; steps++ {
		ms.Update(testDT)
		if f := m.Store().Force(h).Value; f != (r3.Vec{}) {
			t.Fatalf("step %d: force = %v, want zero", steps, f)
		}
		if m.Store().Velocity(h).Value == (r3.Vec{}) {
			steps++
			break
		}
	}

	if m.Store().Velocity(h).Value != (r3.Vec{}) {
		t.Fatalf("velocity never reached zero: %v", m.Store().Velocity(h).Value)
	}
	if steps > maxSteps {
		t.Errorf("stopped after %d steps, want at most %d", steps, maxSteps)
	}
	if got := m.Store().State(h).Current; got != components.StateIdle {
		t.Errorf("state = %v, want Idle", got)
	}
}

func TestMovement_SteersTowardTargetLocation(t *testing.T) {
	cfg, m := newTestWorld(t)
	ms := NewMovementSystem(m.Store(), cfg)
	h := spawnAt(t, m, "infantry", r3.Vec{})
	m.Store().Target(h).Location = r3.Vec{X: 1000}

	ms.Update(testDT)

	s := m.Store()
	if s.State(h).Current != components.StateMoving {
		t.Errorf("state = %v, want Moving", s.State(h).Current)
	}
	if !near(s.Force(h).Value, r3.Vec{X: cfg.Movement.Acceleration}, 1e-9) {
		t.Errorf("force = %v", s.Force(h).Value)
	}
	if !near(s.LookAt(h).Direction, r3.Vec{X: 1}, 1e-9) {
		t.Errorf("look = %v", s.LookAt(h).Direction)
	}
	if s.Transform(h).Position.X <= 0 {
		t.Error("unit did not advance")
	}
}

func TestMovement_ClampsToMaxSpeed(t *testing.T) {
	cfg, m := newTestWorld(t)
	ms := NewMovementSystem(m.Store(), cfg)
	h := spawnAt(t, m, "infantry", r3.Vec{})
	m.Store().Target(h).Location = r3.Vec{X: 1e6}

	for i := 0; i < 120; i++ {
		ms.Update(testDT)
	}
	if speed := r3.Norm(m.Store().Velocity(h).Value); speed > cfg.Movement.MaxSpeed+1e-9 {
		t.Errorf("speed = %v, max %v", speed, cfg.Movement.MaxSpeed)
	}
}

func TestMovement_StopsWithinTargetTolerance(t *testing.T) {
	cfg, m := newTestWorld(t)
	ms := NewMovementSystem(m.Store(), cfg)
	h := spawnAt(t, m, "infantry", r3.Vec{})
	m.Store().Target(h).Location = r3.Vec{X: 5}

	ms.Update(testDT)
	if f := m.Store().Force(h).Value; f != (r3.Vec{}) {
		t.Errorf("force = %v, want none inside tolerance", f)
	}
}

func TestMovement_FormationSlotTakesPriority(t *testing.T) {
	cfg, m := newTestWorld(t)
	ms := NewMovementSystem(m.Store(), cfg)
	fs := NewFormationSystem(m.Store(), cfg)

	enemy := spawnAt(t, m, "cavalry", r3.Vec{X: -500})
	h := spawnAt(t, m, "infantry", r3.Vec{})
	id := fs.CreateFormation(r3.Vec{X: 400}, 0, ShapeLine)
	fs.AddMember(id, h)
	m.Store().Target(h).Entity = enemy

	fs.Update(testDT)
	ms.Update(testDT)

	if f := m.Store().Force(h).Value; f.X <= 0 {
		t.Errorf("force = %v, want toward the slot at +X", f)
	}
}

func TestMovement_DisabledUnitsHold(t *testing.T) {
	cfg, m := newTestWorld(t)
	ms := NewMovementSystem(m.Store(), cfg)
	for _, st := range []components.State{components.StateDead, components.StateStunned} {
		h := spawnAt(t, m, "infantry", r3.Vec{})
		m.Store().Velocity(h).Value = r3.Vec{X: 100}
		m.Store().Target(h).Location = r3.Vec{X: 1000}
		m.Store().State(h).Enter(st)

		ms.Update(testDT)

		if m.Store().Velocity(h).Value != (r3.Vec{}) || m.Store().Transform(h).Position != (r3.Vec{}) {
			t.Errorf("%v unit moved", st)
		}
		if m.Store().State(h).Current != st {
			t.Errorf("%v unit changed state to %v", st, m.Store().State(h).Current)
		}
	}
}

func TestTurnToward_LimitsStep(t *testing.T) {
	got := turnToward(0, math.Pi/2, 0.1)
	if math.Abs(got-0.1) > 1e-12 {
		t.Errorf("turnToward = %v, want 0.1", got)
	}
	// The short way from 3 to -3 crosses pi.
	got = turnToward(3, -3, 0.1)
	if math.Abs(got-3.1) > 1e-12 {
		t.Errorf("turnToward across pi = %v, want 3.1", got)
	}
}
