package systems

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
)

func TestSpatialGrid_NearestEnemy(t *testing.T) {
	g := NewSpatialGrid(1000, 1000, 100)
	a := components.Handle{Index: 0, Generation: 1}
	ally := components.Handle{Index: 1, Generation: 1}
	b := components.Handle{Index: 2, Generation: 1}
	c := components.Handle{Index: 3, Generation: 1}
	g.Insert(SpatialEntry{Unit: a, Position: r3.Vec{X: 500, Y: 500}, Team: 1})
	g.Insert(SpatialEntry{Unit: ally, Position: r3.Vec{X: 510, Y: 500}, Team: 1})
	g.Insert(SpatialEntry{Unit: b, Position: r3.Vec{X: 560, Y: 500}, Team: 2})
	g.Insert(SpatialEntry{Unit: c, Position: r3.Vec{X: 900, Y: 900}, Team: 2})

	got, ok := g.NearestEnemy(r3.Vec{X: 500, Y: 500}, 100, 1, a)
	if !ok || got.Unit != b || got.DistSq != 3600 {
		t.Errorf("nearest enemy = %+v (%v), want b at 60", got, ok)
	}
	if _, ok := g.NearestEnemy(r3.Vec{X: 500, Y: 500}, 50, 1, a); ok {
		t.Error("enemy outside radius returned")
	}

	// Out-of-world positions are clamped, not dropped.
	g.Insert(SpatialEntry{Unit: c, Position: r3.Vec{X: -50, Y: -50}, Team: 2})
	if got, ok := g.NearestEnemy(r3.Vec{}, 100, 1, a); !ok || got.Unit != c {
		t.Errorf("expected clamped entry near origin, got %+v", got)
	}
}

func TestTargeting_NearestEnemyInRange(t *testing.T) {
	cfg, m := newTestWorld(t)
	s := m.Store()
	ts := NewTargetingSystem(s, cfg)

	a := spawnAt(t, m, "infantry", r3.Vec{X: 1000, Y: 1000})
	friend := spawnAt(t, m, "archer", r3.Vec{X: 1010, Y: 1000})
	closest := spawnAt(t, m, "cavalry", r3.Vec{X: 1300, Y: 1000})
	spawnAt(t, m, "cavalry", r3.Vec{X: 1350, Y: 1000})
	far := spawnAt(t, m, "levy", r3.Vec{X: 3000, Y: 1000})

	ts.Update()

	if got := s.Target(a).Entity; got != closest {
		t.Errorf("infantry target = %v, want nearest enemy %v", got, closest)
	}
	if got := s.Target(friend).Entity; got != closest {
		t.Errorf("archer target = %v, want %v", got, closest)
	}
	if got := s.Target(closest).Entity; got != friend {
		t.Errorf("cavalry target = %v, want the archer at 290", got)
	}
	if !s.Target(far).Entity.IsNil() {
		t.Errorf("levy out of range acquired %v", s.Target(far).Entity)
	}
}

func TestTargeting_KeepsExistingAndIgnoresDead(t *testing.T) {
	cfg, m := newTestWorld(t)
	s := m.Store()
	ts := NewTargetingSystem(s, cfg)

	a := spawnAt(t, m, "infantry", r3.Vec{X: 1000, Y: 1000})
	dead := spawnAt(t, m, "cavalry", r3.Vec{X: 1100, Y: 1000})
	alive := spawnAt(t, m, "cavalry", r3.Vec{X: 1200, Y: 1000})
	s.State(dead).Enter(components.StateDead)

	ts.Update()
	if got := s.Target(a).Entity; got != alive {
		t.Fatalf("target = %v, want the living cavalry %v", got, alive)
	}

	spawnAt(t, m, "levy", r3.Vec{X: 1050, Y: 1000})
	ts.Update()
	if got := s.Target(a).Entity; got != alive {
		t.Errorf("existing target replaced by %v", got)
	}
}

func TestTargeting_CrowdedAlliesDoNotHideEnemy(t *testing.T) {
	cfg, m := newTestWorld(t)
	s := m.Store()
	ts := NewTargetingSystem(s, cfg)

	self := spawnAt(t, m, "infantry", r3.Vec{X: 5000, Y: 5000})
	// 200 allies packed to the west, all closer than the enemy.
	for i := 0; i < 200; i++ {
		pos := r3.Vec{X: 4990 - float64(i%20)*4, Y: 4960 + float64(i/20)*8}
		spawnAt(t, m, "infantry", pos)
	}
	enemy := spawnAt(t, m, "cavalry", r3.Vec{X: 5100, Y: 5000})

	ts.Update()

	if got := s.Target(self).Entity; got != enemy {
		t.Errorf("target = %v, want the enemy at 100 %v", got, enemy)
	}
}
