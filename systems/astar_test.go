package systems

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// TestAStarSimplePath verifies A* finds a straight-line path.
func TestAStarSimplePath(t *testing.T) {
	planner := NewAStarPlanner(NewNavGrid(1600, 1000, 100))

	goal := r3.Vec{X: 1400, Y: 800, Z: 5}
	path := planner.FindPath(r3.Vec{X: 200, Y: 200}, goal)
	if path == nil {
		t.Fatal("Expected path, got nil")
	}

	// An open grid simplifies to a single straight leg.
	if len(path) != 1 || path[0] != goal {
		t.Errorf("Expected [goal], got %v", path)
	}
}

// TestAStarAroundObstacle verifies A* navigates around obstacles.
func TestAStarAroundObstacle(t *testing.T) {
	grid := NewNavGrid(1600, 1000, 100)
	// Vertical wall at x=700..800 from y=0 to y=700
	grid.Block(r3.Vec{X: 700, Y: 0}, r3.Vec{X: 799, Y: 699})

	planner := NewAStarPlanner(grid)
	path := planner.FindPath(r3.Vec{X: 300, Y: 300}, r3.Vec{X: 1300, Y: 300})
	if path == nil {
		t.Fatal("Expected path around obstacle, got nil")
	}
	if len(path) < 2 {
		t.Errorf("Expected detour waypoints, got %v", path)
	}

	prev := grid.GridToWorld(3, 3, 0)
	for i, wp := range path {
		if grid.IsBlockedWorld(wp) {
			t.Errorf("Waypoint %d at %v is inside the wall", i, wp)
		}
		if !planner.hasLineOfSight(prev, wp) {
			t.Errorf("Leg %d from %v to %v crosses the wall", i, prev, wp)
		}
		prev = wp
	}
}

// TestAStarNoPath verifies A* returns nil when no path exists.
func TestAStarNoPath(t *testing.T) {
	grid := NewNavGrid(1600, 1000, 100)
	grid.Block(r3.Vec{X: 700, Y: 0}, r3.Vec{X: 799, Y: 999})

	planner := NewAStarPlanner(grid)
	if path := planner.FindPath(r3.Vec{X: 300, Y: 300}, r3.Vec{X: 1300, Y: 300}); path != nil {
		t.Errorf("Expected no path through complete wall, got %v", path)
	}
}

// TestAStarBlockedGoalUsesNearestOpen verifies a goal inside an obstacle
// resolves to a nearby open cell.
func TestAStarBlockedGoalUsesNearestOpen(t *testing.T) {
	grid := NewNavGrid(1000, 1000, 100)
	grid.Block(r3.Vec{X: 500, Y: 500}, r3.Vec{X: 599, Y: 599})

	planner := NewAStarPlanner(grid)
	if path := planner.FindPath(r3.Vec{X: 50, Y: 50}, r3.Vec{X: 550, Y: 550}); path == nil {
		t.Error("Expected a path toward the blocked goal's neighbourhood")
	}
}

// TestNextWaypoint verifies waypoint advancement.
func TestNextWaypoint(t *testing.T) {
	path := []r3.Vec{{X: 20, Y: 20}, {X: 50, Y: 50}, {X: 80, Y: 80}}
	index := 0

	wp, ok := NextWaypoint(path, &index, r3.Vec{}, 100)
	if !ok || wp != path[0] || index != 0 {
		t.Errorf("far from start: wp=%v ok=%v index=%d", wp, ok, index)
	}

	wp, ok = NextWaypoint(path, &index, r3.Vec{X: 18, Y: 18}, 100)
	if !ok || wp != path[1] || index != 1 {
		t.Errorf("at first waypoint: wp=%v ok=%v index=%d", wp, ok, index)
	}

	index = 2
	if _, ok = NextWaypoint(path, &index, r3.Vec{X: 79, Y: 80}, 100); ok || index != 3 {
		t.Errorf("final waypoint: ok=%v index=%d", ok, index)
	}
}
