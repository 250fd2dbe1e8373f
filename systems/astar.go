package systems

import (
	"container/heap"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AStarPlanner finds paths over a NavGrid. A planner holds scratch state and is
// not safe for concurrent use; give each worker its own.
type AStarPlanner struct {
	grid *NavGrid

	// Reusable data structures (cleared between searches)
	openHeap  *nodeHeap
	closedSet map[int]struct{}
	cameFrom  map[int]int
	gScore    map[int]float64
}

// astarNode is a node in the A* search.
type astarNode struct {
	gx, gy int
	f      float64 // f = g + h (priority)
	index  int     // Heap index
}

// nodeHeap implements heap.Interface for A* open set.
type nodeHeap []*astarNode

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// NewAStarPlanner creates a planner over grid.
func NewAStarPlanner(grid *NavGrid) *AStarPlanner {
	return &AStarPlanner{
		grid:      grid,
		openHeap:  &nodeHeap{},
		closedSet: make(map[int]struct{}, 256),
		cameFrom:  make(map[int]int, 256),
		gScore:    make(map[int]float64, 256),
	}
}

// FindPath computes a path from start to goal. Waypoints are cell centres at the
// goal's height, with the start cell dropped and the last waypoint replaced by
// goal itself. Returns nil if no path exists.
func (a *AStarPlanner) FindPath(start, goal r3.Vec) []r3.Vec {
	grid := a.grid

	startGX, startGY := grid.WorldToGrid(start)
	goalGX, goalGY := grid.WorldToGrid(goal)

	if grid.IsBlocked(startGX, startGY) {
		startGX, startGY = a.findNearestOpen(startGX, startGY)
		if startGX < 0 {
			return nil
		}
	}
	if grid.IsBlocked(goalGX, goalGY) {
		goalGX, goalGY = a.findNearestOpen(goalGX, goalGY)
		if goalGX < 0 {
			return nil
		}
	}

	if startGX == goalGX && startGY == goalGY {
		return []r3.Vec{goal}
	}

	*a.openHeap = (*a.openHeap)[:0]
	clear(a.closedSet)
	clear(a.cameFrom)
	clear(a.gScore)

	startID := startGY*grid.width + startGX
	goalID := goalGY*grid.width + goalGX

	a.gScore[startID] = 0
	heap.Push(a.openHeap, &astarNode{gx: startGX, gy: startGY, f: heuristic(startGX, startGY, goalGX, goalGY)})

	maxIterations := grid.width * grid.height
	for iterations := 0; a.openHeap.Len() > 0 && iterations < maxIterations; iterations++ {
		current := heap.Pop(a.openHeap).(*astarNode)
		currentID := current.gy*grid.width + current.gx

		if currentID == goalID {
			return a.reconstructPath(startID, goalID, goal)
		}
		if _, done := a.closedSet[currentID]; done {
			continue
		}
		a.closedSet[currentID] = struct{}{}

		for i, n := range neighborOffsets {
			ngx, ngy := current.gx+n[0], current.gy+n[1]
			if grid.IsBlocked(ngx, ngy) {
				continue
			}
			// No corner cutting on diagonals
			if i >= 4 && (grid.IsBlocked(ngx, current.gy) || grid.IsBlocked(current.gx, ngy)) {
				continue
			}

			neighborID := ngy*grid.width + ngx
			if _, ok := a.closedSet[neighborID]; ok {
				continue
			}

			moveCost := 1.0
			if i >= 4 {
				moveCost = math.Sqrt2
			}
			tentativeG := a.gScore[currentID] + moveCost

			if existingG, exists := a.gScore[neighborID]; exists && tentativeG >= existingG {
				continue
			}
			a.cameFrom[neighborID] = currentID
			a.gScore[neighborID] = tentativeG
			heap.Push(a.openHeap, &astarNode{gx: ngx, gy: ngy, f: tentativeG + heuristic(ngx, ngy, goalGX, goalGY)})
		}
	}

	return nil
}

var neighborOffsets = [8][2]int{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1}, // cardinal
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1}, // diagonal
}

// heuristic is the Euclidean distance in cells.
func heuristic(gx1, gy1, gx2, gy2 int) float64 {
	return math.Hypot(float64(gx2-gx1), float64(gy2-gy1))
}

func (a *AStarPlanner) reconstructPath(startID, goalID int, goal r3.Vec) []r3.Vec {
	grid := a.grid

	var pathIDs []int
	for current := goalID; current != startID; {
		pathIDs = append(pathIDs, current)
		prev, ok := a.cameFrom[current]
		if !ok {
			break
		}
		current = prev
	}
	pathIDs = append(pathIDs, startID)

	path := make([]r3.Vec, len(pathIDs))
	for i := range pathIDs {
		id := pathIDs[len(pathIDs)-1-i]
		path[i] = grid.GridToWorld(id%grid.width, id/grid.width, goal.Z)
	}

	path = a.simplifyPath(path)
	path[len(path)-1] = goal
	return path[1:]
}

// simplifyPath removes waypoints that can be skipped with a clear line of sight.
func (a *AStarPlanner) simplifyPath(path []r3.Vec) []r3.Vec {
	if len(path) <= 2 {
		return path
	}

	simplified := make([]r3.Vec, 0, len(path))
	simplified = append(simplified, path[0])
	for i := 1; i < len(path)-1; i++ {
		if !a.hasLineOfSight(simplified[len(simplified)-1], path[i+1]) {
			simplified = append(simplified, path[i])
		}
	}
	return append(simplified, path[len(path)-1])
}

// hasLineOfSight steps along the segment at half-cell intervals.
func (a *AStarPlanner) hasLineOfSight(from, to r3.Vec) bool {
	d := r3.Sub(to, from)
	d.Z = 0
	dist := r3.Norm(d)
	if dist < 0.01 {
		return true
	}

	stepSize := a.grid.cellSize * 0.5
	steps := int(dist/stepSize) + 1
	dir := r3.Scale(1/dist, d)
	for i := 0; i <= steps; i++ {
		p := r3.Add(from, r3.Scale(math.Min(float64(i)*stepSize, dist), dir))
		if a.grid.IsBlockedWorld(p) {
			return false
		}
	}
	return true
}

// findNearestOpen spirals outward for an open cell. Returns (-1, -1) if none
// lies within the search radius.
func (a *AStarPlanner) findNearestOpen(gx, gy int) (int, int) {
	for radius := 1; radius < 10; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if abs(dx) != radius && abs(dy) != radius {
					continue
				}
				if !a.grid.IsBlocked(gx+dx, gy+dy) {
					return gx + dx, gy + dy
				}
			}
		}
	}
	return -1, -1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// NextWaypoint returns the waypoint to steer toward, advancing the path index
// when pos is within arrivalSq of the current one. ok is false once the path
// is exhausted.
func NextWaypoint(path []r3.Vec, index *int, pos r3.Vec, arrivalSq float64) (r3.Vec, bool) {
	for *index < len(path) {
		wp := path[*index]
		if distSq(wp, pos) >= arrivalSq {
			return wp, true
		}
		*index++
	}
	return r3.Vec{}, false
}
