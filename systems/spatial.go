package systems

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
)

// SpatialEntry is a unit recorded in the spatial grid at rebuild time.
type SpatialEntry struct {
	Unit     components.Handle
	Position r3.Vec
	Team     int32
}

// Neighbor holds a nearby unit with its squared ground distance from the query origin.
type Neighbor struct {
	SpatialEntry
	DistSq float64
}

// SpatialGrid provides cell-based neighbour lookups on the ground plane.
// Positions outside the world are clamped into the border cells.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]SpatialEntry
}

// NewSpatialGrid creates a spatial grid covering the given world size.
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 200
	}
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]SpatialEntry, cols*rows)
	for i := range cells {
		cells[i] = make([]SpatialEntry, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all entries from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds a unit to the grid.
func (g *SpatialGrid) Insert(e SpatialEntry) {
	col, row := g.cell(e.Position)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], e)
}

// NearestEnemy returns the closest entry within radius of p whose team differs
// from team, skipping exclude. Allies never count against the search, so a
// unit packed inside its own formation still finds the enemy beside it.
func (g *SpatialGrid) NearestEnemy(p r3.Vec, radius float64, team int32, exclude components.Handle) (Neighbor, bool) {
	cellRadius := int(radius/g.cellSize) + 1
	centerCol, centerRow := g.cell(p)
	radiusSq := radius * radius

	var best Neighbor
	found := false
	for dc := -cellRadius; dc <= cellRadius; dc++ {
		col := centerCol + dc
		if col < 0 || col >= g.cols {
			continue
		}
		for dr := -cellRadius; dr <= cellRadius; dr++ {
			row := centerRow + dr
			if row < 0 || row >= g.rows {
				continue
			}
			for _, e := range g.cells[row*g.cols+col] {
				if e.Team == team || e.Unit == exclude {
					continue
				}
				dx, dy := e.Position.X-p.X, e.Position.Y-p.Y
				distSq := dx*dx + dy*dy
				if distSq > radiusSq || (found && distSq >= best.DistSq) {
					continue
				}
				best = Neighbor{SpatialEntry: e, DistSq: distSq}
				found = true
			}
		}
	}
	return best, found
}

// cell returns the clamped cell coordinates for a world position.
func (g *SpatialGrid) cell(p r3.Vec) (col, row int) {
	col = int(p.X / g.cellSize)
	row = int(p.Y / g.cellSize)
	col = min(max(col, 0), g.cols-1)
	row = min(max(row, 0), g.rows-1)
	return col, row
}
