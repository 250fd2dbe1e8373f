package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// NavGrid is a uniform navigation grid over the ground plane.
// Cells are marked as blocked (true) or open (false).
type NavGrid struct {
	cells    []bool  // true = blocked
	cellSize float64 // world units per cell
	width    int     // grid width in cells
	height   int     // grid height in cells
}

// NewNavGrid covers a worldWidth by worldHeight area starting at the origin.
func NewNavGrid(worldWidth, worldHeight, cellSize float64) *NavGrid {
	if cellSize <= 0 {
		cellSize = 100
	}
	w := max(1, int(math.Ceil(worldWidth/cellSize)))
	h := max(1, int(math.Ceil(worldHeight/cellSize)))
	return &NavGrid{
		cells:    make([]bool, w*h),
		cellSize: cellSize,
		width:    w,
		height:   h,
	}
}

// Block marks the cells overlapping the axis-aligned rectangle [min, max] as blocked.
func (g *NavGrid) Block(lo, hi r3.Vec) {
	x0, y0 := g.WorldToGrid(lo)
	x1, y1 := g.WorldToGrid(hi)
	for gy := max(0, y0); gy <= min(g.height-1, y1); gy++ {
		for gx := max(0, x0); gx <= min(g.width-1, x1); gx++ {
			g.cells[gy*g.width+gx] = true
		}
	}
}

// IsBlocked checks if a grid cell is blocked. Out of bounds counts as blocked.
func (g *NavGrid) IsBlocked(gx, gy int) bool {
	if gx < 0 || gx >= g.width || gy < 0 || gy >= g.height {
		return true
	}
	return g.cells[gy*g.width+gx]
}

// IsBlockedWorld checks if a world position is blocked.
func (g *NavGrid) IsBlockedWorld(p r3.Vec) bool {
	return g.IsBlocked(g.WorldToGrid(p))
}

// WorldToGrid converts world coordinates to grid coordinates.
func (g *NavGrid) WorldToGrid(p r3.Vec) (int, int) {
	return int(math.Floor(p.X / g.cellSize)), int(math.Floor(p.Y / g.cellSize))
}

// GridToWorld returns the center of a grid cell at height z.
func (g *NavGrid) GridToWorld(gx, gy int, z float64) r3.Vec {
	return r3.Vec{
		X: (float64(gx) + 0.5) * g.cellSize,
		Y: (float64(gy) + 0.5) * g.cellSize,
		Z: z,
	}
}

// Size returns the grid dimensions in cells.
func (g *NavGrid) Size() (int, int) { return g.width, g.height }
