// Package camera provides the viewer: a top-down camera over the battlefield
// whose position and height feed the LOD system.
package camera

import "gonum.org/v1/gonum/spatial/r3"

// Camera controls the viewport into the simulation world.
// Supports pan and zoom, clamped to the world bounds.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float64

	// Zoom level (1.0 = 1:1, 2.0 = 2x magnification)
	Zoom float64

	// BaseHeight is the viewer's height above the ground at zoom 1.
	// Zooming in lowers the viewer proportionally.
	BaseHeight float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float64

	// World dimensions
	WorldW, WorldH float64

	// Zoom constraints
	MinZoom, MaxZoom float64

	home r3.Vec
}

// New creates a camera looking down at home with 1:1 zoom. home.Z is the base height.
func New(viewportW, viewportH, worldW, worldH float64, home r3.Vec) *Camera {
	c := &Camera{
		ViewportW:  viewportW,
		ViewportH:  viewportH,
		WorldW:     worldW,
		WorldH:     worldH,
		BaseHeight: home.Z,
		MaxZoom:    16.0,
		home:       home,
	}
	c.MinZoom = c.minZoom()
	c.Reset()
	return c
}

// minZoom keeps the viewport from exceeding the world.
// At zoom Z, the visible world area is (viewportW/Z, viewportH/Z).
func (c *Camera) minZoom() float64 {
	if c.WorldW <= 0 || c.WorldH <= 0 {
		return 0.01
	}
	return max(c.ViewportW/c.WorldW, c.ViewportH/c.WorldH)
}

// ViewerLocation returns the viewer's position for LOD. It never fails.
func (c *Camera) ViewerLocation() (r3.Vec, bool) {
	return r3.Vec{X: c.X, Y: c.Y, Z: c.Height()}, true
}

// Height returns the viewer's height above the ground.
func (c *Camera) Height() float64 {
	return c.BaseHeight / c.Zoom
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	sx = c.ViewportW/2 + (wx-c.X)*c.Zoom
	sy = c.ViewportH/2 + (wy-c.Y)*c.Zoom
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	wx = c.X + (sx-c.ViewportW/2)/c.Zoom
	wy = c.Y + (sy-c.ViewportH/2)/c.Zoom
	return wx, wy
}

// IsVisible returns true if a circle at (wx, wy) with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float64) bool {
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return absf(wx-c.X) <= halfW && absf(wy-c.Y) <= halfH
}

// Resize updates viewport dimensions and recalculates zoom constraints.
func (c *Camera) Resize(viewportW, viewportH float64) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.MinZoom = c.minZoom()
	if c.Zoom < c.MinZoom {
		c.Zoom = c.MinZoom
	}
	c.clampPosition()
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float64) {
	c.X += dx / c.Zoom
	c.Y += dy / c.Zoom
	c.clampPosition()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float64) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampPosition()
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float64) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to its home position and zoom 1.
func (c *Camera) Reset() {
	c.X = c.home.X
	c.Y = c.home.Y
	c.Zoom = clamp(1.0, c.MinZoom, c.MaxZoom)
	c.clampPosition()
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float64) {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)
	return c.X - halfW, c.Y - halfH, c.X + halfW, c.Y + halfH
}

// clampPosition keeps the camera center inside the world.
func (c *Camera) clampPosition() {
	c.X = clamp(c.X, 0, c.WorldW)
	c.Y = clamp(c.Y, 0, c.WorldH)
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
