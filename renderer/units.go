// Package renderer draws render snapshots and effect particles with raylib.
package renderer

import (
	"image/color"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/legion/camera"
	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/entity"
	"github.com/pthm-cable/legion/visual"
)

// UnitRadius is the drawn radius of a unit at scale 1, in world units.
const UnitRadius = 40.0

// minScreenRadius keeps far-zoomed units visible.
const minScreenRadius = 2.0

// UnitRenderer draws units as oriented triangles through a camera.
type UnitRenderer struct {
	cam *camera.Camera
}

// NewUnitRenderer creates a renderer projecting through cam.
func NewUnitRenderer(cam *camera.Camera) *UnitRenderer {
	return &UnitRenderer{cam: cam}
}

// DrawSnapshot draws every vertex-animated unit in snap. Dead units are drawn
// flat and dimmed.
func (r *UnitRenderer) DrawSnapshot(snap *visual.Snapshot) int {
	drawn := 0
	for i := 0; i < snap.Len(); i++ {
		p := snap.Positions[i]
		radius := UnitRadius * snap.Scales[i].X
		if radius <= 0 {
			radius = UnitRadius
		}
		if !r.cam.IsVisible(p.X, p.Y, radius) {
			continue
		}
		c := toRL(snap.Colors[i])
		if components.State(snap.AnimIndex[i]) == components.StateDead {
			c = rl.ColorAlpha(c, 0.3)
			r.drawCorpse(p.X, p.Y, radius, c)
		} else {
			r.drawTriangle(p.X, p.Y, snap.Yaws[i], radius, c, rl.White)
		}
		drawn++
	}
	return drawn
}

// DrawSkeletal draws units that hold a pooled mesh, outlined to set them apart.
func (r *UnitRenderer) DrawSkeletal(store *entity.Store, owners []components.Handle) int {
	drawn := 0
	for _, h := range owners {
		tf, team := store.Transform(h), store.Team(h)
		if tf == nil || team == nil {
			continue
		}
		radius := UnitRadius * tf.Scale.X
		if radius <= 0 {
			radius = UnitRadius
		}
		if !r.cam.IsVisible(tf.Position.X, tf.Position.Y, radius) {
			continue
		}
		r.drawTriangle(tf.Position.X, tf.Position.Y, tf.Yaw, radius*1.2, toRL(team.Color), rl.Gold)
		drawn++
	}
	return drawn
}

// DrawEffects draws combat effect particles, fading with remaining life.
func (r *UnitRenderer) DrawEffects(effects *visual.Effects) {
	for i := range effects.Particles {
		p := &effects.Particles[i]
		if !r.cam.IsVisible(p.Position.X, p.Position.Y, p.Size) {
			continue
		}

		alpha := float32(p.Life / p.MaxLife)
		if alpha < 0 {
			alpha = 0
		}

		var c rl.Color
		switch p.Type {
		case visual.EffectHit:
			c = rl.Color{R: 255, G: 220, B: 120, A: uint8(230 * alpha)}
		case visual.EffectDeath:
			c = rl.Color{R: 90, G: 90, B: 90, A: uint8(160 * alpha)}
		default:
			c = rl.Color{R: 160, G: 200, B: 255, A: uint8(200 * alpha)}
		}

		sx, sy := r.cam.WorldToScreen(p.Position.X, p.Position.Y)
		size := float32(math.Max(p.Size*r.cam.Zoom, 1))
		rl.DrawCircleV(rl.Vector2{X: float32(sx), Y: float32(sy)}, size, c)
	}
}

func (r *UnitRenderer) screenRadius(radius float64) float32 {
	return float32(math.Max(radius*r.cam.Zoom, minScreenRadius))
}

// drawTriangle draws a triangle pointing along yaw.
func (r *UnitRenderer) drawTriangle(wx, wy, yaw, radius float64, fill, outline rl.Color) {
	sx, sy := r.cam.WorldToScreen(wx, wy)
	x, y := float32(sx), float32(sy)
	rad := r.screenRadius(radius)
	heading := float32(yaw)

	cos := float32(math.Cos(float64(heading)))
	sin := float32(math.Sin(float64(heading)))

	frontX := x + cos*rad*1.5
	frontY := y + sin*rad*1.5

	backAngle := float64(heading) + math.Pi*0.8
	backLeftX := x + float32(math.Cos(backAngle))*rad
	backLeftY := y + float32(math.Sin(backAngle))*rad

	backAngle = float64(heading) - math.Pi*0.8
	backRightX := x + float32(math.Cos(backAngle))*rad
	backRightY := y + float32(math.Sin(backAngle))*rad

	v1 := rl.Vector2{X: frontX, Y: frontY}
	v2 := rl.Vector2{X: backLeftX, Y: backLeftY}
	v3 := rl.Vector2{X: backRightX, Y: backRightY}

	// DrawTriangle requires counter-clockwise winding (v1, v3, v2)
	rl.DrawTriangle(v1, v3, v2, fill)
	if rad > 4 {
		rl.DrawTriangleLines(v1, v2, v3, outline)
	}
}

func (r *UnitRenderer) drawCorpse(wx, wy, radius float64, c rl.Color) {
	sx, sy := r.cam.WorldToScreen(wx, wy)
	rl.DrawCircleV(rl.Vector2{X: float32(sx), Y: float32(sy)}, r.screenRadius(radius*0.7), c)
}

func toRL(c color.RGBA) rl.Color {
	return rl.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}
