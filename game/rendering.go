package game

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/legion/renderer"
	"github.com/pthm-cable/legion/telemetry"
)

// Draw renders the latest snapshot, skeletal units, effects and the HUD.
func (g *Game) Draw() {
	g.perfCollector.RecordFrame()
	units := renderer.NewUnitRenderer(g.camera)

	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 34, G: 44, B: 30, A: 255})

	g.drawObstacles()
	vertex := units.DrawSnapshot(g.snapshots.Latest())
	skeletal := units.DrawSkeletal(g.store, g.pool.Owners())
	units.DrawEffects(g.effects)

	// HUD
	rl.DrawText(fmt.Sprintf("Tick: %d", g.tick), 10, 10, 20, rl.White)
	rl.DrawText(fmt.Sprintf("Units: %d  Drawn: %d  Skeletal: %d", g.manager.Count(), vertex, skeletal), 10, 35, 20, rl.White)
	y := int32(60)
	for _, team := range g.manager.Teams() {
		rl.DrawText(fmt.Sprintf("Team %d: %d alive", team, g.lastStats.TeamAlive[team]), 10, y, 16, rl.LightGray)
		y += 20
	}
	if g.paused {
		rl.DrawText("PAUSED", 10, y, 20, rl.Yellow)
	}

	g.drawControls()

	if g.debugMode {
		g.drawDebugMenu()
	}

	rl.EndDrawing()
}

// drawControls renders the sim-speed slider and the march button.
func (g *Game) drawControls() {
	x := float32(10)
	y := float32(g.screenHeight) - 70

	rl.DrawText("Speed", int32(x), int32(y), 14, rl.LightGray)
	speed := gui.SliderBar(
		rl.Rectangle{X: x + 50, Y: y, Width: 160, Height: 18},
		"1x", fmt.Sprintf("%dx", maxStepsPerUpdate),
		float32(g.stepsPerUpdate), 1, maxStepsPerUpdate,
	)
	if steps := int(speed + 0.5); steps != g.stepsPerUpdate {
		g.stepsPerUpdate = max(1, min(steps, maxStepsPerUpdate))
	}

	if len(g.marches) > 0 && gui.Button(rl.Rectangle{X: x, Y: y + 28, Width: 120, Height: 28}, "March [M]") {
		g.toggleMarch()
	}
}

// drawObstacles outlines blocked navigation rectangles.
func (g *Game) drawObstacles() {
	for _, o := range g.cfg.Scenario.Obstacles {
		x0, y0 := g.camera.WorldToScreen(o[0], o[1])
		x1, y1 := g.camera.WorldToScreen(o[2], o[3])
		rect := rl.Rectangle{X: float32(x0), Y: float32(y0), Width: float32(x1 - x0), Height: float32(y1 - y0)}
		rl.DrawRectangleRec(rect, rl.Color{R: 70, G: 60, B: 50, A: 255})
		rl.DrawRectangleLinesEx(rect, 1, rl.Brown)
	}
}

// drawDebugMenu renders the debug overlay with perf stats.
func (g *Game) drawDebugMenu() {
	panelW := int32(230)
	panelX := int32(g.screenWidth) - panelW - 10
	panelY := int32(10)
	cats := g.registry.Categories()
	panelH := int32(86 + 16*(len(telemetry.Phases)+len(cats)))

	rl.DrawRectangle(panelX, panelY, panelW, panelH, rl.Color{R: 0, G: 0, B: 0, A: 180})
	rl.DrawRectangleLines(panelX, panelY, panelW, panelH, rl.Yellow)
	rl.DrawText("DEBUG [D to close]", panelX+10, panelY+8, 14, rl.Yellow)

	stats := g.perfCollector.Stats()
	rl.DrawText(fmt.Sprintf("Tick: %v  TPS: %.0f", stats.AvgTickDuration, stats.TicksPerSecond), panelX+10, panelY+28, 12, rl.White)
	rl.DrawText(fmt.Sprintf("Paths: %d queued, %d in flight", g.navigation.Pending(), g.navigation.InFlight()), panelX+10, panelY+44, 12, rl.White)
	backlog := 0
	if g.oracle != nil {
		backlog = g.oracle.Backlog()
	}
	rl.DrawText(fmt.Sprintf("Oracle backlog: %d", backlog), panelX+10, panelY+60, 12, rl.White)

	row := panelY + 78
	for _, cat := range cats {
		rl.DrawText(cat, panelX+10, row, 12, rl.Yellow)
		row += 16
		for _, info := range g.registry.ByCategory(cat) {
			rl.DrawText(fmt.Sprintf("  %-15s %5.1f%%", info.Name, stats.PhasePct[info.ID]), panelX+10, row, 12, rl.LightGray)
			row += 16
		}
	}
}
