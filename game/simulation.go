package game

import (
	"github.com/pthm-cable/legion/telemetry"
)

// Update handles input and runs stepsPerUpdate simulation ticks.
func (g *Game) Update() {
	g.handleInput()

	if g.paused {
		return
	}
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.Step()
	}
	g.effects.Update(g.dt * float64(g.stepsPerUpdate))
}

// UpdateHeadless runs stepsPerUpdate ticks without input or drawing.
func (g *Game) UpdateHeadless() {
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.Step()
	}
}

// Step runs one fixed tick. System order is fixed: formation, targeting,
// movement, combat, visibility, navigation, cleanup, render snapshot,
// telemetry.
func (g *Game) Step() {
	g.perfCollector.StartTick()
	g.lifetimeTracker.SetTick(g.tick)

	g.perfCollector.StartPhase(telemetry.PhaseFormation)
	g.formations.Update(g.dt)

	g.perfCollector.StartPhase(telemetry.PhaseTargeting)
	g.targeting.Update()

	g.perfCollector.StartPhase(telemetry.PhaseMovement)
	g.movement.Update(g.dt)

	g.perfCollector.StartPhase(telemetry.PhaseCombat)
	g.lastHits = g.combat.Update()

	g.perfCollector.StartPhase(telemetry.PhaseVisibility)
	g.lastVisibility = g.visibility.Update()

	g.perfCollector.StartPhase(telemetry.PhaseNavigation)
	g.collector.RecordPathRequests(g.navigation.ProcessPathRequests())
	g.navigation.ApplyResults()
	g.navigation.FollowPaths()

	g.perfCollector.StartPhase(telemetry.PhaseCleanup)
	g.cleanupCorpses()

	g.perfCollector.StartPhase(telemetry.PhaseRender)
	g.snapshots.Advance(g.dt, g.tick)

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.tick++
	g.flushTelemetry()

	g.perfCollector.EndTick()
}
