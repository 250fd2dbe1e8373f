// Package game drives the simulation tick, sets up the scenario and hosts the
// raylib viewer.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/camera"
	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/entity"
	"github.com/pthm-cable/legion/events"
	"github.com/pthm-cable/legion/systems"
	"github.com/pthm-cable/legion/telemetry"
	"github.com/pthm-cable/legion/visual"
)

// maxEffects bounds the combat effect particles alive at once.
const maxEffects = 2000

// Options configures a game instance.
type Options struct {
	Config         *config.Config // nil uses config.Cfg()
	Seed           int64
	LogStats       bool
	StatsWindowSec float64 // 0 uses telemetry.stats_window
	OutputDir      string
	Headless       bool
	StepsPerUpdate int
	Scripts        []string // Lua listener scripts
	// Oracle answers path queries. Nil starts a GridOracle over the scenario
	// obstacles, which Unload closes.
	Oracle        systems.PathOracle
	StatsCallback func(telemetry.WindowStats)
}

// march is a scenario group the viewer can send back and forth.
type march struct {
	formation components.FormationID
	origin    r3.Vec
	target    r3.Vec
	forward   bool
}

// Game holds the complete simulation state.
type Game struct {
	cfg     *config.Config
	rng     *rand.Rand
	rngSeed int64
	dt      float64

	bus     *events.Bus
	manager *entity.Manager
	store   *entity.Store

	formations *systems.FormationSystem
	targeting  *systems.TargetingSystem
	movement   *systems.MovementSystem
	combat     *systems.CombatSystem
	visibility *systems.VisibilitySystem
	navigation *systems.NavigationSystem
	oracle     *systems.GridOracle // owned; nil when supplied by Options
	registry   *systems.SystemRegistry

	corpseFilter *ecs.Filter1[components.UnitState]
	corpseTime   float64
	corpses      []components.Handle

	pool      *visual.MeshPool
	snapshots *visual.Snapshotter
	effects   *visual.Effects
	camera    *camera.Camera

	collector        *telemetry.Collector
	sampler          *telemetry.Sampler
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	lifetimeTracker  *telemetry.LifetimeTracker
	outputManager    *telemetry.OutputManager
	statsCallback    func(telemetry.WindowStats)
	lastStats        telemetry.WindowStats
	logStats         bool

	scripts []*events.LuaListener
	marches []march
	loose   []components.Handle

	tick           int64
	paused         bool
	headless       bool
	stepsPerUpdate int
	debugMode      bool
	lastHits       []systems.HitResult
	lastVisibility systems.VisibilityStats

	screenWidth, screenHeight float64
}

// NewGame creates a game with default options and the global config.
func NewGame() (*Game, error) {
	return NewGameWithOptions(Options{Seed: 42, StepsPerUpdate: 1})
}

// NewGameWithOptions builds every system, spawns the scenario and starts the
// path oracle.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	if opts.StepsPerUpdate < 1 {
		opts.StepsPerUpdate = 1
	}
	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}

	g := &Game{
		cfg:            cfg,
		rng:            rand.New(rand.NewSource(opts.Seed)),
		rngSeed:        opts.Seed,
		dt:             cfg.Physics.DT,
		bus:            events.NewBus(),
		registry:       systems.NewSystemRegistry(),
		corpseTime:     cfg.Units.CorpseTime,
		headless:       opts.Headless,
		stepsPerUpdate: opts.StepsPerUpdate,
		logStats:       opts.LogStats,
		statsCallback:  opts.StatsCallback,
		screenWidth:    float64(cfg.Screen.Width),
		screenHeight:   float64(cfg.Screen.Height),
	}

	g.store = entity.NewStore(cfg.Units.MaxUnits)
	g.manager = entity.NewManager(g.store, cfg.Units.MaxUnits, g.bus)
	g.manager.LoadTemplates(cfg)
	g.corpseFilter = ecs.NewFilter1[components.UnitState](g.store.World())

	viewer := r3.Vec{X: cfg.Scenario.Viewer[0], Y: cfg.Scenario.Viewer[1], Z: cfg.Scenario.Viewer[2]}
	g.camera = camera.New(g.screenWidth, g.screenHeight, cfg.World.Width, cfg.World.Height, viewer)

	oracle := opts.Oracle
	if oracle == nil {
		grid := systems.NewNavGrid(cfg.World.Width, cfg.World.Height, cfg.Navigation.GridCellSize)
		for _, o := range cfg.Scenario.Obstacles {
			grid.Block(r3.Vec{X: o[0], Y: o[1]}, r3.Vec{X: o[2], Y: o[3]})
		}
		g.oracle = systems.NewGridOracle(grid, cfg.Navigation.Workers, cfg.Navigation.MaxPathRequestsPerFrame)
		oracle = g.oracle
	}

	g.pool = visual.NewMeshPool(cfg.Units.MaxSkeletalMeshUnits)
	g.snapshots = visual.NewSnapshotter(g.store, cfg.Derived.RenderInterval, cfg.Units.MaxUnits)
	g.effects = visual.NewEffects(g.store, maxEffects, rand.New(rand.NewSource(opts.Seed+1)))

	g.formations = systems.NewFormationSystem(g.store, cfg)
	g.targeting = systems.NewTargetingSystem(g.store, cfg)
	g.movement = systems.NewMovementSystem(g.store, cfg)
	g.combat = systems.NewCombatSystem(g.store, cfg, g.bus, g.rng)
	g.visibility = systems.NewVisibilitySystem(g.store, cfg, g.camera, g.pool, g.bus)
	g.navigation = systems.NewNavigationSystem(g.store, oracle, cfg, g.bus)

	g.manager.OnDestroy(g.formations.OnUnitDestroyed)
	g.manager.OnDestroy(g.pool.OnUnitDestroyed)
	// The dead leave their slot at once so survivors close ranks.
	g.bus.Subscribe(events.UnitDied, func(_ components.Tag, unit components.Handle, _ events.Payload) {
		g.formations.OnUnitDestroyed(unit)
	})

	g.collector = telemetry.NewCollector(statsWindow, g.dt)
	g.collector.Attach(g.bus)
	g.sampler = telemetry.NewSampler(g.store)
	g.perfCollector = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	g.bookmarkDetector = telemetry.NewBookmarkDetector(10)
	g.lifetimeTracker = telemetry.NewLifetimeTracker(50, func(h components.Handle) (int32, bool) {
		if t := g.store.Team(h); t != nil {
			return t.ID, true
		}
		return 0, false
	})
	g.lifetimeTracker.Attach(g.bus)
	if !opts.Headless {
		g.effects.Attach(g.bus)
	}

	if err := g.loadScripts(opts.Scripts); err != nil {
		g.Unload()
		return nil, err
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		g.Unload()
		return nil, fmt.Errorf("creating output manager: %w", err)
	}
	g.outputManager = om
	if err := g.outputManager.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	if err := g.spawnScenario(); err != nil {
		g.Unload()
		return nil, err
	}

	slog.Info("game_ready",
		"seed", opts.Seed,
		"units", g.manager.Count(),
		"formations", g.formations.Count(),
		"scripts", len(g.scripts),
		"output_dir", g.outputManager.Dir(),
	)
	return g, nil
}

// loadScripts attaches each Lua script to every gameplay event.
func (g *Game) loadScripts(paths []string) error {
	for _, path := range paths {
		l, err := events.NewLuaListener(path, g.manager)
		if err != nil {
			return fmt.Errorf("loading script %s: %w", path, err)
		}
		l.Attach(g.bus, components.Tag("Event"))
		g.scripts = append(g.scripts, l)
	}
	return nil
}

// Unload stops the oracle, writes final standings and closes output files.
func (g *Game) Unload() {
	if g.oracle != nil {
		g.oracle.Close()
		g.oracle = nil
	}
	for _, l := range g.scripts {
		l.Detach(g.bus)
		l.Close()
	}
	g.scripts = nil
	if g.effects != nil {
		g.effects.Detach()
	}
	if g.outputManager != nil {
		if err := g.outputManager.WriteStandings(g.lifetimeTracker.Standings(20)); err != nil {
			slog.Error("failed to write standings", "error", err)
		}
		if err := g.outputManager.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
		g.outputManager = nil
	}
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int64 { return g.tick }

// Manager returns the entity manager.
func (g *Game) Manager() *entity.Manager { return g.manager }

// Bus returns the gameplay event bus.
func (g *Game) Bus() *events.Bus { return g.bus }

// Formations returns the formation system.
func (g *Game) Formations() *systems.FormationSystem { return g.formations }

// Navigation returns the navigation queue.
func (g *Game) Navigation() *systems.NavigationSystem { return g.navigation }

// Movement returns the movement system.
func (g *Game) Movement() *systems.MovementSystem { return g.movement }

// Snapshot returns the latest render snapshot.
func (g *Game) Snapshot() *visual.Snapshot { return g.snapshots.Latest() }

// Camera returns the viewer.
func (g *Game) Camera() *camera.Camera { return g.camera }

// LastStats returns the most recently flushed telemetry window.
func (g *Game) LastStats() telemetry.WindowStats { return g.lastStats }

// Perf returns the rolling performance statistics.
func (g *Game) Perf() telemetry.PerfStats { return g.perfCollector.Stats() }

// Veterans returns the top n units by kills and damage so far.
func (g *Game) Veterans(n int) []telemetry.LifetimeStats { return g.lifetimeTracker.Standings(n) }

// SetPaused pauses or resumes the simulation.
func (g *Game) SetPaused(p bool) { g.paused = p }

// Paused reports whether the simulation is paused.
func (g *Game) Paused() bool { return g.paused }
