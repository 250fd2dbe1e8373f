// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen" toml:"screen"`
	World      WorldConfig      `yaml:"world" toml:"world"`
	Physics    PhysicsConfig    `yaml:"physics" toml:"physics"`
	Units      UnitsConfig      `yaml:"units" toml:"units"`
	Movement   MovementConfig   `yaml:"movement" toml:"movement"`
	Combat     CombatConfig     `yaml:"combat" toml:"combat"`
	Formation  FormationConfig  `yaml:"formation" toml:"formation"`
	Visibility VisibilityConfig `yaml:"visibility" toml:"visibility"`
	Navigation NavigationConfig `yaml:"navigation" toml:"navigation"`
	Render     RenderConfig     `yaml:"render" toml:"render"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" toml:"telemetry"`
	Scenario   ScenarioConfig   `yaml:"scenario" toml:"scenario"`
	Templates  []TemplateConfig `yaml:"templates" toml:"templates"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-" toml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width" toml:"width"`
	Height    int `yaml:"height" toml:"height"`
	TargetFPS int `yaml:"target_fps" toml:"target_fps"`
}

// WorldConfig holds the extent of the ground plane in world units.
// Units may leave it; it bounds the navigation grid and the viewer.
type WorldConfig struct {
	Width  float64 `yaml:"width" toml:"width"`
	Height float64 `yaml:"height" toml:"height"`
}

// PhysicsConfig holds the fixed frame delta.
type PhysicsConfig struct {
	DT float64 `yaml:"dt" toml:"dt"`
}

// UnitsConfig holds population caps.
type UnitsConfig struct {
	MaxUnits             int `yaml:"max_units" toml:"max_units"`
	MaxSkeletalMeshUnits int `yaml:"max_skeletal_mesh_units" toml:"max_skeletal_mesh_units"`
	// CorpseTime is how long a dead unit lingers before it is destroyed, in
	// seconds. Zero or less keeps corpses.
	CorpseTime float64 `yaml:"corpse_time" toml:"corpse_time"`
}

// MovementConfig holds steering constants. Tolerances are distances, not squares.
type MovementConfig struct {
	MaxSpeed           float64 `yaml:"max_speed" toml:"max_speed"`
	Acceleration       float64 `yaml:"acceleration" toml:"acceleration"`
	Deceleration       float64 `yaml:"deceleration" toml:"deceleration"`
	TurningRate        float64 `yaml:"turning_rate" toml:"turning_rate"` // degrees per second
	FormationTolerance float64 `yaml:"formation_tolerance" toml:"formation_tolerance"`
	TargetTolerance    float64 `yaml:"target_tolerance" toml:"target_tolerance"`
}

// CombatConfig holds attack resolution parameters.
type CombatConfig struct {
	AttackRange            float64 `yaml:"attack_range" toml:"attack_range"`
	AttackCooldown         float64 `yaml:"attack_cooldown" toml:"attack_cooldown"`
	DamageMultiplier       float64 `yaml:"damage_multiplier" toml:"damage_multiplier"`
	StunChance             float64 `yaml:"stun_chance" toml:"stun_chance"`
	FallbackDamagePerLevel float64 `yaml:"fallback_damage_per_level" toml:"fallback_damage_per_level"`
	StunDuration           float64 `yaml:"stun_duration" toml:"stun_duration"` // seconds
	EngageRange            float64 `yaml:"engage_range" toml:"engage_range"`   // 0 disables target acquisition
}

// ShapeConfig holds the layout defaults for one formation shape.
type ShapeConfig struct {
	Width   float64 `yaml:"width" toml:"width"`
	Depth   float64 `yaml:"depth" toml:"depth"`
	Spacing float64 `yaml:"spacing" toml:"spacing"`
}

// FormationConfig holds anchor kinematics and per-shape defaults.
type FormationConfig struct {
	AnchorSpeed      float64                `yaml:"anchor_speed" toml:"anchor_speed"`
	ArrivalTolerance float64                `yaml:"arrival_tolerance" toml:"arrival_tolerance"`
	Shapes           map[string]ShapeConfig `yaml:"shapes" toml:"shapes"`
}

// VisibilityConfig holds LOD parameters.
type VisibilityConfig struct {
	LODDistanceThresholds []float64 `yaml:"lod_distance_thresholds" toml:"lod_distance_thresholds"`
	MaxVisibleDistance    float64   `yaml:"max_visible_distance" toml:"max_visible_distance"`
	SkeletalMeshDistance  float64   `yaml:"skeletal_mesh_distance" toml:"skeletal_mesh_distance"`
}

// NavigationConfig holds path request batching and oracle parameters.
type NavigationConfig struct {
	MaxPathRequestsPerFrame int     `yaml:"max_path_requests_per_frame" toml:"max_path_requests_per_frame"`
	PathRequestBatchSize    int     `yaml:"path_request_batch_size" toml:"path_request_batch_size"`
	GridCellSize            float64 `yaml:"grid_cell_size" toml:"grid_cell_size"`
	Workers                 int     `yaml:"workers" toml:"workers"` // 0 = GOMAXPROCS
	WaypointArrival         float64 `yaml:"waypoint_arrival" toml:"waypoint_arrival"`
}

// RenderConfig holds presenter cadence.
type RenderConfig struct {
	UpdateHz float64 `yaml:"update_hz" toml:"update_hz"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window" toml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window" toml:"perf_collector_window"`
}

// ScenarioConfig describes the units spawned at startup.
type ScenarioConfig struct {
	Groups []GroupConfig `yaml:"groups" toml:"groups"`
	Viewer [3]float64    `yaml:"viewer" toml:"viewer"`
	// Obstacles are blocked navigation rectangles as [minX, minY, maxX, maxY].
	Obstacles [][4]float64 `yaml:"obstacles" toml:"obstacles"`
}

// GroupConfig spawns Count units of Template into a formation at Origin
// and, when March is non-zero, sends the formation toward it. A group
// without a shape spawns loose and each unit requests a path to March.
type GroupConfig struct {
	Template string     `yaml:"template" toml:"template"`
	Shape    string     `yaml:"shape" toml:"shape"`
	Count    int        `yaml:"count" toml:"count"`
	Origin   [3]float64 `yaml:"origin" toml:"origin"`
	March    [3]float64 `yaml:"march" toml:"march"`
}

// TemplateConfig is the file form of a unit template.
type TemplateConfig struct {
	Name             string             `yaml:"name" toml:"name"`
	UnitType         string             `yaml:"unit_type" toml:"unit_type"`
	UnitClass        string             `yaml:"unit_class" toml:"unit_class"`
	Level            int                `yaml:"level" toml:"level"`
	BaseHealth       float64            `yaml:"base_health" toml:"base_health"`
	BaseDamage       float64            `yaml:"base_damage" toml:"base_damage"`
	MoveSpeed        float64            `yaml:"move_speed" toml:"move_speed"`
	TeamID           int32              `yaml:"team_id" toml:"team_id"`
	TeamColor        [3]uint8           `yaml:"team_color" toml:"team_color"`
	Faction          string             `yaml:"faction" toml:"faction"`
	DefaultBehavior  string             `yaml:"default_behavior" toml:"default_behavior"`
	DefaultFormation string             `yaml:"default_formation" toml:"default_formation"`
	Abilities        []string           `yaml:"abilities" toml:"abilities"`
	Attributes       map[string]float64 `yaml:"attributes" toml:"attributes"`
	Scale            float64            `yaml:"scale" toml:"scale"`
	// NoAttributes spawns the unit without an attribute map, so combat
	// resolves it with the level-only fallback.
	NoAttributes bool `yaml:"no_attributes" toml:"no_attributes"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	FormationToleranceSq float64
	TargetToleranceSq    float64
	ArrivalToleranceSq   float64
	AttackRangeSq        float64
	EngageRangeSq        float64
	WaypointArrivalSq    float64
	LODThresholdsSq      []float64 // ascending
	SkeletalDistanceSq   float64
	MaxVisibleDistSq     float64
	RenderInterval       float64 // seconds between render snapshots
	TemplateIndex        map[string]int
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults. It panics only if the embedded file is malformed.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML or TOML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Decode into the same struct so only fields present in the file are overwritten.
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing toml config file: %w", err)
			}
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Physics.DT <= 0 {
		return fmt.Errorf("physics.dt must be positive, got %v", c.Physics.DT)
	}
	if c.Units.MaxUnits <= 0 {
		return fmt.Errorf("units.max_units must be positive, got %d", c.Units.MaxUnits)
	}
	if c.Navigation.PathRequestBatchSize <= 0 || c.Navigation.MaxPathRequestsPerFrame <= 0 {
		return fmt.Errorf("navigation batch sizes must be positive")
	}
	seen := make(map[string]bool, len(c.Templates))
	for _, t := range c.Templates {
		if t.Name == "" {
			return fmt.Errorf("template without name")
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate template %q", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	sq := func(v float64) float64 { return v * v }

	c.Derived.FormationToleranceSq = sq(c.Movement.FormationTolerance)
	c.Derived.TargetToleranceSq = sq(c.Movement.TargetTolerance)
	c.Derived.ArrivalToleranceSq = sq(c.Formation.ArrivalTolerance)
	c.Derived.AttackRangeSq = sq(c.Combat.AttackRange)
	c.Derived.EngageRangeSq = sq(c.Combat.EngageRange)
	c.Derived.WaypointArrivalSq = sq(c.Navigation.WaypointArrival)
	c.Derived.SkeletalDistanceSq = sq(c.Visibility.SkeletalMeshDistance)
	c.Derived.MaxVisibleDistSq = sq(c.Visibility.MaxVisibleDistance)

	thresholds := append([]float64(nil), c.Visibility.LODDistanceThresholds...)
	sort.Float64s(thresholds)
	c.Visibility.LODDistanceThresholds = thresholds
	c.Derived.LODThresholdsSq = make([]float64, len(thresholds))
	for i, t := range thresholds {
		c.Derived.LODThresholdsSq[i] = sq(t)
	}

	if c.Render.UpdateHz > 0 {
		c.Derived.RenderInterval = 1 / c.Render.UpdateHz
	}

	c.Derived.TemplateIndex = make(map[string]int, len(c.Templates))
	for i, t := range c.Templates {
		c.Derived.TemplateIndex[t.Name] = i
	}
}

// Template returns the named unit template.
func (c *Config) Template(name string) (TemplateConfig, bool) {
	i, ok := c.Derived.TemplateIndex[name]
	if !ok {
		return TemplateConfig{}, false
	}
	return c.Templates[i], true
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
