// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Boundary modes.
const (
	BoundaryAnalytic = "analytic"
	BoundaryBaked    = "baked"
)

// Spawn layouts.
const (
	LayoutRandom = "random"
	LayoutBlock  = "block"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig     `yaml:"screen"`
	Physics   PhysicsConfig    `yaml:"physics"`
	Fluid     FluidConfig      `yaml:"fluid"`
	Boundary  BoundaryConfig   `yaml:"boundary"`
	Obstacles []ObstacleConfig `yaml:"obstacles"`
	Spawn     SpawnConfig      `yaml:"spawn"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// PhysicsConfig holds fixed-step integration parameters.
type PhysicsConfig struct {
	DT             float64 `yaml:"dt"`
	StepsPerUpdate int     `yaml:"steps_per_update"`
}

// FluidConfig holds the physical constants of the fluid.
// Gravity is a velocity increment applied once per step.
type FluidConfig struct {
	Radius            float64    `yaml:"radius"`           // Interaction radius
	CollisionRadius   float64    `yaml:"collision_radius"` // Boundary contact threshold
	RestDensity       float64    `yaml:"rest_density"`     // p0
	Sigma             float64    `yaml:"sigma"`            // Linear viscosity
	Beta              float64    `yaml:"beta"`             // Quadratic viscosity
	K                 float64    `yaml:"k"`                // Pressure stiffness
	KNear             float64    `yaml:"knear"`            // Near-pressure stiffness
	Gravity           [2]float64 `yaml:"gravity"`
	MaxSpeed          float64    `yaml:"max_speed"`
	Friction          float64    `yaml:"friction"`
	CollisionSoftness float64    `yaml:"collision_softness"`
	CellSize          float64    `yaml:"cell_size"`       // 0 = use radius
	HashTableSize     int        `yaml:"hash_table_size"`
}

// BoundaryConfig describes the static geometry particles collide with.
type BoundaryConfig struct {
	Mode           string  `yaml:"mode"`       // analytic or baked
	BakedPath      string  `yaml:"baked_path"` // Baked samples; empty = bake obstacles at startup
	Left           float64 `yaml:"left"`
	Right          float64 `yaml:"right"`
	Down           float64 `yaml:"down"`
	Up             float64 `yaml:"up"`
	SamplesPerUnit float64 `yaml:"samples_per_unit"`
	EdgeEpsilon    float64 `yaml:"edge_epsilon"` // Margin beyond half a sample before a query is out of domain
	TieEpsilon     float64 `yaml:"tie_epsilon"`  // Distances closer than this are equidistant at bake time
}

// ObstacleConfig is an axis-aligned solid box.
type ObstacleConfig struct {
	Name string     `yaml:"name"`
	Min  [2]float64 `yaml:"min"`
	Max  [2]float64 `yaml:"max"`
}

// SpawnConfig controls initial particle placement.
type SpawnConfig struct {
	Count   int     `yaml:"count"`
	Layout  string  `yaml:"layout"`  // random or block
	Margin  float64 `yaml:"margin"`  // Distance kept from the arena edges
	Spacing float64 `yaml:"spacing"` // Block layout spacing (0 = radius/2)
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // Seconds of simulated time per stats window
	PerfWindow  int     `yaml:"perf_window"`  // Ticks averaged by the perf collector
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	CellSize     float64 // Fluid.CellSize, or Fluid.Radius when unset
	StatsWindow  int     // Telemetry.StatsWindow in ticks
	BoundsWidth  float64 // Boundary.Right - Boundary.Left
	BoundsHeight float64 // Boundary.Up - Boundary.Down
}

// Validation errors.
var (
	ErrInvalidFluid    = errors.New("invalid fluid configuration")
	ErrInvalidBoundary = errors.New("invalid boundary configuration")
	ErrInvalidPhysics  = errors.New("invalid physics configuration")
	ErrInvalidSpawn    = errors.New("invalid spawn configuration")
)

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

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. The result is validated.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks the preconditions the solver and distance field rely on.
func (c *Config) Validate() error {
	f := c.Fluid
	switch {
	case f.Radius <= 0:
		return fmt.Errorf("%w: radius must be positive, got %g", ErrInvalidFluid, f.Radius)
	case f.CollisionRadius < 0:
		return fmt.Errorf("%w: collision_radius must not be negative, got %g", ErrInvalidFluid, f.CollisionRadius)
	case f.MaxSpeed <= 0:
		return fmt.Errorf("%w: max_speed must be positive, got %g", ErrInvalidFluid, f.MaxSpeed)
	case f.HashTableSize <= 0:
		return fmt.Errorf("%w: hash_table_size must be positive, got %d", ErrInvalidFluid, f.HashTableSize)
	case f.CellSize != 0 && f.CellSize < f.Radius:
		return fmt.Errorf("%w: cell_size %g is smaller than radius %g", ErrInvalidFluid, f.CellSize, f.Radius)
	}

	b := c.Boundary
	switch {
	case b.Mode != BoundaryAnalytic && b.Mode != BoundaryBaked:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidBoundary, b.Mode)
	case b.Right <= b.Left || b.Up <= b.Down:
		return fmt.Errorf("%w: bounds [%g,%g]x[%g,%g] are empty", ErrInvalidBoundary, b.Left, b.Right, b.Down, b.Up)
	case b.SamplesPerUnit <= 0:
		return fmt.Errorf("%w: samples_per_unit must be positive, got %g", ErrInvalidBoundary, b.SamplesPerUnit)
	case b.EdgeEpsilon < 0 || b.TieEpsilon < 0:
		return fmt.Errorf("%w: epsilons must not be negative", ErrInvalidBoundary)
	}
	for _, o := range c.Obstacles {
		if o.Max[0] <= o.Min[0] || o.Max[1] <= o.Min[1] {
			return fmt.Errorf("%w: obstacle %q has an empty box", ErrInvalidBoundary, o.Name)
		}
	}

	if c.Physics.DT <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidPhysics, c.Physics.DT)
	}

	s := c.Spawn
	switch {
	case s.Count < 0:
		return fmt.Errorf("%w: count must not be negative, got %d", ErrInvalidSpawn, s.Count)
	case s.Layout != LayoutRandom && s.Layout != LayoutBlock:
		return fmt.Errorf("%w: unknown layout %q", ErrInvalidSpawn, s.Layout)
	case s.Spacing < 0:
		return fmt.Errorf("%w: spacing must not be negative, got %g", ErrInvalidSpawn, s.Spacing)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.CellSize = c.Fluid.CellSize
	if c.Derived.CellSize == 0 {
		c.Derived.CellSize = c.Fluid.Radius
	}

	c.Derived.StatsWindow = int(c.Telemetry.StatsWindow / c.Physics.DT)
	if c.Derived.StatsWindow < 1 {
		c.Derived.StatsWindow = 1
	}

	c.Derived.BoundsWidth = c.Boundary.Right - c.Boundary.Left
	c.Derived.BoundsHeight = c.Boundary.Up - c.Boundary.Down

	if c.Physics.StepsPerUpdate < 1 {
		c.Physics.StepsPerUpdate = 1
	}
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
