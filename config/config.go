// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Grid       GridConfig       `yaml:"grid"`
	Display    DisplayConfig    `yaml:"display"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Simulation SimulationConfig `yaml:"simulation"`
	Memory     MemoryConfig     `yaml:"memory"`
	Dye        DyeConfig        `yaml:"dye"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig holds simulation grid dimensions in cells.
type GridConfig struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// DisplayConfig holds panel and tiling parameters.
// The screen is Grid scaled by Scale; tiles must be multiples of Scale and divide the screen.
type DisplayConfig struct {
	Scale      int    `yaml:"scale"`       // Pixels per simulation cell (integer up-scaling)
	TileWidth  int    `yaml:"tile_width"`  // Tile width in pixels
	TileHeight int    `yaml:"tile_height"` // Tile height in pixels
	Zoom       int    `yaml:"zoom"`        // Window pixels per panel pixel
	TargetFPS  int    `yaml:"target_fps"`  // Window refresh cap for graphical backends
	Title      string `yaml:"title"`
}

// ForceConfig is the velocity delta injected while the input is asserted (cells per time unit).
type ForceConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// PhysicsConfig holds solver parameters.
type PhysicsConfig struct {
	DT                 float64     `yaml:"dt"`
	PressureIterations int         `yaml:"pressure_iterations"` // Gauss-Seidel sweeps per tick
	Force              ForceConfig `yaml:"force"`
}

// SimulationConfig holds loop pacing parameters.
type SimulationConfig struct {
	MaxTickRate float64 `yaml:"max_tick_rate"` // Ticks per second cap (0 = unbounded)
	Workers     int     `yaml:"workers"`       // Row-band advection workers (<= 1 = single-threaded)
}

// MemoryConfig selects how scratch fields are allocated.
type MemoryConfig struct {
	Strategy string `yaml:"strategy"` // "pooled" or "per_tick"
}

// DyeConfig holds initial colour seeding parameters.
type DyeConfig struct {
	Pattern    string  `yaml:"pattern"`     // "noise" or "uniform"
	Seed       int64   `yaml:"seed"`        // Noise seed (0 = time-based, resolved by main)
	NoiseScale float64 `yaml:"noise_scale"` // Noise frequency per cell
	HueSpread  float64 `yaml:"hue_spread"`  // Degrees of hue covered by the noise range
	Saturation float64 `yaml:"saturation"`
	Value      float64 `yaml:"value"`
	Uniform    float64 `yaml:"uniform"` // Channel value for the uniform pattern
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	ReportInterval      float64 `yaml:"report_interval"`       // Seconds between reports
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // Ticks in the rolling perf window
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32         float32 // Physics.DT as float32
	ScreenWidth  int     // Grid.Cols * Display.Scale
	ScreenHeight int     // Grid.Rows * Display.Scale
	TilesX       int     // Tiles per screen row
	TilesY       int     // Tiles per screen column
	ForceStep    float64 // |force| * dt, cells moved per tick by one injection
}

// Memory strategies.
const (
	StrategyPooled  = "pooled"
	StrategyPerTick = "per_tick"
)

// Dye patterns.
const (
	PatternNoise   = "noise"
	PatternUniform = "uniform"
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

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
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
		return nil, fmt.Errorf("validating config: %w", err)
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks the build-time invariants the render and solver rely on.
func (c *Config) Validate() error {
	var errs []error
	if c.Grid.Rows < 2 || c.Grid.Cols < 2 {
		errs = append(errs, fmt.Errorf("grid must be at least 2x2, got %dx%d", c.Grid.Rows, c.Grid.Cols))
	}
	d := c.Display
	if d.Scale < 1 {
		errs = append(errs, fmt.Errorf("display.scale must be >= 1, got %d", d.Scale))
	} else {
		if d.TileWidth < 1 || d.TileWidth%d.Scale != 0 {
			errs = append(errs, fmt.Errorf("display.tile_width %d must be a positive multiple of scale %d", d.TileWidth, d.Scale))
		} else if (c.Grid.Cols*d.Scale)%d.TileWidth != 0 {
			errs = append(errs, fmt.Errorf("display.tile_width %d must divide screen width %d", d.TileWidth, c.Grid.Cols*d.Scale))
		}
		if d.TileHeight < 1 || d.TileHeight%d.Scale != 0 {
			errs = append(errs, fmt.Errorf("display.tile_height %d must be a positive multiple of scale %d", d.TileHeight, d.Scale))
		} else if (c.Grid.Rows*d.Scale)%d.TileHeight != 0 {
			errs = append(errs, fmt.Errorf("display.tile_height %d must divide screen height %d", d.TileHeight, c.Grid.Rows*d.Scale))
		}
	}
	if c.Physics.DT <= 0 {
		errs = append(errs, fmt.Errorf("physics.dt must be positive, got %v", c.Physics.DT))
	}
	if c.Physics.PressureIterations < 0 {
		errs = append(errs, fmt.Errorf("physics.pressure_iterations must be >= 0, got %d", c.Physics.PressureIterations))
	}
	if c.Simulation.Workers < 0 {
		errs = append(errs, fmt.Errorf("simulation.workers must be >= 0, got %d", c.Simulation.Workers))
	}
	switch c.Memory.Strategy {
	case StrategyPooled, StrategyPerTick:
	default:
		errs = append(errs, fmt.Errorf("memory.strategy %q is not one of %q, %q", c.Memory.Strategy, StrategyPooled, StrategyPerTick))
	}
	switch c.Dye.Pattern {
	case PatternNoise, PatternUniform:
	default:
		errs = append(errs, fmt.Errorf("dye.pattern %q is not one of %q, %q", c.Dye.Pattern, PatternNoise, PatternUniform))
	}
	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.ScreenWidth = c.Grid.Cols * c.Display.Scale
	c.Derived.ScreenHeight = c.Grid.Rows * c.Display.Scale
	c.Derived.TilesX = c.Derived.ScreenWidth / c.Display.TileWidth
	c.Derived.TilesY = c.Derived.ScreenHeight / c.Display.TileHeight
	c.Derived.ForceStep = math.Hypot(c.Physics.Force.X, c.Physics.Force.Y) * c.Physics.DT
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
