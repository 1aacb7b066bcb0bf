// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/sph2d/sph"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Simulation SimulationConfig `yaml:"simulation"`
	Spawn      SpawnConfig      `yaml:"spawn"`
	Compute    ComputeConfig    `yaml:"compute"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Render     RenderConfig     `yaml:"render"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SimulationConfig holds the fluid parameters pushed to the kernels each frame.
type SimulationConfig struct {
	Gravity                float64    `yaml:"gravity"`
	CollisionDamping       float64    `yaml:"collision_damping"`
	SmoothingRadius        float64    `yaml:"smoothing_radius"`
	TargetDensity          float64    `yaml:"target_density"`
	PressureMultiplier     float64    `yaml:"pressure_multiplier"`
	NearPressureMultiplier float64    `yaml:"near_pressure_multiplier"`
	ParticleMass           float64    `yaml:"particle_mass"`
	ParticleRadius         float64    `yaml:"particle_radius"`
	BoundsSize             [2]float64 `yaml:"bounds_size"`
	Capacity               int        `yaml:"capacity"`           // Buffer slots allocated once at startup
	SubStepsPerFrame       int        `yaml:"sub_steps_per_frame"`
	TimeScale              float64    `yaml:"time_scale"`
	FixedFrame             bool       `yaml:"fixed_frame"` // Ignore wall-clock frame time and use frame_dt
	FrameDT                float64    `yaml:"frame_dt"`
}

// SpawnConfig holds initial layout parameters.
type SpawnConfig struct {
	Count           int        `yaml:"count"`
	MaxCount        int        `yaml:"max_count"`
	Random          bool       `yaml:"random"`
	Seed            int64      `yaml:"seed"`
	Center          [2]float64 `yaml:"center"`
	Size            [2]float64 `yaml:"size"`
	Spacing         float64    `yaml:"spacing"`
	InitialVelocity [2]float64 `yaml:"initial_velocity"`
}

// ComputeConfig holds worker pool and memory settings.
type ComputeConfig struct {
	Workers           int `yaml:"workers"`            // 0 = runtime.NumCPU()
	ParallelThreshold int `yaml:"parallel_threshold"` // Dispatches smaller than this run inline
	MemoryLimitMB     int `yaml:"memory_limit_mb"`    // 0 = unlimited
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsInterval       int `yaml:"stats_interval"` // Frames between frame statistics records
	PerfCollectorWindow int `yaml:"perf_collector_window"`
	PerfLogInterval     int `yaml:"perf_log_interval"` // Frames between perf summaries
	SnapshotInterval    int `yaml:"snapshot_interval"` // Frames between particle snapshots (0 = off)
}

// RenderConfig holds particle display parameters.
type RenderConfig struct {
	Gradient           [][3]uint8 `yaml:"gradient"` // Colour stops from low to high density
	GradientResolution int        `yaml:"gradient_resolution"`
	DensityDisplayMax  float64    `yaml:"density_display_max"`
	DrawBounds         bool       `yaml:"draw_bounds"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	FrameDT32    float32 // Simulation.FrameDT as float32
	ScreenW32    float32 // Screen.Width as float32
	ScreenH32    float32 // Screen.Height as float32
	Workers      int     // Effective worker count
	MemoryBudget int64   // Compute.MemoryLimitMB in bytes, 0 = unlimited
	SpawnCount   int     // Spawn.Count clamped to Spawn.MaxCount and Simulation.Capacity
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

// Load loads configuration from a YAML file, merging with embedded defaults.
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
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived clamps degenerate values and calculates derived ones.
func (c *Config) computeDerived() {
	sim := &c.Simulation
	if sim.Capacity < 1 {
		sim.Capacity = 1
	}
	if !(sim.SmoothingRadius >= sph.MinSmoothingRadius) {
		sim.SmoothingRadius = sph.MinSmoothingRadius
	}
	if sim.SubStepsPerFrame < 1 {
		sim.SubStepsPerFrame = 1
	}
	if sim.TimeScale <= 0 {
		sim.TimeScale = 1
	}
	if sim.FrameDT <= 0 {
		sim.FrameDT = 1.0 / 60
	}
	if sim.ParticleMass <= 0 {
		sim.ParticleMass = 1
	}
	if sim.ParticleRadius < 0 {
		sim.ParticleRadius = 0
	}

	sp := &c.Spawn
	if sp.MaxCount <= 0 || sp.MaxCount > sim.Capacity {
		sp.MaxCount = sim.Capacity
	}
	if sp.Count < 0 {
		sp.Count = 0
	}
	c.Derived.SpawnCount = min(sp.Count, sp.MaxCount)

	if c.Compute.Workers <= 0 {
		c.Derived.Workers = runtime.NumCPU()
	} else {
		c.Derived.Workers = c.Compute.Workers
	}
	if c.Compute.MemoryLimitMB > 0 {
		c.Derived.MemoryBudget = int64(c.Compute.MemoryLimitMB) << 20
	}

	if c.Telemetry.PerfCollectorWindow < 1 {
		c.Telemetry.PerfCollectorWindow = 1
	}
	if c.Render.GradientResolution < 2 {
		c.Render.GradientResolution = 2
	}

	c.Derived.FrameDT32 = float32(sim.FrameDT)
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)
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
