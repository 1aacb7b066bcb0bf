// Package game wires the fluid stepper to the window, input, telemetry and
// rendering.
package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/sph2d/camera"
	"github.com/pthm-cable/sph2d/compute"
	"github.com/pthm-cable/sph2d/config"
	"github.com/pthm-cable/sph2d/particles"
	"github.com/pthm-cable/sph2d/renderer"
	"github.com/pthm-cable/sph2d/sim"
	"github.com/pthm-cable/sph2d/spawn"
	"github.com/pthm-cable/sph2d/sph"
	"github.com/pthm-cable/sph2d/telemetry"
	"github.com/pthm-cable/sph2d/ui"
)

// Options configures game behavior.
type Options struct {
	Config        *config.Config // nil = config.Cfg()
	Seed          int64          // Overrides spawn.seed when non-zero
	LogStats      bool           // Log frame and perf stats via slog
	SnapshotDir   string         // Directory for particle snapshots (empty = off)
	OutputDir     string         // Directory for CSV output (empty = off)
	Headless      bool           // Skip all window and GPU resources
	StreamAddr    string         // Listen address for the websocket telemetry stream (empty = off)
	StatsCallback func(telemetry.FrameStats)
}

// Game holds the complete application state.
type Game struct {
	cfg      *config.Config
	buffers  *particles.Buffers
	stepper  *sim.Stepper
	settings spawn.Settings

	// Telemetry
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	stream        *telemetry.StreamServer
	statsCallback func(telemetry.FrameStats)
	logStats      bool
	snapshotDir   string
	lastStats     telemetry.FrameStats

	// Rendering (nil when headless)
	headless     bool
	camera       *camera.Camera
	gradient     *renderer.Gradient
	particleDraw *renderer.ParticleRenderer
	densityField *renderer.DensityField
	showDensity  bool

	// UI
	hud         *ui.HUD
	paramsPanel *ui.ParamsPanel
	statsPanel  *ui.StatsPanel
	perfPanel   *ui.PerfPanel
	showPanels  bool

	screenWidth, screenHeight float32
}

// NewGameWithOptions builds the buffers, kernels and stepper from the config
// and seeds the first layout.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	buffers := particles.New(cfg.Derived.MemoryBudget)
	if err := buffers.Allocate(cfg.Simulation.Capacity); err != nil {
		return nil, fmt.Errorf("allocating particle buffers: %w", err)
	}

	settings := spawnSettingsFromConfig(cfg)
	if opts.Seed != 0 {
		settings.Seed = opts.Seed
	}

	pool := compute.NewPool(cfg.Derived.Workers, cfg.Compute.ParallelThreshold)
	stepper := sim.New(simSettingsFromConfig(cfg), buffers, sph.NewCPUKernels(pool), spawn.Generator{Settings: settings})

	g := &Game{
		cfg:           cfg,
		buffers:       buffers,
		stepper:       stepper,
		settings:      settings,
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		statsCallback: opts.StatsCallback,
		logStats:      opts.LogStats,
		snapshotDir:   opts.SnapshotDir,
		headless:      opts.Headless,
		screenWidth:   cfg.Derived.ScreenW32,
		screenHeight:  cfg.Derived.ScreenH32,
	}

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir)
		if err != nil {
			stepper.Close()
			return nil, fmt.Errorf("creating output manager: %w", err)
		}
		if err := om.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config", "error", err)
		}
		g.outputManager = om
	}

	if opts.StreamAddr != "" {
		stream := telemetry.NewStreamServer()
		if err := stream.Start(opts.StreamAddr); err != nil {
			g.Unload()
			return nil, err
		}
		g.stream = stream
	}

	if !opts.Headless {
		g.initRendering()
	}

	if err := stepper.Reset(); err != nil {
		g.Unload()
		return nil, fmt.Errorf("seeding initial layout: %w", err)
	}

	slog.Info("game created",
		"capacity", buffers.Capacity(),
		"particles", buffers.ActiveCount(),
		"workers", pool.Workers(),
		"seed", settings.Seed,
		"headless", opts.Headless,
	)
	return g, nil
}

// initRendering creates the camera and renderers. Requires an open window.
func (g *Game) initRendering() {
	r := g.cfg.Render
	bounds := g.cfg.Simulation.BoundsSize
	g.camera = camera.New(g.screenWidth, g.screenHeight, float32(bounds[0]), float32(bounds[1]))
	g.gradient = renderer.NewGradient(r.Gradient, r.GradientResolution)
	g.particleDraw = renderer.NewParticleRenderer(g.gradient, float32(r.DensityDisplayMax), speedDisplayMax)
	g.densityField = renderer.NewDensityField(densityFieldCols, densityFieldRows, g.gradient)
	g.initPanels()
}

// LoadSnapshot replaces the current layout and parameters with a saved snapshot.
func (g *Game) LoadSnapshot(path string) error {
	snap, err := telemetry.LoadSnapshot(path)
	if err != nil {
		return err
	}
	if len(snap.Particles) > g.buffers.Capacity() {
		return fmt.Errorf("snapshot has %d particles, capacity is %d", len(snap.Particles), g.buffers.Capacity())
	}
	g.stepper.SetParams(snap.SimParams())
	pos, vel := snap.Layout()
	if err := g.stepper.ResetTo(pos, vel); err != nil {
		return err
	}
	slog.Info("snapshot loaded", "path", path, "frame", snap.Frame, "particles", len(pos))
	return nil
}

// Frame returns the number of completed frames since the last reset.
func (g *Game) Frame() int64 {
	return g.stepper.Frame().Index
}

// Stepper returns the underlying stepper.
func (g *Game) Stepper() *sim.Stepper {
	return g.stepper
}

// LastStats returns the most recently computed frame statistics.
func (g *Game) LastStats() telemetry.FrameStats {
	return g.lastStats
}

// Err returns the latched simulation fault, if any.
func (g *Game) Err() error {
	return g.stepper.Err()
}

// Unload releases all resources.
func (g *Game) Unload() {
	if g.densityField != nil {
		g.densityField.Unload()
	}
	if g.outputManager != nil {
		if err := g.outputManager.Close(); err != nil {
			slog.Error("failed to close output manager", "error", err)
		}
	}
	if g.stream != nil {
		if err := g.stream.Close(); err != nil {
			slog.Error("failed to close telemetry stream", "error", err)
		}
	}
	g.stepper.Close()
}
