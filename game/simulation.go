package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph2d/sim"
	"github.com/pthm-cable/sph2d/telemetry"
)

// Update handles input and advances one frame using wall-clock or fixed
// frame time.
func (g *Game) Update() {
	g.perfCollector.MarkPresent()
	g.handleInput()

	dt := g.cfg.Derived.FrameDT32
	if !g.cfg.Simulation.FixedFrame {
		// Long stalls (window drag, breakpoints) would blow up the integrator.
		dt = min(rl.GetFrameTime(), maxFrameDT)
	}
	g.step(dt)
}

// UpdateHeadless advances one fixed-time frame without input or rendering.
// The stepper is kept running.
func (g *Game) UpdateHeadless() {
	if g.stepper.State() == sim.Paused && g.stepper.Err() == nil {
		g.stepper.Toggle()
	}
	g.step(g.cfg.Derived.FrameDT32)
}

// maxFrameDT caps wall-clock frame time.
const maxFrameDT = 1.0 / 20

// step runs one frame through the stepper with per-stage timing.
func (g *Game) step(dt float32) {
	before := g.stepper.Frame().Index

	g.perfCollector.BeginFrame()
	g.stepper.SetStageObserver(g.perfCollector.StartPhase)
	err := g.stepper.Advance(dt)
	g.stepper.SetStageObserver(nil)

	frame := g.stepper.Frame()
	if err != nil || frame.Index == before {
		return
	}

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry(frame)
	g.perfCollector.EndFrame()

	if every(frame.Index, g.cfg.Telemetry.PerfLogInterval) {
		g.flushPerf(frame.Index)
	}
}

// flushPerf logs and records the current perf window.
func (g *Game) flushPerf(frame int64) {
	stats := g.perfCollector.Stats()
	if g.logStats {
		stats.LogStats()
	}
	if g.outputManager != nil {
		if err := g.outputManager.WritePerf(stats, frame); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
	g.publish("perf", stats.ToCSV(frame))
}

// every reports whether frame falls on a positive interval.
func every(frame int64, interval int) bool {
	return interval > 0 && frame%int64(interval) == 0
}
