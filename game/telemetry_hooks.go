package game

import (
	"log/slog"

	"github.com/pthm-cable/sph2d/sim"
	"github.com/pthm-cable/sph2d/telemetry"
)

// flushTelemetry records frame statistics and snapshots on their intervals.
func (g *Game) flushTelemetry(frame sim.Frame) {
	t := g.cfg.Telemetry

	if every(frame.Index, t.StatsInterval) {
		stats := telemetry.ComputeFrameStats(frame.Index, frame.SimTime, frame.View, frame.Params.ParticleMass)
		g.lastStats = stats

		if g.statsCallback != nil {
			g.statsCallback(stats)
		}
		if g.logStats {
			slog.Info("frame", "stats", stats)
		}
		if g.outputManager != nil {
			if err := g.outputManager.WriteFrame(stats); err != nil {
				slog.Error("failed to write frame stats", "error", err)
			}
		}
		g.publish("frame", stats)
	}

	if g.snapshotDir != "" && every(frame.Index, t.SnapshotInterval) {
		g.saveSnapshot(frame)
	}
}

// saveSnapshot writes the active particle state of frame to the snapshot directory.
func (g *Game) saveSnapshot(frame sim.Frame) {
	snap := telemetry.NewSnapshot(frame.Index, frame.SimTime, frame.Params, frame.View)
	path, err := telemetry.SaveSnapshot(snap, g.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err, "frame", frame.Index)
		return
	}
	slog.Info("snapshot saved", "path", path, "frame", frame.Index)
}

// SaveSnapshotNow writes a snapshot of the current frame regardless of interval.
func (g *Game) SaveSnapshotNow() {
	if g.snapshotDir == "" {
		slog.Warn("snapshot requested without a snapshot directory")
		return
	}
	g.saveSnapshot(g.stepper.Frame())
}

// publish forwards a record to the telemetry stream when enabled.
func (g *Game) publish(kind string, data any) {
	if g.stream == nil {
		return
	}
	if err := g.stream.Publish(kind, data); err != nil {
		slog.Error("failed to publish telemetry", "error", err, "kind", kind)
	}
}
