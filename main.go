package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph2d/config"
	"github.com/pthm-cable/sph2d/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	loadSnapshot := flag.String("load-snapshot", "", "Start from a saved snapshot file")
	seed := flag.Int64("seed", 0, "Spawn RNG seed (0 = use config, -1 = time-based)")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	streamAddr := flag.String("stream-addr", "", "Serve frame stats over websocket at this address (e.g. :8080)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed < 0 {
		rngSeed = time.Now().UnixNano()
	}

	opts := game.Options{
		Seed:        rngSeed,
		LogStats:    *logStats,
		SnapshotDir: *snapshotDir,
		OutputDir:   *outputDir,
		Headless:    *headless,
		StreamAddr:  *streamAddr,
	}

	if *headless {
		// Headless mode - pure CPU simulation, no raylib needed
		g := mustGame(opts, *loadSnapshot)
		defer g.Unload()

		slog.Info("starting headless simulation",
			"seed", rngSeed,
			"max_frames", *maxFrames,
			"sub_steps", cfg.Simulation.SubStepsPerFrame,
		)

		for {
			g.UpdateHeadless()

			if err := g.Err(); err != nil {
				slog.Error("simulation halted", "error", err, "frame", g.Frame())
				return
			}
			if *maxFrames > 0 && int(g.Frame()) >= *maxFrames {
				slog.Info("max frames reached", "frame", g.Frame())
				return
			}
		}
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "SPH Fluid")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g := mustGame(opts, *loadSnapshot)
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()

		if *maxFrames > 0 && int(g.Frame()) >= *maxFrames {
			break
		}
	}
}

// mustGame creates the game and optionally loads a snapshot, exiting on failure.
func mustGame(opts game.Options, snapshotPath string) *game.Game {
	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}
	if snapshotPath != "" {
		if err := g.LoadSnapshot(snapshotPath); err != nil {
			slog.Error("failed to load snapshot", "error", err)
			g.Unload()
			os.Exit(1)
		}
	}
	return g
}
