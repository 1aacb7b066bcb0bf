// Density field preview tool - lays out a particle block and shows the
// resulting density field, with sliders for the kernel parameters.
//
// Usage: go run ./cmd/densitypreview [-config path]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/sph2d/camera"
	"github.com/pthm-cable/sph2d/compute"
	"github.com/pthm-cable/sph2d/config"
	"github.com/pthm-cable/sph2d/particles"
	"github.com/pthm-cable/sph2d/renderer"
	"github.com/pthm-cable/sph2d/spawn"
	"github.com/pthm-cable/sph2d/sph"
)

const (
	windowWidth  = 1280
	windowHeight = 720
	previewW     = 860
	panelWidth   = windowWidth - previewW - 30
	fieldCols    = 170
	fieldRows    = 90
)

// previewParams holds the values the sliders edit.
type previewParams struct {
	SmoothingRadius float32
	TargetDensity   float32
	ParticleMass    float32
	Spacing         float32
	Count           int
}

func fromConfig(cfg *config.Config) previewParams {
	return previewParams{
		SmoothingRadius: float32(cfg.Simulation.SmoothingRadius),
		TargetDensity:   float32(cfg.Simulation.TargetDensity),
		ParticleMass:    float32(cfg.Simulation.ParticleMass),
		Spacing:         float32(cfg.Spawn.Spacing),
		Count:           min(cfg.Derived.SpawnCount, 4096),
	}
}

type slider struct {
	label    string
	min, max float32
	format   string
	value    *float32
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rl.InitWindow(windowWidth, windowHeight, "Density Field Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	const capacity = 4096
	buffers := particles.New(0)
	if err := buffers.Allocate(capacity); err != nil {
		slog.Error("failed to allocate buffers", "error", err)
		os.Exit(1)
	}
	defer buffers.Release()

	pool := compute.NewPool(cfg.Derived.Workers, cfg.Compute.ParallelThreshold)
	kernels := sph.NewCPUKernels(pool)
	defer kernels.Close()

	bounds := mgl32.Vec2{float32(cfg.Simulation.BoundsSize[0]), float32(cfg.Simulation.BoundsSize[1])}
	cam := camera.New(previewW, windowHeight, bounds.X(), bounds.Y())
	gradient := renderer.NewGradient(cfg.Render.Gradient, cfg.Render.GradientResolution)
	field := renderer.NewDensityField(fieldCols, fieldRows, gradient)
	defer field.Unload()
	dots := renderer.NewParticleRenderer(gradient, float32(cfg.Render.DensityDisplayMax), 1)

	params := fromConfig(cfg)
	count := float32(params.Count)
	sliders := []slider{
		{"Smoothing radius", 0.05, 1.5, "%.3f", &params.SmoothingRadius},
		{"Target density", 1, 200, "%.1f", &params.TargetDensity},
		{"Particle mass", 0.1, 5, "%.2f", &params.ParticleMass},
		{"Spacing", 0.02, 0.5, "%.3f", &params.Spacing},
		{"Particle count", 1, capacity, "%.0f", &count},
	}

	var simParams sph.Params
	var meanDensity float64
	needsRegen := true
	showParticles := true

	for !rl.WindowShouldClose() {
		if needsRegen {
			params.Count = int(count)
			simParams = sph.Params{
				SmoothingRadius: params.SmoothingRadius,
				TargetDensity:   params.TargetDensity,
				ParticleMass:    params.ParticleMass,
				ParticleRadius:  float32(cfg.Simulation.ParticleRadius),
				BoundsSize:      bounds,
			}.Sanitized()
			meanDensity = evaluate(kernels, buffers, simParams, params)
			field.Update(simParams, buffers.View(), float32(cfg.Render.DensityDisplayMax))
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)

		field.Draw(cam, bounds.X(), bounds.Y())
		if showParticles {
			dots.Draw(cam, buffers.View(), simParams.ParticleRadius)
		}
		renderer.DrawBounds(cam, bounds.X(), bounds.Y(), rl.Gray)

		rl.DrawText(fmt.Sprintf("Particles: %d  Mean density: %.2f  Target: %.2f",
			buffers.ActiveCount(), meanDensity, params.TargetDensity), 15, windowHeight-30, 16, rl.RayWhite)

		panelX := float32(previewW + 20)
		panelY := float32(10)
		rl.DrawRectangle(previewW, 0, windowWidth-previewW, windowHeight, rl.RayWhite)
		rl.DrawText("Density Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		for _, s := range sliders {
			rl.DrawText(s.label, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			v := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"", "",
				*s.value, s.min, s.max,
			)
			rl.DrawText(fmt.Sprintf(s.format, *s.value), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			if v != *s.value {
				*s.value = v
				needsRegen = true
			}
			panelY += 35
		}

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(showParticles, "Hide Particles", "Show Particles")) {
			showParticles = !showParticles
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = fromConfig(cfg)
			count = float32(params.Count)
			needsRegen = true
		}
		panelY += 55

		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		yaml := yamlSnippet(params)
		for _, line := range yaml {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			var text string
			for _, line := range yaml {
				text += line + "\n"
			}
			rl.SetClipboardText(text)
		}

		rl.EndDrawing()
	}
}

// evaluate lays out a grid block, rebuilds the index and densities and
// returns the mean particle density.
func evaluate(k *sph.CPUKernels, b *particles.Buffers, p sph.Params, pp previewParams) float64 {
	layout := spawn.Generate(spawn.Settings{
		Count:    pp.Count,
		MaxCount: b.Capacity(),
		Spacing:  pp.Spacing,
		Size:     p.BoundsSize,
	})
	b.Reseed(layout.Positions, layout.Velocities)

	v := b.View()
	for _, run := range []func(sph.Params, particles.View) error{
		k.ExternalForces, k.UpdateSpatialHash, k.CalculateDensity,
	} {
		if err := run(p, v); err != nil {
			slog.Error("density evaluation failed", "error", err)
			return 0
		}
	}

	densities := make([]float64, v.Count)
	for i, d := range v.Densities {
		densities[i] = float64(d)
	}
	if len(densities) == 0 {
		return 0
	}
	return stat.Mean(densities, nil)
}

func yamlSnippet(p previewParams) []string {
	return []string{
		"simulation:",
		fmt.Sprintf("  smoothing_radius: %.3f", p.SmoothingRadius),
		fmt.Sprintf("  target_density: %.1f", p.TargetDensity),
		fmt.Sprintf("  particle_mass: %.2f", p.ParticleMass),
		"spawn:",
		fmt.Sprintf("  spacing: %.3f", p.Spacing),
		fmt.Sprintf("  count: %d", p.Count),
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
