package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph2d/renderer"
	"github.com/pthm-cable/sph2d/ui"
)

var (
	backgroundColor = rl.Color{R: 12, G: 14, B: 20, A: 255}
	boundsColor     = rl.Color{R: 90, G: 100, B: 120, A: 255}
)

const controlsHelp = "[Space] run/pause  [Right] step  [R] reset  [V] colour  [F] density  [Tab] panels  [P] snapshot  [WASD] pan  [+/-] zoom  [Home] camera"

// panelWidth is the width of the right-hand panels.
const panelWidth = 280

// initPanels creates the HUD and side panels.
func (g *Game) initPanels() {
	x := int32(g.screenWidth) - panelWidth - 10
	g.hud = ui.NewHUD()
	g.paramsPanel = ui.NewParamsPanel(x, 10, panelWidth)
	g.statsPanel = ui.NewStatsPanel(x, 210, panelWidth, float32(g.cfg.Render.DensityDisplayMax))
	g.perfPanel = ui.NewPerfPanel(10, 130)
	g.showPanels = true
}

// layoutPanels repositions the side panels after a resize.
func (g *Game) layoutPanels() {
	x := int32(g.screenWidth) - panelWidth - 10
	g.paramsPanel.SetPosition(x, 10)
	g.statsPanel.SetPosition(x, 210)
}

// Draw renders the current frame.
func (g *Game) Draw() {
	frame := g.stepper.Frame()
	bounds := frame.Params.BoundsSize

	rl.BeginDrawing()
	rl.ClearBackground(backgroundColor)

	if g.showDensity {
		g.densityField.Update(frame.Params, frame.View, float32(g.cfg.Render.DensityDisplayMax))
		g.densityField.Draw(g.camera, bounds.X(), bounds.Y())
	}
	if g.cfg.Render.DrawBounds {
		renderer.DrawBounds(g.camera, bounds.X(), bounds.Y(), boundsColor)
	}
	g.particleDraw.Draw(g.camera, frame.View, frame.Params.ParticleRadius)

	g.drawUI()

	rl.EndDrawing()
}

// drawUI draws the HUD and, when enabled, the side panels.
func (g *Game) drawUI() {
	frame := g.stepper.Frame()

	data := ui.HUDData{
		Title:     "SPH Fluid",
		State:     frame.State.String(),
		Frame:     frame.Index,
		SimTime:   frame.SimTime,
		Particles: frame.View.Count,
		Capacity:  g.buffers.Capacity(),
		SubSteps:  g.stepper.SubSteps(),
		FPS:       rl.GetFPS(),
		ColorMode: g.particleDraw.Mode.String(),
	}
	if err := g.stepper.Err(); err != nil {
		data.Fault = err.Error()
	}
	g.hud.Draw(data)
	g.hud.DrawControls(int32(g.screenHeight), controlsHelp)

	if !g.showPanels {
		return
	}

	if p, changed := g.paramsPanel.Draw(g.stepper.Params()); changed {
		g.stepper.SetParams(p)
	}
	if g.lastStats.Frame > 0 {
		g.statsPanel.Draw(g.lastStats)
	}
	g.perfPanel.Draw(g.perfCollector.Stats())
}
