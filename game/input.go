package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// handleInput processes keyboard input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	// Run state
	if rl.IsKeyPressed(rl.KeySpace) {
		state := g.stepper.Toggle()
		slog.Debug("run state", "state", state)
	}
	if rl.IsKeyPressed(rl.KeyRight) {
		g.stepper.StepOnce()
	}
	if rl.IsKeyPressed(rl.KeyR) {
		if err := g.stepper.Reset(); err != nil {
			slog.Error("reset failed", "error", err)
		}
	}

	// Display
	if rl.IsKeyPressed(rl.KeyV) {
		g.particleDraw.ToggleMode()
	}
	if rl.IsKeyPressed(rl.KeyF) {
		g.showDensity = !g.showDensity
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		g.showPanels = !g.showPanels
	}
	if rl.IsKeyPressed(rl.KeyP) {
		g.SaveSnapshotNow()
	}

	g.handleCameraInput()
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h
	g.camera.Resize(w, h)
	g.layoutPanels()
}

// handleCameraInput processes camera pan/zoom controls.
func (g *Game) handleCameraInput() {
	// Pan speed in screen pixels per frame
	const panSpeed = 8

	if rl.IsKeyDown(rl.KeyD) {
		g.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyA) {
		g.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyS) {
		g.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyW) {
		g.camera.Pan(0, -panSpeed)
	}

	// Zoom controls: mouse wheel or +/- keys
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}
