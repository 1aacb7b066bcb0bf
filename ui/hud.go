package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph2d/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title     string
	State     string
	Frame     int64
	SimTime   float64
	Particles int
	Capacity  int
	SubSteps  int
	FPS       int32
	ColorMode string
	Fault     string
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	theme := h.renderer.Theme

	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Particles: %d / %d | Sub-steps: %d | Colour: %s", data.Particles, data.Capacity, data.SubSteps, data.ColorMode),
		10, 35, 16, theme.LabelColor,
	)
	rl.DrawText(
		fmt.Sprintf("Frame: %d | Time: %.2fs | FPS: %d", data.Frame, data.SimTime, data.FPS),
		10, 55, 16, theme.LabelColor,
	)

	statusColor := theme.SectionHeader
	if data.Fault != "" {
		statusColor = theme.ErrorColor
	}
	rl.DrawText(data.State, 10, 75, 16, statusColor)
	if data.Fault != "" {
		rl.DrawText(data.Fault, 10, 95, 14, theme.ErrorColor)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-stage timing breakdown.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel with stages in pipeline order.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	rl.DrawText("Stage Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Frame: %s", stats.FrameAvg.Round(time.Microsecond)), x, y, 14, rl.Yellow)
	y += 16

	for _, name := range telemetry.Phases {
		avg, ok := stats.PhaseAvg[name]
		if !ok {
			continue
		}
		pct := stats.PhasePct[name]

		color := p.renderer.Theme.LabelColor
		if pct > 40 {
			color = p.renderer.Theme.ErrorColor
		} else if pct > 20 {
			color = p.renderer.Theme.WarnColor
		}

		rl.DrawText(
			fmt.Sprintf("%-24s %8s %5.1f%%", name, avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
