package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph2d/camera"
	"github.com/pthm-cable/sph2d/particles"
)

// ColorMode selects the quantity particles are coloured by.
type ColorMode int

const (
	ColorByDensity ColorMode = iota
	ColorBySpeed
)

func (m ColorMode) String() string {
	if m == ColorBySpeed {
		return "speed"
	}
	return "density"
}

// ParticleRenderer draws particles as circles coloured through a gradient.
type ParticleRenderer struct {
	gradient   *Gradient
	Mode       ColorMode
	DensityMax float32
	SpeedMax   float32
}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer(gradient *Gradient, densityMax, speedMax float32) *ParticleRenderer {
	return &ParticleRenderer{
		gradient:   gradient,
		DensityMax: densityMax,
		SpeedMax:   speedMax,
	}
}

// ToggleMode switches between density and speed colouring.
func (r *ParticleRenderer) ToggleMode() {
	if r.Mode == ColorByDensity {
		r.Mode = ColorBySpeed
	} else {
		r.Mode = ColorByDensity
	}
}

// Draw renders the active particles of v. radius is in world units.
func (r *ParticleRenderer) Draw(cam *camera.Camera, v particles.View, radius float32) {
	size := max(cam.WorldLength(radius), 1)
	for i := 0; i < v.Count; i++ {
		p := v.Positions[i]
		if !cam.IsVisible(p.X(), p.Y(), radius) {
			continue
		}

		var t float32
		switch r.Mode {
		case ColorBySpeed:
			if r.SpeedMax > 0 {
				t = v.Velocities[i].Len() / r.SpeedMax
			}
		default:
			if r.DensityMax > 0 && i < len(v.Densities) {
				t = v.Densities[i] / r.DensityMax
			}
		}

		sx, sy := cam.WorldToScreen(p.X(), p.Y())
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, size, r.gradient.At(t))
	}
}

// DrawBounds outlines the simulation bounds.
func DrawBounds(cam *camera.Camera, width, height float32, color rl.Color) {
	x0, y0 := cam.WorldToScreen(-width/2, height/2)
	x1, y1 := cam.WorldToScreen(width/2, -height/2)
	rl.DrawRectangleLinesEx(rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, 2, color)
}
