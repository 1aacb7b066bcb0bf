package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sph2d/camera"
	"github.com/pthm-cable/sph2d/particles"
	"github.com/pthm-cable/sph2d/sph"
)

// DensityField renders the sampled density over the simulation bounds as a
// texture. Samples above the target density are tinted by the gradient,
// samples below fade to the background.
type DensityField struct {
	cols, rows int
	gradient   *Gradient
	pixels     []rl.Color
	texture    rl.Texture2D
	loaded     bool
}

// NewDensityField creates a field of cols x rows samples.
func NewDensityField(cols, rows int, gradient *Gradient) *DensityField {
	return &DensityField{
		cols:     max(cols, 1),
		rows:     max(rows, 1),
		gradient: gradient,
		pixels:   make([]rl.Color, max(cols, 1)*max(rows, 1)),
	}
}

// Update resamples the field. The spatial index in v must be current.
func (d *DensityField) Update(p sph.Params, v particles.View, displayMax float32) {
	w, h := p.BoundsSize.X(), p.BoundsSize.Y()
	for row := 0; row < d.rows; row++ {
		// Row 0 is the top of the texture, the +y edge of the world.
		y := h/2 - (float32(row)+0.5)/float32(d.rows)*h
		for col := 0; col < d.cols; col++ {
			x := -w/2 + (float32(col)+0.5)/float32(d.cols)*w
			density := sph.SampleDensity(mgl32.Vec2{x, y}, p, v)
			d.pixels[row*d.cols+col] = d.color(density, p.TargetDensity, displayMax)
		}
	}
}

func (d *DensityField) color(density, target, displayMax float32) rl.Color {
	if displayMax <= 0 {
		displayMax = 1
	}
	c := d.gradient.At(density / displayMax)
	if density < target && target > 0 {
		c.A = uint8(255 * density / target)
	}
	return c
}

// Draw uploads the samples and stretches them over the bounds.
func (d *DensityField) Draw(cam *camera.Camera, width, height float32) {
	if !d.loaded {
		img := rl.GenImageColor(d.cols, d.rows, rl.Blank)
		d.texture = rl.LoadTextureFromImage(img)
		rl.UnloadImage(img)
		rl.SetTextureFilter(d.texture, rl.FilterBilinear)
		d.loaded = true
	}
	rl.UpdateTexture(d.texture, d.pixels)

	x0, y0 := cam.WorldToScreen(-width/2, height/2)
	x1, y1 := cam.WorldToScreen(width/2, -height/2)
	src := rl.Rectangle{X: 0, Y: 0, Width: float32(d.cols), Height: float32(d.rows)}
	dst := rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
	rl.DrawTexturePro(d.texture, src, dst, rl.Vector2{}, 0, rl.White)
}

// Unload frees resources.
func (d *DensityField) Unload() {
	if d.loaded {
		rl.UnloadTexture(d.texture)
		d.loaded = false
	}
}
