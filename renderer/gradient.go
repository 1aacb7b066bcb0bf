package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Gradient is a colour lookup table built from evenly spaced stops.
type Gradient struct {
	lut []rl.Color
}

// NewGradient samples the piecewise-linear ramp through stops into
// resolution entries. Fewer than two stops yields a white-to-white ramp.
func NewGradient(stops [][3]uint8, resolution int) *Gradient {
	if resolution < 2 {
		resolution = 2
	}
	if len(stops) == 0 {
		stops = [][3]uint8{{255, 255, 255}}
	}
	if len(stops) == 1 {
		stops = append(stops, stops[0])
	}

	lut := make([]rl.Color, resolution)
	segments := float32(len(stops) - 1)
	for i := range lut {
		t := float32(i) / float32(resolution-1) * segments
		seg := min(int(t), len(stops)-2)
		f := t - float32(seg)
		a, b := stops[seg], stops[seg+1]
		lut[i] = rl.Color{
			R: lerp8(a[0], b[0], f),
			G: lerp8(a[1], b[1], f),
			B: lerp8(a[2], b[2], f),
			A: 255,
		}
	}
	return &Gradient{lut: lut}
}

// At returns the colour at t, clamped to [0, 1].
func (g *Gradient) At(t float32) rl.Color {
	if !(t > 0) {
		return g.lut[0]
	}
	if t >= 1 {
		return g.lut[len(g.lut)-1]
	}
	return g.lut[int(t*float32(len(g.lut)-1)+0.5)]
}

func lerp8(a, b uint8, t float32) uint8 {
	return uint8(float32(a) + (float32(b)-float32(a))*t + 0.5)
}
