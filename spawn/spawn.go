// Package spawn generates initial particle layouts.
package spawn

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// Settings describes the initial layout.
type Settings struct {
	Count           int
	MaxCount        int // Count is clamped to this when positive
	Random          bool
	Seed            int64
	Center          mgl32.Vec2
	Size            mgl32.Vec2 // Grid coordinates wrap inside Size when an axis is positive
	Spacing         float32
	InitialVelocity mgl32.Vec2
}

// Layout is a generated set of positions and matching velocities.
type Layout struct {
	Positions  []mgl32.Vec2
	Velocities []mgl32.Vec2
}

// Len returns the number of particles in the layout.
func (l Layout) Len() int { return len(l.Positions) }

// Generator produces a layout from fixed settings. Each call to Generate
// yields the same layout.
type Generator struct {
	Settings Settings
}

// Generate implements the stepper's spawner contract.
func (g Generator) Generate() ([]mgl32.Vec2, []mgl32.Vec2) {
	l := Generate(g.Settings)
	return l.Positions, l.Velocities
}

// Count returns the clamped particle count for s.
func Count(s Settings) int {
	n := max(s.Count, 0)
	if s.MaxCount > 0 && n > s.MaxCount {
		n = s.MaxCount
	}
	return n
}

// Generate builds the layout described by s.
func Generate(s Settings) Layout {
	n := Count(s)
	l := Layout{
		Positions:  make([]mgl32.Vec2, n),
		Velocities: make([]mgl32.Vec2, n),
	}
	if s.Random {
		randomPositions(s, l.Positions)
	} else {
		gridPositions(s, l.Positions)
	}
	for i := range l.Velocities {
		l.Velocities[i] = s.InitialVelocity
	}
	return l
}

// gridPositions lays n particles out in rows of ceil(sqrt(n)) columns,
// centred on s.Center.
func gridPositions(s Settings, dst []mgl32.Vec2) {
	n := len(dst)
	if n == 0 {
		return
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	for i := range dst {
		x := (float32(i%cols) - float32(cols)/2 + 0.5) * s.Spacing
		y := (float32(i/cols) - float32(rows)/2 + 0.5) * s.Spacing
		dst[i] = mgl32.Vec2{fold(x, s.Size.X()), fold(y, s.Size.Y())}.Add(s.Center)
	}
}

func randomPositions(s Settings, dst []mgl32.Vec2) {
	rng := rand.New(rand.NewSource(s.Seed))
	for i := range dst {
		x := (rng.Float32() - 0.5) * s.Size.X()
		y := (rng.Float32() - 0.5) * s.Size.Y()
		dst[i] = mgl32.Vec2{x, y}.Add(s.Center)
	}
}

// fold wraps v into (-size, size) keeping its sign. A non-positive size
// leaves v unchanged.
func fold(v, size float32) float32 {
	if size <= 0 {
		return v
	}
	return float32(math.Mod(float64(v), float64(size)))
}
