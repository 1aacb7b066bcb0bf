// Package sph defines the per-particle kernels of the fluid pipeline, the
// order they run in and the buffers each one touches.
package sph

import "github.com/go-gl/mathgl/mgl32"

// MinSmoothingRadius is the smallest smoothing radius kept by config loading
// and Sanitized.
const MinSmoothingRadius = 1e-3

// Params is the configuration snapshot every kernel of one sub-step sees.
type Params struct {
	Gravity                float32
	CollisionDamping       float32
	SmoothingRadius        float32
	TargetDensity          float32
	PressureMultiplier     float32
	NearPressureMultiplier float32
	ParticleMass           float32
	ParticleRadius         float32
	BoundsSize             mgl32.Vec2
	DeltaTime              float32
	ActiveCount            uint32
}

// Sanitized returns p with degenerate values clamped to runnable ones.
func (p Params) Sanitized() Params {
	if !(p.SmoothingRadius >= MinSmoothingRadius) {
		p.SmoothingRadius = MinSmoothingRadius
	}
	if p.ParticleMass <= 0 {
		p.ParticleMass = 1
	}
	if p.ParticleRadius < 0 {
		p.ParticleRadius = 0
	}
	return p
}
