package sph

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sph2d/bitonic"
	"github.com/pthm-cable/sph2d/compute"
	"github.com/pthm-cable/sph2d/particles"
	"github.com/pthm-cable/sph2d/spatial"
)

// Device kernel names of the per-particle stages. The spatial hash stage
// dispatches spatial.KernelUpdateHash and the bitonic kernels.
const (
	KernelExternalForces = "calculate_external_forces"
	KernelDensity        = "calculate_density"
	KernelPressureForce  = "calculate_pressure_force"
	KernelUpdatePosition = "update_position"
)

// CPUKernels implements Kernels on a compute.Device.
type CPUKernels struct {
	dev   compute.Device
	table *spatial.Table
}

// NewCPUKernels creates kernels dispatching on dev.
func NewCPUKernels(dev compute.Device) *CPUKernels {
	return &CPUKernels{
		dev:   dev,
		table: spatial.NewTable(dev, bitonic.NewSorter(dev)),
	}
}

// Close releases the underlying device.
func (k *CPUKernels) Close() { k.dev.Close() }

// GridOf returns the neighbour-query view of v's spatial index.
func GridOf(p Params, v particles.View) spatial.Grid {
	return spatial.Grid{
		Entries: v.Entries,
		Offsets: v.Offsets,
		Count:   v.Count,
		Radius:  p.SmoothingRadius,
	}
}

// ExternalForces applies gravity and writes the look-ahead position.
func (k *CPUKernels) ExternalForces(p Params, v particles.View) error {
	gravity := mgl32.Vec2{0, -p.Gravity}.Mul(p.DeltaTime)
	return k.dev.Dispatch(KernelExternalForces, v.Count, func(i int) {
		vel := v.Velocities[i].Add(gravity)
		v.Velocities[i] = vel
		v.PredictedPositions[i] = v.Positions[i].Add(vel.Mul(p.DeltaTime))
	})
}

// UpdateSpatialHash rebuilds the sorted cell index from predicted positions.
func (k *CPUKernels) UpdateSpatialHash(p Params, v particles.View) error {
	return k.table.Build(v.PredictedPositions, p.SmoothingRadius, v.Entries, v.Offsets, v.Count)
}

// CalculateDensity sums kernel-weighted mass over same and adjacent cells.
func (k *CPUKernels) CalculateDensity(p Params, v particles.View) error {
	grid := GridOf(p, v)
	radius := p.SmoothingRadius
	sqrRadius := radius * radius
	mass := p.ParticleMass

	return k.dev.Dispatch(KernelDensity, v.Count, func(i int) {
		origin := v.PredictedPositions[i]
		var density, near float32
		grid.ForEachCandidate(origin, func(j uint32) {
			offset := v.PredictedPositions[j].Sub(origin)
			sqrDst := offset.Dot(offset)
			if sqrDst > sqrRadius {
				return
			}
			dst := offset.Len()
			density += mass * DensityKernel(dst, radius)
			near += mass * NearDensityKernel(dst, radius)
		})
		v.Densities[i] = density
		v.NearDensities[i] = near
	})
}

// CalculatePressureForce writes the symmetric pressure force and folds the
// resulting acceleration into velocity.
func (k *CPUKernels) CalculatePressureForce(p Params, v particles.View) error {
	grid := GridOf(p, v)
	radius := p.SmoothingRadius
	sqrRadius := radius * radius
	mass := p.ParticleMass

	return k.dev.Dispatch(KernelPressureForce, v.Count, func(i int) {
		origin := v.PredictedPositions[i]
		density := v.Densities[i]
		pressure := PressureFromDensity(density, p)
		nearPressure := NearPressureFromDensity(v.NearDensities[i], p)

		var force mgl32.Vec2
		grid.ForEachCandidate(origin, func(j uint32) {
			if int(j) == i {
				return
			}
			offset := v.PredictedPositions[j].Sub(origin)
			sqrDst := offset.Dot(offset)
			if sqrDst > sqrRadius {
				return
			}
			dst := offset.Len()
			var dir mgl32.Vec2
			if dst > 0 {
				dir = offset.Mul(1 / dst)
			} else if int(j) > i {
				dir = mgl32.Vec2{0, 1}
			} else {
				dir = mgl32.Vec2{0, -1}
			}

			neighbourDensity := v.Densities[j]
			neighbourNear := v.NearDensities[j]
			sharedPressure := (pressure + PressureFromDensity(neighbourDensity, p)) / 2
			sharedNear := (nearPressure + NearPressureFromDensity(neighbourNear, p)) / 2

			if neighbourDensity > 0 {
				force = force.Add(dir.Mul(DensityDerivative(dst, radius) * sharedPressure * mass / neighbourDensity))
			}
			if neighbourNear > 0 {
				force = force.Add(dir.Mul(NearDensityDerivative(dst, radius) * sharedNear * mass / neighbourNear))
			}
		})

		v.PressureForces[i] = force
		if density > 0 {
			v.Velocities[i] = v.Velocities[i].Add(force.Mul(p.DeltaTime / density))
		}
	})
}

// UpdatePositions advances positions and reflects particles off the bounds.
func (k *CPUKernels) UpdatePositions(p Params, v particles.View) error {
	half := HalfBounds(p)
	return k.dev.Dispatch(KernelUpdatePosition, v.Count, func(i int) {
		pos := v.Positions[i].Add(v.Velocities[i].Mul(p.DeltaTime))
		vel := v.Velocities[i]
		pos, vel = ResolveCollisions(pos, vel, half, p.CollisionDamping)
		v.Positions[i] = pos
		v.Velocities[i] = vel
	})
}

// HalfBounds is the largest coordinate magnitude a particle centre may reach.
func HalfBounds(p Params) mgl32.Vec2 {
	half := p.BoundsSize.Mul(0.5).Sub(mgl32.Vec2{p.ParticleRadius, p.ParticleRadius})
	return mgl32.Vec2{max(half.X(), 0), max(half.Y(), 0)}
}

// ResolveCollisions clamps pos into [-half, half] per axis and reflects the
// velocity component of every clamped axis, scaled by damping.
func ResolveCollisions(pos, vel, half mgl32.Vec2, damping float32) (mgl32.Vec2, mgl32.Vec2) {
	for axis := 0; axis < 2; axis++ {
		if abs32(pos[axis]) > half[axis] {
			pos[axis] = half[axis] * sign32(pos[axis])
			vel[axis] *= -1 * damping
		}
	}
	return pos, vel
}

// SampleDensity evaluates the density field at point from the indexed
// predicted positions.
func SampleDensity(point mgl32.Vec2, p Params, v particles.View) float32 {
	grid := GridOf(p, v)
	radius := p.SmoothingRadius
	var density float32
	grid.ForEachCandidate(point, func(j uint32) {
		dst := v.PredictedPositions[j].Sub(point).Len()
		density += p.ParticleMass * DensityKernel(dst, radius)
	})
	return density
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func sign32(x float32) float32 {
	if x < 0 {
		return -1
	}
	return 1
}
