// Package particles owns the per-particle arrays of the simulation.
//
// Every array is allocated once at a fixed capacity. The live particles are
// the prefix [0, ActiveCount); Reseed overwrites that prefix and is the only
// way the active count changes. Slots past the active count keep whatever
// they last held.
package particles

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sph2d/bitonic"
)

// BytesPerParticle is the storage one capacity slot costs across all arrays:
// four vec2 arrays, two scalar arrays, one index entry and one offset.
const BytesPerParticle = 4*8 + 2*4 + 8 + 4

var (
	ErrInvalidCapacity  = errors.New("particles: capacity must be positive")
	ErrOutOfMemory      = errors.New("particles: capacity exceeds memory budget")
	ErrAlreadyAllocated = errors.New("particles: buffers already allocated")
)

// Buffers is the structure-of-arrays particle store.
type Buffers struct {
	budget    int64
	capacity  int
	active    int
	allocated bool

	positions      []mgl32.Vec2
	velocities     []mgl32.Vec2
	predicted      []mgl32.Vec2
	pressureForces []mgl32.Vec2
	densities      []float32
	nearDensities  []float32
	entries        []bitonic.Entry
	offsets        []uint32
}

// View exposes array ranges to kernels and readers. Per-particle slices are
// limited to the active count; Offsets spans the full capacity because it is
// indexed by cell key.
type View struct {
	Count int

	Positions          []mgl32.Vec2
	Velocities         []mgl32.Vec2
	PredictedPositions []mgl32.Vec2
	PressureForces     []mgl32.Vec2
	Densities          []float32
	NearDensities      []float32

	Entries []bitonic.Entry
	Offsets []uint32
}

// New creates an unallocated store. budgetBytes <= 0 disables the budget check.
func New(budgetBytes int64) *Buffers {
	return &Buffers{budget: budgetBytes}
}

// Allocate creates every array at capacity slots.
func (b *Buffers) Allocate(capacity int) error {
	if b.allocated {
		return ErrAlreadyAllocated
	}
	if capacity <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	if need := int64(capacity) * BytesPerParticle; b.budget > 0 && need > b.budget {
		return fmt.Errorf("%w: %d particles need %d bytes, budget %d", ErrOutOfMemory, capacity, need, b.budget)
	}

	b.positions = make([]mgl32.Vec2, capacity)
	b.velocities = make([]mgl32.Vec2, capacity)
	b.predicted = make([]mgl32.Vec2, capacity)
	b.pressureForces = make([]mgl32.Vec2, capacity)
	b.densities = make([]float32, capacity)
	b.nearDensities = make([]float32, capacity)
	b.entries = make([]bitonic.Entry, capacity)
	b.offsets = make([]uint32, capacity)

	b.capacity = capacity
	b.active = 0
	b.allocated = true
	return nil
}

// Reseed overwrites the first len(positions) slots of the position, velocity
// and predicted-position arrays and makes that the active count. It panics if
// the lengths differ, exceed capacity, or the store is not allocated.
func (b *Buffers) Reseed(positions, velocities []mgl32.Vec2) {
	if !b.allocated {
		panic("particles: Reseed before Allocate")
	}
	if len(positions) != len(velocities) {
		panic(fmt.Sprintf("particles: reseed with %d positions and %d velocities", len(positions), len(velocities)))
	}
	if len(positions) > b.capacity {
		panic(fmt.Sprintf("particles: reseed of %d particles exceeds capacity %d", len(positions), b.capacity))
	}

	n := len(positions)
	copy(b.positions, positions)
	copy(b.predicted, positions)
	copy(b.velocities, velocities)
	b.active = n
}

// Restore overwrites the active positions and velocities and leaves the
// predicted positions and derived arrays as the last dispatch left them. It
// panics unless both slices match the active count.
func (b *Buffers) Restore(positions, velocities []mgl32.Vec2) {
	if !b.allocated {
		panic("particles: Restore before Allocate")
	}
	if len(positions) != b.active || len(velocities) != b.active {
		panic(fmt.Sprintf("particles: restore of %d/%d particles with %d active", len(positions), len(velocities), b.active))
	}
	copy(b.positions, positions)
	copy(b.velocities, velocities)
}

// Release frees every array. Safe to call when not allocated.
func (b *Buffers) Release() {
	if !b.allocated {
		return
	}
	b.positions = nil
	b.velocities = nil
	b.predicted = nil
	b.pressureForces = nil
	b.densities = nil
	b.nearDensities = nil
	b.entries = nil
	b.offsets = nil
	b.capacity = 0
	b.active = 0
	b.allocated = false
}

// Allocated reports whether the arrays exist.
func (b *Buffers) Allocated() bool { return b.allocated }

// Capacity returns the slot count of every array.
func (b *Buffers) Capacity() int { return b.capacity }

// ActiveCount returns the number of live particles.
func (b *Buffers) ActiveCount() int { return b.active }

// View returns the active ranges.
func (b *Buffers) View() View {
	n := b.active
	v := b.Backing()
	v.Count = n
	if !b.allocated {
		return v
	}
	v.Positions = v.Positions[:n]
	v.Velocities = v.Velocities[:n]
	v.PredictedPositions = v.PredictedPositions[:n]
	v.PressureForces = v.PressureForces[:n]
	v.Densities = v.Densities[:n]
	v.NearDensities = v.NearDensities[:n]
	v.Entries = v.Entries[:n]
	return v
}

// Backing returns full-capacity slices, including slots past the active count.
func (b *Buffers) Backing() View {
	return View{
		Count:              b.active,
		Positions:          b.positions,
		Velocities:         b.velocities,
		PredictedPositions: b.predicted,
		PressureForces:     b.pressureForces,
		Densities:          b.densities,
		NearDensities:      b.nearDensities,
		Entries:            b.entries,
		Offsets:            b.offsets,
	}
}
