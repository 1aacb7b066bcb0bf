package sph

import (
	"fmt"

	"github.com/pthm-cable/sph2d/particles"
)

// Stage names, in dispatch order.
const (
	StageExternalForces = "external_forces"
	StageSpatialHash    = "spatial_hash"
	StageDensity        = "density"
	StagePressureForce  = "pressure_force"
	StageIntegrate      = "integrate"
)

// Access is how a stage uses a buffer.
type Access uint8

const (
	Read Access = 1 << iota
	Write
	ReadWrite = Read | Write
)

func (a Access) String() string {
	switch a {
	case Read:
		return "read"
	case Write:
		return "write"
	case ReadWrite:
		return "read-write"
	}
	return "none"
}

// Buffer identifies one particle or index array.
type Buffer uint8

const (
	Positions Buffer = iota
	Velocities
	PredictedPositions
	Densities
	NearDensities
	PressureForces
	SpatialEntries
	SpatialOffsets
)

var bufferNames = [...]string{
	"positions", "velocities", "predicted_positions", "densities",
	"near_densities", "pressure_forces", "spatial_entries", "spatial_offsets",
}

func (b Buffer) String() string {
	if int(b) < len(bufferNames) {
		return bufferNames[b]
	}
	return fmt.Sprintf("buffer(%d)", b)
}

// Binding declares one buffer a stage touches.
type Binding struct {
	Buffer Buffer
	Access Access
}

// Kernels runs the five pipeline stages over the active particle range. Each
// call returns after all of its invocations have completed.
type Kernels interface {
	ExternalForces(p Params, v particles.View) error
	UpdateSpatialHash(p Params, v particles.View) error
	CalculateDensity(p Params, v particles.View) error
	CalculatePressureForce(p Params, v particles.View) error
	UpdatePositions(p Params, v particles.View) error
}

// Stage is one entry of the dispatch sequence.
type Stage struct {
	Name     string
	Bindings []Binding
	Run      func(k Kernels, p Params, v particles.View) error
}

// Stages is the dispatch sequence of one sub-step.
var Stages = []Stage{
	{
		Name: StageExternalForces,
		Bindings: []Binding{
			{Positions, Read},
			{Velocities, ReadWrite},
			{PredictedPositions, Write},
		},
		Run: Kernels.ExternalForces,
	},
	{
		Name: StageSpatialHash,
		Bindings: []Binding{
			{PredictedPositions, Read},
			{SpatialEntries, ReadWrite},
			{SpatialOffsets, Write},
		},
		Run: Kernels.UpdateSpatialHash,
	},
	{
		Name: StageDensity,
		Bindings: []Binding{
			{PredictedPositions, Read},
			{SpatialEntries, Read},
			{SpatialOffsets, Read},
			{Densities, Write},
			{NearDensities, Write},
		},
		Run: Kernels.CalculateDensity,
	},
	{
		Name: StagePressureForce,
		Bindings: []Binding{
			{PredictedPositions, Read},
			{SpatialEntries, Read},
			{SpatialOffsets, Read},
			{Densities, Read},
			{NearDensities, Read},
			{PressureForces, Write},
			{Velocities, ReadWrite},
		},
		Run: Kernels.CalculatePressureForce,
	},
	{
		Name: StageIntegrate,
		Bindings: []Binding{
			{Velocities, ReadWrite},
			{Positions, ReadWrite},
		},
		Run: Kernels.UpdatePositions,
	},
}

// RunSequence runs every stage in order. observe, if non-nil, is called with
// the stage name before the stage starts. The first failing stage aborts the
// sequence.
func RunSequence(k Kernels, p Params, v particles.View, observe func(stage string)) error {
	for _, st := range Stages {
		if observe != nil {
			observe(st.Name)
		}
		if err := st.Run(k, p, v); err != nil {
			return fmt.Errorf("stage %s: %w", st.Name, err)
		}
	}
	return nil
}
