package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sugawarayuuta/sonnet"

	"github.com/pthm-cable/sph2d/particles"
	"github.com/pthm-cable/sph2d/sph"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the canonical particle state of one frame.
type Snapshot struct {
	Version int     `json:"version"`
	Frame   int64   `json:"frame"`
	SimTime float64 `json:"sim_time"`

	Params SnapshotParams `json:"params"`

	Particles []ParticleState `json:"particles"`
}

// SnapshotParams is the JSON form of sph.Params.
type SnapshotParams struct {
	Gravity                float32    `json:"gravity"`
	CollisionDamping       float32    `json:"collision_damping"`
	SmoothingRadius        float32    `json:"smoothing_radius"`
	TargetDensity          float32    `json:"target_density"`
	PressureMultiplier     float32    `json:"pressure_multiplier"`
	NearPressureMultiplier float32    `json:"near_pressure_multiplier"`
	ParticleMass           float32    `json:"particle_mass"`
	ParticleRadius         float32    `json:"particle_radius"`
	BoundsSize             [2]float32 `json:"bounds_size"`
	DeltaTime              float32    `json:"delta_time"`
}

// ParticleState holds one particle's canonical state.
type ParticleState struct {
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
	VelX    float32 `json:"vel_x"`
	VelY    float32 `json:"vel_y"`
	Density float32 `json:"density"`
}

// NewSnapshot copies the active range of v.
func NewSnapshot(frame int64, simTime float64, p sph.Params, v particles.View) *Snapshot {
	s := &Snapshot{
		Version: SnapshotVersion,
		Frame:   frame,
		SimTime: simTime,
		Params: SnapshotParams{
			Gravity:                p.Gravity,
			CollisionDamping:       p.CollisionDamping,
			SmoothingRadius:        p.SmoothingRadius,
			TargetDensity:          p.TargetDensity,
			PressureMultiplier:     p.PressureMultiplier,
			NearPressureMultiplier: p.NearPressureMultiplier,
			ParticleMass:           p.ParticleMass,
			ParticleRadius:         p.ParticleRadius,
			BoundsSize:             p.BoundsSize,
			DeltaTime:              p.DeltaTime,
		},
		Particles: make([]ParticleState, v.Count),
	}
	for i := range s.Particles {
		pos, vel := v.Positions[i], v.Velocities[i]
		s.Particles[i] = ParticleState{X: pos.X(), Y: pos.Y(), VelX: vel.X(), VelY: vel.Y()}
		if i < len(v.Densities) {
			s.Particles[i].Density = v.Densities[i]
		}
	}
	return s
}

// Layout returns the positions and velocities stored in the snapshot.
func (s *Snapshot) Layout() ([]mgl32.Vec2, []mgl32.Vec2) {
	pos := make([]mgl32.Vec2, len(s.Particles))
	vel := make([]mgl32.Vec2, len(s.Particles))
	for i, p := range s.Particles {
		pos[i] = mgl32.Vec2{p.X, p.Y}
		vel[i] = mgl32.Vec2{p.VelX, p.VelY}
	}
	return pos, vel
}

// SimParams converts the stored parameters back to sph.Params.
func (s *Snapshot) SimParams() sph.Params {
	sp := s.Params
	return sph.Params{
		Gravity:                sp.Gravity,
		CollisionDamping:       sp.CollisionDamping,
		SmoothingRadius:        sp.SmoothingRadius,
		TargetDensity:          sp.TargetDensity,
		PressureMultiplier:     sp.PressureMultiplier,
		NearPressureMultiplier: sp.NearPressureMultiplier,
		ParticleMass:           sp.ParticleMass,
		ParticleRadius:         sp.ParticleRadius,
		BoundsSize:             sp.BoundsSize,
		DeltaTime:              sp.DeltaTime,
		ActiveCount:            uint32(len(s.Particles)),
	}
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Frame))

	data, err := sonnet.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := sonnet.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
