package game

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sph2d/config"
	"github.com/pthm-cable/sph2d/sim"
	"github.com/pthm-cable/sph2d/spawn"
	"github.com/pthm-cable/sph2d/sph"
)

// Display constants for the graphical mode.
const (
	speedDisplayMax  = 6.0
	densityFieldCols = 160
	densityFieldRows = 90
)

// ParamsFromConfig converts the simulation section into a kernel parameter
// snapshot. DeltaTime and ActiveCount are left for the stepper to fill in.
func ParamsFromConfig(cfg *config.Config) sph.Params {
	s := cfg.Simulation
	return sph.Params{
		Gravity:                float32(s.Gravity),
		CollisionDamping:       float32(s.CollisionDamping),
		SmoothingRadius:        float32(s.SmoothingRadius),
		TargetDensity:          float32(s.TargetDensity),
		PressureMultiplier:     float32(s.PressureMultiplier),
		NearPressureMultiplier: float32(s.NearPressureMultiplier),
		ParticleMass:           float32(s.ParticleMass),
		ParticleRadius:         float32(s.ParticleRadius),
		BoundsSize:             vec2(s.BoundsSize),
	}
}

func simSettingsFromConfig(cfg *config.Config) sim.Settings {
	return sim.Settings{
		Params:           ParamsFromConfig(cfg),
		SubStepsPerFrame: cfg.Simulation.SubStepsPerFrame,
		TimeScale:        float32(cfg.Simulation.TimeScale),
		SettleFrameDT:    cfg.Derived.FrameDT32,
	}
}

func spawnSettingsFromConfig(cfg *config.Config) spawn.Settings {
	s := cfg.Spawn
	return spawn.Settings{
		Count:           cfg.Derived.SpawnCount,
		MaxCount:        s.MaxCount,
		Random:          s.Random,
		Seed:            s.Seed,
		Center:          vec2(s.Center),
		Size:            vec2(s.Size),
		Spacing:         float32(s.Spacing),
		InitialVelocity: vec2(s.InitialVelocity),
	}
}

func vec2(v [2]float64) mgl32.Vec2 {
	return mgl32.Vec2{float32(v[0]), float32(v[1])}
}
