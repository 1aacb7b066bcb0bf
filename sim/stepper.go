// Package sim schedules the fluid pipeline: it owns the run state machine,
// splits each frame into sub-steps and performs resets.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sph2d/particles"
	"github.com/pthm-cable/sph2d/sph"
)

// ErrFaulted is returned by every call after a dispatch sequence has failed.
var ErrFaulted = errors.New("sim: simulation faulted")

// Spawner produces the initial particle layout.
type Spawner interface {
	Generate() (positions, velocities []mgl32.Vec2)
}

// Settings are the stepper's fixed scheduling parameters and the initial
// kernel parameters.
type Settings struct {
	Params           sph.Params // DeltaTime and ActiveCount are filled in per frame
	SubStepsPerFrame int
	TimeScale        float32
	SettleFrameDT    float32 // Frame time used for the settle pass of Reset
}

// Frame is a read-only view of the canonical arrays after the last completed
// dispatch sequence.
type Frame struct {
	Index   int64
	SimTime float64
	State   State
	Params  sph.Params
	View    particles.View
}

// Stepper drives the kernels over the particle buffers.
type Stepper struct {
	mu       sync.Mutex
	state    State
	buffers  *particles.Buffers
	kernels  sph.Kernels
	spawner  Spawner
	subSteps int
	scale    float32
	settleDT float32

	params  sph.Params // Applied at the start of the next frame
	current sph.Params // Last snapshot pushed to the kernels

	frame   int64
	simTime float64
	err     error

	observe func(stage string)
}

// New creates a paused stepper. buffers must already be allocated. Call
// Reset to seed the first layout.
func New(settings Settings, buffers *particles.Buffers, kernels sph.Kernels, spawner Spawner) *Stepper {
	if !buffers.Allocated() {
		panic("sim: New with unallocated buffers")
	}
	subSteps := max(settings.SubStepsPerFrame, 1)
	scale := settings.TimeScale
	if scale <= 0 {
		scale = 1
	}
	settle := settings.SettleFrameDT
	if settle <= 0 {
		settle = 1.0 / 60
	}
	p := settings.Params.Sanitized()
	return &Stepper{
		state:    Paused,
		buffers:  buffers,
		kernels:  kernels,
		spawner:  spawner,
		subSteps: subSteps,
		scale:    scale,
		settleDT: settle,
		params:   p,
		current:  p,
	}
}

// SetStageObserver installs fn to be called with each stage name before the
// stage runs. Pass nil to remove it.
func (s *Stepper) SetStageObserver(fn func(stage string)) {
	s.mu.Lock()
	s.observe = fn
	s.mu.Unlock()
}

// State returns the current run state.
func (s *Stepper) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Toggle flips between Paused and Running. A pending single step is
// cancelled back to Paused.
func (s *Stepper) Toggle() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	if s.state == Paused {
		s.state = Running
	} else {
		s.state = Paused
	}
	slog.Info("sim state", "from", prev, "to", s.state)
	return s.state
}

// StepOnce requests a single frame from Paused. It has no effect in other
// states.
func (s *Stepper) StepOnce() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Paused {
		s.state = StepOnce
	}
	return s.state
}

// SetParams replaces the kernel parameters. The next frame observes them.
func (s *Stepper) SetParams(p sph.Params) {
	s.mu.Lock()
	s.params = p.Sanitized()
	s.mu.Unlock()
}

// Params returns the parameters the next frame will use.
func (s *Stepper) Params() sph.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SubSteps returns the sub-step count per frame.
func (s *Stepper) SubSteps() int { return s.subSteps }

// TimeScale returns the simulation time scale.
func (s *Stepper) TimeScale() float32 { return s.scale }

// Err returns the latched fault, if any.
func (s *Stepper) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// SubStepDT is the sub-step delta time for a frame of frameDT.
func (s *Stepper) SubStepDT(frameDT float32) float32 {
	return frameDT / float32(s.subSteps) * s.scale
}

// Advance runs one frame. While Paused it issues no work. After a fault it
// returns the latched error without issuing work.
func (s *Stepper) Advance(frameDT float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if s.state == Paused {
		return nil
	}

	p := s.push(s.SubStepDT(frameDT))
	v := s.buffers.View()
	for step := 0; step < s.subSteps; step++ {
		if err := sph.RunSequence(s.kernels, p, v, s.observe); err != nil {
			return s.fault(fmt.Errorf("frame %d sub-step %d: %w", s.frame+1, step, err))
		}
	}

	s.frame++
	s.simTime += float64(p.DeltaTime) * float64(s.subSteps)

	if s.state == StepOnce {
		s.state = Paused
	}
	return nil
}

// Reset reseeds the buffers from the spawner and runs the settle pass.
func (s *Stepper) Reset() error {
	pos, vel := s.spawner.Generate()
	return s.ResetTo(pos, vel)
}

// ResetTo reseeds the buffers with the given layout, runs one dispatch
// sequence so the index, offsets and densities are valid, then restores the
// positions and velocities. Predicted positions keep the settle pass values so
// they agree with the index. The run state is unchanged.
func (s *Stepper) ResetTo(positions, velocities []mgl32.Vec2) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.buffers.Reseed(positions, velocities)
	p := s.push(s.SubStepDT(s.settleDT))
	if err := sph.RunSequence(s.kernels, p, s.buffers.View(), nil); err != nil {
		return s.fault(fmt.Errorf("settle pass: %w", err))
	}
	s.buffers.Restore(positions, velocities)

	s.frame = 0
	s.simTime = 0
	slog.Info("sim reset", "particles", len(positions), "state", s.state)
	return nil
}

// Frame returns the state after the last completed dispatch sequence. The
// view aliases live buffers; read it only between calls to Advance. Entries,
// offsets and densities describe the predicted positions, which after a reset
// differ from the restored positions.
func (s *Stepper) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Frame{
		Index:   s.frame,
		SimTime: s.simTime,
		State:   s.state,
		Params:  s.current,
		View:    s.buffers.View(),
	}
}

// Close releases the buffers and, when the kernels own a device, the device.
func (s *Stepper) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers.Release()
	if c, ok := s.kernels.(interface{ Close() }); ok {
		c.Close()
	}
}

// push builds the snapshot for the next dispatches. Caller holds mu.
func (s *Stepper) push(dt float32) sph.Params {
	p := s.params
	p.DeltaTime = dt
	p.ActiveCount = uint32(s.buffers.ActiveCount())
	s.current = p
	return p
}

// fault latches err. Caller holds mu.
func (s *Stepper) fault(err error) error {
	s.err = fmt.Errorf("%w: %w", ErrFaulted, err)
	s.state = Paused
	slog.Error("sim fault", "error", err, "frame", s.frame)
	return s.err
}
