package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sph2d/bitonic"
	"github.com/pthm-cable/sph2d/compute"
	"github.com/pthm-cable/sph2d/particles"
	"github.com/pthm-cable/sph2d/spatial"
	"github.com/pthm-cable/sph2d/spawn"
	"github.com/pthm-cable/sph2d/sph"
)

func testSettings() Settings {
	return Settings{
		Params: sph.Params{
			Gravity:                10,
			CollisionDamping:       0.9,
			SmoothingRadius:        0.35,
			TargetDensity:          55,
			PressureMultiplier:     500,
			NearPressureMultiplier: 18,
			ParticleMass:           1,
			ParticleRadius:         0.05,
			BoundsSize:             mgl32.Vec2{17, 9},
		},
		SubStepsPerFrame: 3,
		TimeScale:        1,
		SettleFrameDT:    1.0 / 60,
	}
}

func gridSpawner(n int) spawn.Generator {
	return spawn.Generator{Settings: spawn.Settings{Count: n, Spacing: 0.1}}
}

type harness struct {
	stepper *Stepper
	buffers *particles.Buffers
	rec     *compute.Recorder
}

func newHarness(t *testing.T, capacity int, spawner Spawner, dev compute.Device) *harness {
	t.Helper()
	if dev == nil {
		dev = compute.NewPool(4, 16)
	}
	rec := compute.NewRecorder(dev)
	b := particles.New(0)
	if err := b.Allocate(capacity); err != nil {
		t.Fatal(err)
	}
	s := New(testSettings(), b, sph.NewCPUKernels(rec), spawner)
	t.Cleanup(s.Close)
	return &harness{stepper: s, buffers: b, rec: rec}
}

type arrays struct {
	pos, vel, pred, force []mgl32.Vec2
	density, near         []float32
}

func capture(b *particles.Buffers) arrays {
	v := b.Backing()
	return arrays{
		pos:     append([]mgl32.Vec2(nil), v.Positions...),
		vel:     append([]mgl32.Vec2(nil), v.Velocities...),
		pred:    append([]mgl32.Vec2(nil), v.PredictedPositions...),
		force:   append([]mgl32.Vec2(nil), v.PressureForces...),
		density: append([]float32(nil), v.Densities...),
		near:    append([]float32(nil), v.NearDensities...),
	}
}

func (a arrays) equal(b arrays) bool {
	eqVec := func(x, y []mgl32.Vec2) bool {
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if math.Float32bits(x[i][0]) != math.Float32bits(y[i][0]) ||
				math.Float32bits(x[i][1]) != math.Float32bits(y[i][1]) {
				return false
			}
		}
		return true
	}
	eqF := func(x, y []float32) bool {
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if math.Float32bits(x[i]) != math.Float32bits(y[i]) {
				return false
			}
		}
		return true
	}
	return eqVec(a.pos, b.pos) && eqVec(a.vel, b.vel) && eqVec(a.pred, b.pred) &&
		eqVec(a.force, b.force) && eqF(a.density, b.density) && eqF(a.near, b.near)
}

func TestInitialStatePaused(t *testing.T) {
	h := newHarness(t, 64, gridSpawner(16), nil)
	if got := h.stepper.State(); got != Paused {
		t.Errorf("initial state = %v, want paused", got)
	}
}

func TestTransitions(t *testing.T) {
	h := newHarness(t, 64, gridSpawner(16), nil)
	s := h.stepper

	if got := s.Toggle(); got != Running {
		t.Fatalf("toggle from paused = %v", got)
	}
	if got := s.StepOnce(); got != Running {
		t.Errorf("step once while running = %v, want running", got)
	}
	if got := s.Toggle(); got != Paused {
		t.Fatalf("toggle from running = %v", got)
	}
	if got := s.StepOnce(); got != StepOnce {
		t.Fatalf("step once from paused = %v", got)
	}
	if got := s.Toggle(); got != Paused {
		t.Errorf("toggle from step once = %v, want paused", got)
	}
}

func TestPausedIssuesNoWork(t *testing.T) {
	h := newHarness(t, 256, gridSpawner(100), nil)
	if err := h.stepper.Reset(); err != nil {
		t.Fatal(err)
	}
	before := capture(h.buffers)
	h.rec.Reset()

	for i := 0; i < 50; i++ {
		if err := h.stepper.Advance(1.0 / 60); err != nil {
			t.Fatal(err)
		}
	}

	if n := len(h.rec.Records()); n != 0 {
		t.Errorf("paused stepper issued %d dispatches", n)
	}
	if !before.equal(capture(h.buffers)) {
		t.Error("paused stepper changed particle arrays")
	}
	if h.stepper.Frame().Index != 0 {
		t.Errorf("frame index = %d, want 0", h.stepper.Frame().Index)
	}
}

func TestRunningIssuesSubSteps(t *testing.T) {
	h := newHarness(t, 256, gridSpawner(100), nil)
	if err := h.stepper.Reset(); err != nil {
		t.Fatal(err)
	}
	h.stepper.Toggle()
	h.rec.Reset()

	const frames = 4
	for i := 0; i < frames; i++ {
		if err := h.stepper.Advance(1.0 / 60); err != nil {
			t.Fatal(err)
		}
	}

	want := frames * h.stepper.SubSteps()
	for _, kernel := range []string{
		sph.KernelExternalForces, spatial.KernelUpdateHash, sph.KernelDensity,
		sph.KernelPressureForce, sph.KernelUpdatePosition,
	} {
		if got := h.rec.Count(kernel); got != want {
			t.Errorf("%s dispatched %d times, want %d", kernel, got, want)
		}
	}
	if got := h.stepper.Frame().Index; got != frames {
		t.Errorf("frame index = %d, want %d", got, frames)
	}
}

func TestStageOrderWithinSubStep(t *testing.T) {
	h := newHarness(t, 64, gridSpawner(20), nil)
	if err := h.stepper.Reset(); err != nil {
		t.Fatal(err)
	}
	var stages []string
	h.stepper.SetStageObserver(func(stage string) { stages = append(stages, stage) })
	h.stepper.StepOnce()
	if err := h.stepper.Advance(1.0 / 60); err != nil {
		t.Fatal(err)
	}

	if len(stages) != len(sph.Stages)*h.stepper.SubSteps() {
		t.Fatalf("observed %d stages", len(stages))
	}
	for i, name := range stages {
		if want := sph.Stages[i%len(sph.Stages)].Name; name != want {
			t.Errorf("stage %d = %s, want %s", i, name, want)
		}
	}
}

func TestStepOnceSelfTerminates(t *testing.T) {
	h := newHarness(t, 64, gridSpawner(20), nil)
	if err := h.stepper.Reset(); err != nil {
		t.Fatal(err)
	}
	h.stepper.StepOnce()
	h.rec.Reset()

	if err := h.stepper.Advance(1.0 / 60); err != nil {
		t.Fatal(err)
	}
	if got := h.stepper.State(); got != Paused {
		t.Errorf("state after single step = %v, want paused", got)
	}
	first := len(h.rec.Records())
	if first == 0 {
		t.Fatal("single step issued no work")
	}

	if err := h.stepper.Advance(1.0 / 60); err != nil {
		t.Fatal(err)
	}
	if got := len(h.rec.Records()); got != first {
		t.Errorf("second frame issued %d more dispatches", got-first)
	}
}

func TestSubStepDT(t *testing.T) {
	h := newHarness(t, 8, gridSpawner(1), nil)
	h.stepper.scale = 2
	got := h.stepper.SubStepDT(1.0 / 60)
	if want := 1.0 / 90; math.Abs(float64(got)-want) > 1e-7 {
		t.Errorf("SubStepDT = %v, want %v", got, want)
	}
}

func TestAdvancePushesParams(t *testing.T) {
	h := newHarness(t, 64, gridSpawner(10), nil)
	if err := h.stepper.Reset(); err != nil {
		t.Fatal(err)
	}

	p := h.stepper.Params()
	p.Gravity = 0
	h.stepper.SetParams(p)
	if got := h.stepper.Frame().Params.Gravity; got == 0 {
		t.Error("new params applied before the next frame")
	}

	h.stepper.StepOnce()
	if err := h.stepper.Advance(0.03); err != nil {
		t.Fatal(err)
	}
	f := h.stepper.Frame()
	if f.Params.Gravity != 0 {
		t.Errorf("gravity = %v, want 0", f.Params.Gravity)
	}
	if f.Params.ActiveCount != 10 {
		t.Errorf("active count = %d, want 10", f.Params.ActiveCount)
	}
	if math.Abs(float64(f.Params.DeltaTime)-0.01) > 1e-7 {
		t.Errorf("delta time = %v, want 0.01", f.Params.DeltaTime)
	}
	if math.Abs(f.SimTime-0.03) > 1e-6 {
		t.Errorf("sim time = %v, want 0.03", f.SimTime)
	}
}

func TestResetSettlesAndRestoresLayout(t *testing.T) {
	spawner := gridSpawner(50)
	h := newHarness(t, 128, spawner, nil)
	h.stepper.Toggle()

	if err := h.stepper.Reset(); err != nil {
		t.Fatal(err)
	}

	if got := h.rec.Count(sph.KernelExternalForces); got != 1 {
		t.Errorf("reset ran %d sequences, want 1", got)
	}
	if got := h.stepper.State(); got != Running {
		t.Errorf("reset changed state to %v", got)
	}

	wantPos, wantVel := spawner.Generate()
	v := h.stepper.Frame().View
	for i := range wantPos {
		if v.Positions[i] != wantPos[i] || v.Velocities[i] != wantVel[i] {
			t.Fatalf("particle %d = %v/%v, want spawned %v/%v", i, v.Positions[i], v.Velocities[i], wantPos[i], wantVel[i])
		}
	}
	for i, d := range v.Densities {
		if d <= 0 {
			t.Fatalf("density[%d] = %v after settle pass", i, d)
		}
	}
}

func TestResetIndexMatchesPredicted(t *testing.T) {
	h := newHarness(t, 128, gridSpawner(80), nil)
	h.stepper.Toggle()
	if err := h.stepper.Reset(); err != nil {
		t.Fatal(err)
	}

	f := h.stepper.Frame()
	v := f.View
	radius := f.Params.SmoothingRadius
	for i := 0; i < v.Count; i++ {
		e := v.Entries[i]
		cx, cy := spatial.CellCoord(v.PredictedPositions[e.Index], radius)
		if want := spatial.KeyFromHash(spatial.CellHash(cx, cy), len(v.Offsets)); e.Key != want {
			t.Fatalf("entry %d key = %d, predicted position hashes to %d", i, e.Key, want)
		}
	}
	for i := 0; i < v.Count; i++ {
		got := sph.SampleDensity(v.PredictedPositions[i], f.Params, v)
		if math.Abs(float64(got-v.Densities[i])) > 1e-3*math.Max(1, float64(v.Densities[i])) {
			t.Fatalf("sampled density at particle %d = %v, stored %v", i, got, v.Densities[i])
		}
	}
}

func TestShrinkTouchesOnlyActiveRange(t *testing.T) {
	h := newHarness(t, 1000, gridSpawner(1000), nil)
	if err := h.stepper.Reset(); err != nil {
		t.Fatal(err)
	}

	small := spawn.Generate(spawn.Settings{Count: 10, Spacing: 0.1})
	if err := h.stepper.ResetTo(small.Positions, small.Velocities); err != nil {
		t.Fatal(err)
	}
	before := capture(h.buffers)
	h.rec.Reset()

	h.stepper.Toggle()
	for i := 0; i < 3; i++ {
		if err := h.stepper.Advance(1.0 / 60); err != nil {
			t.Fatal(err)
		}
	}

	after := capture(h.buffers)
	for i := 10; i < 1000; i++ {
		if after.pos[i] != before.pos[i] || after.vel[i] != before.vel[i] ||
			after.density[i] != before.density[i] || after.pred[i] != before.pred[i] {
			t.Fatalf("slot %d changed outside the active range", i)
		}
	}

	sortLanes := bitonic.NextPowerOfTwo(10) / 2
	for _, r := range h.rec.Records() {
		want := 10
		switch r.Kernel {
		case bitonic.KernelSort:
			want = sortLanes
		case bitonic.KernelClearOffsets:
			want = h.buffers.Capacity()
		}
		if r.Lanes != want {
			t.Errorf("%s dispatched %d lanes, want %d", r.Kernel, r.Lanes, want)
		}
	}
}

type faultyDevice struct {
	compute.Device
	kernel string
	calls  int
}

func (d *faultyDevice) Dispatch(kernel string, n int, fn func(i int)) error {
	d.calls++
	if kernel == d.kernel {
		return &compute.FaultError{Kernel: kernel, Lane: 0, Value: "injected"}
	}
	return d.Device.Dispatch(kernel, n, fn)
}

func TestFaultLatches(t *testing.T) {
	dev := &faultyDevice{Device: compute.NewPool(2, 16), kernel: sph.KernelPressureForce}
	h := newHarness(t, 64, gridSpawner(10), dev)

	err := h.stepper.Reset()
	if !errors.Is(err, ErrFaulted) || !errors.Is(err, compute.ErrDeviceFault) {
		t.Fatalf("Reset error = %v, want ErrFaulted wrapping ErrDeviceFault", err)
	}
	var fe *compute.FaultError
	if !errors.As(err, &fe) || fe.Kernel != sph.KernelPressureForce {
		t.Errorf("fault error = %v", err)
	}

	calls := dev.calls
	h.stepper.Toggle()
	if err := h.stepper.Advance(1.0 / 60); !errors.Is(err, ErrFaulted) {
		t.Errorf("Advance after fault = %v, want ErrFaulted", err)
	}
	if err := h.stepper.Reset(); !errors.Is(err, ErrFaulted) {
		t.Errorf("Reset after fault = %v, want ErrFaulted", err)
	}
	if dev.calls != calls {
		t.Errorf("faulted stepper issued %d more dispatches", dev.calls-calls)
	}
	if h.stepper.Err() == nil {
		t.Error("Err() = nil after fault")
	}
}

func TestCloseReleasesBuffers(t *testing.T) {
	h := newHarness(t, 16, gridSpawner(4), nil)
	h.stepper.Close()
	if h.buffers.Allocated() {
		t.Error("buffers still allocated after Close")
	}
	h.stepper.Close()
}

func TestNewPanicsOnUnallocated(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New with unallocated buffers did not panic")
		}
	}()
	New(testSettings(), particles.New(0), sph.NewCPUKernels(compute.NewPool(1, 1)), gridSpawner(1))
}

func BenchmarkAdvance(b *testing.B) {
	buffers := particles.New(0)
	if err := buffers.Allocate(4096); err != nil {
		b.Fatal(err)
	}
	s := New(testSettings(), buffers, sph.NewCPUKernels(compute.NewPool(0, 256)), gridSpawner(4096))
	defer s.Close()
	if err := s.Reset(); err != nil {
		b.Fatal(err)
	}
	s.Toggle()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Advance(1.0 / 60); err != nil {
			b.Fatal(err)
		}
	}
}
