package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/pthm-cable/sph2d/sph"
)

// Phase names for one simulation frame. The pipeline phases share their
// names with sph stages so the stepper can pass stage names straight through.
const (
	PhaseExternalForces = sph.StageExternalForces
	PhaseSpatialHash    = sph.StageSpatialHash
	PhaseDensity        = sph.StageDensity
	PhasePressureForce  = sph.StagePressureForce
	PhaseIntegrate      = sph.StageIntegrate
	PhaseTelemetry      = "telemetry"
)

// Phases lists the phases in frame order.
var Phases = [...]string{
	PhaseExternalForces, PhaseSpatialHash, PhaseDensity,
	PhasePressureForce, PhaseIntegrate, PhaseTelemetry,
}

const numPhases = len(Phases)

func phaseSlot(name string) int {
	for i, p := range Phases {
		if p == name {
			return i
		}
	}
	return -1
}

// frameTiming is the wall time of one simulated frame split by phase.
type frameTiming struct {
	total  time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector times simulated frames over a rolling window. Time spent in
// names outside Phases counts toward the frame total only.
type PerfCollector struct {
	window []frameTiming
	next   int
	filled int

	// Running sums over the window
	totalSum time.Duration
	phaseSum [numPhases]time.Duration

	cur        frameTiming
	frameStart time.Time
	phaseStart time.Time
	phase      int
	inFrame    bool

	lastPresent time.Time
	present     time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize frames.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{window: make([]frameTiming, windowSize), phase: -1}
}

// BeginFrame starts timing a simulated frame.
func (p *PerfCollector) BeginFrame() {
	now := time.Now()
	p.cur = frameTiming{}
	p.frameStart = now
	p.phaseStart = now
	p.phase = -1
	p.inFrame = true
}

// StartPhase closes the running phase and opens phase. A phase entered again
// in the same frame accumulates, so sub-steps add to the stage totals.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = phaseSlot(phase)
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase >= 0 {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndFrame records the frame into the window. Without a matching BeginFrame
// it does nothing.
func (p *PerfCollector) EndFrame() {
	if !p.inFrame {
		return
	}
	now := time.Now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.frameStart)
	p.inFrame = false
	p.phase = -1

	old := p.window[p.next]
	if p.filled == len(p.window) {
		p.totalSum -= old.total
		for i := range p.phaseSum {
			p.phaseSum[i] -= old.phases[i]
		}
	} else {
		p.filled++
	}
	p.window[p.next] = p.cur
	p.next = (p.next + 1) % len(p.window)

	p.totalSum += p.cur.total
	for i, d := range p.cur.phases {
		p.phaseSum[i] += d
	}
}

// MarkPresent records the interval since the previous displayed frame.
func (p *PerfCollector) MarkPresent() {
	now := time.Now()
	if !p.lastPresent.IsZero() {
		p.present = now.Sub(p.lastPresent)
	}
	p.lastPresent = now
}

// PerfStats summarises the window.
type PerfStats struct {
	Frames   int
	FrameAvg time.Duration
	FrameMin time.Duration
	FrameMax time.Duration

	PhaseAvg map[string]time.Duration // phases with time in the window
	PhasePct map[string]float64       // share of FrameAvg

	FramesPerSec float64 // simulated frames per second of compute

	PresentInterval time.Duration
	FPS             float64
}

// Stats summarises the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		Frames:          p.filled,
		PhaseAvg:        make(map[string]time.Duration),
		PhasePct:        make(map[string]float64),
		PresentInterval: p.present,
	}
	if p.present > 0 {
		s.FPS = float64(time.Second) / float64(p.present)
	}
	if p.filled == 0 {
		return s
	}

	n := time.Duration(p.filled)
	s.FrameAvg = p.totalSum / n
	s.FrameMin, s.FrameMax = p.window[0].total, p.window[0].total
	for _, f := range p.window[1:p.filled] {
		s.FrameMin = min(s.FrameMin, f.total)
		s.FrameMax = max(s.FrameMax, f.total)
	}
	if s.FrameAvg > 0 {
		s.FramesPerSec = float64(time.Second) / float64(s.FrameAvg)
	}

	for i, sum := range p.phaseSum {
		if sum <= 0 {
			continue
		}
		avg := sum / n
		s.PhaseAvg[Phases[i]] = avg
		if s.FrameAvg > 0 {
			s.PhasePct[Phases[i]] = float64(avg) / float64(s.FrameAvg) * 100
		}
	}
	return s
}

func (s PerfStats) attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.Int("frames", s.Frames),
		slog.Int64("avg_frame_us", s.FrameAvg.Microseconds()),
		slog.Int64("min_frame_us", s.FrameMin.Microseconds()),
		slog.Int64("max_frame_us", s.FrameMax.Microseconds()),
		slog.Float64("frames_per_sec", s.FramesPerSec),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return attrs
}

// LogStats logs the window at info level.
func (s PerfStats) LogStats() {
	slog.LogAttrs(context.Background(), slog.LevelInfo, "perf", s.attrs()...)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	return slog.GroupValue(s.attrs()...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd         int64   `csv:"window_end" json:"window_end"`
	AvgFrameUS        int64   `csv:"avg_frame_us" json:"avg_frame_us"`
	MinFrameUS        int64   `csv:"min_frame_us" json:"min_frame_us"`
	MaxFrameUS        int64   `csv:"max_frame_us" json:"max_frame_us"`
	FramesPerSec      float64 `csv:"frames_per_sec" json:"frames_per_sec"`
	FPS               float64 `csv:"fps" json:"fps"`
	ExternalForcesPct float64 `csv:"external_forces_pct" json:"external_forces_pct"`
	SpatialHashPct    float64 `csv:"spatial_hash_pct" json:"spatial_hash_pct"`
	DensityPct        float64 `csv:"density_pct" json:"density_pct"`
	PressureForcePct  float64 `csv:"pressure_force_pct" json:"pressure_force_pct"`
	IntegratePct      float64 `csv:"integrate_pct" json:"integrate_pct"`
	TelemetryPct      float64 `csv:"telemetry_pct" json:"telemetry_pct"`
}

// ToCSV flattens the stats for the window ending at frame windowEnd.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:         windowEnd,
		AvgFrameUS:        s.FrameAvg.Microseconds(),
		MinFrameUS:        s.FrameMin.Microseconds(),
		MaxFrameUS:        s.FrameMax.Microseconds(),
		FramesPerSec:      s.FramesPerSec,
		FPS:               s.FPS,
		ExternalForcesPct: s.PhasePct[PhaseExternalForces],
		SpatialHashPct:    s.PhasePct[PhaseSpatialHash],
		DensityPct:        s.PhasePct[PhaseDensity],
		PressureForcePct:  s.PhasePct[PhasePressureForce],
		IntegratePct:      s.PhasePct[PhaseIntegrate],
		TelemetryPct:      s.PhasePct[PhaseTelemetry],
	}
}
