package main

import (
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/sph2d/config"
	"github.com/pthm-cable/sph2d/game"
	"github.com/pthm-cable/sph2d/telemetry"
)

// Fitness weights.
const (
	weightSpread  = 1.0  // density std relative to target
	weightBias    = 1.0  // |mean density - target| relative to target
	weightEnergy  = 0.05 // kinetic energy per particle
	faultFitness  = 1e6  // a run that faulted or produced NaN
	warmupFrames  = 120  // frames ignored before scoring
	defaultFrames = 900
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	frames     int64
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastSummary runSummary
}

// runSummary holds averaged window statistics from one or more runs.
type runSummary struct {
	DensityMean   float64
	DensityStd    float64
	KineticEnergy float64
	Faulted       bool
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, frames int64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	if frames <= warmupFrames {
		frames = defaultFrames
	}
	return &FitnessEvaluator{
		params:     params,
		frames:     frames,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastSummary returns the averaged statistics of the most recent evaluation.
func (fe *FitnessEvaluator) LastSummary() runSummary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSummary
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]runSummary, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var sum runSummary
	for _, r := range results {
		if r.Faulted {
			sum.Faulted = true
		}
		sum.DensityMean += r.DensityMean
		sum.DensityStd += r.DensityStd
		sum.KineticEnergy += r.KineticEnergy
	}
	n := float64(len(results))
	sum.DensityMean /= n
	sum.DensityStd /= n
	sum.KineticEnergy /= n

	fe.mu.Lock()
	fe.lastSummary = sum
	fe.mu.Unlock()

	return fe.computeFitness(sum, cfg.Simulation.TargetDensity)
}

// runSimulation executes a single headless run and averages the stats
// windows after warmup.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) runSummary {
	var windows []telemetry.FrameStats
	g, err := game.NewGameWithOptions(game.Options{
		Config:   cfg,
		Seed:     seed,
		Headless: true,
		StatsCallback: func(stats telemetry.FrameStats) {
			if stats.Frame > warmupFrames {
				windows = append(windows, stats)
			}
		},
	})
	if err != nil {
		slog.Error("failed to create game", "error", err)
		return runSummary{Faulted: true}
	}
	defer g.Unload()

	for g.Frame() < fe.frames {
		g.UpdateHeadless()
		if g.Err() != nil {
			return runSummary{Faulted: true}
		}
	}
	if len(windows) == 0 {
		return runSummary{Faulted: true}
	}

	means := make([]float64, len(windows))
	stds := make([]float64, len(windows))
	energies := make([]float64, len(windows))
	for i, w := range windows {
		means[i] = w.DensityMean
		stds[i] = w.DensityStd
		if w.Active > 0 {
			energies[i] = w.KineticEnergy / float64(w.Active)
		}
	}
	return runSummary{
		DensityMean:   stat.Mean(means, nil),
		DensityStd:    stat.Mean(stds, nil),
		KineticEnergy: stat.Mean(energies, nil),
	}
}

// copyConfig returns a copy of the base config that ApplyToConfig can mutate.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	if cfg.Telemetry.StatsInterval <= 0 {
		cfg.Telemetry.StatsInterval = 30
	}
	return &cfg
}

// computeFitness scores a summary against the target density.
// Formula: spread + bias + 0.05 × energy per particle.
func (fe *FitnessEvaluator) computeFitness(s runSummary, target float64) float64 {
	if s.Faulted {
		return faultFitness
	}
	if target <= 0 {
		target = 1
	}
	f := weightSpread*s.DensityStd/target +
		weightBias*math.Abs(s.DensityMean-target)/target +
		weightEnergy*s.KineticEnergy
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return faultFitness
	}
	return f
}
