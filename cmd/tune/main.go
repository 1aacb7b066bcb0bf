// Package main provides CMA-ES tuning of the fluid parameters against a
// calm fluid at the target density.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/sph2d/config"
)

// EvalRecord is one row of the evaluation log.
type EvalRecord struct {
	Eval                   int     `csv:"eval"`
	Fitness                float64 `csv:"fitness"`
	DensityMean            float64 `csv:"density_mean"`
	DensityStd             float64 `csv:"density_std"`
	KineticEnergy          float64 `csv:"kinetic_energy"`
	TargetDensity          float64 `csv:"target_density"`
	PressureMultiplier     float64 `csv:"pressure_multiplier"`
	NearPressureMultiplier float64 `csv:"near_pressure_multiplier"`
	CollisionDamping       float64 `csv:"collision_damping"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	frames := flag.Int("frames", defaultFrames, "Frames per evaluation run")
	seeds := flag.Int("seeds", 1, "Number of spawn seeds per evaluation (only varies random layouts)")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	dbPath := flag.String("db", "", "SQLite results database shared across runs (empty = <output>/tune.db)")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}

	// Keep per-run game logs quiet
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	params := NewParamVector()

	evalSeeds := make([]int64, max(*seeds, 1))
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, int64(*frames), evalSeeds, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation
	}

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	if *dbPath == "" {
		*dbPath = filepath.Join(*outputDir, "tune.db")
	}
	runID := time.Now().UTC().Format("20060102T150405Z")
	results, err := OpenResultsDB(*dbPath, runID)
	if err != nil {
		log.Fatalf("failed to open results db: %v", err)
	}
	defer results.Close()

	evalCount := 0
	bestFitness := faultFitness
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(raw)
			evalCount++

			if fitness < bestFitness || bestParams == nil {
				bestFitness = fitness
				bestParams = raw
			}

			summary := evaluator.LastSummary()
			record := []EvalRecord{{
				Eval:                   evalCount,
				Fitness:                fitness,
				DensityMean:            summary.DensityMean,
				DensityStd:             summary.DensityStd,
				KineticEnergy:          summary.KineticEnergy,
				TargetDensity:          raw[0],
				PressureMultiplier:     raw[1],
				NearPressureMultiplier: raw[2],
				CollisionDamping:       raw[3],
			}}
			if evalCount == 1 {
				err = gocsv.Marshal(record, logFile)
			} else {
				err = gocsv.MarshalWithoutHeaders(record, logFile)
			}
			if err != nil {
				log.Printf("failed to write log row: %v", err)
			}
			if err := results.Insert(record[0]); err != nil {
				log.Printf("failed to store eval: %v", err)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
			fmt.Printf("Eval %d/%d: fitness=%.4f density=%.1f±%.1f (best=%.4f) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, fitness, summary.DensityMean, summary.DensityStd, bestFitness,
				formatDuration(elapsed), formatDuration(remaining))

			return fitness
		},
	}

	fmt.Printf("Starting CMA-ES tuning with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, frames per run: %d\n", len(evalSeeds), *frames)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("tuning ended: %v", err)
	}
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluations completed")
	}

	fmt.Printf("\nTuning complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.4f\n", bestFitness)
	if best, err := results.Best(); err == nil {
		fmt.Printf("Best eval in run %s: #%d\n", runID, best.Eval)
	}
	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Path, bestParams[i])
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
