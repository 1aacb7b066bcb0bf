package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/sph2d/particles"
)

// FrameStats summarises the particle state after one frame.
type FrameStats struct {
	Frame   int64   `csv:"frame" json:"frame"`
	SimTime float64 `csv:"sim_time" json:"sim_time"`
	Active  int     `csv:"active" json:"active"`

	DensityMean float64 `csv:"density_mean" json:"density_mean"`
	DensityStd  float64 `csv:"density_std" json:"density_std"`
	DensityP10  float64 `csv:"density_p10" json:"density_p10"`
	DensityP50  float64 `csv:"density_p50" json:"density_p50"`
	DensityP90  float64 `csv:"density_p90" json:"density_p90"`
	DensityMax  float64 `csv:"density_max" json:"density_max"`

	NearDensityMean float64 `csv:"near_density_mean" json:"near_density_mean"`

	SpeedMean     float64 `csv:"speed_mean" json:"speed_mean"`
	SpeedMax      float64 `csv:"speed_max" json:"speed_max"`
	KineticEnergy float64 `csv:"kinetic_energy" json:"kinetic_energy"`

	CentroidX float64 `csv:"centroid_x" json:"centroid_x"`
	CentroidY float64 `csv:"centroid_y" json:"centroid_y"`
}

// Distribution holds mean, std and percentiles of a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Max           float64
}

// ComputeDistribution summarises values. The input is not modified.
// Quantiles use the empirical CDF: P50 of 1..10 is 5.
func ComputeDistribution(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var d Distribution
	if n == 1 {
		d.Mean = sorted[0]
	} else {
		d.Mean, d.Std = stat.MeanStdDev(sorted, nil)
	}
	d.P10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	d.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	d.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	d.Max = floats.Max(sorted)
	return d
}

// ComputeFrameStats reads the active range of v.
func ComputeFrameStats(frame int64, simTime float64, v particles.View, mass float32) FrameStats {
	fs := FrameStats{Frame: frame, SimTime: simTime, Active: v.Count}
	if v.Count == 0 {
		return fs
	}

	densities := make([]float64, v.Count)
	near := make([]float64, v.Count)
	speeds := make([]float64, v.Count)
	xs := make([]float64, v.Count)
	ys := make([]float64, v.Count)
	for i := 0; i < v.Count; i++ {
		densities[i] = float64(v.Densities[i])
		near[i] = float64(v.NearDensities[i])
		speeds[i] = float64(v.Velocities[i].Len())
		xs[i] = float64(v.Positions[i].X())
		ys[i] = float64(v.Positions[i].Y())
	}

	d := ComputeDistribution(densities)
	fs.DensityMean = d.Mean
	fs.DensityStd = d.Std
	fs.DensityP10 = d.P10
	fs.DensityP50 = d.P50
	fs.DensityP90 = d.P90
	fs.DensityMax = d.Max
	fs.NearDensityMean = stat.Mean(near, nil)

	fs.SpeedMean = stat.Mean(speeds, nil)
	fs.SpeedMax = floats.Max(speeds)
	fs.KineticEnergy = 0.5 * float64(mass) * floats.Dot(speeds, speeds)

	fs.CentroidX = stat.Mean(xs, nil)
	fs.CentroidY = stat.Mean(ys, nil)
	return fs
}

// LogValue implements slog.LogValuer for structured logging.
func (fs FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("frame", fs.Frame),
		slog.Int("active", fs.Active),
		slog.Float64("density_mean", fs.DensityMean),
		slog.Float64("density_p90", fs.DensityP90),
		slog.Float64("speed_max", fs.SpeedMax),
		slog.Float64("kinetic_energy", fs.KineticEnergy),
	)
}
