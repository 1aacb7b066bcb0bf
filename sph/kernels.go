package sph

import "math"

// DensityKernel is the smoothing kernel (r²-d²)³ normalised over the disc of
// radius r.
func DensityKernel(dst, radius float32) float32 {
	if dst >= radius {
		return 0
	}
	volume := math.Pi * math.Pow(float64(radius), 8) / 4
	v := float64(radius*radius - dst*dst)
	return float32(v * v * v / volume)
}

// DensityDerivative is d/dd of DensityKernel.
func DensityDerivative(dst, radius float32) float32 {
	if dst >= radius {
		return 0
	}
	f := float64(radius*radius - dst*dst)
	scale := -24 / (math.Pi * math.Pow(float64(radius), 8))
	return float32(scale * float64(dst) * f * f)
}

// NearDensityKernel is the sharper (r-d)³ kernel used for near density.
func NearDensityKernel(dst, radius float32) float32 {
	if dst >= radius {
		return 0
	}
	v := float64(radius - dst)
	scale := 10 / (math.Pi * math.Pow(float64(radius), 5))
	return float32(v * v * v * scale)
}

// NearDensityDerivative is d/dd of NearDensityKernel.
func NearDensityDerivative(dst, radius float32) float32 {
	if dst >= radius {
		return 0
	}
	v := float64(radius - dst)
	scale := -30 / (math.Pi * math.Pow(float64(radius), 5))
	return float32(v * v * scale)
}

// PressureFromDensity converts density to pressure.
func PressureFromDensity(density float32, p Params) float32 {
	return (density - p.TargetDensity) * p.PressureMultiplier
}

// NearPressureFromDensity converts near density to near pressure.
func NearPressureFromDensity(nearDensity float32, p Params) float32 {
	return nearDensity * p.NearPressureMultiplier
}
