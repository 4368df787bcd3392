package forecast

import (
	"log"
	"math"
)

// Stats holds the normalization statistics for one training run. They are
// computed exactly once by Fit and must be reused, unchanged, for every
// transform during both training and inference. Standard deviations are
// floored to 1.0 so constant columns normalize to zero instead of dividing
// by zero.
type Stats struct {
	InputMean  []float64
	InputStd   []float64
	OutputMean float64
	OutputStd  float64
}

// Fit computes column-wise mean and standard deviation over the sample
// inputs, and scalar mean/std over the targets.
func Fit(samples []Sample) Stats {
	if len(samples) == 0 {
		return Stats{OutputStd: 1}
	}

	n := float64(len(samples))
	dim := len(samples[0].Input)
	stats := Stats{
		InputMean: make([]float64, dim),
		InputStd:  make([]float64, dim),
	}

	for _, s := range samples {
		for i, v := range s.Input {
			stats.InputMean[i] += v
		}
		stats.OutputMean += s.Target
	}
	for i := range stats.InputMean {
		stats.InputMean[i] /= n
	}
	stats.OutputMean /= n

	for _, s := range samples {
		for i, v := range s.Input {
			d := v - stats.InputMean[i]
			stats.InputStd[i] += d * d
		}
		d := s.Target - stats.OutputMean
		stats.OutputStd += d * d
	}

	degenerate := 0
	for i := range stats.InputStd {
		stats.InputStd[i] = math.Sqrt(stats.InputStd[i] / n)
		if stats.InputStd[i] == 0 {
			stats.InputStd[i] = 1.0
			degenerate++
		}
	}
	if degenerate > 0 {
		log.Printf("Warning: %d of %d input columns have zero variance, clamping std to 1.0", degenerate, dim)
	}

	stats.OutputStd = math.Sqrt(stats.OutputStd / n)
	if stats.OutputStd == 0 {
		stats.OutputStd = 1.0
		log.Printf("Warning: target column has zero variance, clamping std to 1.0")
	}

	return stats
}

// Transform maps a raw input vector to normalized space.
func (s Stats) Transform(input []float64) []float64 {
	out := make([]float64, len(input))
	for i, v := range input {
		out[i] = (v - s.InputMean[i]) / s.InputStd[i]
	}
	return out
}

// TransformTarget maps a raw target value to normalized space.
func (s Stats) TransformTarget(v float64) float64 {
	return (v - s.OutputMean) / s.OutputStd
}

// InverseOutput maps a normalized model output back to raw units.
func (s Stats) InverseOutput(v float64) float64 {
	return v*s.OutputStd + s.OutputMean
}

// normalizeSamples applies the stats to a full sample set, returning new
// samples and leaving the originals untouched.
func normalizeSamples(samples []Sample, stats Stats) []Sample {
	out := make([]Sample, len(samples))
	for i, s := range samples {
		out[i] = Sample{
			Input:  stats.Transform(s.Input),
			Target: stats.TransformTarget(s.Target),
		}
	}
	return out
}
