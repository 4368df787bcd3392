package forecast

import (
	"math"
	"testing"
)

func TestFitTransformRoundTrip(t *testing.T) {
	samples := BuildSamples(linearSeries(2010, 12), 4)
	stats := Fit(samples)

	for _, s := range samples {
		got := stats.InverseOutput(stats.TransformTarget(s.Target))
		if math.Abs(got-s.Target) > 1e-9 {
			t.Errorf("Round trip of %f gave %f", s.Target, got)
		}
	}
}

func TestFitZeroStdClamped(t *testing.T) {
	// Temperature is constant zero across the series, so its columns have
	// zero variance and must be clamped rather than dividing by zero.
	samples := BuildSamples(linearSeries(2010, 10), 4)
	stats := Fit(samples)

	for i, std := range stats.InputStd {
		if std <= 0 {
			t.Errorf("Column %d: std %f not clamped to a positive value", i, std)
		}
	}

	normalized := stats.Transform(samples[0].Input)
	for i := 3; i < len(normalized); i += covariatesPerYear {
		if normalized[i] != 0 {
			t.Errorf("Constant column index %d should normalize to 0, got %f", i, normalized[i])
		}
		if math.IsNaN(normalized[i]) || math.IsInf(normalized[i], 0) {
			t.Errorf("Non-finite normalized value at index %d", i)
		}
	}
}

func TestFitConstantTarget(t *testing.T) {
	samples := []Sample{
		{Input: []float64{1, 2}, Target: 7},
		{Input: []float64{3, 4}, Target: 7},
	}
	stats := Fit(samples)
	if stats.OutputStd != 1.0 {
		t.Errorf("Expected clamped output std 1.0, got %f", stats.OutputStd)
	}
	if got := stats.InverseOutput(stats.TransformTarget(7)); math.Abs(got-7) > 1e-12 {
		t.Errorf("Round trip of constant target gave %f", got)
	}
}

func TestStatsReuseAcrossCalls(t *testing.T) {
	// The same fitted stats must give identical transforms no matter how
	// often they are applied; Fit must not be re-run at inference time.
	samples := BuildSamples(linearSeries(2010, 10), 4)
	stats := Fit(samples)

	first := stats.Transform(samples[0].Input)
	for i := 0; i < 5; i++ {
		again := stats.Transform(samples[0].Input)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("Transform changed between calls at index %d", j)
			}
		}
	}
}

func TestFitEmpty(t *testing.T) {
	stats := Fit(nil)
	if stats.OutputStd != 1 {
		t.Errorf("Expected safe output std for empty fit, got %f", stats.OutputStd)
	}
}
