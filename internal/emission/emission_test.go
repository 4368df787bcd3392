package emission

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/aut-energy/energy-planner/internal/forecast"
	"github.com/aut-energy/energy-planner/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "planner.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFromForecast(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.InsertEmissionFactor(store.EmissionFactor{
		EnergySource: "Coal", CO2KgPerMWh: 900, NOxKgPerMWh: 2, SO2KgPerMWh: 1, ValidFromYear: 2000,
	}); err != nil {
		t.Fatalf("InsertEmissionFactor failed: %v", err)
	}

	row := store.ForecastRow{
		ScenarioID: "scn", Sector: "Industrial", EnergySource: "Coal",
		Year: 2030, PredictedTWh: 2,
	}
	calc, err := FromForecast(s, row)
	if err != nil {
		t.Fatalf("FromForecast failed: %v", err)
	}

	// 2 TWh = 2e6 MWh.
	if math.Abs(calc.CO2Kg-2e6*900) > 1e-6 {
		t.Errorf("Expected CO2 %f, got %f", 2e6*900.0, calc.CO2Kg)
	}
	if math.Abs(calc.NOxKg-2e6*2) > 1e-6 {
		t.Errorf("Expected NOx %f, got %f", 2e6*2.0, calc.NOxKg)
	}
	want := calc.CO2Kg + calc.NOxKg + calc.SO2Kg
	if calc.TotalKg != want {
		t.Errorf("Total %f does not match component sum %f", calc.TotalKg, want)
	}
}

func TestFromForecastMissingFactor(t *testing.T) {
	s := newTestStore(t)
	calc, err := FromForecast(s, store.ForecastRow{
		ScenarioID: "scn", Sector: "Industrial", EnergySource: "Hydrogen", Year: 2030, PredictedTWh: 5,
	})
	if err != nil {
		t.Fatalf("Expected zero calculation for missing factor, got error %v", err)
	}
	if calc.TotalKg != 0 {
		t.Errorf("Expected zero emissions, got %f", calc.TotalKg)
	}
	if calc.Sector != "Industrial" || calc.Year != 2030 {
		t.Errorf("Identity fields missing: %+v", calc)
	}
}

func TestForScenarioAndTotals(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.InsertEmissionFactor(store.EmissionFactor{
		EnergySource: "Gas", CO2KgPerMWh: 400, ValidFromYear: 2000,
	}); err != nil {
		t.Fatalf("InsertEmissionFactor failed: %v", err)
	}

	points := []forecast.Point{
		{Year: 2030, Sector: "Residential", EnergySource: "Gas", Predicted: 1, Lower: 0.9, Upper: 1.1, Confidence: 0.1},
		{Year: 2031, Sector: "Residential", EnergySource: "Gas", Predicted: 2, Lower: 1.8, Upper: 2.2, Confidence: 0.1},
	}
	if err := s.SaveForecasts("scn", "16-8-1", 0.01, points); err != nil {
		t.Fatalf("SaveForecasts failed: %v", err)
	}

	calcs, err := ForScenario(s, "scn")
	if err != nil {
		t.Fatalf("ForScenario failed: %v", err)
	}
	if len(calcs) != 2 {
		t.Fatalf("Expected 2 calculations, got %d", len(calcs))
	}

	total := Totals(calcs)
	// (1+2) TWh = 3e6 MWh at 400 kg/MWh.
	if math.Abs(total.CO2Kg-3e6*400) > 1e-6 {
		t.Errorf("Expected total CO2 %f, got %f", 3e6*400.0, total.CO2Kg)
	}
	if total.ScenarioID != "scn" {
		t.Errorf("Expected scenario id carried into total, got %q", total.ScenarioID)
	}
}

func TestTotalsEmpty(t *testing.T) {
	total := Totals(nil)
	if total.TotalKg != 0 || total.ScenarioID != "" {
		t.Errorf("Expected zero total, got %+v", total)
	}
}
