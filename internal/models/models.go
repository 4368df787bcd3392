package models

import (
	"github.com/aut-energy/energy-planner/internal/emission"
	"github.com/aut-energy/energy-planner/internal/forecast"
)

// ForecastRequest represents a request to run forecasts for a scenario.
type ForecastRequest struct {
	ScenarioID string   `json:"scenario_id"`
	Sectors    []string `json:"sectors,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Years      int      `json:"years,omitempty"`
}

// SeriesForecast holds the forecast of one sector/source series.
type SeriesForecast struct {
	Sector       string           `json:"sector"`
	EnergySource string           `json:"energy_source"`
	Architecture string           `json:"architecture"`
	Accuracy     float64          `json:"accuracy"`
	Points       []forecast.Point `json:"points"`
}

// ForecastResponse contains the forecasts produced for a scenario.
type ForecastResponse struct {
	ScenarioID string           `json:"scenario_id"`
	Forecasts  []SeriesForecast `json:"forecasts"`
	Skipped    []SkippedSeries  `json:"skipped,omitempty"`
}

// SkippedSeries reports a series that could not be forecast.
type SkippedSeries struct {
	Sector       string `json:"sector"`
	EnergySource string `json:"energy_source"`
	Reason       string `json:"reason"`
}

// EmissionsResponse contains per-series emissions plus scenario totals.
type EmissionsResponse struct {
	ScenarioID   string                 `json:"scenario_id"`
	Calculations []emission.Calculation `json:"calculations"`
	Totals       emission.Calculation   `json:"totals"`
}

// ImportResponse summarises a spreadsheet import.
type ImportResponse struct {
	BatchID   string `json:"batch_id"`
	Processed int    `json:"processed"`
	Imported  int    `json:"imported"`
	Errors    int    `json:"errors"`
}

// InfoResponse describes the running service.
type InfoResponse struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Sectors []string `json:"sectors"`
	Sources []string `json:"energy_sources"`
}
