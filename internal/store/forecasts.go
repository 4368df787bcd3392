package store

import (
	"fmt"
	"time"

	"github.com/aut-energy/energy-planner/internal/forecast"
)

// ForecastRow is one persisted forecast year.
type ForecastRow struct {
	ID            int64   `json:"id"`
	ScenarioID    string  `json:"scenarioId"`
	Sector        string  `json:"sector"`
	EnergySource  string  `json:"energySource"`
	Year          int     `json:"year"`
	PredictedTWh  float64 `json:"predictedTwh"`
	LowerTWh      float64 `json:"lowerTwh"`
	UpperTWh      float64 `json:"upperTwh"`
	Confidence    float64 `json:"confidence"`
	ModelAccuracy float64 `json:"modelAccuracy"`
	Architecture  string  `json:"architecture"`
	CreatedAt     string  `json:"createdAt"`
}

// SaveForecasts stores a batch of forecast points in one transaction,
// replacing any earlier forecasts for the same scenario and series.
func (s *Store) SaveForecasts(scenarioID, architecture string, accuracy float64, points []forecast.Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	seen := map[string]bool{}
	for _, p := range points {
		key := p.Sector + "_" + p.EnergySource
		if !seen[key] {
			seen[key] = true
			if _, err := tx.Exec(
				`DELETE FROM forecast_results WHERE scenario_id = ? AND sector = ? AND energy_source = ?`,
				scenarioID, p.Sector, p.EnergySource); err != nil {
				return fmt.Errorf("failed to clear old forecasts: %w", err)
			}
		}
		if _, err := tx.Exec(
			`INSERT INTO forecast_results
			 (scenario_id, sector, energy_source, forecast_year, predicted_twh,
			  lower_twh, upper_twh, confidence, model_accuracy, architecture, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			scenarioID, p.Sector, p.EnergySource, p.Year, p.Predicted,
			p.Lower, p.Upper, p.Confidence, accuracy, architecture, now); err != nil {
			return fmt.Errorf("failed to insert forecast: %w", err)
		}
	}
	return tx.Commit()
}

// ListForecasts returns stored forecasts, optionally filtered by scenario,
// ordered by series then year.
func (s *Store) ListForecasts(scenarioID string) ([]ForecastRow, error) {
	rows, err := s.db.Query(
		`SELECT id, scenario_id, sector, energy_source, forecast_year, predicted_twh,
		        lower_twh, upper_twh, confidence, model_accuracy, architecture, created_at
		 FROM forecast_results
		 WHERE (? = '' OR scenario_id = ?)
		 ORDER BY sector, energy_source, forecast_year`,
		scenarioID, scenarioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecasts: %w", err)
	}
	defer rows.Close()

	var results []ForecastRow
	for rows.Next() {
		var r ForecastRow
		if err := rows.Scan(&r.ID, &r.ScenarioID, &r.Sector, &r.EnergySource, &r.Year,
			&r.PredictedTWh, &r.LowerTWh, &r.UpperTWh, &r.Confidence,
			&r.ModelAccuracy, &r.Architecture, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan forecast: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
