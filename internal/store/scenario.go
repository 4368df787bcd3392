package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aut-energy/energy-planner/internal/forecast"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Scenario types mirror the energy-policy paths the planners model.
const (
	ScenarioBaseline        = "BASELINE"
	ScenarioPolicyChange    = "POLICY_CHANGE"
	ScenarioTechnologyShift = "TECHNOLOGY_SHIFT"
	ScenarioClimateAction   = "CLIMATE_ACTION"
	ScenarioCustom          = "CUSTOM"
)

// Scenario defines a set of forecasting assumptions: annual growth rates
// compounding over the horizon, plus flat multiplier maps keyed by sector,
// energy source and year. Rates are fractions, not percentages.
type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	StartYear   int    `json:"startYear"`
	EndYear     int    `json:"endYear"`

	GDPGrowthRate        float64 `json:"gdpGrowthRate"`
	PopulationGrowthRate float64 `json:"populationGrowthRate"`
	EfficiencyRate       float64 `json:"efficiencyRate"`

	SectorGrowthRates map[string]float64 `json:"sectorGrowthRates,omitempty"`
	SourceAdjustments map[string]float64 `json:"sourceAdjustments,omitempty"`
	YearlyFactors     map[int]float64    `json:"yearlyFactors,omitempty"`

	IsActive  bool   `json:"isActive"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Adjustment composes the scenario's assumptions into the multiplicative
// corrections the forecast rollout consumes. baseYear anchors the
// compounding of the annual rates; a baseline scenario returns identity
// adjustments.
func (sc Scenario) Adjustment(sector, source string, baseYear int) forecast.Adjustment {
	if sc.Type == ScenarioBaseline || sc.ID == "" {
		return forecast.Adjustment{}
	}

	adj := forecast.Adjustment{}
	if sc.GDPGrowthRate != 0 {
		rate := sc.GDPGrowthRate
		adj.GDP = func(year int) float64 { return math.Pow(1+rate, float64(year-baseYear)) }
	}
	if sc.PopulationGrowthRate != 0 {
		rate := sc.PopulationGrowthRate
		adj.Population = func(year int) float64 { return math.Pow(1+rate, float64(year-baseYear)) }
	}
	if sc.EfficiencyRate != 0 {
		rate := sc.EfficiencyRate
		adj.Consumption = func(year int) float64 { return math.Pow(1-rate, float64(year-baseYear)) }
	}

	sectorFactor := 1.0
	if rate, ok := sc.SectorGrowthRates[sector]; ok {
		sectorFactor = 1 + rate
	}
	sourceFactor := 1.0
	if rate, ok := sc.SourceAdjustments[source]; ok {
		sourceFactor = 1 + rate
	}
	if sectorFactor != 1 || sourceFactor != 1 || len(sc.YearlyFactors) > 0 {
		yearly := sc.YearlyFactors
		adj.Output = func(year int) float64 {
			f := sectorFactor * sourceFactor
			if y, ok := yearly[year]; ok {
				f *= y
			}
			return f
		}
	}
	return adj
}

// CreateScenario assigns an id and timestamps, then stores the scenario.
func (s *Store) CreateScenario(sc Scenario) (Scenario, error) {
	sc.ID = uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)
	sc.CreatedAt = now
	sc.UpdatedAt = now
	if sc.Type == "" {
		sc.Type = ScenarioCustom
	}

	sectorJSON, sourceJSON, yearlyJSON, err := marshalScenarioMaps(sc)
	if err != nil {
		return Scenario{}, err
	}

	_, err = s.db.Exec(
		`INSERT INTO scenarios
		 (id, name, description, scenario_type, start_year, end_year,
		  gdp_growth_rate, population_growth_rate, efficiency_rate,
		  sector_growth_rates, source_adjustments, yearly_factors,
		  is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.Name, sc.Description, sc.Type, sc.StartYear, sc.EndYear,
		sc.GDPGrowthRate, sc.PopulationGrowthRate, sc.EfficiencyRate,
		sectorJSON, sourceJSON, yearlyJSON, sc.IsActive, sc.CreatedAt, sc.UpdatedAt,
	)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to create scenario: %w", err)
	}
	return sc, nil
}

// UpdateScenario replaces the mutable fields of an existing scenario.
func (s *Store) UpdateScenario(id string, sc Scenario) (Scenario, error) {
	existing, err := s.GetScenario(id)
	if err != nil {
		return Scenario{}, err
	}

	sc.ID = existing.ID
	sc.CreatedAt = existing.CreatedAt
	sc.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if sc.Type == "" {
		sc.Type = existing.Type
	}

	sectorJSON, sourceJSON, yearlyJSON, err := marshalScenarioMaps(sc)
	if err != nil {
		return Scenario{}, err
	}

	_, err = s.db.Exec(
		`UPDATE scenarios SET
		 name=?, description=?, scenario_type=?, start_year=?, end_year=?,
		 gdp_growth_rate=?, population_growth_rate=?, efficiency_rate=?,
		 sector_growth_rates=?, source_adjustments=?, yearly_factors=?, updated_at=?
		 WHERE id=?`,
		sc.Name, sc.Description, sc.Type, sc.StartYear, sc.EndYear,
		sc.GDPGrowthRate, sc.PopulationGrowthRate, sc.EfficiencyRate,
		sectorJSON, sourceJSON, yearlyJSON, sc.UpdatedAt, id,
	)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to update scenario: %w", err)
	}
	sc.IsActive = existing.IsActive
	return sc, nil
}

// GetScenario fetches one scenario by id.
func (s *Store) GetScenario(id string) (Scenario, error) {
	row := s.db.QueryRow(scenarioSelect+` WHERE id = ?`, id)
	sc, err := scanScenario(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Scenario{}, fmt.Errorf("%w: scenario %s", ErrNotFound, id)
	}
	return sc, err
}

// ListScenarios returns every scenario, newest first.
func (s *Store) ListScenarios() ([]Scenario, error) {
	rows, err := s.db.Query(scenarioSelect + ` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, rows.Err()
}

// DeleteScenario removes a scenario and its stored forecasts.
func (s *Store) DeleteScenario(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: scenario %s", ErrNotFound, id)
	}
	if _, err := tx.Exec(`DELETE FROM forecast_results WHERE scenario_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete scenario forecasts: %w", err)
	}
	return tx.Commit()
}

// ActivateScenario marks one scenario active and clears the flag on all
// others, keeping at most one active at a time.
func (s *Store) ActivateScenario(id string) error {
	if _, err := s.GetScenario(id); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE scenarios SET is_active = 0 WHERE is_active = 1`); err != nil {
		return fmt.Errorf("failed to deactivate scenarios: %w", err)
	}
	if _, err := tx.Exec(`UPDATE scenarios SET is_active = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id); err != nil {
		return fmt.Errorf("failed to activate scenario: %w", err)
	}
	return tx.Commit()
}

const scenarioSelect = `
SELECT id, name, description, scenario_type, start_year, end_year,
       gdp_growth_rate, population_growth_rate, efficiency_rate,
       sector_growth_rates, source_adjustments, yearly_factors,
       is_active, created_at, updated_at
FROM scenarios`

type singleRowScanner interface {
	Scan(dest ...any) error
}

func scanScenario(row singleRowScanner) (Scenario, error) {
	var sc Scenario
	var sectorJSON, sourceJSON, yearlyJSON string
	err := row.Scan(&sc.ID, &sc.Name, &sc.Description, &sc.Type, &sc.StartYear, &sc.EndYear,
		&sc.GDPGrowthRate, &sc.PopulationGrowthRate, &sc.EfficiencyRate,
		&sectorJSON, &sourceJSON, &yearlyJSON, &sc.IsActive, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return Scenario{}, err
	}

	if err := json.Unmarshal([]byte(sectorJSON), &sc.SectorGrowthRates); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse sector growth rates: %w", err)
	}
	if err := json.Unmarshal([]byte(sourceJSON), &sc.SourceAdjustments); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse source adjustments: %w", err)
	}
	var yearly map[string]float64
	if err := json.Unmarshal([]byte(yearlyJSON), &yearly); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse yearly factors: %w", err)
	}
	if len(yearly) > 0 {
		sc.YearlyFactors = make(map[int]float64, len(yearly))
		for k, v := range yearly {
			year, err := strconv.Atoi(k)
			if err != nil {
				return Scenario{}, fmt.Errorf("invalid yearly factor key %q: %w", k, err)
			}
			sc.YearlyFactors[year] = v
		}
	}
	return sc, nil
}

func marshalScenarioMaps(sc Scenario) (string, string, string, error) {
	sectorJSON, err := json.Marshal(orEmpty(sc.SectorGrowthRates))
	if err != nil {
		return "", "", "", err
	}
	sourceJSON, err := json.Marshal(orEmpty(sc.SourceAdjustments))
	if err != nil {
		return "", "", "", err
	}
	yearly := make(map[string]float64, len(sc.YearlyFactors))
	for year, v := range sc.YearlyFactors {
		yearly[strconv.Itoa(year)] = v
	}
	yearlyJSON, err := json.Marshal(yearly)
	if err != nil {
		return "", "", "", err
	}
	return string(sectorJSON), string(sourceJSON), string(yearlyJSON), nil
}

func orEmpty(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
