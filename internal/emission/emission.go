package emission

import (
	"errors"
	"log"

	"github.com/aut-energy/energy-planner/internal/store"
)

// twhToMWh converts consumption units to the per-MWh factor basis.
const twhToMWh = 1e6

// Calculation is the emissions attributed to one forecast year of one
// sector / energy-source series.
type Calculation struct {
	ScenarioID   string  `json:"scenarioId"`
	Sector       string  `json:"sector"`
	EnergySource string  `json:"energySource"`
	Year         int     `json:"year"`
	CO2Kg        float64 `json:"co2Kg"`
	NOxKg        float64 `json:"noxKg"`
	SO2Kg        float64 `json:"so2Kg"`
	TotalKg      float64 `json:"totalKg"`
}

// FromForecast computes emissions for one stored forecast row using the
// factor valid for its source, sector and year. A missing factor yields a
// zero calculation with a logged warning instead of failing the batch.
func FromForecast(s *store.Store, row store.ForecastRow) (Calculation, error) {
	calc := Calculation{
		ScenarioID:   row.ScenarioID,
		Sector:       row.Sector,
		EnergySource: row.EnergySource,
		Year:         row.Year,
	}

	f, err := s.FactorFor(row.EnergySource, row.Sector, row.Year)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("Warning: no emission factor for %s/%s in %d, reporting zero emissions",
			row.EnergySource, row.Sector, row.Year)
		return calc, nil
	}
	if err != nil {
		return Calculation{}, err
	}

	mwh := row.PredictedTWh * twhToMWh
	calc.CO2Kg = mwh * f.CO2KgPerMWh
	calc.NOxKg = mwh * f.NOxKgPerMWh
	calc.SO2Kg = mwh * f.SO2KgPerMWh
	calc.TotalKg = calc.CO2Kg + calc.NOxKg + calc.SO2Kg
	return calc, nil
}

// ForScenario computes emissions for every stored forecast of one scenario.
func ForScenario(s *store.Store, scenarioID string) ([]Calculation, error) {
	rows, err := s.ListForecasts(scenarioID)
	if err != nil {
		return nil, err
	}

	calcs := make([]Calculation, 0, len(rows))
	for _, row := range rows {
		calc, err := FromForecast(s, row)
		if err != nil {
			return nil, err
		}
		calcs = append(calcs, calc)
	}
	return calcs, nil
}

// Totals sums a set of calculations into a single aggregate, keyed off the
// scenario of the first entry.
func Totals(calcs []Calculation) Calculation {
	var total Calculation
	if len(calcs) > 0 {
		total.ScenarioID = calcs[0].ScenarioID
	}
	for _, c := range calcs {
		total.CO2Kg += c.CO2Kg
		total.NOxKg += c.NOxKg
		total.SO2Kg += c.SO2Kg
		total.TotalKg += c.TotalKg
	}
	return total
}
