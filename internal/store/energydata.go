package store

import (
	"fmt"
	"time"

	"github.com/aut-energy/energy-planner/internal/forecast"
)

// EnergyRecord is one stored year of historical energy data.
type EnergyRecord struct {
	ID              int64   `json:"id"`
	Year            int     `json:"year"`
	Sector          string  `json:"sector"`
	EnergySource    string  `json:"energySource"`
	ConsumptionTWh  float64 `json:"consumptionTwh"`
	GDPBillions     float64 `json:"gdpBillions"`
	PopulationM     float64 `json:"populationMillions"`
	AvgTemperatureC float64 `json:"avgTemperatureC"`
	DataSource      string  `json:"dataSource"`
	CreatedAt       string  `json:"createdAt"`
}

// Observation converts the record into the forecasting core's input type.
func (r EnergyRecord) Observation() forecast.Observation {
	return forecast.Observation{
		Year:            r.Year,
		Sector:          r.Sector,
		EnergySource:    r.EnergySource,
		ConsumptionTWh:  r.ConsumptionTWh,
		GDPBillions:     r.GDPBillions,
		PopulationM:     r.PopulationM,
		AvgTemperatureC: r.AvgTemperatureC,
	}
}

// InsertEnergyRecord stores one record, replacing any existing row for the
// same (year, sector, source) so re-imports are idempotent.
func (s *Store) InsertEnergyRecord(r EnergyRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO energy_data
		 (year, sector, energy_source, consumption_twh, gdp_billions, population_millions, avg_temperature_c, data_source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(year, sector, energy_source) DO UPDATE SET
		   consumption_twh=excluded.consumption_twh,
		   gdp_billions=excluded.gdp_billions,
		   population_millions=excluded.population_millions,
		   avg_temperature_c=excluded.avg_temperature_c,
		   data_source=excluded.data_source`,
		r.Year, r.Sector, r.EnergySource, r.ConsumptionTWh, r.GDPBillions,
		r.PopulationM, r.AvgTemperatureC, r.DataSource, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert energy record: %w", err)
	}
	return nil
}

// ListEnergyData returns records filtered by sector and/or source; empty
// filters match everything. Ordered by sector, source, then year.
func (s *Store) ListEnergyData(sector, source string) ([]EnergyRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, year, sector, energy_source, consumption_twh, gdp_billions,
		        population_millions, avg_temperature_c, data_source, created_at
		 FROM energy_data
		 WHERE (? = '' OR sector = ?) AND (? = '' OR energy_source = ?)
		 ORDER BY sector, energy_source, year`,
		sector, sector, source, source,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query energy data: %w", err)
	}
	defer rows.Close()
	return scanEnergyRecords(rows)
}

// Series returns the chronologically ordered history for one sector/source
// pair.
func (s *Store) Series(sector, source string) ([]EnergyRecord, error) {
	return s.ListEnergyData(sector, source)
}

// SeriesObservations returns one series already converted for the
// forecasting core.
func (s *Store) SeriesObservations(sector, source string) ([]forecast.Observation, error) {
	records, err := s.Series(sector, source)
	if err != nil {
		return nil, err
	}
	obs := make([]forecast.Observation, len(records))
	for i, r := range records {
		obs[i] = r.Observation()
	}
	return obs, nil
}

// DeleteEnergyRecord removes one record by id.
func (s *Store) DeleteEnergyRecord(id int64) error {
	res, err := s.db.Exec(`DELETE FROM energy_data WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete energy record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("energy record %d not found", id)
	}
	return nil
}

// Sectors lists the distinct sectors present in the historical data.
func (s *Store) Sectors() ([]string, error) {
	return s.distinct("sector")
}

// EnergySources lists the distinct energy sources present in the
// historical data.
func (s *Store) EnergySources() ([]string, error) {
	return s.distinct("energy_source")
}

func (s *Store) distinct(column string) ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT ` + column + ` FROM energy_data ORDER BY ` + column)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEnergyRecords(rows rowScanner) ([]EnergyRecord, error) {
	var records []EnergyRecord
	for rows.Next() {
		var r EnergyRecord
		if err := rows.Scan(&r.ID, &r.Year, &r.Sector, &r.EnergySource, &r.ConsumptionTWh,
			&r.GDPBillions, &r.PopulationM, &r.AvgTemperatureC, &r.DataSource, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan energy record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
