package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the application's sqlite database: historical energy data,
// scenarios, forecast results and emission factors.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS energy_data (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	year               INTEGER NOT NULL,
	sector             TEXT NOT NULL,
	energy_source      TEXT NOT NULL,
	consumption_twh    REAL NOT NULL,
	gdp_billions       REAL DEFAULT 0,
	population_millions REAL DEFAULT 0,
	avg_temperature_c  REAL DEFAULT 0,
	data_source        TEXT DEFAULT '',
	created_at         TEXT NOT NULL,
	UNIQUE(year, sector, energy_source)
);
CREATE INDEX IF NOT EXISTS idx_energy_data_series ON energy_data(sector, energy_source, year);

CREATE TABLE IF NOT EXISTS scenarios (
	id                     TEXT PRIMARY KEY,
	name                   TEXT NOT NULL,
	description            TEXT DEFAULT '',
	scenario_type          TEXT NOT NULL,
	start_year             INTEGER DEFAULT 0,
	end_year               INTEGER DEFAULT 0,
	gdp_growth_rate        REAL DEFAULT 0,
	population_growth_rate REAL DEFAULT 0,
	efficiency_rate        REAL DEFAULT 0,
	sector_growth_rates    TEXT DEFAULT '{}',
	source_adjustments     TEXT DEFAULT '{}',
	yearly_factors         TEXT DEFAULT '{}',
	is_active              INTEGER DEFAULT 0,
	created_at             TEXT NOT NULL,
	updated_at             TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS forecast_results (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	scenario_id    TEXT DEFAULT '',
	sector         TEXT NOT NULL,
	energy_source  TEXT NOT NULL,
	forecast_year  INTEGER NOT NULL,
	predicted_twh  REAL NOT NULL,
	lower_twh      REAL NOT NULL,
	upper_twh      REAL NOT NULL,
	confidence     REAL NOT NULL,
	model_accuracy REAL DEFAULT 0,
	architecture   TEXT DEFAULT '',
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_forecast_scenario ON forecast_results(scenario_id, forecast_year);

CREATE TABLE IF NOT EXISTS emission_factors (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	energy_source   TEXT NOT NULL,
	sector          TEXT DEFAULT '',
	co2_kg_per_mwh  REAL DEFAULT 0,
	nox_kg_per_mwh  REAL DEFAULT 0,
	so2_kg_per_mwh  REAL DEFAULT 0,
	valid_from_year INTEGER DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_emission_lookup ON emission_factors(energy_source, sector, valid_from_year);
`

// Open opens (creating if needed) the sqlite database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
