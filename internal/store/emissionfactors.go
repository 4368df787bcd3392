package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// EmissionFactor holds the per-MWh emission coefficients for one energy
// source, optionally scoped to a sector. ValidFromYear versions factors
// over time; lookups pick the most recent one not after the target year.
type EmissionFactor struct {
	ID            int64   `json:"id"`
	EnergySource  string  `json:"energySource"`
	Sector        string  `json:"sector"`
	CO2KgPerMWh   float64 `json:"co2KgPerMwh"`
	NOxKgPerMWh   float64 `json:"noxKgPerMwh"`
	SO2KgPerMWh   float64 `json:"so2KgPerMwh"`
	ValidFromYear int     `json:"validFromYear"`
}

// InsertEmissionFactor stores one factor row.
func (s *Store) InsertEmissionFactor(f EmissionFactor) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO emission_factors
		 (energy_source, sector, co2_kg_per_mwh, nox_kg_per_mwh, so2_kg_per_mwh, valid_from_year)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.EnergySource, f.Sector, f.CO2KgPerMWh, f.NOxKgPerMWh, f.SO2KgPerMWh, f.ValidFromYear,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert emission factor: %w", err)
	}
	return res.LastInsertId()
}

// ListEmissionFactors returns every stored factor.
func (s *Store) ListEmissionFactors() ([]EmissionFactor, error) {
	rows, err := s.db.Query(
		`SELECT id, energy_source, sector, co2_kg_per_mwh, nox_kg_per_mwh, so2_kg_per_mwh, valid_from_year
		 FROM emission_factors ORDER BY energy_source, sector, valid_from_year`)
	if err != nil {
		return nil, fmt.Errorf("failed to query emission factors: %w", err)
	}
	defer rows.Close()

	var factors []EmissionFactor
	for rows.Next() {
		var f EmissionFactor
		if err := rows.Scan(&f.ID, &f.EnergySource, &f.Sector, &f.CO2KgPerMWh,
			&f.NOxKgPerMWh, &f.SO2KgPerMWh, &f.ValidFromYear); err != nil {
			return nil, fmt.Errorf("failed to scan emission factor: %w", err)
		}
		factors = append(factors, f)
	}
	return factors, rows.Err()
}

// FactorFor finds the most recent factor valid for the given year,
// preferring a sector-specific row over a source-wide one. ErrNotFound when
// no factor applies.
func (s *Store) FactorFor(source, sector string, year int) (EmissionFactor, error) {
	row := s.db.QueryRow(
		`SELECT id, energy_source, sector, co2_kg_per_mwh, nox_kg_per_mwh, so2_kg_per_mwh, valid_from_year
		 FROM emission_factors
		 WHERE energy_source = ? AND (sector = ? OR sector = '') AND valid_from_year <= ?
		 ORDER BY sector DESC, valid_from_year DESC
		 LIMIT 1`,
		source, sector, year,
	)

	var f EmissionFactor
	err := row.Scan(&f.ID, &f.EnergySource, &f.Sector, &f.CO2KgPerMWh,
		&f.NOxKgPerMWh, &f.SO2KgPerMWh, &f.ValidFromYear)
	if errors.Is(err, sql.ErrNoRows) {
		return EmissionFactor{}, fmt.Errorf("%w: emission factor for %s/%s in %d", ErrNotFound, source, sector, year)
	}
	if err != nil {
		return EmissionFactor{}, fmt.Errorf("failed to look up emission factor: %w", err)
	}
	return f, nil
}
