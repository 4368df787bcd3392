// Package importer loads historical energy data from spreadsheets into the
// store. Files are expected to carry a header row somewhere in the first few
// rows; columns are matched by name so layouts can vary between sources.
package importer

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/aut-energy/energy-planner/internal/store"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// headerScanRows is how deep into the sheet a header row is searched for.
const headerScanRows = 10

// Result summarizes one import run.
type Result struct {
	BatchID   string `json:"batchId"`
	Processed int    `json:"processed"`
	Imported  int    `json:"imported"`
	Errors    int    `json:"errors"`
}

// columnMapping maps semantic fields to column indices; -1 means absent.
type columnMapping struct {
	year        int
	sector      int
	source      int
	consumption int
	gdp         int
	population  int
	temperature int
}

// Import reads the first sheet of an xlsx stream and stores every parseable
// row. Rows that fail to parse are counted and skipped; only a structurally
// unusable file (no header row, unreadable archive) is an error.
func Import(s *store.Store, r io.Reader, dataSource string) (Result, error) {
	result := Result{BatchID: uuid.New().String()}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return result, fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return result, fmt.Errorf("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return result, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	headerIdx, mapping := findHeader(rows)
	if headerIdx < 0 {
		return result, fmt.Errorf("no header row found in first %d rows", headerScanRows)
	}

	if dataSource == "" {
		dataSource = "spreadsheet import"
	}

	for i := headerIdx + 1; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		result.Processed++

		record, err := parseRow(rows[i], mapping)
		if err != nil {
			log.Printf("Import: skipping row %d: %v", i+1, err)
			result.Errors++
			continue
		}
		record.DataSource = dataSource

		if err := s.InsertEnergyRecord(record); err != nil {
			log.Printf("Import: failed to store row %d: %v", i+1, err)
			result.Errors++
			continue
		}
		result.Imported++
	}

	log.Printf("Import %s: %d rows processed, %d imported, %d errors",
		result.BatchID, result.Processed, result.Imported, result.Errors)
	return result, nil
}

// findHeader locates the header row and builds the column mapping. A row
// qualifies when at least three of the expected headers are recognized.
func findHeader(rows [][]string) (int, columnMapping) {
	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}

	for i := 0; i < limit; i++ {
		mapping := mapColumns(rows[i])
		known := 0
		for _, idx := range []int{mapping.year, mapping.sector, mapping.source, mapping.consumption} {
			if idx >= 0 {
				known++
			}
		}
		if known >= 3 {
			return i, mapping
		}
	}
	return -1, columnMapping{}
}

func mapColumns(header []string) columnMapping {
	mapping := columnMapping{year: -1, sector: -1, source: -1, consumption: -1, gdp: -1, population: -1, temperature: -1}
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case name == "year":
			mapping.year = i
		case strings.Contains(name, "sector"):
			mapping.sector = i
		case strings.Contains(name, "source") || strings.Contains(name, "fuel"):
			mapping.source = i
		case strings.Contains(name, "consumption"):
			mapping.consumption = i
		case strings.Contains(name, "gdp"):
			mapping.gdp = i
		case strings.Contains(name, "population"):
			mapping.population = i
		case strings.Contains(name, "temperature"):
			mapping.temperature = i
		}
	}
	return mapping
}

func parseRow(row []string, m columnMapping) (store.EnergyRecord, error) {
	year, err := intCell(row, m.year)
	if err != nil {
		return store.EnergyRecord{}, fmt.Errorf("year: %w", err)
	}
	consumption, err := floatCell(row, m.consumption)
	if err != nil {
		return store.EnergyRecord{}, fmt.Errorf("consumption: %w", err)
	}

	sector := stringCell(row, m.sector)
	source := stringCell(row, m.source)
	if sector == "" || source == "" {
		return store.EnergyRecord{}, fmt.Errorf("missing sector or energy source")
	}

	// Optional covariates default to zero rather than failing the row.
	return store.EnergyRecord{
		Year:            year,
		Sector:          sector,
		EnergySource:    source,
		ConsumptionTWh:  consumption,
		GDPBillions:     optionalFloat(row, m.gdp),
		PopulationM:     optionalFloat(row, m.population),
		AvgTemperatureC: optionalFloat(row, m.temperature),
	}, nil
}

func stringCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func intCell(row []string, idx int) (int, error) {
	v := stringCell(row, idx)
	if v == "" {
		return 0, fmt.Errorf("empty cell")
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Numeric cells sometimes render as floats.
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0, err
		}
		n = int(f)
	}
	return n, nil
}

func floatCell(row []string, idx int) (float64, error) {
	v := stringCell(row, idx)
	if v == "" {
		return 0, fmt.Errorf("empty cell")
	}
	return strconv.ParseFloat(v, 64)
}

func optionalFloat(row []string, idx int) float64 {
	f, err := floatCell(row, idx)
	if err != nil {
		return 0
	}
	return f
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
