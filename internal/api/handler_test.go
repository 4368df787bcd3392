package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"

	"github.com/aut-energy/energy-planner/internal/config"
	"github.com/aut-energy/energy-planner/internal/forecast"
	"github.com/aut-energy/energy-planner/internal/models"
	"github.com/aut-energy/energy-planner/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, *mux.Router) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cfg := config.Config{Version: "test"}
	cfg.Forecast = config.ForecastConfig{
		Window:       4,
		Horizon:      5,
		Hidden1:      6,
		LearningRate: 0.05,
		Epochs:       300,
		Seed:         42,
		Particles:    10,
		Iterations:   15,
		Inertia:      0.7,
		Cognitive:    1.5,
		Social:       1.5,
	}

	handler := NewHandler(s, cfg)
	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	return handler, r
}

func seedHistory(t *testing.T, h *Handler, sector, source string, years int) {
	t.Helper()
	for i := 0; i < years; i++ {
		err := h.store.InsertEnergyRecord(store.EnergyRecord{
			Year:           2010 + i,
			Sector:         sector,
			EnergySource:   source,
			ConsumptionTWh: 100 + 5*float64(i),
			GDPBillions:    200 + 3*float64(i),
			PopulationM:    50 + 0.5*float64(i),
		})
		if err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	_, r := newTestHandler(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]string
	json.NewDecoder(w.Body).Decode(&response)
	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", response["status"])
	}
}

func TestInfoEndpoint(t *testing.T) {
	h, r := newTestHandler(t)
	seedHistory(t, h, "Residential", "Electricity", 3)

	req := httptest.NewRequest("GET", "/info", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response models.InfoResponse
	json.NewDecoder(w.Body).Decode(&response)
	if response.Version != "test" {
		t.Errorf("Expected version 'test', got '%s'", response.Version)
	}
	if len(response.Sectors) != 1 || response.Sectors[0] != "Residential" {
		t.Errorf("Expected [Residential] sectors, got %v", response.Sectors)
	}
}

func TestEnergyDataEndpoints(t *testing.T) {
	_, r := newTestHandler(t)

	rec := store.EnergyRecord{
		Year: 2020, Sector: "Industrial", EnergySource: "Gas",
		ConsumptionTWh: 42.5, GDPBillions: 210,
	}
	if w := doJSON(t, r, "POST", "/energy-data", rec); w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body)
	}

	// Missing required fields is rejected.
	bad := store.EnergyRecord{Year: 2020}
	if w := doJSON(t, r, "POST", "/energy-data", bad); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for incomplete record, got %d", w.Code)
	}

	w := doJSON(t, r, "GET", "/energy-data?sector=Industrial", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var records []store.EnergyRecord
	json.NewDecoder(w.Body).Decode(&records)
	if len(records) != 1 || records[0].ConsumptionTWh != 42.5 {
		t.Fatalf("unexpected records: %+v", records)
	}

	w = doJSON(t, r, "DELETE", fmt.Sprintf("/energy-data/%d", records[0].ID), nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete: expected 200, got %d: %s", w.Code, w.Body)
	}
	if w := doJSON(t, r, "DELETE", "/energy-data/99999", nil); w.Code != http.StatusNotFound {
		t.Errorf("delete missing: expected 404, got %d", w.Code)
	}
}

func TestScenarioEndpoints(t *testing.T) {
	_, r := newTestHandler(t)

	sc := store.Scenario{
		Name:          "Green Transition",
		Type:          store.ScenarioClimateAction,
		GDPGrowthRate: 0.02,
	}
	w := doJSON(t, r, "POST", "/scenarios", sc)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body)
	}
	var created store.Scenario
	json.NewDecoder(w.Body).Decode(&created)
	if created.ID == "" {
		t.Fatal("created scenario has no id")
	}

	if w := doJSON(t, r, "POST", "/scenarios", store.Scenario{}); w.Code != http.StatusBadRequest {
		t.Errorf("nameless scenario: expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, "GET", "/scenarios/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}

	created.Description = "updated"
	w = doJSON(t, r, "PUT", "/scenarios/"+created.ID, created)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body)
	}
	var updated store.Scenario
	json.NewDecoder(w.Body).Decode(&updated)
	if updated.Description != "updated" {
		t.Errorf("description not updated: %+v", updated)
	}

	w = doJSON(t, r, "POST", "/scenarios/"+created.ID+"/activate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d: %s", w.Code, w.Body)
	}
	var active store.Scenario
	json.NewDecoder(w.Body).Decode(&active)
	if !active.IsActive {
		t.Error("scenario not active after activation")
	}

	if w := doJSON(t, r, "GET", "/scenarios/no-such-id", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing scenario: expected 404, got %d", w.Code)
	}

	w = doJSON(t, r, "DELETE", "/scenarios/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", w.Code)
	}
}

func TestRunForecastEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("trains a model")
	}

	h, r := newTestHandler(t)
	seedHistory(t, h, "Residential", "Electricity", 10)

	sc, err := h.store.CreateScenario(store.Scenario{Name: "Baseline", Type: store.ScenarioBaseline})
	if err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, "POST", "/forecast", models.ForecastRequest{ScenarioID: sc.ID, Years: 3})
	if w.Code != http.StatusOK {
		t.Fatalf("forecast: expected 200, got %d: %s", w.Code, w.Body)
	}

	var resp models.ForecastResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Forecasts) != 1 {
		t.Fatalf("expected 1 series forecast, got %d", len(resp.Forecasts))
	}
	fc := resp.Forecasts[0]
	if len(fc.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(fc.Points))
	}
	if fc.Points[0].Year != 2020 {
		t.Errorf("first forecast year = %d, want 2020", fc.Points[0].Year)
	}
	if fc.Architecture == "" {
		t.Error("missing architecture string")
	}

	// The run is persisted and visible through the list endpoint.
	w = doJSON(t, r, "GET", "/forecasts?scenario="+sc.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list forecasts: expected 200, got %d", w.Code)
	}
	var rows []store.ForecastRow
	json.NewDecoder(w.Body).Decode(&rows)
	if len(rows) != 3 {
		t.Errorf("expected 3 stored rows, got %d", len(rows))
	}
}

func TestRunForecastInsufficientHistory(t *testing.T) {
	h, r := newTestHandler(t)
	seedHistory(t, h, "Residential", "Electricity", 3) // below window+1

	sc, err := h.store.CreateScenario(store.Scenario{Name: "Baseline", Type: store.ScenarioBaseline})
	if err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, "POST", "/forecast", models.ForecastRequest{ScenarioID: sc.ID})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body)
	}
}

func TestRunForecastUnknownScenario(t *testing.T) {
	_, r := newTestHandler(t)

	w := doJSON(t, r, "POST", "/forecast", models.ForecastRequest{ScenarioID: "missing"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := doJSON(t, r, "POST", "/forecast", models.ForecastRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without scenario_id, got %d", w.Code)
	}
}

func TestScenarioEmissionsEndpoint(t *testing.T) {
	h, r := newTestHandler(t)

	sc, err := h.store.CreateScenario(store.Scenario{Name: "Baseline", Type: store.ScenarioBaseline})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.store.InsertEmissionFactor(store.EmissionFactor{
		EnergySource: "Gas", CO2KgPerMWh: 400, ValidFromYear: 2000,
	}); err != nil {
		t.Fatal(err)
	}
	err = h.store.SaveForecasts(sc.ID, "16-8-1", 0.1, []forecast.Point{
		{Year: 2030, Sector: "Industrial", EnergySource: "Gas", Predicted: 2, Lower: 1, Upper: 3, Confidence: 0.8},
	})
	if err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, "GET", "/scenarios/"+sc.ID+"/emissions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	var resp models.EmissionsResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Calculations) != 1 {
		t.Fatalf("expected 1 calculation, got %d", len(resp.Calculations))
	}
	if got, want := resp.Totals.CO2Kg, 2*1e6*400.0; got != want {
		t.Errorf("total CO2 = %g, want %g", got, want)
	}

	if w := doJSON(t, r, "GET", "/scenarios/missing/emissions", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing scenario: expected 404, got %d", w.Code)
	}
}

// uploadWorkbook posts an in-memory xlsx to the import endpoint.
func uploadWorkbook(t *testing.T, r *mux.Router, rows [][]any) *httptest.ResponseRecorder {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	var workbook bytes.Buffer
	if err := f.Write(&workbook); err != nil {
		t.Fatal(err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "history.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(workbook.Bytes())
	mw.Close()

	req := httptest.NewRequest("POST", "/energy-data/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestImportEndpointWorkbook(t *testing.T) {
	_, r := newTestHandler(t)

	w := uploadWorkbook(t, r, [][]any{
		{"Year", "Sector", "Energy Source", "Consumption (TWh)"},
		{2020, "Residential", "Electricity", 101.5},
		{2021, "Residential", "Electricity", 104.0},
		{"not a year", "Residential", "Electricity", 99.0},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}

	var resp models.ImportResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.BatchID == "" {
		t.Error("missing batch id")
	}
	if resp.Processed != 3 || resp.Imported != 2 || resp.Errors != 1 {
		t.Errorf("import summary = %d/%d/%d, want 3 processed, 2 imported, 1 error",
			resp.Processed, resp.Imported, resp.Errors)
	}

	// The imported rows are queryable afterwards.
	lw := doJSON(t, r, "GET", "/energy-data?sector=Residential", nil)
	var records []store.EnergyRecord
	json.NewDecoder(lw.Body).Decode(&records)
	if len(records) != 2 {
		t.Errorf("expected 2 stored records, got %d", len(records))
	}
}

func TestImportEndpoint(t *testing.T) {
	_, r := newTestHandler(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "history.txt")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("not a spreadsheet"))
	mw.Close()

	req := httptest.NewRequest("POST", "/energy-data/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// A non-xlsx upload is a client error, not a crash.
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad workbook, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/energy-data/import", bytes.NewBufferString("no form"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without multipart form, got %d", w.Code)
	}
}
