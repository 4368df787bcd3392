package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/aut-energy/energy-planner/internal/config"
	"github.com/aut-energy/energy-planner/internal/emission"
	"github.com/aut-energy/energy-planner/internal/forecast"
	"github.com/aut-energy/energy-planner/internal/importer"
	"github.com/aut-energy/energy-planner/internal/models"
	"github.com/aut-energy/energy-planner/internal/store"
)

// maxImportSize caps uploaded spreadsheets at 32 MB.
const maxImportSize = 32 << 20

// Handler provides HTTP API endpoints
type Handler struct {
	store *store.Store
	cfg   config.Config
}

// NewHandler creates a new API handler
func NewHandler(s *store.Store, cfg config.Config) *Handler {
	return &Handler{store: s, cfg: cfg}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Historical energy data
	r.HandleFunc("/energy-data", h.handleListEnergyData).Methods("GET")
	r.HandleFunc("/energy-data", h.handleCreateEnergyData).Methods("POST")
	r.HandleFunc("/energy-data/import", h.handleImport).Methods("POST")
	r.HandleFunc("/energy-data/{id}", h.handleDeleteEnergyData).Methods("DELETE")

	// Scenarios
	r.HandleFunc("/scenarios", h.handleListScenarios).Methods("GET")
	r.HandleFunc("/scenarios", h.handleCreateScenario).Methods("POST")
	r.HandleFunc("/scenarios/{id}", h.handleGetScenario).Methods("GET")
	r.HandleFunc("/scenarios/{id}", h.handleUpdateScenario).Methods("PUT")
	r.HandleFunc("/scenarios/{id}", h.handleDeleteScenario).Methods("DELETE")
	r.HandleFunc("/scenarios/{id}/activate", h.handleActivateScenario).Methods("POST")
	r.HandleFunc("/scenarios/{id}/emissions", h.handleScenarioEmissions).Methods("GET")

	// Forecasting
	r.HandleFunc("/forecast", h.handleRunForecast).Methods("POST")
	r.HandleFunc("/forecasts", h.handleListForecasts).Methods("GET")
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	sectors, err := h.store.Sectors()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sources, err := h.store.EnergySources()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, models.InfoResponse{
		Name:    "energy-planner",
		Version: h.cfg.Version,
		Sectors: sectors,
		Sources: sources,
	})
}

// handleListEnergyData returns historical records, optionally filtered by
// sector and energy source query parameters.
func (h *Handler) handleListEnergyData(w http.ResponseWriter, r *http.Request) {
	sector := r.URL.Query().Get("sector")
	source := r.URL.Query().Get("source")

	records, err := h.store.ListEnergyData(sector, source)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) handleCreateEnergyData(w http.ResponseWriter, r *http.Request) {
	var rec store.EnergyRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if rec.Year == 0 || rec.Sector == "" || rec.EnergySource == "" {
		respondError(w, http.StatusBadRequest, "year, sector, and energySource are required")
		return
	}
	if err := h.store.InsertEnergyRecord(rec); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleDeleteEnergyData(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}
	if err := h.store.DeleteEnergyRecord(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleImport ingests an uploaded xlsx workbook of historical data.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file form field is required")
		return
	}
	defer file.Close()

	result, err := importer.Import(h.store, file, header.Filename)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, models.ImportResponse{
		BatchID:   result.BatchID,
		Processed: result.Processed,
		Imported:  result.Imported,
		Errors:    result.Errors,
	})
}

// handleListScenarios returns all scenarios, newest first
func (h *Handler) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.store.ListScenarios()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, scenarios)
}

func (h *Handler) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	var sc store.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if sc.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	created, err := h.store.CreateScenario(sc)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := h.store.GetScenario(mux.Vars(r)["id"])
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sc)
}

func (h *Handler) handleUpdateScenario(w http.ResponseWriter, r *http.Request) {
	var sc store.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := h.store.UpdateScenario(mux.Vars(r)["id"], sc)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteScenario(mux.Vars(r)["id"]); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleActivateScenario(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.ActivateScenario(id); err != nil {
		h.respondStoreError(w, err)
		return
	}
	sc, err := h.store.GetScenario(id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sc)
}

// handleRunForecast trains the model on the pooled history and rolls out
// per-series forecasts under the requested scenario's adjustments.
func (h *Handler) handleRunForecast(w http.ResponseWriter, r *http.Request) {
	var req models.ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ScenarioID == "" {
		respondError(w, http.StatusBadRequest, "scenario_id is required")
		return
	}

	sc, err := h.store.GetScenario(req.ScenarioID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	resp, err := h.runForecast(r.Context(), sc, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(resp.Forecasts) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "no series has enough history to forecast")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) runForecast(ctx context.Context, sc store.Scenario, req models.ForecastRequest) (models.ForecastResponse, error) {
	resp := models.ForecastResponse{ScenarioID: sc.ID}

	sectors := req.Sectors
	if len(sectors) == 0 {
		all, err := h.store.Sectors()
		if err != nil {
			return resp, err
		}
		sectors = all
	}
	sources := req.Sources
	if len(sources) == 0 {
		all, err := h.store.EnergySources()
		if err != nil {
			return resp, err
		}
		sources = all
	}

	horizon := req.Years
	if horizon <= 0 {
		horizon = h.cfg.Forecast.Horizon
	}
	window := h.cfg.Forecast.Window

	// Pool the training samples over every requested series so the model
	// sees all the history, then roll out each series separately.
	type series struct {
		sector, source string
		observations   []forecast.Observation
	}
	var (
		pooled   []forecast.Sample
		rollable []series
	)
	for _, sector := range sectors {
		for _, source := range sources {
			obs, err := h.store.SeriesObservations(sector, source)
			if err != nil {
				return resp, err
			}
			if len(obs) == 0 {
				continue
			}
			samples := forecast.BuildSamples(obs, window)
			if len(samples) == 0 {
				log.Printf("Skipping %s/%s: %d observations, need %d", sector, source, len(obs), window+1)
				resp.Skipped = append(resp.Skipped, models.SkippedSeries{
					Sector:       sector,
					EnergySource: source,
					Reason:       fmt.Sprintf("insufficient history: %d years, need at least %d", len(obs), window+1),
				})
				continue
			}
			pooled = append(pooled, samples...)
			rollable = append(rollable, series{sector: sector, source: source, observations: obs})
		}
	}
	if len(rollable) == 0 {
		return resp, nil
	}

	model, err := forecast.Train(ctx, pooled, h.trainConfig(window))
	if err != nil {
		return resp, fmt.Errorf("training failed: %w", err)
	}
	arch := architecture(model.Net)

	for _, s := range rollable {
		last := s.observations[len(s.observations)-1]
		adj := sc.Adjustment(s.sector, s.source, last.Year)

		points, err := model.Rollout(s.observations, horizon, adj)
		if err != nil {
			if errors.Is(err, forecast.ErrInsufficientData) {
				resp.Skipped = append(resp.Skipped, models.SkippedSeries{
					Sector:       s.sector,
					EnergySource: s.source,
					Reason:       err.Error(),
				})
				continue
			}
			return resp, err
		}
		if err := h.store.SaveForecasts(sc.ID, arch, model.Fitness, points); err != nil {
			return resp, err
		}
		resp.Forecasts = append(resp.Forecasts, models.SeriesForecast{
			Sector:       s.sector,
			EnergySource: s.source,
			Architecture: arch,
			Accuracy:     model.Fitness,
			Points:       points,
		})
	}
	return resp, nil
}

func (h *Handler) trainConfig(window int) forecast.TrainConfig {
	f := h.cfg.Forecast
	return forecast.TrainConfig{
		Window:             window,
		Hidden1:            f.Hidden1,
		Hidden2:            f.Hidden2,
		LearningRate:       f.LearningRate,
		Epochs:             f.Epochs,
		SearchArchitecture: f.SearchArchitecture,
		Seed:               f.Seed,
		PSO: forecast.SwarmConfig{
			Particles:  f.Particles,
			Iterations: f.Iterations,
			Inertia:    f.Inertia,
			Cognitive:  f.Cognitive,
			Social:     f.Social,
			Workers:    f.Workers,
		},
	}
}

// architecture renders a network shape as e.g. "16-8-1" or "16-10-5-1".
func architecture(n forecast.Network) string {
	if n.Hidden2 > 0 {
		return fmt.Sprintf("%d-%d-%d-1", n.InputSize, n.Hidden1, n.Hidden2)
	}
	return fmt.Sprintf("%d-%d-1", n.InputSize, n.Hidden1)
}

// handleListForecasts returns stored forecasts, optionally for one scenario
func (h *Handler) handleListForecasts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListForecasts(r.URL.Query().Get("scenario"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// handleScenarioEmissions computes emissions over a scenario's stored
// forecasts using the configured emission factors.
func (h *Handler) handleScenarioEmissions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.store.GetScenario(id); err != nil {
		h.respondStoreError(w, err)
		return
	}

	calcs, err := emission.ForScenario(h.store, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	totals := emission.Totals(calcs)
	totals.ScenarioID = id

	respondJSON(w, http.StatusOK, models.EmissionsResponse{
		ScenarioID:   id,
		Calculations: calcs,
		Totals:       totals,
	})
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
