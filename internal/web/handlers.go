package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/faultloc/internal/storage"
	"github.com/example/faultloc/localize/domain"
)

// Handlers contains HTTP handlers for the web API
type Handlers struct {
	storage storage.Storage
}

// NewHandlers creates new API handlers
func NewHandlers(storage storage.Storage) *Handlers {
	return &Handlers{storage: storage}
}

// ListRuns handles GET /api/runs/?limit=N
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts := storage.ListOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		opts.Limit = limit
	}

	uow, err := h.storage.Begin(ctx)
	if err != nil {
		http.Error(w, "Failed to begin transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer uow.Rollback()

	runs, err := uow.Runs().List(ctx, opts)
	if err != nil {
		http.Error(w, "Failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := ListRunsResponse{Runs: make([]RunSummary, 0, len(runs))}
	for _, run := range runs {
		combos, err := uow.Combinations().List(ctx, run.ID)
		if err != nil {
			http.Error(w, "Failed to list combinations: "+err.Error(), http.StatusInternalServerError)
			return
		}
		summary := convertRun(run)
		for _, c := range combos {
			if c.Confirmed {
				summary.Confirmed++
			} else {
				summary.Discarded++
			}
		}
		response.Runs = append(response.Runs, summary)
	}

	writeJSON(w, response)
}

// GetRun handles GET /api/runs/:id
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	if runID == "" || strings.Contains(runID, "/") {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	uow, err := h.storage.Begin(ctx)
	if err != nil {
		http.Error(w, "Failed to begin transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer uow.Rollback()

	run, err := uow.Runs().Get(ctx, runID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	combos, err := uow.Combinations().List(ctx, runID)
	if err != nil {
		http.Error(w, "Failed to list combinations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := RunResponse{
		Run:          convertRun(run),
		Combinations: make([]CombinationInfo, 0, len(combos)),
	}
	for _, c := range combos {
		if c.Confirmed {
			response.Run.Confirmed++
		} else {
			response.Run.Discarded++
		}
		response.Combinations = append(response.Combinations, convertCombination(c))
	}

	writeJSON(w, response)
}

// GetResults handles GET /api/runs/:id/results
func (h *Handlers) GetResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Path format: /api/runs/{id}/results
	path := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "results" {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}
	runID := parts[0]

	uow, err := h.storage.Begin(ctx)
	if err != nil {
		http.Error(w, "Failed to begin transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer uow.Rollback()

	if _, err := uow.Runs().Get(ctx, runID); err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	results, err := uow.Results().ListByRun(ctx, runID)
	if err != nil {
		http.Error(w, "Failed to list results: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := ResultsResponse{
		RunID:   runID,
		Results: make([]ResultInfo, 0, len(results)),
	}
	for _, rec := range results {
		response.Results = append(response.Results, convertResult(rec))
	}

	writeJSON(w, response)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
