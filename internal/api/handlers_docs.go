package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/scholarlab/datastet/internal/runstore"
)

// handleListRuns lists persisted annotation runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := s.orchestrator.RunStore()
	if runs == nil {
		jsonError(w, "run persistence disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	list, err := runs.List(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": list})
}

// handleGetRun returns the annotated document of a persisted run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runs := s.orchestrator.RunStore()
	if runs == nil {
		jsonError(w, "run persistence disabled", http.StatusServiceUnavailable)
		return
	}

	runID := chi.URLParam(r, "runID")
	run, err := runs.Get(r.Context(), runID)
	if errors.Is(err, runstore.ErrNotFound) {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to get run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write([]byte(run.TEI))
}

// handleDeleteRun removes a persisted run.
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	runs := s.orchestrator.RunStore()
	if runs == nil {
		jsonError(w, "run persistence disabled", http.StatusServiceUnavailable)
		return
	}

	runID := chi.URLParam(r, "runID")
	err := runs.Delete(r.Context(), runID)
	if errors.Is(err, runstore.ErrNotFound) {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": runID})
}
