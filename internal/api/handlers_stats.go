package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleClassifierStats(w http.ResponseWriter, r *http.Request) {
	if s.classifier == nil {
		jsonError(w, "classifier stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"models":      s.classifier.Stats(),
	})
}
