package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/scholarlab/datastet/internal/cascade"
	"github.com/scholarlab/datastet/internal/classifier"
)

type classifyRequest struct {
	Sentences []string `json:"sentences"`
}

type classifyVerdict struct {
	Text       string                 `json:"text"`
	HasDataset float64                `json:"has_dataset"`
	NoDataset  float64                `json:"no_dataset"`
	Qualifies  bool                   `json:"qualifies"`
	BestType   string                 `json:"best_type,omitempty"`
	TypeScores []classifier.TypeScore `json:"type_scores,omitempty"`
	Reuse      bool                   `json:"reuse"`
}

// handleClassify runs the classifier cascade on raw sentences, without a
// document. Each call gets a fresh fusion, so nothing leaks between
// requests.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Sentences) == 0 {
		jsonError(w, "sentences is required", http.StatusBadRequest)
		return
	}

	fusion := cascade.NewFusion(s.orchestrator.Gateway(), s.log)
	verdicts, err := fusion.ClassifyBatch(r.Context(), req.Sentences)
	if err != nil {
		var unavail *classifier.UnavailableError
		if errors.As(err, &unavail) {
			jsonError(w, err.Error(), http.StatusBadGateway)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]*classifyVerdict, len(verdicts))
	for i, v := range verdicts {
		if v == nil {
			continue
		}
		best, _ := v.BestType()
		out[i] = &classifyVerdict{
			Text:       v.Text,
			HasDataset: v.HasDataset,
			NoDataset:  v.NoDataset,
			Qualifies:  v.Qualifies(),
			BestType:   best,
			TypeScores: v.TypeScores,
			Reuse:      v.Reuse,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"classifications": out})
}

// handleLexiconCheck tests a URL, DOI or candidate name against the
// embedded lexical resources.
func (s *Server) handleLexiconCheck(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")
	if value == "" {
		jsonError(w, "value query parameter is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"value":       value,
		"dataset_url": s.lex.IsDatasetURL(value),
		"dataset_doi": s.lex.IsDatasetDOI(value),
		"blacklisted": s.lex.IsBlacklistedDatasetName(value),
	})
}
