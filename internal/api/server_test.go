package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/scholarlab/datastet/internal/classifier"
	"github.com/scholarlab/datastet/internal/config"
	"github.com/scholarlab/datastet/internal/pipeline"
)

const testKey = "secret-key"

// staticGateway serves one fixed binary score for every sentence.
type staticGateway struct{}

func (staticGateway) ClassifyBinary(ctx context.Context, texts []string) ([]*classifier.BinaryScore, error) {
	out := make([]*classifier.BinaryScore, len(texts))
	for i := range texts {
		out[i] = &classifier.BinaryScore{HasDataset: 0.95, NoDataset: 0.05}
	}
	return out, nil
}

func (staticGateway) ClassifyDataType(ctx context.Context, texts []string) ([]*classifier.TypeScores, error) {
	out := make([]*classifier.TypeScores, len(texts))
	for i := range texts {
		out[i] = &classifier.TypeScores{Scores: []classifier.TypeScore{{Name: "Generic data", Prob: 0.8}}}
	}
	return out, nil
}

func (staticGateway) ClassifyReuse(ctx context.Context, texts []string) ([]*classifier.ReuseScore, error) {
	out := make([]*classifier.ReuseScore, len(texts))
	for i := range texts {
		out[i] = &classifier.ReuseScore{Reuse: 0.1, NotReuse: 0.9}
	}
	return out, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:         testKey,
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}
	orch := pipeline.NewOrchestrator(cfg, staticGateway{}, nil, nil, nil, log)
	return NewServer(orch, nil, log, cfg)
}

func TestHealth_NoAuthRequired(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_MissingAndWrongKey(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/lexicon/check?value=x", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing auth: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/lexicon/check?value=x", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_LogsRejection(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := AuthMiddleware(testKey, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/api/classify", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "/api/classify") {
		t.Errorf("rejection should be logged with the path: %q", buf.String())
	}
}

func TestRequestLogger_RecordsStatusAndSize(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("queued"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/annotate/x/status", nil))

	line := buf.String()
	for _, want := range []string{"status=202", "bytes=6", "path=/api/annotate/x/status"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %q: %q", want, line)
		}
	}
}

func TestLexiconCheck(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/lexicon/check?value=https://zenodo.org/record/1", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["dataset_url"] != true {
		t.Errorf("zenodo URL should be recognized: %v", body)
	}
}

func TestClassify_Sync(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/classify",
		strings.NewReader(`{"sentences": ["The dataset is on Zenodo."]}`))
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Classifications []struct {
			HasDataset float64 `json:"has_dataset"`
			Qualifies  bool    `json:"qualifies"`
			BestType   string  `json:"best_type"`
		} `json:"classifications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(body.Classifications) != 1 {
		t.Fatalf("expected 1 verdict, got %d", len(body.Classifications))
	}
	v := body.Classifications[0]
	if !v.Qualifies || v.BestType != "Generic data" || v.HasDataset != 0.95 {
		t.Errorf("unexpected verdict %+v", v)
	}
}

func TestClassify_EmptyInputRejected(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader(`{"sentences": []}`))
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAnnotateStatus_UnknownJob(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/annotate/nope/status", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestListRuns_PersistenceDisabled(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a run store, got %d", rec.Code)
	}
}
