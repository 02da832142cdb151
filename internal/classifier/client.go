package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Model names exposed by the classification service.
const (
	ModelBinary   = "dataseer-binary"
	ModelDataType = "dataseer-first"
	ModelReuse    = "dataseer-reuse"
)

// Reserved response fields that are never part of the datatype taxonomy.
var reservedFields = map[string]bool{
	"text":        true,
	"has_dataset": true,
	"no_dataset":  true,
	"dataset":     true,
	"reuse":       true,
	"not_reuse":   true,
}

// BinaryScore is the dataset/no-dataset verdict for one sentence.
type BinaryScore struct {
	HasDataset float64
	NoDataset  float64
}

// TypeScore is one datatype class probability. Scores keep the wire
// field order of the response, which drives the best-type tie-break.
type TypeScore struct {
	Name string
	Prob float64
}

// TypeScores is the first-level datatype verdict for one sentence.
type TypeScores struct {
	Scores []TypeScore
}

// ReuseScore is the reuse/not-reuse verdict for one sentence.
type ReuseScore struct {
	Reuse    float64
	NotReuse float64
}

// Client calls the classification service that fronts the three text
// classifiers. Calls are stateless; retry policy belongs to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	stats      *Stats
}

func NewClient(baseURL string, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		log:   log,
		stats: NewStats(time.Hour),
	}
}

type classifyRequest struct {
	Texts []string `json:"texts"`
}

type classifyResponse struct {
	Model           string            `json:"model"`
	Classifications []json.RawMessage `json:"classifications"`
}

// ClassifyBinary runs the binary dataset/no-dataset model on a batch.
// The result has one entry per input text in input order; an entry is
// nil when the record for that sentence was missing a required field.
func (c *Client) ClassifyBinary(ctx context.Context, texts []string) ([]*BinaryScore, error) {
	records, err := c.classify(ctx, ModelBinary, texts)
	if err != nil {
		return nil, err
	}
	out := make([]*BinaryScore, len(records))
	for i, rec := range records {
		// the wire exposes the positive class as "dataset"
		has, okHas := rec.number("dataset")
		if !okHas {
			has, okHas = rec.number("has_dataset")
		}
		no, okNo := rec.number("no_dataset")
		if !okHas || !okNo {
			c.log.Warn("binary classification record incomplete, dropping verdict", "index", i)
			continue
		}
		out[i] = &BinaryScore{HasDataset: has, NoDataset: no}
	}
	return out, nil
}

// ClassifyDataType runs the first-level datatype model on a batch. Class
// probabilities are returned in wire order, reserved fields excluded.
func (c *Client) ClassifyDataType(ctx context.Context, texts []string) ([]*TypeScores, error) {
	records, err := c.classify(ctx, ModelDataType, texts)
	if err != nil {
		return nil, err
	}
	out := make([]*TypeScores, len(records))
	for i, rec := range records {
		ts := &TypeScores{}
		for _, f := range rec.fields {
			if reservedFields[f.name] || !f.numeric {
				continue
			}
			ts.Scores = append(ts.Scores, TypeScore{Name: f.name, Prob: f.value})
		}
		out[i] = ts
	}
	return out, nil
}

// ClassifyReuse runs the reuse model on a batch.
func (c *Client) ClassifyReuse(ctx context.Context, texts []string) ([]*ReuseScore, error) {
	records, err := c.classify(ctx, ModelReuse, texts)
	if err != nil {
		return nil, err
	}
	out := make([]*ReuseScore, len(records))
	for i, rec := range records {
		reuse, okReuse := rec.number("reuse")
		notReuse, okNot := rec.number("not_reuse")
		if !okReuse || !okNot {
			c.log.Warn("reuse classification record incomplete, dropping verdict", "index", i)
			continue
		}
		out[i] = &ReuseScore{Reuse: reuse, NotReuse: notReuse}
	}
	return out, nil
}

// classify performs one batch call and parses the per-sentence records.
// Empty input short-circuits without touching the network.
func (c *Client) classify(ctx context.Context, model string, texts []string) ([]record, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(classifyRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify/"+model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &UnavailableError{Model: model, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &UnavailableError{Model: model, Err: err}
	}
	c.stats.Record(model, time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier %s status %d: %s", model, resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed classifyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ResponseError{Model: model, Reason: "unparsable body: " + err.Error()}
	}
	if len(parsed.Classifications) != len(texts) {
		return nil, &ResponseError{
			Model:  model,
			Reason: fmt.Sprintf("expected %d classifications, got %d", len(texts), len(parsed.Classifications)),
		}
	}

	records := make([]record, len(parsed.Classifications))
	for i, raw := range parsed.Classifications {
		rec, err := parseRecord(raw)
		if err != nil {
			return nil, &ResponseError{Model: model, Reason: err.Error()}
		}
		records[i] = rec
	}
	return records, nil
}

// Stats returns a snapshot of recent call latencies per model.
func (c *Client) Stats() map[string]StatsSnapshot {
	return c.stats.Snapshot()
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// record is one classification object with field order preserved.
type record struct {
	fields []recordField
}

type recordField struct {
	name    string
	value   float64
	numeric bool
}

func (r record) number(name string) (float64, bool) {
	for _, f := range r.fields {
		if f.name == name && f.numeric {
			return f.value, true
		}
	}
	return 0, false
}

// parseRecord reads one JSON object keeping field order. Non-numeric
// fields (e.g. "text") are kept as markers but carry no value.
func parseRecord(raw json.RawMessage) (record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return record{}, fmt.Errorf("read record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return record{}, fmt.Errorf("classification record is not an object")
	}

	var rec record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return record{}, fmt.Errorf("read record key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return record{}, fmt.Errorf("unexpected record key token")
		}

		valTok, err := dec.Token()
		if err != nil {
			return record{}, fmt.Errorf("read record value: %w", err)
		}
		switch v := valTok.(type) {
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return record{}, fmt.Errorf("field %s: %w", key, err)
			}
			rec.fields = append(rec.fields, recordField{name: key, value: f, numeric: true})
		case json.Delim:
			// nested structures are unknown extras; skip them whole
			if err := skipValue(dec, v); err != nil {
				return record{}, err
			}
			rec.fields = append(rec.fields, recordField{name: key})
		default:
			rec.fields = append(rec.fields, recordField{name: key})
		}
	}
	return rec, nil
}

func skipValue(dec *json.Decoder, open json.Delim) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("skip nested value: %w", err)
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
