package relevance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/scholarlab/datastet/internal/classifier"
)

// Client calls the external section-relevance sequence model over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type labelSegment struct {
	Text        string `json:"text"`
	Kind        string `json:"kind"`
	NbDatasets  int    `json:"nb_datasets"`
	DatasetType string `json:"dataset_type"`
}

type labelRequest struct {
	Segments []labelSegment `json:"segments"`
}

type labelResponse struct {
	Relevance []bool `json:"relevance"`
}

// Label submits the feature sequences and returns one boolean per
// segment, in segment order. Empty input returns an empty result
// without a network call.
func (c *Client) Label(ctx context.Context, feats *Features) ([]bool, error) {
	if feats.Len() == 0 {
		return nil, nil
	}

	segments := make([]labelSegment, feats.Len())
	for i := range feats.Segments {
		segments[i] = labelSegment{
			Text:        feats.Segments[i],
			Kind:        feats.Kinds[i],
			NbDatasets:  feats.DatasetCounts[i],
			DatasetType: feats.DatasetTypes[i],
		}
	}

	body, err := json.Marshal(labelRequest{Segments: segments})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/label", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("relevance model: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &classifier.RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relevance model status %d: %s", resp.StatusCode, respBody)
	}

	var parsed labelResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return parsed.Relevance, nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
