//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hybridrag/corerag/internal/chunk"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPStore calls an external vector search service over HTTP. This is the
// production path; the service owns embedding storage and ANN indexing.
type HTTPStore struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPStore creates an HTTPStore against baseURL.
func NewHTTPStore(baseURL string, opts ...HTTPOption) *HTTPStore {
	s := &HTTPStore{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:    baseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HTTPOption configures an HTTPStore.
type HTTPOption func(*HTTPStore)

// WithHTTPClient overrides the client (used by tests to point at an
// httptest.Server).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPStore) { s.httpClient = c }
}

type searchRequest struct {
	IndexID string    `json:"index_id"`
	Vector  []float32 `json:"vector"`
	TopK    int       `json:"top_k"`
}

type searchHit struct {
	PointID string `json:"point_id"`
	Score   float64 `json:"score"`
	Payload struct {
		Text        string            `json:"text"`
		Title       string            `json:"title"`
		SourceURL   string            `json:"source_url"`
		SectionPath []string          `json:"section_path,omitempty"`
		TokenCount  int               `json:"token_count,omitempty"`
		ExtraTags   map[string]string `json:"extra_tags,omitempty"`
	} `json:"payload"`
}

// Search implements Store by POSTing to {baseURL}/search.
func (s *HTTPStore) Search(ctx context.Context, indexID string, vector []float32, topK int) ([]Result, error) {
	topK = ClampTopK(topK)

	body, err := json.Marshal(searchRequest{IndexID: indexID, Vector: vector, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vectorstore: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vectorstore: status %d: %s", resp.StatusCode, string(respBody))
	}

	var hits []searchHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("vectorstore: decode response: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			PointID: h.PointID,
			Score:   h.Score,
			Chunk: chunk.Chunk{
				PointID:     h.PointID,
				Text:        h.Payload.Text,
				Title:       h.Payload.Title,
				SourceURL:   h.Payload.SourceURL,
				SectionPath: h.Payload.SectionPath,
				TokenCount:  h.Payload.TokenCount,
				ExtraTags:   h.Payload.ExtraTags,
			},
		})
	}

	return results, nil
}

var _ Store = (*HTTPStore)(nil)
