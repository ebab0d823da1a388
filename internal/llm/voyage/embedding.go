//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package voyage provides a Voyage AI embedding provider. Voyage is
// embedding-only, so unlike the other provider packages there is no
// completion side and the transport lives directly on the provider.
package voyage

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hybridrag/corerag/internal/apperror"
	"github.com/hybridrag/corerag/internal/llm"
)

const (
	defaultBaseURL = "https://api.voyageai.com/v1"
	defaultModel   = "voyage-3"
	defaultTimeout = 60 * time.Second
)

// EmbeddingProvider embeds query text via the Voyage API.
type EmbeddingProvider struct {
	transport  *llm.Transport
	model      string
	dimensions int
}

// NewEmbeddingProvider creates a Voyage embedding provider.
func NewEmbeddingProvider(apiKey string, opts ...EmbeddingOption) *EmbeddingProvider {
	p := &EmbeddingProvider{
		transport: llm.NewTransport(defaultBaseURL, defaultTimeout, map[string]string{
			"Authorization": "Bearer " + apiKey,
		}),
		model:      defaultModel,
		dimensions: 1024, // voyage-3
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EmbeddingOption configures the embedding provider.
type EmbeddingOption func(*EmbeddingProvider)

// WithModel sets the embedding model.
func WithModel(model string) EmbeddingOption {
	return func(p *EmbeddingProvider) { p.model = model }
}

// WithDimensions sets the expected embedding dimensions.
func WithDimensions(dims int) EmbeddingOption {
	return func(p *EmbeddingProvider) { p.dimensions = dims }
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) EmbeddingOption {
	return func(p *EmbeddingProvider) { p.transport.BaseURL = url }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(seconds int) EmbeddingOption {
	return func(p *EmbeddingProvider) { p.transport.HTTPClient.Timeout = time.Duration(seconds) * time.Second }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) EmbeddingOption {
	return func(p *EmbeddingProvider) { p.transport.HTTPClient = client }
}

type embeddingRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	InputType string   `json:"input_type,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed generates an embedding for a single text.
func (p *EmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || embeddings[0] == nil {
		return nil, apperror.New(apperror.CodeEmbeddingFailure, "voyage: no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, preserving input
// order by the index the API reports.
func (p *EmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := embeddingRequest{
		Model:     p.model,
		Input:     texts,
		InputType: "query",
	}

	resp, err := p.transport.PostJSON(ctx, "/embeddings", reqBody)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeEmbeddingFailure, "voyage: embeddings request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, llm.DecodeAPIError(apperror.CodeEmbeddingFailure, "voyage", resp, func(body []byte) string {
			var e struct {
				Detail string `json:"detail"`
			}
			if json.Unmarshal(body, &e) == nil {
				return e.Detail
			}
			return ""
		})
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, apperror.Wrap(apperror.CodeEmbeddingFailure, "voyage: decode embeddings response", err)
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range embResp.Data {
		if d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}

	return embeddings, nil
}

// Dimensions returns the dimensionality of embeddings.
func (p *EmbeddingProvider) Dimensions() int {
	return p.dimensions
}

// ModelName returns the model name.
func (p *EmbeddingProvider) ModelName() string {
	return p.model
}

var _ llm.EmbeddingProvider = (*EmbeddingProvider)(nil)
