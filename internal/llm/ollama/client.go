//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package ollama provides embedding and chat-completion providers over a
// local Ollama daemon, the default self-hosted path when no cloud API key
// is configured. No authentication headers; the daemon is assumed to be
// reachable only from trusted networks.
package ollama

import (
	"context"
	"net/http"
	"time"

	"github.com/hybridrag/corerag/internal/apperror"
	"github.com/hybridrag/corerag/internal/llm"
)

const (
	defaultBaseURL        = "http://localhost:11434"
	defaultEmbeddingModel = "nomic-embed-text"
	defaultChatModel      = "llama3.2"
	defaultTimeout        = 120 * time.Second // local models can be slow to first token
)

// Client carries the shared transport for both provider kinds.
type Client struct {
	transport *llm.Transport
}

// NewClient creates an Ollama client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		transport: llm.NewTransport(defaultBaseURL, defaultTimeout, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.transport.BaseURL = url }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(seconds int) ClientOption {
	return func(c *Client) { c.transport.HTTPClient.Timeout = time.Duration(seconds) * time.Second }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.transport.HTTPClient = client }
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.transport.PostJSON(ctx, path, body)
}

// parseError maps a non-200 response to the taxonomy code of the failed
// operation. Ollama error bodies are plain text, so no envelope parsing.
func parseError(code apperror.Code, resp *http.Response) error {
	return llm.DecodeAPIError(code, "ollama", resp, nil)
}
