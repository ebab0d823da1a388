//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package openai provides OpenAI-compatible embedding and chat-completion
// providers. The same client also fronts self-hosted gateways (vLLM and
// similar) that speak the OpenAI wire format, which is why the base URL is
// an option rather than a constant.
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hybridrag/corerag/internal/apperror"
	"github.com/hybridrag/corerag/internal/llm"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultChatModel      = "gpt-4o-mini"
	defaultTimeout        = 60 * time.Second
)

// Client carries the shared transport for both provider kinds (embedding
// and completion) this package implements.
type Client struct {
	transport *llm.Transport
}

// NewClient creates a client authenticated by bearer token.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		transport: llm.NewTransport(defaultBaseURL, defaultTimeout, map[string]string{
			"Authorization": "Bearer " + apiKey,
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different OpenAI-compatible endpoint.
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
// operation (embedding vs. completion), extracting the message from the
// OpenAI error envelope when present.
func parseError(code apperror.Code, resp *http.Response) error {
	return llm.DecodeAPIError(code, "openai", resp, func(body []byte) string {
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil {
			return e.Error.Message
		}
		return ""
	})
}
