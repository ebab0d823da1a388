//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package anthropic provides a chat-completion provider over the
// Anthropic Messages API, including the thinking-block stream parsing the
// engines use for progress narration. Anthropic exposes no embedding API,
// so this package implements only the completion side.
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hybridrag/corerag/internal/apperror"
	"github.com/hybridrag/corerag/internal/llm"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	defaultModel   = "claude-sonnet-4-20250514"
	defaultTimeout = 60 * time.Second
	apiVersion     = "2023-06-01"
)

// Client carries the shared transport, authenticated by API key header.
type Client struct {
	transport *llm.Transport
}

// NewClient creates an Anthropic client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		transport: llm.NewTransport(defaultBaseURL, defaultTimeout, map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": apiVersion,
		}),
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

// parseError maps a non-200 response to an LLM-failure taxonomy error,
// extracting the message from Anthropic's error envelope when present.
func parseError(resp *http.Response) error {
	return llm.DecodeAPIError(apperror.CodeLLMFailure, "anthropic", resp, func(body []byte) string {
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
