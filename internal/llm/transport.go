//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hybridrag/corerag/internal/apperror"
)

// Transport is the JSON-over-HTTP plumbing every provider client shares:
// one base URL, a provider-specific header set, and a bounded HTTP client.
// Providers differ only in headers, paths, and payload schemas, so the
// request mechanics live here once.
type Transport struct {
	HTTPClient *http.Client
	BaseURL    string
	Headers    map[string]string
}

// NewTransport builds a Transport with the given base URL, per-request
// timeout, and static header set (auth, API version).
func NewTransport(baseURL string, timeout time.Duration, headers map[string]string) *Transport {
	return &Transport{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    baseURL,
		Headers:    headers,
	}
}

// PostJSON marshals body and POSTs it to BaseURL+path. The caller owns
// closing the response body and mapping non-200 statuses through
// DecodeAPIError with the operation's error code.
func (t *Transport) PostJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.HTTPClient.Do(req)
}

// DecodeAPIError turns a non-200 provider response into a typed
// application error, so the retrieval and generation layers downstream
// switch on the taxonomy code (embedding vs. LLM failure) rather than on
// provider-shaped errors. extract pulls the human-readable message out of
// the provider's error body schema; a nil or failing extract falls back to
// the raw body.
func DecodeAPIError(code apperror.Code, provider string, resp *http.Response, extract func([]byte) string) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.New(code, fmt.Sprintf("%s: status %d: unreadable error body", provider, resp.StatusCode))
	}

	msg := ""
	if extract != nil {
		msg = extract(body)
	}
	if msg == "" {
		msg = string(body)
	}

	return apperror.New(code, fmt.Sprintf("%s: status %d: %s", provider, resp.StatusCode, msg))
}
