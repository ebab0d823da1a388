//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package fileserver uploads generated artifacts (QCM JSON payloads) to the
// collaborator fileserver and returns their public URL. A failed upload is
// a degraded-mode condition, not a fatal one: callers decide whether to
// surface the artifact inline instead.
package fileserver

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

const defaultTimeout = 30 * time.Second

// Client uploads artifacts to the fileserver.
type Client struct {
	httpClient *http.Client
	uploadURL  string
	publicBase string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// NewClient builds a Client. uploadURL is the fileserver's ingestion
// endpoint; publicBase is prefixed to the returned object key to build the
// public URL handed back to callers.
func NewClient(uploadURL, publicBase string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		uploadURL:  uploadURL,
		publicBase: publicBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type uploadResponse struct {
	Key string `json:"key"`
}

// Upload PUTs the artifact bytes under the given name and returns its
// public URL.
func (c *Client) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.uploadURL+"/"+name, bytes.NewReader(data))
	if err != nil {
		return "", apperror.Wrap(apperror.CodeFileserverFailure, "building upload request", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperror.Wrap(apperror.CodeFileserverFailure, "uploading artifact", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", apperror.New(apperror.CodeFileserverFailure, fmt.Sprintf("fileserver returned status %d: %s", resp.StatusCode, string(body)))
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil || decoded.Key == "" {
		// The fileserver may not echo a key; fall back to the name we sent.
		decoded.Key = name
	}

	return c.publicBase + "/" + decoded.Key, nil
}
