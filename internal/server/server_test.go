//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hybridrag/corerag/internal/auth"
	"github.com/hybridrag/corerag/internal/config"
	"github.com/hybridrag/corerag/internal/course"
	"github.com/hybridrag/corerag/internal/lemmatizer"
	"github.com/hybridrag/corerag/internal/lexicalstore"
	"github.com/hybridrag/corerag/internal/llm"
	"github.com/hybridrag/corerag/internal/qcm"
	"github.com/hybridrag/corerag/internal/ragengine"
	"github.com/hybridrag/corerag/internal/registry"
	"github.com/hybridrag/corerag/internal/retriever"
	"github.com/hybridrag/corerag/internal/vectorstore"
)

type fakeVectorStore struct{}

func (fakeVectorStore) Search(_ context.Context, _ string, _ []float32, _ int) ([]vectorstore.Result, error) {
	return nil, nil
}

type fakeLexicalStore struct{}

func (fakeLexicalStore) Search(_ context.Context, _ string, _ string, _ int) ([]lexicalstore.Result, error) {
	return nil, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) { return []float32{0.1}, nil }
func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}
func (fakeEmbedder) Dimensions() int   { return 1 }
func (fakeEmbedder) ModelName() string { return "fake" }

// fakeCompletionProvider answers with a single fixed sentence, both for
// one-shot Complete calls and for CompleteStream.
type fakeCompletionProvider struct{}

func (fakeCompletionProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: "42"}, nil
}

func (fakeCompletionProvider) CompleteStream(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamChunk, <-chan error) {
	out := make(chan llm.StreamChunk, 1)
	errs := make(chan error, 1)
	out <- llm.StreamChunk{Kind: llm.ChunkContent, Content: "hello"}
	close(out)
	close(errs)
	return out, errs
}

func (fakeCompletionProvider) ModelName() string { return "fake-model" }

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testServer wires a Server against an in-memory collection, backed by
// fakes that never touch a network, so the HTTP surface can be exercised
// without a live vector store, lexical store, or LLM.
func testServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{ListenAddress: "127.0.0.1", Port: 8080},
		RAG:    config.RAGConfig{Temperature: 0.7, DefaultTopK: 5, MaxTokens: 2048},
	}

	reg := registry.New(map[string]registry.Collection{
		"demo": {VectorIndexID: "demo_v", LexicalIndexID: "demo_l"},
	})

	r := retriever.New(reg, fakeVectorStore{}, fakeLexicalStore{}, fakeEmbedder{}, lemmatizer.New(nil), 0.5, 0.5, silentLogger())

	deps := Deps{
		Registry: reg,
		Auth:     auth.ParseTokens(""),
		RAG:      ragengine.New(r, fakeCompletionProvider{}, cfg.RAG, config.ServicesConfig{}, silentLogger()),
		Course:   course.New(r, fakeCompletionProvider{}, config.CourseConfig{}, config.ServicesConfig{}, silentLogger()),
		QCM:      qcm.New(r, fakeCompletionProvider{}, nil, config.QCMConfig{}, config.ServicesConfig{}, silentLogger()),
	}

	return New(cfg, deps, silentLogger())
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got '%s'", resp["status"])
	}
}

func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, w.Code)
	}
}

func TestModelsEndpoints(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{"/rag/api/models", "/course/api/models", "/qcm/api/models"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusOK, w.Code)
		}

		var resp modelsResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("%s: failed to decode response: %v", path, err)
		}
		if len(resp.Data) != 1 || resp.Data[0].ID != "demo" {
			t.Errorf("%s: expected one model named 'demo', got %+v", path, resp.Data)
		}
	}
}

func TestRAGChat_UnknownCollection(t *testing.T) {
	srv := testServer(t)

	body := bytes.NewBufferString(`{"model": "nope", "messages": [{"role": "user", "content": "hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/rag/api/chat/completions", body)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Code != "unknown_collection" {
		t.Errorf("expected code 'unknown_collection', got %q", resp.Error.Code)
	}
}

func TestRAGChat_MalformedRequest(t *testing.T) {
	srv := testServer(t)

	body := bytes.NewBufferString(`not json`)
	req := httptest.NewRequest(http.MethodPost, "/rag/api/chat/completions", body)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestRAGChat_ZeroTopKRejected(t *testing.T) {
	srv := testServer(t)

	body := bytes.NewBufferString(`{"model": "demo", "top_k": 0, "messages": [{"role": "user", "content": "hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/rag/api/chat/completions", body)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d for top_k=0, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestRAGChat_NonStreaming(t *testing.T) {
	srv := testServer(t)

	body := bytes.NewBufferString(`{"model": "demo", "messages": [{"role": "user", "content": "what is it?"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/rag/api/chat/completions", body)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["object"] != "chat.completion" {
		t.Errorf("expected object 'chat.completion', got %v", resp["object"])
	}
}

func TestQCMChat_ParameterCollection(t *testing.T) {
	srv := testServer(t)

	body := bytes.NewBufferString(`{"model": "demo", "messages": [{"role": "user", "content": "photosynthesis"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/qcm/api/chat/completions", body)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	choices, _ := resp["choices"].([]any)
	if len(choices) != 1 {
		t.Fatalf("expected one choice, got %v", resp["choices"])
	}
	msg, _ := choices[0].(map[string]any)["message"].(map[string]any)
	content, _ := msg["content"].(string)
	if !strings.Contains(content, "difficulty") {
		t.Errorf("expected the difficulty re-prompt, got %q", content)
	}
}

func TestQCMChat_MissingUserMessage(t *testing.T) {
	srv := testServer(t)

	body := bytes.NewBufferString(`{"model": "demo", "messages": [{"role": "assistant", "content": "hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/qcm/api/chat/completions", body)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestRequireAuth_RejectsMissingToken(t *testing.T) {
	srv := testServer(t)
	srv.auth = auth.ParseTokens("secret-token:u1:alice")

	req := httptest.NewRequest(http.MethodGet, "/rag/api/models", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestRequireAuth_AcceptsValidToken(t *testing.T) {
	srv := testServer(t)
	srv.auth = auth.ParseTokens("secret-token:u1:alice")

	req := httptest.NewRequest(http.MethodGet, "/rag/api/models", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestOpenAPIEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}

	link := w.Header().Get("Link")
	if !strings.Contains(link, `rel="service-desc"`) {
		t.Errorf("Link header should contain rel=\"service-desc\", got '%s'", link)
	}

	var spec map[string]any
	if err := json.NewDecoder(w.Body).Decode(&spec); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, field := range []string{"openapi", "info", "paths", "components"} {
		if spec[field] == nil {
			t.Errorf("OpenAPI spec missing %q field", field)
		}
	}
	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected OpenAPI version '3.0.3', got %v", spec["openapi"])
	}
}

func TestRFC8631LinkHeader(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{"/healthz", "/rag/api/models", "/v1/openapi.json"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.mux.ServeHTTP(w, req)

		link := w.Header().Get("Link")
		if !strings.Contains(link, "</v1/openapi.json>") || !strings.Contains(link, `rel="service-desc"`) {
			t.Errorf("%s: expected RFC 8631 Link header, got %q", path, link)
		}
	}
}

func TestRespondAppErrorMapsCodes(t *testing.T) {
	srv := &Server{logger: silentLogger()}

	cases := map[error]int{
		errors.New("opaque"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		w := httptest.NewRecorder()
		srv.respondAppError(w, err)
		if w.Code != want {
			t.Errorf("%v: expected status %d, got %d", err, want, w.Code)
		}
	}
}
