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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPStore_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("expected path /search, got %s", r.URL.Path)
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.IndexID != "btp_v" {
			t.Errorf("expected index_id btp_v, got %s", req.IndexID)
		}

		hits := []searchHit{
			{PointID: "p1", Score: 0.91},
			{PointID: "p2", Score: 0.80},
		}
		hits[0].Payload.Text = "chunk one"
		hits[0].Payload.Title = "Doc A"
		hits[0].Payload.SourceURL = "https://example.com/a"
		hits[1].Payload.Text = "chunk two"

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(hits); err != nil {
			t.Fatalf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL)
	results, err := store.Search(context.Background(), "btp_v", []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].PointID != "p1" || results[0].Chunk.Title != "Doc A" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
}

func TestHTTPStore_Search_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL)
	if _, err := store.Search(context.Background(), "idx", []float32{0.1}, 5); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestClampTopK(t *testing.T) {
	cases := map[int]int{
		0:   DefaultTopK,
		-5:  DefaultTopK,
		3:   3,
		64:  64,
		200: MaxTopK,
	}
	for in, want := range cases {
		if got := ClampTopK(in); got != want {
			t.Errorf("ClampTopK(%d) = %d, want %d", in, got, want)
		}
	}
}
