//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package retriever

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hybridrag/corerag/internal/apperror"
	"github.com/hybridrag/corerag/internal/chunk"
	"github.com/hybridrag/corerag/internal/lemmatizer"
	"github.com/hybridrag/corerag/internal/lexicalstore"
	"github.com/hybridrag/corerag/internal/registry"
	"github.com/hybridrag/corerag/internal/vectorstore"
)

type fakeVectorStore struct {
	results []vectorstore.Result
	err     error
}

func (f *fakeVectorStore) Search(_ context.Context, _ string, _ []float32, _ int) ([]vectorstore.Result, error) {
	return f.results, f.err
}

type fakeLexicalStore struct {
	results []lexicalstore.Result
	err     error
}

func (f *fakeLexicalStore) Search(_ context.Context, _ string, _ string, _ int) ([]lexicalstore.Result, error) {
	return f.results, f.err
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) { return []float32{0.1}, nil }
func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	return out, nil
}
func (fakeEmbedder) Dimensions() int    { return 1 }
func (fakeEmbedder) ModelName() string  { return "fake" }

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	return registry.New(map[string]registry.Collection{
		"btp": {VectorIndexID: "btp_v", LexicalIndexID: "btp_l"},
	})
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func vr(id string) vectorstore.Result {
	return vectorstore.Result{PointID: id, Chunk: chunk.Chunk{PointID: id, Text: id}}
}

func lr(id string) lexicalstore.Result {
	return lexicalstore.Result{PointID: id, Chunk: chunk.Chunk{PointID: id, Text: id}}
}

// TestRetrieve_BasicFusion: vector [A,B,C], lexical [B,D,A], weights
// 0.5/0.5. B appears at rank 1+2, A at 1+3, D lexical-only at 2, C
// vector-only at 3, so the fused order is B, A, D, C.
func TestRetrieve_BasicFusion(t *testing.T) {
	vs := &fakeVectorStore{results: []vectorstore.Result{vr("A"), vr("B"), vr("C")}}
	ls := &fakeLexicalStore{results: []lexicalstore.Result{lr("B"), lr("D"), lr("A")}}

	r := New(testRegistry(t), vs, ls, fakeEmbedder{}, lemmatizer.New(nil), 0.5, 0.5, silentLogger())

	got, err := r.Retrieve(context.Background(), "btp", "question", 8, 3)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	want := []string{"B", "A", "D"}
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d: %+v", len(want), len(got), got)
	}
	for i, id := range want {
		if got[i].PointID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].PointID)
		}
	}
}

func TestRetrieve_UnknownCollection(t *testing.T) {
	vs := &fakeVectorStore{}
	ls := &fakeLexicalStore{}
	r := New(testRegistry(t), vs, ls, fakeEmbedder{}, lemmatizer.New(nil), 0.5, 0.5, silentLogger())

	_, err := r.Retrieve(context.Background(), "missing", "q", 8, 5)
	if !apperror.Is(err, apperror.CodeUnknownCollection) {
		t.Fatalf("expected CodeUnknownCollection, got %v", err)
	}
}

// TestRetrieve_PartialFailure: the lexical backend fails, vector returns
// 5 chunks, retrieval proceeds on the vector ranking alone.
func TestRetrieve_PartialFailure(t *testing.T) {
	vs := &fakeVectorStore{results: []vectorstore.Result{vr("A"), vr("B"), vr("C"), vr("D"), vr("E")}}
	ls := &fakeLexicalStore{err: errors.New("timeout")}

	r := New(testRegistry(t), vs, ls, fakeEmbedder{}, lemmatizer.New(nil), 0.5, 0.5, silentLogger())

	got, err := r.Retrieve(context.Background(), "btp", "q", 8, 5)
	if err != nil {
		t.Fatalf("expected partial success, got error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 results, got %d", len(got))
	}
	for i, id := range []string{"A", "B", "C", "D", "E"} {
		if got[i].PointID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].PointID)
		}
	}
}

func TestRetrieve_BothBackendsFail(t *testing.T) {
	vs := &fakeVectorStore{err: errors.New("boom")}
	ls := &fakeLexicalStore{err: errors.New("boom")}

	r := New(testRegistry(t), vs, ls, fakeEmbedder{}, lemmatizer.New(nil), 0.5, 0.5, silentLogger())

	_, err := r.Retrieve(context.Background(), "btp", "q", 8, 5)
	if !apperror.Is(err, apperror.CodeRetrievalUnavailable) {
		t.Fatalf("expected CodeRetrievalUnavailable, got %v", err)
	}
}

// TestRetrieve_NoDuplicatePointIDs: the result set carries distinct
// point_ids and never exceeds final_k.
func TestRetrieve_NoDuplicatePointIDs(t *testing.T) {
	vs := &fakeVectorStore{results: []vectorstore.Result{vr("A"), vr("B")}}
	ls := &fakeLexicalStore{results: []lexicalstore.Result{lr("A"), lr("C")}}

	r := New(testRegistry(t), vs, ls, fakeEmbedder{}, lemmatizer.New(nil), 0.5, 0.5, silentLogger())

	got, err := r.Retrieve(context.Background(), "btp", "q", 8, 10)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, c := range got {
		if seen[c.PointID] {
			t.Fatalf("duplicate point_id %s", c.PointID)
		}
		seen[c.PointID] = true
	}
	if len(got) > 10 {
		t.Fatalf("expected len <= final_k, got %d", len(got))
	}
}

// TestRetrieve_Deterministic: identical inputs produce identical
// orderings.
func TestRetrieve_Deterministic(t *testing.T) {
	vs := &fakeVectorStore{results: []vectorstore.Result{vr("A"), vr("B"), vr("C")}}
	ls := &fakeLexicalStore{results: []lexicalstore.Result{lr("B"), lr("D"), lr("A")}}
	r := New(testRegistry(t), vs, ls, fakeEmbedder{}, lemmatizer.New(nil), 0.5, 0.5, silentLogger())

	first, err := r.Retrieve(context.Background(), "btp", "q", 8, 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	second, err := r.Retrieve(context.Background(), "btp", "q", 8, 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].PointID != second[i].PointID {
			t.Fatalf("ordering mismatch at %d: %s vs %s", i, first[i].PointID, second[i].PointID)
		}
	}
}

// TestRetrieve_BM25Only checks the algebraic law: bm25_weight=1,
// vector_weight=0 returns exactly the BM25 top-final_k in order.
func TestRetrieve_BM25Only(t *testing.T) {
	vs := &fakeVectorStore{results: []vectorstore.Result{vr("A"), vr("B"), vr("C")}}
	ls := &fakeLexicalStore{results: []lexicalstore.Result{lr("X"), lr("Y"), lr("Z")}}
	r := New(testRegistry(t), vs, ls, fakeEmbedder{}, lemmatizer.New(nil), 1.0, 0.0, silentLogger())

	got, err := r.Retrieve(context.Background(), "btp", "q", 8, 3)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	want := []string{"X", "Y", "Z"}
	for i, id := range want {
		if got[i].PointID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].PointID)
		}
	}
}
