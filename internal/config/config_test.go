//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Retriever.InitialK != 8 || cfg.Retriever.FinalK != 5 {
		t.Errorf("unexpected retriever defaults: %+v", cfg.Retriever)
	}
	if cfg.Retriever.BM25Weight+cfg.Retriever.VectorWeight != 1.0 {
		t.Errorf("default weights must sum to 1, got %+v", cfg.Retriever)
	}
	if cfg.RAG.MaxTokens != 4096 {
		t.Errorf("expected RAG max_tokens 4096, got %d", cfg.RAG.MaxTokens)
	}
	if cfg.QCM.RetrieverTopK != 15 || cfg.QCM.AnswerTopK != 5 {
		t.Errorf("unexpected QCM defaults: %+v", cfg.QCM)
	}
	if cfg.Course.EnhancerIterations != 3 {
		t.Errorf("expected 3 enhancer iterations, got %d", cfg.Course.EnhancerIterations)
	}
}

func TestClampTopK(t *testing.T) {
	cases := []struct {
		requested, def, want int
	}{
		{0, 5, 5},
		{-3, 5, 5},
		{1, 5, 1},
		{42, 5, 42},
		{100, 5, 100},
		{101, 5, 100},
		{0, 0, 1},
	}
	for _, c := range cases {
		if got := ClampTopK(c.requested, c.def); got != c.want {
			t.Errorf("ClampTopK(%d, %d) = %d, want %d", c.requested, c.def, got, c.want)
		}
	}
}

func TestValidate_WeightsMustSumToOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Registry = "registry.json"
	cfg.Services.VectorURL = "http://vectors"
	cfg.Services.LexicalURL = "http://lexical"
	cfg.Services.LLMProvider = "ollama"
	cfg.Retriever.BM25Weight = 0.8
	cfg.Retriever.VectorWeight = 0.8

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for weights not summing to 1")
	}
}

func TestValidate_MissingRegistryPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Services.VectorURL = "http://vectors"
	cfg.Services.LexicalURL = "http://lexical"
	cfg.Services.LLMProvider = "ollama"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing registry_path")
	}
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ragcore.yaml")
	content := `
server:
  port: 9090
registry_path: registry.json
services:
  vector_url: http://vectors
  lexical_url: http://lexical
  llm_provider: ollama
retriever:
  bm25_weight: 0.3
  vector_weight: 0.7
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("RAGCORE_PORT", "7070")
	t.Setenv("RAGCORE_RETRIEVER_FINAL_K", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("expected env override to win, got port %d", cfg.Server.Port)
	}
	if cfg.Retriever.FinalK != 7 {
		t.Errorf("expected final_k 7 from env, got %d", cfg.Retriever.FinalK)
	}
	if cfg.Retriever.BM25Weight != 0.3 {
		t.Errorf("expected bm25_weight 0.3 from file, got %v", cfg.Retriever.BM25Weight)
	}
}
