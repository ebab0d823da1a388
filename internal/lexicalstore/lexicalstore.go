//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package lexicalstore implements the BM25 Search Client (C3): sparse
// lexical search against a pre-configured index, behind the same
// backend-agnostic shape as vectorstore (production HTTP service, or a
// self-hosted in-memory BM25 index for tests and standalone deployments).
package lexicalstore

import (
	"context"
	"fmt"

	"github.com/hybridrag/corerag/internal/chunk"
	"github.com/hybridrag/corerag/internal/config"
)

// DefaultTopK mirrors the vector client's default so callers can request
// initial_k without knowing which backend will serve it.
const DefaultTopK = 8

// Result is one lexical match: a point id, its BM25 score, and the chunk
// payload carried by the lexical index for it.
type Result struct {
	PointID string
	Score   float64
	Chunk   chunk.Chunk
}

// Store searches a named lexical index for a lemmatized query.
type Store interface {
	Search(ctx context.Context, indexID string, lemmatizedQuery string, topK int) ([]Result, error)
}

// New builds the configured Store implementation.
func New(cfg config.ServicesConfig) (Store, error) {
	switch cfg.LexicalBackend {
	case config.BackendHTTP:
		if cfg.LexicalURL == "" {
			return nil, fmt.Errorf("lexicalstore: http backend requires lexical_url")
		}
		return NewHTTPStore(cfg.LexicalURL), nil
	case config.BackendInMemory:
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("lexicalstore: unknown backend %q", cfg.LexicalBackend)
	}
}
