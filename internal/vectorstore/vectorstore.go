//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package vectorstore implements the Vector Search Client (C2): nearest
// neighbor search against a pre-embedded index, behind a backend-agnostic
// interface so the retriever never knows whether it is talking to the
// production HTTP service or the self-hosted pgvector fallback.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/hybridrag/corerag/internal/chunk"
	"github.com/hybridrag/corerag/internal/config"
)

// DefaultTopK and MaxTopK bound the per-call top_k per the vector search
// client contract.
const (
	DefaultTopK = 8
	MaxTopK     = 64
)

// Result is one nearest-neighbor hit: a point id, its score, and the chunk
// payload the store carries for it.
type Result struct {
	PointID string
	Score   float64
	Chunk   chunk.Chunk
}

// Store searches a named vector index for the nearest neighbors of an
// already-computed embedding.
type Store interface {
	Search(ctx context.Context, indexID string, vector []float32, topK int) ([]Result, error)
}

// ClampTopK clamps a requested top_k to [1, 64], defaulting non-positive
// values to DefaultTopK.
func ClampTopK(requested int) int {
	if requested <= 0 {
		requested = DefaultTopK
	}
	if requested > MaxTopK {
		return MaxTopK
	}
	return requested
}

// New builds the configured Store implementation.
func New(cfg config.ServicesConfig) (Store, error) {
	switch cfg.VectorBackend {
	case config.BackendHTTP:
		if cfg.VectorURL == "" {
			return nil, fmt.Errorf("vectorstore: http backend requires vector_url")
		}
		return NewHTTPStore(cfg.VectorURL), nil
	case config.BackendPostgres:
		return nil, fmt.Errorf("vectorstore: postgres backend requires NewPostgresStore (async connect)")
	default:
		return nil, fmt.Errorf("vectorstore: unknown backend %q", cfg.VectorBackend)
	}
}
