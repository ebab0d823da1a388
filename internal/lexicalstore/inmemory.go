//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package lexicalstore

import (
	"context"
	"sync"

	"github.com/hybridrag/corerag/internal/chunk"
)

// InMemoryStore is the self-hosted lexical backend: one bm25Index per
// lexical index id, with the chunk payloads kept alongside so Search
// hydrates full Chunk values the same way the HTTP backend does.
type InMemoryStore struct {
	mu      sync.RWMutex
	indexes map[string]*bm25Index
	chunks  map[string]map[string]chunk.Chunk // indexID -> pointID -> Chunk
}

// NewInMemoryStore creates an empty InMemoryStore. Indexes are created
// lazily by IndexChunks.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		indexes: make(map[string]*bm25Index),
		chunks:  make(map[string]map[string]chunk.Chunk),
	}
}

// IndexChunks adds or replaces chunks in the named index, keyed by point
// id. Chunk text is expected to be lemmatized the same way queries will
// be, matching the contract of the external lexical service.
func (s *InMemoryStore) IndexChunks(indexID string, chunks []chunk.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexes[indexID]
	if !ok {
		idx = newBM25Index()
		s.indexes[indexID] = idx
		s.chunks[indexID] = make(map[string]chunk.Chunk)
	}

	for _, c := range chunks {
		idx.add(c.PointID, c.Text)
		s.chunks[indexID][c.PointID] = c
	}
}

// Search implements Store against the in-memory index. An unknown index
// yields no results, not an error, mirroring an empty remote index.
func (s *InMemoryStore) Search(_ context.Context, indexID, lemmatizedQuery string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.indexes[indexID]
	if !ok {
		return nil, nil
	}

	hits := idx.search(lemmatizedQuery, topK)
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			PointID: h.PointID,
			Score:   h.Score,
			Chunk:   s.chunks[indexID][h.PointID],
		})
	}

	return results, nil
}

var _ Store = (*InMemoryStore)(nil)
