//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package retriever implements the Hybrid Retriever (C4): it fans out to
// the vector and lexical search clients concurrently, fuses their rankings
// with Reciprocal Rank Fusion, and returns a deduplicated, deterministically
// ordered list of chunks.
package retriever

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hybridrag/corerag/internal/apperror"
	"github.com/hybridrag/corerag/internal/chunk"
	"github.com/hybridrag/corerag/internal/lemmatizer"
	"github.com/hybridrag/corerag/internal/lexicalstore"
	"github.com/hybridrag/corerag/internal/llm"
	"github.com/hybridrag/corerag/internal/registry"
	"github.com/hybridrag/corerag/internal/vectorstore"
)

// RRFConstant is the standard RRF smoothing constant; the contract requires
// this exact value.
const RRFConstant = 60

// retrievalTimeout caps one full retrieval round. The caller's deadline
// still applies when it is tighter.
const retrievalTimeout = 10 * time.Second

// Retriever implements retrieve(collection, query, initial_k, final_k).
type Retriever struct {
	registry     *registry.Registry
	vectors      vectorstore.Store
	lexical      lexicalstore.Store
	embedder     llm.EmbeddingProvider
	lemmatizer   *lemmatizer.Lemmatizer
	bm25Weight   float64
	vectorWeight float64
	log          *slog.Logger
}

// New builds a Retriever. bm25Weight and vectorWeight must sum to 1 (the
// caller validates this at config load time).
func New(
	reg *registry.Registry,
	vectors vectorstore.Store,
	lexical lexicalstore.Store,
	embedder llm.EmbeddingProvider,
	lem *lemmatizer.Lemmatizer,
	bm25Weight, vectorWeight float64,
	log *slog.Logger,
) *Retriever {
	return &Retriever{
		registry:     reg,
		vectors:      vectors,
		lexical:      lexical,
		embedder:     embedder,
		lemmatizer:   lem,
		bm25Weight:   bm25Weight,
		vectorWeight: vectorWeight,
		log:          log,
	}
}

// Retrieve runs the full hybrid retrieval pipeline and returns at most
// finalK ranked chunks, sorted by fused score descending.
func (r *Retriever) Retrieve(
	ctx context.Context,
	collectionName, queryText string,
	initialK, finalK int,
) ([]chunk.Ranked, error) {
	col, err := r.registry.Resolve(collectionName)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeUnknownCollection, "unknown collection "+collectionName, err)
	}

	initialK = vectorstore.ClampTopK(initialK)

	ctx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()

	var (
		vecResults []vectorstore.Result
		vecErr     error
		lexResults []lexicalstore.Result
		lexErr     error
	)

	var g errgroup.Group
	g.Go(func() error {
		vecResults, vecErr = r.searchVector(ctx, col.VectorIndexID, queryText, initialK)
		return nil
	})
	g.Go(func() error {
		lexResults, lexErr = r.searchLexical(ctx, col.LexicalIndexID, queryText, initialK)
		return nil
	})
	_ = g.Wait()

	if vecErr != nil {
		r.log.Warn("vector retrieval failed", "collection", collectionName, "error", vecErr)
	}
	if lexErr != nil {
		r.log.Warn("lexical retrieval failed", "collection", collectionName, "error", lexErr)
	}

	if vecErr != nil && lexErr != nil {
		return nil, apperror.Wrap(apperror.CodeRetrievalUnavailable, "both retrieval backends failed", vecErr)
	}

	fused := fuse(vecResults, lexResults, r.bm25Weight, r.vectorWeight)

	if finalK <= 0 {
		finalK = len(fused)
	}
	if finalK > len(fused) {
		finalK = len(fused)
	}

	return fused[:finalK], nil
}

func (r *Retriever) searchVector(ctx context.Context, indexID, queryText string, topK int) ([]vectorstore.Result, error) {
	vec, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeEmbeddingFailure, "embedding failed", err)
	}
	return r.vectors.Search(ctx, indexID, vec, topK)
}

func (r *Retriever) searchLexical(ctx context.Context, indexID, queryText string, topK int) ([]lexicalstore.Result, error) {
	lemmatized := r.lemmatizer.Lemmatize(queryText)
	return r.lexical.Search(ctx, indexID, lemmatized, topK)
}

// fuse implements the weighted RRF formula and tie-break rule from the
// hybrid retriever contract.
func fuse(vecResults []vectorstore.Result, lexResults []lexicalstore.Result, bm25Weight, vectorWeight float64) []chunk.Ranked {
	byID := make(map[string]*chunk.Ranked)
	order := make([]string, 0, len(vecResults)+len(lexResults))

	get := func(id string) *chunk.Ranked {
		if rc, ok := byID[id]; ok {
			return rc
		}
		rc := &chunk.Ranked{}
		byID[id] = rc
		order = append(order, id)
		return rc
	}

	for i, v := range vecResults {
		rc := get(v.PointID)
		rc.Chunk = v.Chunk
		rc.VectorRank = i + 1
	}
	for i, l := range lexResults {
		rc := get(l.PointID)
		if rc.Chunk.PointID == "" {
			rc.Chunk = l.Chunk
		}
		rc.BM25Rank = i + 1
	}

	results := make([]chunk.Ranked, 0, len(order))
	for _, id := range order {
		rc := byID[id]
		var vTerm, bTerm float64
		if rc.VectorRank > 0 {
			vTerm = vectorWeight * (1.0 / float64(RRFConstant+rc.VectorRank))
		}
		if rc.BM25Rank > 0 {
			bTerm = bm25Weight * (1.0 / float64(RRFConstant+rc.BM25Rank))
		}
		rc.FusedScore = vTerm + bTerm
		results = append(results, *rc)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FusedScore != results[j].FusedScore {
			return results[i].FusedScore > results[j].FusedScore
		}
		mi := minRank(results[i])
		mj := minRank(results[j])
		if mi != mj {
			return mi < mj
		}
		return results[i].PointID < results[j].PointID
	})

	return results
}

func minRank(rc chunk.Ranked) int {
	switch {
	case rc.VectorRank == 0:
		return rc.BM25Rank
	case rc.BM25Rank == 0:
		return rc.VectorRank
	case rc.VectorRank < rc.BM25Rank:
		return rc.VectorRank
	default:
		return rc.BM25Rank
	}
}
