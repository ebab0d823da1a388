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
	"math"
	"sort"
	"strings"
)

// BM25 parameters, fixed to the values the external lexical service is
// configured with so the two backends rank comparably.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// bm25Index is the in-process inverted index behind InMemoryStore: one
// posting list per term over lemmatized chunk text, scored with BM25.
// Both the indexed text and incoming queries are expected to be
// lemmatizer output (lowercase, punctuation stripped), so tokenization is
// a plain whitespace split; there is no second analyzer to drift from the
// query side.
type bm25Index struct {
	postings map[string]map[string]int // term -> pointID -> term frequency
	docLen   map[string]int            // pointID -> token count
	totalLen int
}

func newBM25Index() *bm25Index {
	return &bm25Index{
		postings: make(map[string]map[string]int),
		docLen:   make(map[string]int),
	}
}

// add indexes (or re-indexes) one chunk's text under its point id.
func (idx *bm25Index) add(pointID, text string) {
	if old, ok := idx.docLen[pointID]; ok {
		idx.remove(pointID, old)
	}

	tokens := splitLemmas(text)
	for _, tok := range tokens {
		posting, ok := idx.postings[tok]
		if !ok {
			posting = make(map[string]int)
			idx.postings[tok] = posting
		}
		posting[pointID]++
	}
	idx.docLen[pointID] = len(tokens)
	idx.totalLen += len(tokens)
}

func (idx *bm25Index) remove(pointID string, oldLen int) {
	for term, posting := range idx.postings {
		if _, ok := posting[pointID]; ok {
			delete(posting, pointID)
			if len(posting) == 0 {
				delete(idx.postings, term)
			}
		}
	}
	delete(idx.docLen, pointID)
	idx.totalLen -= oldLen
}

// search scores every document sharing a term with the lemmatized query
// and returns up to topK point ids, best first. Ties break on point id so
// the hybrid fusion downstream stays deterministic.
func (idx *bm25Index) search(lemmatizedQuery string, topK int) []scoredID {
	n := len(idx.docLen)
	if n == 0 {
		return nil
	}
	avgLen := float64(idx.totalLen) / float64(n)

	scores := make(map[string]float64)
	for _, term := range splitLemmas(lemmatizedQuery) {
		posting, ok := idx.postings[term]
		if !ok {
			continue
		}
		idf := idfLucene(n, len(posting))
		for pointID, tf := range posting {
			norm := 1 - bm25B + bm25B*float64(idx.docLen[pointID])/avgLen
			scores[pointID] += idf * float64(tf) * (bm25K1 + 1) / (float64(tf) + bm25K1*norm)
		}
	}

	ranked := make([]scoredID, 0, len(scores))
	for pointID, score := range scores {
		ranked = append(ranked, scoredID{PointID: pointID, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].PointID < ranked[j].PointID
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

type scoredID struct {
	PointID string
	Score   float64
}

// idfLucene is the non-negative IDF variant:
// log(1 + (N - df + 0.5) / (df + 0.5)).
func idfLucene(docCount, docFreq int) float64 {
	n := float64(docCount)
	df := float64(docFreq)
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// splitLemmas tokenizes lemmatizer output. Fields handles repeated
// whitespace; anything heavier would re-analyze text the lemmatizer
// already normalized.
func splitLemmas(s string) []string {
	return strings.Fields(s)
}
