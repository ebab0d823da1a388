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
	"testing"
)

func TestBM25Index_RanksByRelevance(t *testing.T) {
	idx := newBM25Index()
	idx.add("p1", "installation electrique batiment norme")
	idx.add("p2", "renovation toiture ardoise")
	idx.add("p3", "installation sanitaire")

	hits := idx.search("installation electrique", 10)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %+v", len(hits), hits)
	}
	// p1 matches both query terms, p3 only one.
	if hits[0].PointID != "p1" || hits[1].PointID != "p3" {
		t.Errorf("expected order p1, p3, got %+v", hits)
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("expected strictly decreasing scores, got %+v", hits)
	}
}

func TestBM25Index_LengthNormalization(t *testing.T) {
	idx := newBM25Index()
	idx.add("short", "toiture")
	idx.add("long", "toiture mur sol plafond fenetre porte cloison escalier")

	hits := idx.search("toiture", 10)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].PointID != "short" {
		t.Errorf("expected the shorter document to rank first, got %+v", hits)
	}
}

func TestBM25Index_TermFrequencySaturation(t *testing.T) {
	idx := newBM25Index()
	idx.add("once", "beton arme")
	idx.add("thrice", "beton beton beton")

	hits := idx.search("beton", 10)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	// Repetition helps, but saturates: the tf=3 doc must not score 3x.
	if hits[0].PointID != "thrice" {
		t.Errorf("expected the higher-tf document first, got %+v", hits)
	}
	if hits[0].Score >= 3*hits[1].Score {
		t.Errorf("expected saturated tf gain, got %+v", hits)
	}
}

func TestBM25Index_TopKAndTieBreak(t *testing.T) {
	idx := newBM25Index()
	// Identical documents tie on score; point id breaks the tie.
	idx.add("b", "charpente bois")
	idx.add("a", "charpente bois")
	idx.add("c", "charpente bois")

	hits := idx.search("charpente", 2)
	if len(hits) != 2 {
		t.Fatalf("expected topK to cap results at 2, got %d", len(hits))
	}
	if hits[0].PointID != "a" || hits[1].PointID != "b" {
		t.Errorf("expected lexicographic tie-break a, b, got %+v", hits)
	}
}

func TestBM25Index_ReindexReplacesDocument(t *testing.T) {
	idx := newBM25Index()
	idx.add("p1", "ancienne toiture")
	idx.add("p1", "nouvelle isolation")

	if hits := idx.search("toiture", 10); len(hits) != 0 {
		t.Errorf("expected the old terms gone after re-index, got %+v", hits)
	}
	if hits := idx.search("isolation", 10); len(hits) != 1 {
		t.Errorf("expected the new terms indexed, got %+v", hits)
	}
}

func TestBM25Index_EmptyQueryAndEmptyIndex(t *testing.T) {
	idx := newBM25Index()
	if hits := idx.search("anything", 5); hits != nil {
		t.Errorf("expected nil from an empty index, got %+v", hits)
	}

	idx.add("p1", "beton")
	if hits := idx.search("", 5); len(hits) != 0 {
		t.Errorf("expected no hits for an empty query, got %+v", hits)
	}
}

func TestIDFLucene(t *testing.T) {
	// A term in every document still gets a small positive IDF.
	if got := idfLucene(10, 10); got <= 0 {
		t.Errorf("expected positive IDF for ubiquitous term, got %f", got)
	}
	// Rarer terms weigh more.
	if idfLucene(10, 1) <= idfLucene(10, 5) {
		t.Error("expected rarer terms to carry higher IDF")
	}
	// Spot value: N=2, df=1 -> log(1 + 1.5/1.5) = ln 2.
	if got := idfLucene(2, 1); math.Abs(got-math.Ln2) > 1e-12 {
		t.Errorf("expected ln 2, got %f", got)
	}
}
