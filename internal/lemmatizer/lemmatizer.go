//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package lemmatizer provides French morphological normalization for query
// strings, matching the vocabulary produced by the ingestion-side
// lemmatizer so BM25 queries hit the same index terms it was built with.
//
// There is no third-party French lemmatization library in the dependency
// pack this core was grounded on (the only stemmers available,
// blevesearch/snowballstem and go-porterstemmer, are English Porter
// stemmers bundled transitively with a full-text search engine, not a
// standalone French lemmatizer) so this is a small rule-based
// normalizer: lowercase, strip punctuation, drop a closed list of French
// inflectional suffixes. It intentionally does not attempt full
// dictionary-based lemmatization.
package lemmatizer

import (
	"strings"
	"sync"
	"unicode"
)

// suffixRule strips Suffix and appends Replacement when a token both ends
// with Suffix and is longer than MinLen runes before stripping, so short
// words (e.g. "les") are not gutted to nothing.
type suffixRule struct {
	Suffix      string
	Replacement string
	MinLen      int
}

// rules is applied in order; the first matching rule wins. A suffix comes
// before any shorter suffix it ends with, so "ations" is tried before "s".
var rules = []suffixRule{
	{"ations", "ation", 4},
	{"issons", "ir", 4},
	{"issent", "ir", 4},
	{"issais", "ir", 4},
	{"trices", "teur", 4},
	{"iques", "ique", 4},
	{"ables", "able", 4},
	{"euses", "eux", 4},
	{"ives", "if", 4},
	{"eaux", "eau", 3},
	{"ment", "", 4},
	{"aux", "al", 3},
	{"ifs", "if", 3},
	{"ées", "é", 2},
	{"ée", "e", 2},
	{"és", "é", 2},
	{"ent", "", 4},
	{"es", "e", 3},
	{"s", "", 3},
	{"x", "", 3},
}

// Lemmatizer normalizes French text. The zero value is ready to use; it
// holds no mutable state and is safe for concurrent use.
type Lemmatizer struct {
	warnOnce sync.Once
	onWarn   func(string)
}

// New creates a Lemmatizer. onWarn, if non-nil, is invoked at most once
// per process with a human-readable message the first time per-query
// processing falls back to raw lowercased text (which, for this
// implementation, never happens, since the rule table has no external
// dependency that can fail at runtime; the hook exists so callers that
// swap in a model-backed implementation later get the same contract).
func New(onWarn func(string)) *Lemmatizer {
	return &Lemmatizer{onWarn: onWarn}
}

// Lemmatize returns a whitespace-joined sequence of lowercase lemmas, with
// punctuation removed. It is deterministic and idempotent:
// Lemmatize(Lemmatize(x)) == Lemmatize(x).
func (l *Lemmatizer) Lemmatize(text string) string {
	tokens := tokenize(text)
	lemmas := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		lemmas = append(lemmas, lemmatizeToken(tok))
	}
	return strings.Join(lemmas, " ")
}

func tokenize(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// lemmatizeToken applies the rule table repeatedly until no rule matches,
// so its output is a fixed point. Every rule shortens the token, so the
// loop terminates.
func lemmatizeToken(tok string) string {
	for {
		stripped := false
		runeLen := len([]rune(tok))
		for _, rule := range rules {
			if runeLen <= rule.MinLen {
				continue
			}
			if strings.HasSuffix(tok, rule.Suffix) {
				tok = strings.TrimSuffix(tok, rule.Suffix) + rule.Replacement
				stripped = true
				break
			}
		}
		if !stripped {
			return tok
		}
	}
}
