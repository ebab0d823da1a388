//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package ragengine

import (
	"strings"
	"testing"

	"github.com/hybridrag/corerag/internal/chunk"
)

func testChunks() []chunk.Ranked {
	return []chunk.Ranked{
		{Chunk: chunk.Chunk{PointID: "p1", Title: "Doc A", Text: "alpha content", SourceURL: "https://files.internal/a.pdf"}},
		{Chunk: chunk.Chunk{PointID: "p2", Title: "Doc B", Text: "beta content", SourceURL: "https://files.internal/b.pdf"}},
	}
}

// TestCitationRewriter_SplitAcrossDeltas: a `[SOURCE k]` token split
// across two stream deltas must be rewritten whole, not corrupted, and an
// out-of-range k is stripped entirely.
func TestCitationRewriter_SplitAcrossDeltas(t *testing.T) {
	r := NewCitationRewriter(testChunks(), "https://files.internal", "https://public.example.com/files")

	var out strings.Builder
	out.WriteString(r.Push("See [SOUR"))
	out.WriteString(r.Push("CE 2] and [SOURCE 9] ok"))
	out.WriteString(r.Flush())

	got := out.String()
	if !strings.Contains(got, "[2](https://public.example.com/files/b.pdf)") {
		t.Errorf("expected rewritten citation [2](url2), got %q", got)
	}
	if strings.Contains(got, "SOURCE 9") || strings.Contains(got, "[9]") {
		t.Errorf("expected out-of-range SOURCE 9 to be stripped, got %q", got)
	}
	if !strings.Contains(got, "See ") || !strings.Contains(got, " and ") {
		t.Errorf("expected surrounding text preserved, got %q", got)
	}

	sources := r.Sources()
	if len(sources) != 1 || sources[0].SequenceNumber != 2 {
		t.Fatalf("expected a single [2] sources entry, got %+v", sources)
	}
}

// TestCitationRewriter_NoInternalURLLeak: no emitted text or Source URL
// ever carries the fileserver-internal base.
func TestCitationRewriter_NoInternalURLLeak(t *testing.T) {
	r := NewCitationRewriter(testChunks(), "https://files.internal", "https://public.example.com/files")

	out := r.Push("Per [SOURCE 1] and [SOURCE 2].")
	out += r.Flush()

	if strings.Contains(out, "files.internal") {
		t.Fatalf("internal URL leaked inline: %q", out)
	}
	for _, src := range r.Sources() {
		if strings.Contains(src.URL, "files.internal") {
			t.Fatalf("internal URL leaked in Sources: %q", src.URL)
		}
	}
}

// TestCitationRewriter_FirstUseOrder checks that the Sources list follows
// first-citation order while inline numbers keep their knowledge-base k.
func TestCitationRewriter_FirstUseOrder(t *testing.T) {
	r := NewCitationRewriter(testChunks(), "", "")

	out := r.Push("First [SOURCE 2], then [SOURCE 1], then [SOURCE 2] again.")
	out += r.Flush()

	if !strings.Contains(out, "[2](https://files.internal/b.pdf)") {
		t.Errorf("expected SOURCE 2 rewritten as [2], got %q", out)
	}
	if !strings.Contains(out, "[1](https://files.internal/a.pdf)") {
		t.Errorf("expected SOURCE 1 rewritten as [1], got %q", out)
	}

	sources := r.Sources()
	if len(sources) != 2 {
		t.Fatalf("expected 2 distinct sources, got %d", len(sources))
	}
	if sources[0].SequenceNumber != 2 || sources[0].Title != "Doc B" {
		t.Errorf("expected sources[0] to be [2] Doc B (first cited), got %+v", sources[0])
	}
	if sources[1].SequenceNumber != 1 || sources[1].Title != "Doc A" {
		t.Errorf("expected sources[1] to be [1] Doc A, got %+v", sources[1])
	}
}

func TestFormatSources(t *testing.T) {
	got := FormatSources([]chunk.Source{
		{SequenceNumber: 2, Title: "Doc B", URL: "https://public.example.com/b.pdf"},
		{SequenceNumber: 1, Title: "Doc A", URL: ""},
		{SequenceNumber: 3, Title: "Doc B bis", URL: "https://public.example.com/b.pdf"},
	})

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected duplicate URL collapsed to 2 lines, got %d: %q", len(lines), got)
	}
	if !strings.Contains(lines[0], "[2] Doc B — https://public.example.com/b.pdf") {
		t.Errorf("expected lowest-numbered entry kept for duplicate URL, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "(no url)") {
		t.Errorf("expected placeholder for missing URL, got %q", lines[1])
	}
}

func TestCitationRewriter_NoCitations(t *testing.T) {
	r := NewCitationRewriter(testChunks(), "", "")
	out := r.Push("No citations here.")
	out += r.Flush()

	if out != "No citations here." {
		t.Errorf("expected text unchanged, got %q", out)
	}
	if len(r.Sources()) != 0 {
		t.Errorf("expected no sources, got %+v", r.Sources())
	}
}
