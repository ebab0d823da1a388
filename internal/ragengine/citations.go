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
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hybridrag/corerag/internal/chunk"
)

var citationPattern = regexp.MustCompile(`\[SOURCE (\d+)\]`)

const citationPrefix = "[SOURCE "

// CitationRewriter rewrites `[SOURCE k]` tokens in a streamed LLM answer
// into `[k](url)` hyperlinks, keeping the knowledge-base number k so the
// inline citations and the Sources list stay aligned. It buffers across
// Push calls so a token split across two deltas is never emitted
// half-rewritten, and tracks which chunks were actually cited so the
// caller can build the final Sources list in first-use order.
type CitationRewriter struct {
	chunks       []chunk.Ranked // index i holds the chunk for [SOURCE i+1]
	internalBase string
	publicBase   string
	buf          string

	used  map[int]bool
	order []int // cited k values, first-use order
}

// NewCitationRewriter builds a rewriter over the ordered chunk list handed
// to the LLM as the knowledge base (chunks[i] is source i+1). internalBase
// and publicBase let it rewrite fileserver-internal URLs before they ever
// reach the client, in both inline hyperlinks and the Sources list.
func NewCitationRewriter(chunks []chunk.Ranked, internalBase, publicBase string) *CitationRewriter {
	return &CitationRewriter{
		chunks:       chunks,
		internalBase: internalBase,
		publicBase:   publicBase,
		used:         make(map[int]bool),
	}
}

// Push appends a content delta and returns the text now safe to emit: any
// suffix that could still be the start of a `[SOURCE k]` token is held back
// for the next call.
func (c *CitationRewriter) Push(delta string) string {
	c.buf += delta

	holdFrom := len(c.buf)
	if idx := strings.LastIndex(c.buf, "["); idx != -1 {
		tail := c.buf[idx:]
		if !strings.Contains(tail, "]") && isCitationPrefix(tail) {
			holdFrom = idx
		}
	}

	ready := c.buf[:holdFrom]
	c.buf = c.buf[holdFrom:]
	return c.rewrite(ready)
}

// Flush returns any text remaining in the buffer, rewriting complete
// citations but passing an unterminated trailing token through literally.
func (c *CitationRewriter) Flush() string {
	out := c.rewrite(c.buf)
	c.buf = ""
	return out
}

// Sources returns the cited chunks as a numbered Source list, in
// first-citation order. Numbers are the knowledge-base k values, matching
// the inline `[k](url)` citations the rewrite emitted.
func (c *CitationRewriter) Sources() []chunk.Source {
	sources := make([]chunk.Source, 0, len(c.order))
	for _, k := range c.order {
		ch := c.chunks[k-1].Chunk
		sources = append(sources, chunk.Source{
			SequenceNumber: k,
			Title:          ch.Title,
			URL:            RewritePublicURL(ch.SourceURL, c.internalBase, c.publicBase),
			Snippet:        snippet(ch.Text),
		})
	}
	return sources
}

func (c *CitationRewriter) rewrite(s string) string {
	return citationPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := citationPattern.FindStringSubmatch(match)
		k, err := strconv.Atoi(sub[1])
		if err != nil || k < 1 || k > len(c.chunks) {
			return ""
		}

		if !c.used[k] {
			c.used[k] = true
			c.order = append(c.order, k)
		}

		url := RewritePublicURL(c.chunks[k-1].Chunk.SourceURL, c.internalBase, c.publicBase)
		if url == "" {
			return fmt.Sprintf("[%d]", k)
		}
		return fmt.Sprintf("[%d](%s)", k, url)
	})
}

// FormatSources renders a Source list as the newline-separated
// "[k] title — public_url" block appended to an answer's Sources section.
// Duplicate URLs collapse to a single entry retaining the lowest number;
// a source without a URL keeps its line with a "(no url)" placeholder.
func FormatSources(sources []chunk.Source) string {
	lowest := make(map[string]int, len(sources))
	for _, s := range sources {
		if s.URL == "" {
			continue
		}
		if n, ok := lowest[s.URL]; !ok || s.SequenceNumber < n {
			lowest[s.URL] = s.SequenceNumber
		}
	}

	lines := make([]string, 0, len(sources))
	for _, s := range sources {
		url := s.URL
		if url == "" {
			url = "(no url)"
		} else if lowest[s.URL] != s.SequenceNumber {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%d] %s — %s", s.SequenceNumber, s.Title, url))
	}
	return strings.Join(lines, "\n")
}

func isCitationPrefix(tail string) bool {
	if len(tail) <= len(citationPrefix) {
		return strings.HasPrefix(citationPrefix, tail)
	}
	if !strings.HasPrefix(tail, citationPrefix) {
		return false
	}
	for _, r := range tail[len(citationPrefix):] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func snippet(text string) string {
	const maxLen = 200
	text = strings.TrimSpace(text)
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}

// RewritePublicURL replaces a fileserver-internal URL prefix with its
// public equivalent. URLs not matching the internal base pass through
// unchanged (they are already public, e.g. an external document host).
func RewritePublicURL(url, internalBase, publicBase string) string {
	if internalBase == "" || publicBase == "" || url == "" {
		return url
	}
	if strings.HasPrefix(url, internalBase) {
		return publicBase + strings.TrimPrefix(url, internalBase)
	}
	return url
}
