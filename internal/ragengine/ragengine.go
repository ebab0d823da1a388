//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package ragengine implements the RAG Engine (C6): retrieve, build a
// knowledge-base prompt, stream a completion, and rewrite citations inline
// as the answer streams out. Progress narration and user-visible content
// are kept on separate event kinds so the envelope layer can route them to
// different SSE frames.
package ragengine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hybridrag/corerag/internal/apperror"
	"github.com/hybridrag/corerag/internal/chunk"
	"github.com/hybridrag/corerag/internal/config"
	"github.com/hybridrag/corerag/internal/llm"
	"github.com/hybridrag/corerag/internal/retriever"
)

// EventKind is one of the three kinds a stream_rag sequence element can be.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventContent  EventKind = "content"
	EventDone     EventKind = "done"
)

// Event is one element of the stream_rag lazy sequence.
type Event struct {
	Kind    EventKind
	Text    string
	Sources []chunk.Source // set on the terminal `done` event
}

// Engine implements stream_rag(collection, question, top_k).
type Engine struct {
	retriever  *retriever.Retriever
	completion llm.CompletionProvider
	cfg        config.RAGConfig
	fileserver config.ServicesConfig
	log        *slog.Logger
}

// New builds an Engine.
func New(r *retriever.Retriever, completion llm.CompletionProvider, cfg config.RAGConfig, services config.ServicesConfig, log *slog.Logger) *Engine {
	return &Engine{retriever: r, completion: completion, cfg: cfg, fileserver: services, log: log}
}

const systemPrompt = `You are a helpful assistant that answers questions using only the numbered sources in the knowledge base below.
Cite every claim you make from a source with a "[SOURCE k]" marker matching that source's number.
If the knowledge base does not contain enough information to answer, say so plainly.`

// StreamRAG runs the full pipeline and returns a channel of events. The
// channel is closed after exactly one EventDone, unless ctx is cancelled
// first, in which case it is closed without one.
func (e *Engine) StreamRAG(ctx context.Context, collection, question string, topK int) (<-chan Event, <-chan error) {
	events := make(chan Event)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		send := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(Event{Kind: EventProgress, Text: "Retrieving context..."}) {
			return
		}

		finalK := config.ClampTopK(topK, e.cfg.DefaultTopK)
		initialK := finalK * 2
		if initialK < e.cfg.DefaultTopK {
			initialK = e.cfg.DefaultTopK
		}

		chunks, err := e.retriever.Retrieve(ctx, collection, question, initialK, finalK)
		if err != nil {
			if apperror.Is(err, apperror.CodeRetrievalUnavailable) {
				e.log.Warn("retrieval unavailable", "collection", collection, "error", err)
				send(Event{Kind: EventContent, Text: "Search is currently unavailable. Please try again shortly."})
				send(Event{Kind: EventDone})
				return
			}
			errs <- err
			send(Event{Kind: EventDone})
			return
		}

		if len(chunks) == 0 {
			send(Event{Kind: EventContent, Text: "I could not find any relevant context for this question in the selected collection."})
			send(Event{Kind: EventDone})
			return
		}

		if !send(Event{Kind: EventProgress, Text: "Generating answer..."}) {
			return
		}

		req := llm.CompletionRequest{
			SystemPrompt: systemPrompt,
			Context:      buildContext(chunks, e.cfg.MaxTokens),
			Messages:     []llm.Message{{Role: "user", Content: question}},
			MaxTokens:    e.cfg.MaxTokens,
			Temperature:  e.cfg.Temperature,
		}

		llmChunks, llmErrs := e.completion.CompleteStream(ctx, req)
		rewriter := NewCitationRewriter(chunks, e.fileserver.FileserverInternalBase, e.fileserver.FileserverPublicBase)

		for c := range llmChunks {
			var kind EventKind
			var text string
			switch c.Kind {
			case llm.ChunkThinking:
				kind, text = EventProgress, c.Content
			default:
				kind, text = EventContent, rewriter.Push(c.Content)
			}
			if text == "" {
				continue
			}
			if !e.pace(ctx, send, kind, text) {
				return
			}
		}

		if tail := rewriter.Flush(); tail != "" {
			if !e.pace(ctx, send, EventContent, tail) {
				return
			}
		}

		if err := <-llmErrs; err != nil {
			e.log.Warn("llm stream failed", "error", err)
			send(Event{Kind: EventContent, Text: "The answer could not be completed: " + err.Error()})
		}

		sources := rewriter.Sources()
		if len(sources) > 0 {
			send(Event{Kind: EventContent, Text: "\n\n**Sources**\n" + FormatSources(sources)})
		}

		send(Event{Kind: EventDone, Sources: sources})
	}()

	return events, errs
}

// pace re-chunks and paces an outbound text per the configured stream
// chunk size/delay. A non-positive StreamChunkSize disables re-chunking
// and emits the text as one event.
func (e *Engine) pace(ctx context.Context, send func(Event) bool, kind EventKind, text string) bool {
	if e.cfg.StreamChunkSize <= 0 || len(text) <= e.cfg.StreamChunkSize {
		return send(Event{Kind: kind, Text: text})
	}

	for len(text) > 0 {
		n := e.cfg.StreamChunkSize
		if n > len(text) {
			n = len(text)
		}
		if !send(Event{Kind: kind, Text: text[:n]}) {
			return false
		}
		text = text[n:]
		if len(text) == 0 {
			break
		}
		if e.cfg.StreamChunkDelayMS > 0 {
			select {
			case <-time.After(time.Duration(e.cfg.StreamChunkDelayMS) * time.Millisecond):
			case <-ctx.Done():
				return false
			}
		}
	}
	return true
}

// buildContext converts ranked chunks into numbered context documents for
// the LLM, truncating once the rough token budget is exhausted. Each
// document opens with a "[SOURCE k] title — section path" header line so
// the model can cite by number.
func buildContext(chunks []chunk.Ranked, maxTokens int) []llm.ContextDocument {
	docs := make([]llm.ContextDocument, 0, len(chunks))
	budget := maxTokens / 2 // reserve half the budget for the answer itself
	used := 0

	for i, c := range chunks {
		estimated := len(c.Text) / 4
		if used+estimated > budget && len(docs) > 0 {
			break
		}
		docs = append(docs, llm.ContextDocument{
			Content: SourceHeader(i+1, c.Chunk) + "\n" + strings.TrimSpace(c.Text),
			Source:  c.Title,
			Score:   c.FusedScore,
		})
		used += estimated
	}

	return docs
}

// SourceHeader renders the "[SOURCE k] title — section path" line that
// opens each knowledge-base entry. The section path is omitted when the
// chunk has none.
func SourceHeader(k int, c chunk.Chunk) string {
	header := fmt.Sprintf("[SOURCE %d] %s", k, c.Title)
	if len(c.SectionPath) > 0 {
		header += " — " + strings.Join(c.SectionPath, " / ")
	}
	return header
}
