//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package course implements the Course Orchestrator (C8): a three-agent
// pipeline (Researcher, Enhancer, Writer) that turns a subject into a
// cited markdown document, streaming progress events as it goes.
package course

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hybridrag/corerag/internal/chunk"
	"github.com/hybridrag/corerag/internal/config"
	"github.com/hybridrag/corerag/internal/llm"
	"github.com/hybridrag/corerag/internal/ragengine"
	"github.com/hybridrag/corerag/internal/retriever"
)

// EventKind mirrors ragengine's stream vocabulary so the envelope layer
// handles both uniformly.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventContent  EventKind = "content"
	EventDone     EventKind = "done"
)

// Event is one element of the course-generation stream.
type Event struct {
	Kind    EventKind
	Text    string
	Sources []chunk.Source
	Logs    []IterationLog // set on the terminal done event
}

// IterationLog records what one enhancer round actually did, so callers
// can see how many rounds were effective when the loop converges early.
type IterationLog struct {
	Round      int      `json:"round"`
	GapQueries []string `json:"gap_queries"`
	NewChunks  int      `json:"new_chunks"`
}

const heartbeatInterval = 10 * time.Second

// DefaultEnhancerIterations is the number of knowledge-gap revision rounds
// Agent E runs when the configuration does not override it.
const DefaultEnhancerIterations = 3

// Orchestrator runs the three-agent course pipeline.
type Orchestrator struct {
	retriever  *retriever.Retriever
	completion llm.CompletionProvider
	cfg        config.CourseConfig
	fileserver config.ServicesConfig
	log        *slog.Logger
}

// New builds an Orchestrator.
func New(r *retriever.Retriever, completion llm.CompletionProvider, cfg config.CourseConfig, services config.ServicesConfig, log *slog.Logger) *Orchestrator {
	if cfg.EnhancerIterations <= 0 {
		cfg.EnhancerIterations = DefaultEnhancerIterations
	}
	if cfg.RetrieverTopK <= 0 {
		cfg.RetrieverTopK = 5
	}
	if cfg.EnhancerTopK <= 0 {
		cfg.EnhancerTopK = 5
	}
	return &Orchestrator{retriever: r, completion: completion, cfg: cfg, fileserver: services, log: log}
}

// Generate runs Researcher -> Enhancer x N -> Writer and streams progress
// and the final chapters.
func (o *Orchestrator) Generate(ctx context.Context, collection, subject string) (<-chan Event, <-chan error) {
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

		stop := o.heartbeat(ctx, send)
		defer stop()

		store := newChunkStore()

		if !send(Event{Kind: EventProgress, Text: "Researching: drafting sub-queries..."}) {
			return
		}
		kb, err := o.research(ctx, collection, subject, store, send)
		if err != nil {
			errs <- err
			send(Event{Kind: EventDone})
			return
		}

		var logs []IterationLog
		for i := 0; i < o.cfg.EnhancerIterations; i++ {
			if !send(Event{Kind: EventProgress, Text: fmt.Sprintf("Enhancing knowledge base (round %d/%d)...", i+1, o.cfg.EnhancerIterations)}) {
				return
			}
			newKB, round, err := o.enhance(ctx, collection, subject, kb, store, send)
			if err != nil {
				errs <- err
				send(Event{Kind: EventDone})
				return
			}
			kb = newKB
			round.Round = i + 1
			logs = append(logs, round)
			if round.NewChunks == 0 {
				o.log.Debug("enhancer converged early", "round", i+1)
				break
			}
		}

		if !send(Event{Kind: EventProgress, Text: "Writing chapters..."}) {
			return
		}
		doc, sources, err := o.write(ctx, subject, kb, store)
		if err != nil {
			errs <- err
			send(Event{Kind: EventDone})
			return
		}

		send(Event{Kind: EventContent, Text: doc})
		send(Event{Kind: EventDone, Sources: sources, Logs: logs})
	}()

	return events, errs
}

// chunkStore accumulates unique chunks by point_id across the research and
// enhancement rounds, preserving first-seen order for stable citation
// numbering downstream.
type chunkStore struct {
	byID  map[string]chunk.Ranked
	order []string
}

func newChunkStore() *chunkStore {
	return &chunkStore{byID: make(map[string]chunk.Ranked)}
}

func (s *chunkStore) add(chunks []chunk.Ranked) int {
	added := 0
	for _, c := range chunks {
		if _, ok := s.byID[c.PointID]; ok {
			continue
		}
		s.byID[c.PointID] = c
		s.order = append(s.order, c.PointID)
		added++
	}
	return added
}

func (s *chunkStore) all() []chunk.Ranked {
	out := make([]chunk.Ranked, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (o *Orchestrator) research(ctx context.Context, collection, subject string, store *chunkStore, send func(Event) bool) (string, error) {
	subQueries, err := o.proposeSubQueries(ctx, subject)
	if err != nil {
		return "", err
	}

	for _, q := range subQueries {
		if !send(Event{Kind: EventProgress, Text: "Retrieving: " + q}) {
			return "", context.Canceled
		}
		results, err := o.retriever.Retrieve(ctx, collection, q, 8, o.cfg.RetrieverTopK)
		if err != nil {
			o.log.Warn("research retrieval failed", "query", q, "error", err)
			continue
		}
		store.add(results)
	}

	return o.synthesize(ctx, subject, store.all())
}

func (o *Orchestrator) enhance(ctx context.Context, collection, subject, kb string, store *chunkStore, send func(Event) bool) (string, IterationLog, error) {
	round := IterationLog{}

	gaps, err := o.identifyGaps(ctx, subject, kb)
	if err != nil {
		return kb, round, err
	}
	round.GapQueries = gaps
	if len(gaps) == 0 {
		return kb, round, nil
	}

	// Gap queries are independent of each other; retrieve them
	// concurrently and merge into the store afterwards so the
	// first-seen chunk ordering stays deterministic by query index.
	perQuery := make([][]chunk.Ranked, len(gaps))
	var g errgroup.Group
	for i, q := range gaps {
		if !send(Event{Kind: EventProgress, Text: "Closing gap: " + q}) {
			return kb, round, context.Canceled
		}
		i, q := i, q
		g.Go(func() error {
			results, err := o.retriever.Retrieve(ctx, collection, q, 8, o.cfg.EnhancerTopK)
			if err != nil {
				o.log.Warn("enhancer retrieval failed", "query", q, "error", err)
				return nil
			}
			perQuery[i] = results
			return nil
		})
	}
	_ = g.Wait()

	for _, results := range perQuery {
		round.NewChunks += store.add(results)
	}
	if round.NewChunks == 0 {
		return kb, round, nil
	}

	revised, err := o.synthesize(ctx, subject, store.all())
	if err != nil {
		return kb, round, err
	}
	return revised, round, nil
}

func (o *Orchestrator) write(ctx context.Context, subject, kb string, store *chunkStore) (string, []chunk.Source, error) {
	outline, err := o.outline(ctx, subject, kb)
	if err != nil {
		return "", nil, err
	}

	chunks := store.all()
	rewriter := ragengine.NewCitationRewriter(chunks, o.fileserver.FileserverInternalBase, o.fileserver.FileserverPublicBase)

	var doc strings.Builder
	for _, heading := range outline {
		body, err := o.writeChapter(ctx, subject, kb, heading)
		if err != nil {
			return "", nil, err
		}
		doc.WriteString("## " + heading + "\n\n")
		doc.WriteString(rewriter.Push(body))
		doc.WriteString("\n\n")
	}
	doc.WriteString(rewriter.Flush())

	if sources := rewriter.Sources(); len(sources) > 0 {
		doc.WriteString("\n\n**Sources**\n")
		doc.WriteString(ragengine.FormatSources(sources))
	}

	return doc.String(), rewriter.Sources(), nil
}

// heartbeat emits a no-op progress event periodically while long LLM calls
// are in flight, so streaming intermediaries don't close idle connections.
// The returned stop function blocks until the goroutine has exited, so the
// caller can safely close the events channel afterwards.
func (o *Orchestrator) heartbeat(ctx context.Context, send func(Event) bool) func() {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				send(Event{Kind: EventProgress, Text: "..."})
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func (o *Orchestrator) proposeSubQueries(ctx context.Context, subject string) ([]string, error) {
	req := llm.CompletionRequest{
		SystemPrompt: "List 3 to 6 focused search queries that together cover the subject, one per line, no numbering.",
		Messages:     []llm.Message{{Role: "user", Content: subject}},
		Temperature:  0.3,
	}
	resp, err := o.completion.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("course: propose sub-queries: %w", err)
	}
	return splitLines(resp.Content), nil
}

func (o *Orchestrator) synthesize(ctx context.Context, subject string, chunks []chunk.Ranked) (string, error) {
	req := llm.CompletionRequest{
		SystemPrompt: "Synthesize a structured knowledge base in markdown (headings and bullet points) covering the subject, using only the supplied sources.",
		Context:      contextDocs(chunks),
		Messages:     []llm.Message{{Role: "user", Content: subject}},
		Temperature:  0.3,
	}
	resp, err := o.completion.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("course: synthesize knowledge base: %w", err)
	}
	return resp.Content, nil
}

func (o *Orchestrator) identifyGaps(ctx context.Context, subject, kb string) ([]string, error) {
	req := llm.CompletionRequest{
		SystemPrompt: "Given the subject and the current knowledge base, list 1 to 4 search queries that would fill the most important remaining gaps, one per line, no numbering. If there are no significant gaps, respond with NONE.",
		Messages: []llm.Message{
			{Role: "user", Content: "Subject: " + subject + "\n\nKnowledge base:\n" + kb},
		},
		Temperature: 0.3,
	}
	resp, err := o.completion.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("course: identify gaps: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "NONE" {
		return nil, nil
	}
	return splitLines(resp.Content), nil
}

func (o *Orchestrator) outline(ctx context.Context, subject, kb string) ([]string, error) {
	req := llm.CompletionRequest{
		SystemPrompt: "Produce a chapter outline for a course on the subject, derived from the knowledge base. One chapter heading per line, no numbering.",
		Messages: []llm.Message{
			{Role: "user", Content: "Subject: " + subject + "\n\nKnowledge base:\n" + kb},
		},
		Temperature: 0.3,
	}
	resp, err := o.completion.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("course: outline: %w", err)
	}
	return splitLines(resp.Content), nil
}

func (o *Orchestrator) writeChapter(ctx context.Context, subject, kb, heading string) (string, error) {
	req := llm.CompletionRequest{
		SystemPrompt: "Write the body of one course chapter in markdown. Cite every claim drawn from the knowledge base with a \"[SOURCE k]\" marker matching the source's number there.",
		Messages: []llm.Message{
			{Role: "user", Content: "Subject: " + subject + "\nChapter: " + heading + "\n\nKnowledge base:\n" + kb},
		},
		Temperature: 0.5,
	}
	resp, err := o.completion.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("course: write chapter %q: %w", heading, err)
	}
	return resp.Content, nil
}

func contextDocs(chunks []chunk.Ranked) []llm.ContextDocument {
	docs := make([]llm.ContextDocument, 0, len(chunks))
	for i, c := range chunks {
		docs = append(docs, llm.ContextDocument{
			Content: ragengine.SourceHeader(i+1, c.Chunk) + "\n" + c.Text,
			Source:  c.Title,
			Score:   c.FusedScore,
		})
	}
	return docs
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
