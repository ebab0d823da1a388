//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package qcm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hybridrag/corerag/internal/chunk"
	"github.com/hybridrag/corerag/internal/config"
	"github.com/hybridrag/corerag/internal/fileserver"
	"github.com/hybridrag/corerag/internal/llm"
	"github.com/hybridrag/corerag/internal/ragengine"
	"github.com/hybridrag/corerag/internal/retriever"
)

// EventKind mirrors ragengine's stream vocabulary.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventContent  EventKind = "content"
	EventDone     EventKind = "done"
)

// Event is one element of the QCM generation stream.
type Event struct {
	Kind EventKind
	Text string
}

// Item is one generated multiple-choice question. AnswerList[0] is always
// the canonically correct answer; shuffling for display is the consumer's
// responsibility.
type Item struct {
	QuestionText string      `json:"question_text"`
	AnswerList   [3]string   `json:"answer_list"`
	SourceChunk  chunk.Chunk `json:"source_chunk"`
}

// Orchestrator runs the QCM two-phase generation pipeline.
type Orchestrator struct {
	retriever  *retriever.Retriever
	completion llm.CompletionProvider
	files      *fileserver.Client
	cfg        config.QCMConfig
	fileCfg    config.ServicesConfig
	log        *slog.Logger
}

// New builds an Orchestrator.
func New(r *retriever.Retriever, completion llm.CompletionProvider, files *fileserver.Client, cfg config.QCMConfig, fileCfg config.ServicesConfig, log *slog.Logger) *Orchestrator {
	if cfg.RetrieverTopK <= 0 {
		cfg.RetrieverTopK = 15
	}
	if cfg.AnswerTopK <= 0 {
		cfg.AnswerTopK = 5
	}
	return &Orchestrator{retriever: r, completion: completion, files: files, cfg: cfg, fileCfg: fileCfg, log: log}
}

// Generate runs phase 1 (question synthesis) then phase 2 (per-question
// answer and distractor synthesis), streaming progress, and ends with a
// content event carrying the markdown view plus the fileserver URL of the
// uploaded JSON payload.
func (o *Orchestrator) Generate(ctx context.Context, collection, topic string, difficulty Difficulty, count int) (<-chan Event, <-chan error) {
	events := make(chan Event)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		send := func(kind EventKind, text string) bool {
			select {
			case events <- Event{Kind: kind, Text: text}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(EventProgress, "Synthesizing questions...") {
			return
		}

		broad, err := o.retriever.Retrieve(ctx, collection, topic, o.cfg.RetrieverTopK, o.cfg.RetrieverTopK)
		if err != nil {
			errs <- err
			send(EventDone, "")
			return
		}

		questions, err := o.synthesizeQuestions(ctx, topic, difficulty, count, broad)
		if err != nil {
			errs <- err
			send(EventDone, "")
			return
		}

		items := make([]Item, 0, len(questions))
		for i, q := range questions {
			if !send(EventProgress, fmt.Sprintf("Answering question %d/%d...", i+1, len(questions))) {
				return
			}
			item, err := o.answerQuestion(ctx, collection, q, difficulty)
			if err != nil {
				o.log.Warn("qcm question failed", "question", q, "error", err)
				continue
			}
			items = append(items, item)
		}

		markdown, payload := o.render(items)

		fileURL := ""
		if o.files != nil {
			url, err := o.files.Upload(ctx, uploadName(topic), "application/json", payload)
			if err != nil {
				o.log.Warn("qcm upload failed", "error", err)
			} else {
				fileURL = url
			}
		}

		if fileURL != "" {
			markdown += "\n\nFull JSON payload: " + fileURL
		}

		send(EventContent, markdown)
		send(EventDone, "")
	}()

	return events, errs
}

func uploadName(topic string) string {
	slug := strings.ToLower(strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return '-'
	}, topic))
	return "qcm-" + slug + ".json"
}

func (o *Orchestrator) synthesizeQuestions(ctx context.Context, topic string, difficulty Difficulty, count int, chunks []chunk.Ranked) ([]string, error) {
	req := llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(
			"Generate exactly %d pedagogically distinct %s-difficulty questions about the topic, using only the supplied context. Output one numbered question per line, nothing else.",
			count, difficulty,
		),
		Context:     contextDocs(chunks),
		Messages:    []llm.Message{{Role: "user", Content: topic}},
		Temperature: 0.4,
	}
	resp, err := o.completion.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qcm: synthesize questions: %w", err)
	}
	return parseNumberedLines(resp.Content), nil
}

type answerPayload struct {
	Correct     string `json:"correct"`
	Distractor1 string `json:"distractor_1"`
	Distractor2 string `json:"distractor_2"`
	BestSource  int    `json:"best_source_index"`
}

func (o *Orchestrator) answerQuestion(ctx context.Context, collection, question string, difficulty Difficulty) (Item, error) {
	ctxChunks, err := o.retriever.Retrieve(ctx, collection, question, o.cfg.AnswerTopK, o.cfg.AnswerTopK)
	if err != nil {
		return Item{}, fmt.Errorf("qcm: retrieve for question: %w", err)
	}
	if len(ctxChunks) == 0 {
		return Item{}, fmt.Errorf("qcm: no context retrieved for question %q", question)
	}

	req := llm.CompletionRequest{
		SystemPrompt: distractorPrompt(difficulty),
		Context:      contextDocs(ctxChunks),
		Messages:     []llm.Message{{Role: "user", Content: question}},
		Temperature:  0.5,
	}
	resp, err := o.completion.Complete(ctx, req)
	if err != nil {
		return Item{}, fmt.Errorf("qcm: answer question: %w", err)
	}

	var answer answerPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &answer); err != nil {
		return Item{}, fmt.Errorf("qcm: parse answer payload: %w", err)
	}

	best := ctxChunks[0]
	if answer.BestSource >= 0 && answer.BestSource < len(ctxChunks) {
		best = ctxChunks[answer.BestSource]
	}

	return Item{
		QuestionText: question,
		AnswerList:   [3]string{answer.Correct, answer.Distractor1, answer.Distractor2},
		SourceChunk:  best.Chunk,
	}, nil
}

func distractorPrompt(difficulty Difficulty) string {
	policy := map[Difficulty]string{
		DifficultyEasy:   "Both distractors must be clearly and obviously wrong.",
		DifficultyMedium: "One distractor should be plausible; the other clearly wrong.",
		DifficultyHard:   "Both distractors must be highly plausible.",
	}[difficulty]

	return "Given the question and supplied context, produce the correct answer and two distractors. " + policy +
		" Also identify which context source (0-indexed) best supports the correct answer. " +
		`Respond with strict JSON only: {"correct": "...", "distractor_1": "...", "distractor_2": "...", "best_source_index": 0}`
}

func (o *Orchestrator) render(items []Item) (markdown string, payload []byte) {
	var md strings.Builder
	rewriter := ragengine.NewCitationRewriter(rankedFromItems(items), o.fileCfg.FileserverInternalBase, o.fileCfg.FileserverPublicBase)

	for i, item := range items {
		md.WriteString(fmt.Sprintf("**Q%d.** %s\n\n", i+1, item.QuestionText))
		for j, opt := range displayOrder(item.AnswerList, i) {
			md.WriteString(fmt.Sprintf("%c. %s\n", 'A'+j, opt))
		}
		md.WriteString("\n<details><summary>Answer</summary>\n\n")
		md.WriteString(rewriter.Push(fmt.Sprintf("%s [SOURCE %d]\n\n", item.AnswerList[0], i+1)))
		md.WriteString("</details>\n\n")
	}
	md.WriteString(rewriter.Flush())

	if sources := rewriter.Sources(); len(sources) > 0 {
		md.WriteString("\n**Sources**\n")
		md.WriteString(ragengine.FormatSources(sources))
		md.WriteString("\n")
	}

	payload, _ = json.MarshalIndent(struct {
		Items []Item `json:"items"`
	}{Items: items}, "", "  ")

	return md.String(), payload
}

// displayOrder shuffles the answer list for display only, rotating by
// question index so the correct answer does not always land on option A.
// The JSON payload keeps the canonical order (correct answer first).
func displayOrder(answers [3]string, questionIndex int) [3]string {
	r := questionIndex % 3
	var out [3]string
	for j := range answers {
		out[(j+r)%3] = answers[j]
	}
	return out
}

func rankedFromItems(items []Item) []chunk.Ranked {
	out := make([]chunk.Ranked, len(items))
	for i, item := range items {
		out[i] = chunk.Ranked{Chunk: item.SourceChunk}
	}
	return out
}

func contextDocs(chunks []chunk.Ranked) []llm.ContextDocument {
	docs := make([]llm.ContextDocument, 0, len(chunks))
	for i, c := range chunks {
		docs = append(docs, llm.ContextDocument{
			Content: "[SOURCE " + strconv.Itoa(i) + "] " + c.Text,
			Source:  c.Title,
			Score:   c.FusedScore,
		})
	}
	return docs
}

func parseNumberedLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.) -")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
