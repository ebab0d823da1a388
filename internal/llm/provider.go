//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package llm provides a single abstraction over chat-completion and
// embedding backends (local or remote, streaming or not), so the rest of
// the core never type-switches between providers outside the factory that
// selects one at startup.
package llm

import (
	"context"
	"strings"
)

// EmbeddingProvider generates vector embeddings from text.
type EmbeddingProvider interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// Returns embeddings in the same order as input texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings produced.
	Dimensions() int

	// ModelName returns the name of the model being used.
	ModelName() string
}

// CompletionProvider generates text completions using an LLM.
type CompletionProvider interface {
	// Complete generates a completion for the given prompt.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CompleteStream generates a streaming completion.
	// The returned channel will receive response chunks until completion,
	// then be closed. Errors are returned via the error channel.
	CompleteStream(
		ctx context.Context,
		req CompletionRequest,
	) (<-chan StreamChunk, <-chan error)

	// ModelName returns the name of the model being used.
	ModelName() string
}

// CompletionRequest represents a request to an LLM for completion.
type CompletionRequest struct {
	// SystemPrompt is the system-level instruction for the model.
	SystemPrompt string

	// Messages is the conversation history.
	Messages []Message

	// MaxTokens is the maximum number of tokens to generate.
	// If 0, uses the provider's default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0+ = creative).
	// If negative, uses the provider's default.
	Temperature float64

	// Context contains retrieved documents to include in the prompt.
	Context []ContextDocument
}

// Message represents a message in the conversation.
type Message struct {
	Role    string // "user", "assistant", or "system"
	Content string
}

// ContextDocument represents a retrieved document for RAG.
type ContextDocument struct {
	Content  string
	Source   string
	Score    float64
	Metadata map[string]interface{}
}

// CompletionResponse represents a non-streaming completion response.
type CompletionResponse struct {
	Content      string
	FinishReason string
	Usage        TokenUsage
}

// ChunkKind distinguishes user-visible text from reasoning/thinking text
// within a streaming response, so callers can route each to a different
// envelope frame (content vs. progress).
type ChunkKind string

const (
	ChunkContent  ChunkKind = "content"
	ChunkThinking ChunkKind = "thinking"
)

// StreamChunk represents a chunk of a streaming response.
type StreamChunk struct {
	Kind         ChunkKind
	Content      string
	FinishReason string // Empty until the final chunk
	Usage        *TokenUsage
}

// TokenUsage represents token consumption for a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// FormatContext formats context documents as the knowledge-base prompt
// segment. Each document's Content is expected to open with its own
// "[SOURCE k]" header line; this wrapper only provides the enclosing
// <knowledge_base> block so the format is consistent across all
// completion providers.
func FormatContext(docs []ContextDocument) string {
	var sb strings.Builder
	sb.WriteString("<knowledge_base>\n")
	for _, doc := range docs {
		sb.WriteString(doc.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("</knowledge_base>")
	return sb.String()
}
