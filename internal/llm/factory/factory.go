//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package factory selects the embedding and completion providers from the
// services configuration, the same dispatch-by-config pattern the
// retrieval backends use (vectorstore.New, lexicalstore.New): one switch
// at startup, no type-switching in any hot path afterwards.
package factory

import (
	"fmt"
	"strings"

	"github.com/hybridrag/corerag/internal/config"
	"github.com/hybridrag/corerag/internal/llm"
	"github.com/hybridrag/corerag/internal/llm/anthropic"
	"github.com/hybridrag/corerag/internal/llm/ollama"
	"github.com/hybridrag/corerag/internal/llm/openai"
	"github.com/hybridrag/corerag/internal/llm/voyage"
)

// Provider names recognized in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderVoyage    = "voyage"
	ProviderOllama    = "ollama"
)

// NewEmbedding builds the configured embedding provider. Ollama is the
// only provider that needs no API key; the cloud providers fail fast at
// startup rather than on the first query.
func NewEmbedding(cfg config.ServicesConfig) (llm.EmbeddingProvider, error) {
	model := cfg.EmbeddingModel

	switch strings.ToLower(cfg.EmbeddingProvider) {
	case ProviderOpenAI:
		if cfg.APIKeys.OpenAI == "" {
			return nil, fmt.Errorf("factory: openai embedding provider requires an API key")
		}
		opts := []openai.EmbeddingOption{}
		if model != "" {
			opts = append(opts, openai.WithEmbeddingModel(model))
		}
		return openai.NewEmbeddingProvider(cfg.APIKeys.OpenAI, opts...), nil

	case ProviderVoyage:
		if cfg.APIKeys.Voyage == "" {
			return nil, fmt.Errorf("factory: voyage embedding provider requires an API key")
		}
		opts := []voyage.EmbeddingOption{}
		if model != "" {
			opts = append(opts, voyage.WithModel(model))
		}
		return voyage.NewEmbeddingProvider(cfg.APIKeys.Voyage, opts...), nil

	case ProviderOllama:
		opts := []ollama.EmbeddingOption{}
		if model != "" {
			opts = append(opts, ollama.WithEmbeddingModel(model))
		}
		return ollama.NewEmbeddingProvider(opts...), nil

	case ProviderAnthropic:
		return nil, fmt.Errorf("factory: anthropic has no embedding API")

	default:
		return nil, fmt.Errorf("factory: unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

// NewCompletion builds the configured completion provider.
func NewCompletion(cfg config.ServicesConfig) (llm.CompletionProvider, error) {
	model := cfg.LLMModel

	switch strings.ToLower(cfg.LLMProvider) {
	case ProviderOpenAI:
		if cfg.APIKeys.OpenAI == "" {
			return nil, fmt.Errorf("factory: openai completion provider requires an API key")
		}
		opts := []openai.CompletionOption{}
		if model != "" {
			opts = append(opts, openai.WithCompletionModel(model))
		}
		return openai.NewCompletionProvider(cfg.APIKeys.OpenAI, opts...), nil

	case ProviderAnthropic:
		if cfg.APIKeys.Anthropic == "" {
			return nil, fmt.Errorf("factory: anthropic completion provider requires an API key")
		}
		opts := []anthropic.CompletionOption{}
		if model != "" {
			opts = append(opts, anthropic.WithCompletionModel(model))
		}
		return anthropic.NewCompletionProvider(cfg.APIKeys.Anthropic, opts...), nil

	case ProviderOllama:
		opts := []ollama.CompletionOption{}
		if model != "" {
			opts = append(opts, ollama.WithCompletionModel(model))
		}
		return ollama.NewCompletionProvider(opts...), nil

	case ProviderVoyage:
		return nil, fmt.Errorf("factory: voyage has no completion API")

	default:
		return nil, fmt.Errorf("factory: unknown completion provider %q", cfg.LLMProvider)
	}
}
