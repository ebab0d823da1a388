//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package factory

import (
	"testing"

	"github.com/hybridrag/corerag/internal/config"
)

func servicesCfg(mutate func(*config.ServicesConfig)) config.ServicesConfig {
	cfg := config.ServicesConfig{
		EmbeddingProvider: "ollama",
		LLMProvider:       "ollama",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return cfg
}

func TestNewEmbedding(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ServicesConfig
		wantErr bool
	}{
		{
			name: "openai with key",
			cfg: servicesCfg(func(c *config.ServicesConfig) {
				c.EmbeddingProvider = "openai"
				c.APIKeys.OpenAI = "test-key"
			}),
		},
		{
			name: "openai without key",
			cfg: servicesCfg(func(c *config.ServicesConfig) {
				c.EmbeddingProvider = "openai"
			}),
			wantErr: true,
		},
		{
			name: "voyage with key",
			cfg: servicesCfg(func(c *config.ServicesConfig) {
				c.EmbeddingProvider = "voyage"
				c.APIKeys.Voyage = "test-key"
			}),
		},
		{
			name: "ollama needs no key",
			cfg:  servicesCfg(nil),
		},
		{
			name: "anthropic has no embedding API",
			cfg: servicesCfg(func(c *config.ServicesConfig) {
				c.EmbeddingProvider = "anthropic"
				c.APIKeys.Anthropic = "test-key"
			}),
			wantErr: true,
		},
		{
			name: "unknown provider",
			cfg: servicesCfg(func(c *config.ServicesConfig) {
				c.EmbeddingProvider = "mystery"
			}),
			wantErr: true,
		},
		{
			name: "provider name is case-insensitive",
			cfg: servicesCfg(func(c *config.ServicesConfig) {
				c.EmbeddingProvider = "OpenAI"
				c.APIKeys.OpenAI = "test-key"
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewEmbedding(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEmbedding failed: %v", err)
			}
			if provider == nil {
				t.Fatal("expected non-nil provider")
			}
		})
	}
}

func TestNewCompletion(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ServicesConfig
		wantErr bool
	}{
		{
			name: "openai with key",
			cfg: servicesCfg(func(c *config.ServicesConfig) {
				c.LLMProvider = "openai"
				c.APIKeys.OpenAI = "test-key"
			}),
		},
		{
			name: "anthropic with key",
			cfg: servicesCfg(func(c *config.ServicesConfig) {
				c.LLMProvider = "anthropic"
				c.APIKeys.Anthropic = "test-key"
			}),
		},
		{
			name: "anthropic without key",
			cfg: servicesCfg(func(c *config.ServicesConfig) {
				c.LLMProvider = "anthropic"
			}),
			wantErr: true,
		},
		{
			name: "ollama needs no key",
			cfg:  servicesCfg(nil),
		},
		{
			name: "voyage has no completion API",
			cfg: servicesCfg(func(c *config.ServicesConfig) {
				c.LLMProvider = "voyage"
				c.APIKeys.Voyage = "test-key"
			}),
			wantErr: true,
		},
		{
			name: "unknown provider",
			cfg: servicesCfg(func(c *config.ServicesConfig) {
				c.LLMProvider = "mystery"
			}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewCompletion(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCompletion failed: %v", err)
			}
			if provider == nil {
				t.Fatal("expected non-nil provider")
			}
		})
	}
}

func TestNewCompletion_ModelOverride(t *testing.T) {
	cfg := servicesCfg(func(c *config.ServicesConfig) {
		c.LLMProvider = "openai"
		c.LLMModel = "gpt-4"
		c.APIKeys.OpenAI = "test-key"
	})

	provider, err := NewCompletion(cfg)
	if err != nil {
		t.Fatalf("NewCompletion failed: %v", err)
	}
	if provider.ModelName() != "gpt-4" {
		t.Errorf("expected model gpt-4, got %s", provider.ModelName())
	}
}
