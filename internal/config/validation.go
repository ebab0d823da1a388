//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns all validation
// errors found.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{"server.port", "must be between 1 and 65535"})
	}

	if c.Registry == "" {
		errs = append(errs, ValidationError{"registry_path", "required"})
	}

	errs = append(errs, c.validateServices()...)
	errs = append(errs, c.validateRetriever()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateServices() ValidationErrors {
	var errs ValidationErrors
	s := c.Services

	switch s.VectorBackend {
	case BackendHTTP:
		if s.VectorURL == "" {
			errs = append(errs, ValidationError{"services.vector_url", "required for http backend"})
		}
	case BackendPostgres:
		if s.Database.Host == "" {
			errs = append(errs, ValidationError{"services.database.host", "required for postgres backend"})
		}
	default:
		errs = append(errs, ValidationError{"services.vector_backend", "must be http or postgres"})
	}

	switch s.LexicalBackend {
	case BackendHTTP:
		if s.LexicalURL == "" {
			errs = append(errs, ValidationError{"services.lexical_url", "required for http backend"})
		}
	case BackendInMemory:
		// nothing required; the self-hosted index starts empty
	default:
		errs = append(errs, ValidationError{"services.lexical_backend", "must be http or inmemory"})
	}

	validLLM := map[string]bool{"openai": true, "anthropic": true, "ollama": true}
	if !validLLM[strings.ToLower(s.LLMProvider)] {
		errs = append(errs, ValidationError{"services.llm_provider", "must be one of: openai, anthropic, ollama"})
	}

	return errs
}

func (c *Config) validateRetriever() ValidationErrors {
	var errs ValidationErrors
	r := c.Retriever

	if r.InitialK < 1 || r.InitialK > 64 {
		errs = append(errs, ValidationError{"retriever.initial_k", "must be between 1 and 64"})
	}
	if r.FinalK < 1 {
		errs = append(errs, ValidationError{"retriever.final_k", "must be positive"})
	}
	if w := r.BM25Weight + r.VectorWeight; w < 0.999 || w > 1.001 {
		errs = append(errs, ValidationError{"retriever.bm25_weight+vector_weight", "must sum to 1"})
	}

	return errs
}
