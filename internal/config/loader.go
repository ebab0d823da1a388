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
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the default configuration file name.
	ConfigFileName = "ragcore.yaml"

	// SystemConfigPath is the system-wide configuration path.
	SystemConfigPath = "/etc/hybridrag/" + ConfigFileName
)

// Load loads the configuration from the specified path, or searches
// default locations if path is empty, then applies environment variable
// overrides on top of the file.
//
// Search order:
//  1. Explicit path (if provided)
//  2. /etc/hybridrag/ragcore.yaml
//  3. ragcore.yaml in the binary's directory
func Load(path string) (*Config, error) {
	configPath, err := findConfigFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := loadFromFile(configPath)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	searchPaths := []string{
		SystemConfigPath,
		getBinaryDirConfigPath(),
	}

	for _, p := range searchPaths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no configuration file found; searched: %v", searchPaths)
}

func getBinaryDirConfigPath() string {
	executable, err := os.Executable()
	if err != nil {
		return ""
	}

	executable, err = filepath.EvalSymlinks(executable)
	if err != nil {
		return ""
	}

	return filepath.Join(filepath.Dir(executable), ConfigFileName)
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// envOverride sets *dst to the value of the named environment variable
// when it is set, leaving dst untouched otherwise.
func envOverride(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideFloat(dst *float64, name string) {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// applyEnvOverrides layers environment variables on top of the file-loaded
// configuration, following the same file-then-env cascade the rest of the
// core uses for provider API keys.
func applyEnvOverrides(cfg *Config) {
	envOverrideInt(&cfg.Server.Port, "RAGCORE_PORT")
	envOverride(&cfg.Registry, "RAGCORE_REGISTRY_PATH")

	envOverride(&cfg.Services.VectorURL, "RAGCORE_VECTOR_URL")
	envOverride(&cfg.Services.LexicalURL, "RAGCORE_LEXICAL_URL")
	envOverride(&cfg.Services.EmbeddingProvider, "RAGCORE_EMBEDDING_PROVIDER")
	envOverride(&cfg.Services.EmbeddingModel, "RAGCORE_EMBEDDING_MODEL")
	envOverride(&cfg.Services.LLMProvider, "RAGCORE_LLM_PROVIDER")
	envOverride(&cfg.Services.LLMModel, "RAGCORE_LLM_MODEL")
	envOverride(&cfg.Services.FileserverInternalBase, "RAGCORE_FILESERVER_INTERNAL_BASE")
	envOverride(&cfg.Services.FileserverPublicBase, "RAGCORE_FILESERVER_PUBLIC_BASE")

	envOverride(&cfg.Services.APIKeys.Anthropic, "ANTHROPIC_API_KEY")
	envOverride(&cfg.Services.APIKeys.OpenAI, "OPENAI_API_KEY")
	envOverride(&cfg.Services.APIKeys.Voyage, "VOYAGE_API_KEY")

	envOverride(&cfg.Auth.Tokens, "RAGCORE_AUTH_TOKENS")

	envOverrideInt(&cfg.Retriever.InitialK, "RAGCORE_RETRIEVER_INITIAL_K")
	envOverrideInt(&cfg.Retriever.FinalK, "RAGCORE_RETRIEVER_FINAL_K")
	envOverrideFloat(&cfg.Retriever.BM25Weight, "RAGCORE_RETRIEVER_BM25_WEIGHT")
	envOverrideFloat(&cfg.Retriever.VectorWeight, "RAGCORE_RETRIEVER_VECTOR_WEIGHT")

	envOverrideFloat(&cfg.RAG.Temperature, "RAGCORE_RAG_TEMPERATURE")
	envOverrideInt(&cfg.RAG.DefaultTopK, "RAGCORE_RAG_DEFAULT_TOP_K")
	envOverrideInt(&cfg.RAG.StreamChunkSize, "RAGCORE_RAG_STREAM_CHUNK_SIZE")
	envOverrideInt(&cfg.RAG.StreamChunkDelayMS, "RAGCORE_RAG_STREAM_CHUNK_DELAY_MS")

	envOverrideInt(&cfg.Course.RetrieverTopK, "RAGCORE_COURSE_RETRIEVER_TOP_K")
	envOverrideInt(&cfg.Course.EnhancerIterations, "RAGCORE_COURSE_ENHANCER_ITERATIONS")
	envOverrideInt(&cfg.Course.EnhancerTopK, "RAGCORE_COURSE_ENHANCER_TOP_K")

	envOverrideInt(&cfg.QCM.RetrieverTopK, "RAGCORE_QCM_RETRIEVER_TOP_K")
	envOverrideInt(&cfg.QCM.AnswerTopK, "RAGCORE_QCM_ANSWER_TOP_K")
}
