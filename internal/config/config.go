//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration loading and validation for the
// hybrid RAG core: retriever tuning, the RAG/course/QCM pipelines, the
// backing service URLs, and the bearer token allowlist.
package config

import "fmt"

// Config is the root configuration structure for the server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Services  ServicesConfig  `yaml:"services"`
	Auth      AuthConfig      `yaml:"auth"`
	Registry  string          `yaml:"registry_path"`
	Retriever RetrieverConfig `yaml:"retriever"`
	RAG       RAGConfig       `yaml:"rag"`
	Course    CourseConfig    `yaml:"course"`
	QCM       QCMConfig       `yaml:"qcm"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	ListenAddress string     `yaml:"listen_address"`
	Port          int        `yaml:"port"`
	TLS           TLSConfig  `yaml:"tls"`
	CORS          CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) settings.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// TLSConfig contains TLS/HTTPS settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// BackendKind selects which concrete implementation a retrieval backend
// resolves to at startup. There is no runtime type-switching on this value
// outside the one factory that reads it.
type BackendKind string

const (
	BackendHTTP     BackendKind = "http"
	BackendPostgres BackendKind = "postgres" // vectorstore self-hosted fallback
	BackendInMemory BackendKind = "inmemory" // lexicalstore self-hosted fallback
)

// ServicesConfig holds the external collaborator URLs and backend choices.
type ServicesConfig struct {
	VectorBackend          BackendKind    `yaml:"vector_backend"`
	VectorURL              string         `yaml:"vector_url"`
	LexicalBackend         BackendKind    `yaml:"lexical_backend"`
	LexicalURL             string         `yaml:"lexical_url"`
	EmbeddingProvider      string         `yaml:"embedding_provider"` // openai | voyage | ollama
	EmbeddingModel         string         `yaml:"embedding_model"`
	LLMProvider            string         `yaml:"llm_provider"` // openai | anthropic | ollama
	LLMModel               string         `yaml:"llm_model"`
	APIKeys                APIKeysConfig  `yaml:"api_keys"`
	FileserverInternalBase string         `yaml:"fileserver_internal_base"`
	FileserverPublicBase   string         `yaml:"fileserver_public_base"`
	FileserverUploadURL    string         `yaml:"fileserver_upload_url"`
	Database               DatabaseConfig `yaml:"database"` // used only by the postgres vector backend
}

// APIKeysConfig holds provider API keys, each overridable independently by
// environment variable (ANTHROPIC_API_KEY, OPENAI_API_KEY, VOYAGE_API_KEY).
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Voyage    string `yaml:"voyage"`
}

// DatabaseConfig contains PostgreSQL connection settings for the
// self-hosted pgvector fallback backend.
type DatabaseConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	SSLMode   string `yaml:"ssl_mode"`
	SSLCert   string `yaml:"ssl_cert"`
	SSLKey    string `yaml:"ssl_key"`
	SSLRootCA string `yaml:"ssl_root_ca"`
}

// AuthConfig carries the bearer token allowlist, "tok:uid:name,...".
type AuthConfig struct {
	Tokens string `yaml:"tokens"`
}

// RetrieverConfig tunes the hybrid retriever (C4).
type RetrieverConfig struct {
	InitialK     int     `yaml:"initial_k"`
	FinalK       int     `yaml:"final_k"`
	BM25Weight   float64 `yaml:"bm25_weight"`
	VectorWeight float64 `yaml:"vector_weight"`
}

// RAGConfig tunes the RAG engine (C6).
type RAGConfig struct {
	Temperature        float64 `yaml:"temperature"`
	DefaultTopK        int     `yaml:"default_top_k"`
	MaxTokens          int     `yaml:"max_tokens"`
	StreamChunkSize    int     `yaml:"stream_chunk_size"`
	StreamChunkDelayMS int     `yaml:"stream_chunk_delay_ms"`
}

// CourseConfig tunes the course orchestrator (C8).
type CourseConfig struct {
	RetrieverTopK      int `yaml:"retriever_top_k"`
	EnhancerIterations int `yaml:"enhancer_iterations"`
	EnhancerTopK       int `yaml:"enhancer_top_k"`
	MaxTokens          int `yaml:"max_tokens"`
}

// QCMConfig tunes the QCM orchestrator (C9).
type QCMConfig struct {
	RetrieverTopK int `yaml:"retriever_top_k"`
	AnswerTopK    int `yaml:"answer_top_k"`
	MaxTokens     int `yaml:"max_tokens"`
}

// DefaultConfig returns a Config with sensible default values, mirroring
// the defaults spelled out in the service specification.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress: "0.0.0.0",
			Port:          8080,
		},
		Services: ServicesConfig{
			VectorBackend:  BackendHTTP,
			LexicalBackend: BackendHTTP,
		},
		Retriever: RetrieverConfig{
			InitialK:     8,
			FinalK:       5,
			BM25Weight:   0.5,
			VectorWeight: 0.5,
		},
		RAG: RAGConfig{
			Temperature:        0.7,
			DefaultTopK:        5,
			MaxTokens:          4096,
			StreamChunkSize:    5,
			StreamChunkDelayMS: 10,
		},
		Course: CourseConfig{
			RetrieverTopK:      5,
			EnhancerIterations: 3,
			EnhancerTopK:       5,
			MaxTokens:          8000,
		},
		QCM: QCMConfig{
			RetrieverTopK: 15,
			AnswerTopK:    5,
			MaxTokens:     8000,
		},
	}
}

// ClampTopK clamps a requested top-K to [1, 100]; a non-positive value
// falls back to def.
func ClampTopK(requested, def int) int {
	if requested <= 0 {
		requested = def
	}
	if requested < 1 {
		return 1
	}
	if requested > 100 {
		return 100
	}
	return requested
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{port=%d, vector_backend=%s, lexical_backend=%s}",
		c.Server.Port, c.Services.VectorBackend, c.Services.LexicalBackend)
}
