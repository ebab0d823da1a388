//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package server provides the public HTTP surface: three OpenAI-style
// chat-completions feature endpoints (/rag, /course, /qcm) backed by the
// hybrid retriever, RAG engine, and multi-agent orchestrators.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hybridrag/corerag/internal/auth"
	"github.com/hybridrag/corerag/internal/config"
	"github.com/hybridrag/corerag/internal/course"
	"github.com/hybridrag/corerag/internal/qcm"
	"github.com/hybridrag/corerag/internal/ragengine"
	"github.com/hybridrag/corerag/internal/registry"
)

// Server is the HTTP server for the RAG, course, and QCM feature surfaces.
type Server struct {
	config   *config.Config
	registry *registry.Registry
	auth     *auth.Registry
	rag      *ragengine.Engine
	course   *course.Orchestrator
	qcm      *qcm.Orchestrator
	logger   *slog.Logger
	server   *http.Server
	mux      *http.ServeMux
}

// Deps bundles the components the server needs beyond configuration.
type Deps struct {
	Registry *registry.Registry
	Auth     *auth.Registry
	RAG      *ragengine.Engine
	Course   *course.Orchestrator
	QCM      *qcm.Orchestrator
}

// New creates a new HTTP server and wires its routes.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   cfg,
		registry: deps.Registry,
		auth:     deps.Auth,
		rag:      deps.RAG,
		course:   deps.Course,
		qcm:      deps.QCM,
		logger:   logger,
		mux:      http.NewServeMux(),
	}

	s.setupRoutes()

	return s
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.ListenAddress, s.config.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.applyMiddleware(s.mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // course generation may stream for up to 10 minutes
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting server",
		"address", addr,
		"tls", s.config.Server.TLS.Enabled)

	if s.config.Server.TLS.Enabled {
		return s.serveTLS()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.server.Serve(listener)
}

// serveTLS starts the server with TLS.
func (s *Server) serveTLS() error {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	s.server.TLSConfig = tlsCfg

	return s.server.ListenAndServeTLS(
		s.config.Server.TLS.CertFile,
		s.config.Server.TLS.KeyFile,
	)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}

	return nil
}

// Addr returns the server's address. Returns empty string if not started.
func (s *Server) Addr() string {
	if s.server != nil {
		return s.server.Addr
	}
	return ""
}
