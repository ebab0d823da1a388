//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hybridrag/corerag/internal/auth"
	"github.com/hybridrag/corerag/internal/config"
	"github.com/hybridrag/corerag/internal/course"
	"github.com/hybridrag/corerag/internal/fileserver"
	"github.com/hybridrag/corerag/internal/lemmatizer"
	"github.com/hybridrag/corerag/internal/lexicalstore"
	"github.com/hybridrag/corerag/internal/llm/factory"
	"github.com/hybridrag/corerag/internal/qcm"
	"github.com/hybridrag/corerag/internal/ragengine"
	"github.com/hybridrag/corerag/internal/registry"
	"github.com/hybridrag/corerag/internal/retriever"
	"github.com/hybridrag/corerag/internal/server"
	"github.com/hybridrag/corerag/internal/vectorstore"
)

var (
	version   = "1.0.0-alpha1"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to configuration file")
		showVersion = flag.Bool("version", false, "print version and exit")
		showHelp    = flag.Bool("help", false, "print usage and exit")
		dumpOpenAPI = flag.Bool("openapi", false, "print the OpenAPI document and exit")
	)
	flag.Parse()

	if *showHelp {
		flag.Usage()
		return
	}
	if *showVersion {
		fmt.Printf("ragserver %s (built %s, commit %s)\n", version, buildTime, gitCommit)
		return
	}
	if *dumpOpenAPI {
		spec := server.BuildOpenAPISpec()
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(spec); err != nil {
			fmt.Fprintln(os.Stderr, "failed to encode OpenAPI document:", err)
			os.Exit(1)
		}
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := registry.Load(cfg.Registry)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	vectors, closeVectors, err := newVectorStore(ctx, cfg.Services)
	if err != nil {
		return fmt.Errorf("build vector store: %w", err)
	}
	if closeVectors != nil {
		defer closeVectors()
	}

	lexical, err := lexicalstore.New(cfg.Services)
	if err != nil {
		return fmt.Errorf("build lexical store: %w", err)
	}

	embedder, err := factory.NewEmbedding(cfg.Services)
	if err != nil {
		return fmt.Errorf("build embedding provider: %w", err)
	}

	completion, err := factory.NewCompletion(cfg.Services)
	if err != nil {
		return fmt.Errorf("build completion provider: %w", err)
	}

	lem := lemmatizer.New(func(msg string) { logger.Warn("lemmatizer", "message", msg) })

	r := retriever.New(reg, vectors, lexical, embedder, lem, cfg.Retriever.BM25Weight, cfg.Retriever.VectorWeight, logger)

	var files *fileserver.Client
	if cfg.Services.FileserverUploadURL != "" {
		files = fileserver.NewClient(cfg.Services.FileserverUploadURL, cfg.Services.FileserverPublicBase)
	}

	deps := server.Deps{
		Registry: reg,
		Auth:     auth.ParseTokens(cfg.Auth.Tokens),
		RAG:      ragengine.New(r, completion, cfg.RAG, cfg.Services, logger),
		Course:   course.New(r, completion, cfg.Course, cfg.Services, logger),
		QCM:      qcm.New(r, completion, files, cfg.QCM, cfg.Services, logger),
	}

	srv := server.New(cfg, deps, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// newVectorStore builds the configured vector backend. The self-hosted
// Postgres/pgvector fallback needs an async connection pool, so it is
// constructed here rather than inside vectorstore.New; every other
// backend goes through the synchronous factory.
func newVectorStore(ctx context.Context, cfg config.ServicesConfig) (vectorstore.Store, func(), error) {
	if cfg.VectorBackend == config.BackendPostgres {
		store, err := vectorstore.NewPostgresStore(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}

	store, err := vectorstore.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}
