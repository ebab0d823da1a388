//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hybridrag/corerag/internal/chunk"
	"github.com/hybridrag/corerag/internal/config"
)

// PostgresStore is the self-hosted vector backend, used by deployments that
// don't run a separate vector search service. It queries a pgvector table
// per index: one row per chunk, named by the collection's vector_index_id.
//
// Expected schema per index table:
//
//	point_id    text primary key
//	text        text
//	title       text
//	source_url  text
//	section_path text[]
//	token_count int
//	extra_tags  jsonb
//	embedding   vector(d)
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a connection pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("vectorstore: parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("vectorstore: ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func buildConnString(cfg config.DatabaseConfig) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("host=%s", cfg.Host))
	parts = append(parts, fmt.Sprintf("port=%d", cfg.Port))
	parts = append(parts, fmt.Sprintf("dbname=%s", cfg.Database))

	username := cfg.Username
	if username == "" {
		username = os.Getenv("PGUSER")
	}
	if username == "" {
		username = os.Getenv("USER")
	}
	if username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", username))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}
	if cfg.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", cfg.SSLMode))
	}
	if cfg.SSLCert != "" {
		parts = append(parts, fmt.Sprintf("sslcert=%s", cfg.SSLCert))
	}
	if cfg.SSLKey != "" {
		parts = append(parts, fmt.Sprintf("sslkey=%s", cfg.SSLKey))
	}
	if cfg.SSLRootCA != "" {
		parts = append(parts, fmt.Sprintf("sslrootcert=%s", cfg.SSLRootCA))
	}

	return strings.Join(parts, " ")
}

// formatVector renders an embedding in pgvector's text input format.
func formatVector(v []float32) string {
	strs := make([]string, len(v))
	for i, f := range v {
		strs[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(strs, ",") + "]"
}

// Search runs a cosine-distance nearest neighbor query via the pgvector
// <=> operator, converting distance to similarity (1 - distance).
func (s *PostgresStore) Search(ctx context.Context, indexID string, vector []float32, topK int) ([]Result, error) {
	topK = ClampTopK(topK)
	table := pgx.Identifier{indexID}.Sanitize()

	query := fmt.Sprintf(`
		SELECT point_id, text, title, source_url, section_path, token_count, extra_tags,
		       1 - (embedding <=> $1::vector) AS score
		FROM %s
		ORDER BY embedding <=> $1::vector
		LIMIT $2`, table)

	rows, err := s.pool.Query(ctx, query, formatVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query %s: %w", indexID, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			pointID, text, title, sourceURL string
			sectionPath                     []string
			tokenCount                      int
			extraTagsRaw                    []byte
			score                           float64
		)
		if err := rows.Scan(&pointID, &text, &title, &sourceURL, &sectionPath, &tokenCount, &extraTagsRaw, &score); err != nil {
			return nil, fmt.Errorf("vectorstore: scan row: %w", err)
		}

		var extraTags map[string]string
		if len(extraTagsRaw) > 0 {
			_ = json.Unmarshal(extraTagsRaw, &extraTags)
		}

		results = append(results, Result{
			PointID: pointID,
			Score:   score,
			Chunk: chunk.Chunk{
				PointID:     pointID,
				Text:        text,
				Title:       title,
				SourceURL:   sourceURL,
				SectionPath: sectionPath,
				TokenCount:  tokenCount,
				ExtraTags:   extraTags,
			},
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vectorstore: iterate rows: %w", err)
	}

	return results, nil
}

var _ Store = (*PostgresStore)(nil)
