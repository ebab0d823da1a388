//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAndResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	contents := `{"btp": {"vector_index_id": "btp_v", "lexical_index_id": "btp_l"}}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	col, err := reg.Resolve("btp")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if col.VectorIndexID != "btp_v" || col.LexicalIndexID != "btp_l" {
		t.Fatalf("unexpected collection: %+v", col)
	}

	if _, err := reg.Resolve("missing"); err != ErrUnknownCollection {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestNamesSorted(t *testing.T) {
	reg := New(map[string]Collection{
		"zeta":  {VectorIndexID: "z"},
		"alpha": {VectorIndexID: "a"},
	})

	names := reg.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("unexpected names: %v", names)
	}
}
