package vector

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMemoryIndex_UpsertSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	keys := []string{"SOP-001.md#0", "SOP-001.md#1", "QA-Report.md#0"}
	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Upsert(ctx, keys, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size = %d, want 3", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Key != "SOP-001.md#0" {
		t.Errorf("top result = %s, want SOP-001.md#0", results[0].Key)
	}
}

func TestMemoryIndex_UpsertReplaces(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()

	_ = idx.Upsert(ctx, []string{"a#0", "b#0"}, [][]float32{{1, 0}, {0, 1}})
	// Re-upserting a#0 with b#0's direction replaces the vector without
	// growing the index or losing insertion position.
	if err := idx.Upsert(ctx, []string{"a#0"}, [][]float32{{0, 1}}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 2 {
		t.Fatalf("Size = %d after replace, want 2", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{0, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	// Identical scores: the earlier-inserted key must win the tie.
	if results[0].Key != "a#0" {
		t.Errorf("tie should go to earlier insertion, got %s", results[0].Key)
	}
}

func TestMemoryIndex_TieBreakInsertionOrder(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()

	_ = idx.Upsert(ctx, []string{"late#5"}, [][]float32{{1, 0}})
	_ = idx.Upsert(ctx, []string{"early#0"}, [][]float32{{1, 0}})

	results, err := idx.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Key != "late#5" {
		t.Errorf("first inserted key should rank first on tie, got %s", results[0].Key)
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(3)
	ctx := context.Background()

	if err := idx.Upsert(ctx, []string{"x"}, [][]float32{{1, 0}}); err == nil {
		t.Error("expected error for vector dimension mismatch")
	}
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); err == nil {
		t.Error("expected error for query dimension mismatch")
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Upsert(ctx, []string{"a#0", "b#0"}, [][]float32{{1, 0}, {0, 1}})

	path := filepath.Join(t.TempDir(), "chunks.idx")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewMemoryIndex(2)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("loaded Size = %d, want 2", loaded.Size())
	}
	results, err := loaded.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Key != "b#0" {
		t.Errorf("loaded search top = %s, want b#0", results[0].Key)
	}
}

func TestMemoryIndex_LoadMissingFile(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	if err := idx.Load(filepath.Join(t.TempDir(), "absent.idx")); err != nil {
		t.Errorf("missing file should not be an error: %v", err)
	}
}
