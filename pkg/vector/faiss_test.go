//go:build faiss && cgo
// +build faiss,cgo

package vector

import (
	"context"
	"path/filepath"
	"testing"
)

func TestFAISSIndex_AddSearch(t *testing.T) {
	idx, err := NewFAISSIndex(3, MetricL2)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d, want 3", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Ordinal != 0 {
		t.Errorf("top result should be ordinal 0, got %d", results[0].Ordinal)
	}
}

func TestFAISSIndex_SearchPadsWithNoResult(t *testing.T) {
	idx, err := NewFAISSIndex(3, MetricL2)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	_ = idx.Add(ctx, [][]float32{{1, 0, 0}})

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(results))
	}
	for _, r := range results[1:] {
		if r.Ordinal != NoResult {
			t.Errorf("expected NoResult padding, got %+v", r)
		}
	}
}

func TestFAISSIndex_DimensionMismatch(t *testing.T) {
	idx, err := NewFAISSIndex(3, MetricL2)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if err := idx.Add(context.Background(), [][]float32{{1, 0}}); err == nil {
		t.Error("expected error for wrong dimension")
	}
}

func TestFAISSIndex_Truncate(t *testing.T) {
	idx, err := NewFAISSIndex(2, MetricL2)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	_ = idx.Add(ctx, [][]float32{{0, 0}, {1, 1}, {2, 2}})

	if err := idx.Truncate(1); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 1 {
		t.Errorf("Size=%d, want 1", idx.Size())
	}
}

func TestFAISSIndex_SnapshotRoundTrip(t *testing.T) {
	idx, err := NewFAISSIndex(3, MetricInnerProduct)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	_ = idx.Add(ctx, [][]float32{{1, 0, 0}, {0, 1, 0}})

	path := filepath.Join(t.TempDir(), "docs.faiss")
	if err := idx.WriteSnapshot(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	defer loaded.Close()
	if loaded.Size() != 2 || loaded.Dimension() != 3 || loaded.Metric() != MetricInnerProduct {
		t.Errorf("loaded size=%d dim=%d metric=%s", loaded.Size(), loaded.Dimension(), loaded.Metric())
	}
	results, err := loaded.Search(ctx, []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Ordinal != 1 {
		t.Errorf("top result should be ordinal 1, got %d", results[0].Ordinal)
	}
}
