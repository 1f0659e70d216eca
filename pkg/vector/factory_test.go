package vector

import (
	"context"
	"errors"
	"testing"
)

func TestNewIndex_Flat(t *testing.T) {
	for _, typ := range []string{"flat", "memory", ""} {
		idx, err := NewIndex(typ, 3, MetricL2)
		if err != nil {
			t.Fatalf("NewIndex(%q): %v", typ, err)
		}
		if _, ok := idx.(*FlatIndex); !ok {
			t.Errorf("NewIndex(%q) returned %T, want *FlatIndex", typ, idx)
		}
		if err := idx.Add(context.Background(), [][]float32{{1, 0, 0}}); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if idx.Size() != 1 {
			t.Errorf("Size=%d, want 1", idx.Size())
		}
		_ = idx.Close()
	}
}

func TestNewIndex_Unknown(t *testing.T) {
	idx, err := NewIndex("hnsw", 3, MetricL2)
	if err == nil {
		t.Error("expected error for unknown index type")
	}
	if idx != nil {
		t.Errorf("expected nil index on error, got %T", idx)
	}
}

func TestNewIndex_InvalidDimension(t *testing.T) {
	idx, err := NewIndex("flat", 0, MetricL2)
	if err == nil {
		t.Error("expected error for zero dimension")
	}
	if idx != nil {
		t.Error("expected nil index on error")
	}
}

func TestNewIndex_FAISSWithoutSupport(t *testing.T) {
	if IsFAISSAvailable() {
		t.Skip("FAISS compiled in")
	}
	idx, err := NewIndex("faiss", 3, MetricL2)
	if !errors.Is(err, ErrFAISSUnavailable) {
		t.Errorf("expected ErrFAISSUnavailable, got %v", err)
	}
	if idx != nil {
		t.Error("expected nil index on error")
	}
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in      string
		want    Metric
		wantErr bool
	}{
		{"", MetricL2, false},
		{"l2", MetricL2, false},
		{"ip", MetricInnerProduct, false},
		{"cosine", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMetric(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMetric(%q) err=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMetric(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}
