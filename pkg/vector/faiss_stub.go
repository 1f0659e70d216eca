//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import (
	"context"
	"errors"
	"fmt"
)

// ErrFAISSUnavailable is returned by every FAISS operation when FAISS is not compiled in.
var ErrFAISSUnavailable = errors.New("FAISS not available: build with -tags=faiss and install FAISS library")

// FAISSIndex is a stub that returns an error when FAISS is not available.
// Build with -tags=faiss to enable FAISS support.
type FAISSIndex struct{}

// NewFAISSIndex returns an error because FAISS is not available.
func NewFAISSIndex(dimensions int, metric Metric) (*FAISSIndex, error) {
	return nil, ErrFAISSUnavailable
}

func readFAISSSnapshot(path string) (Index, error) {
	return nil, fmt.Errorf("not a flat snapshot and %w", ErrFAISSUnavailable)
}

// Add is not implemented without FAISS.
func (f *FAISSIndex) Add(ctx context.Context, vectors [][]float32) error {
	return ErrFAISSUnavailable
}

// Search is not implemented without FAISS.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	return nil, ErrFAISSUnavailable
}

// WriteSnapshot is not implemented without FAISS.
func (f *FAISSIndex) WriteSnapshot(path string) error {
	return ErrFAISSUnavailable
}

// Dimension returns 0 without FAISS.
func (f *FAISSIndex) Dimension() int { return 0 }

// Metric returns MetricL2 without FAISS.
func (f *FAISSIndex) Metric() Metric { return MetricL2 }

// Size returns 0 without FAISS.
func (f *FAISSIndex) Size() int {
	return 0
}

// IsTrained returns false without FAISS.
func (f *FAISSIndex) IsTrained() bool { return false }

// Close is a no-op without FAISS.
func (f *FAISSIndex) Close() error {
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
