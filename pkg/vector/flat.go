package vector

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// FlatIndex is an exact brute-force index. Vectors are kept in one contiguous slice in
// ordinal order, so ordinal i occupies data[i*dim : (i+1)*dim]. It needs no training.
type FlatIndex struct {
	dimensions  int
	metric      Metric
	compression Compression
	data        []float32
	mu          sync.RWMutex
}

// NewFlatIndex creates an empty flat index with the given dimension and metric.
func NewFlatIndex(dimensions int, metric Metric) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	if metric == "" {
		metric = MetricL2
	}
	return &FlatIndex{
		dimensions:  dimensions,
		metric:      metric,
		compression: CompressionNone,
	}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeFlat)
}

// SetCompression selects the payload compression used by WriteSnapshot.
func (f *FlatIndex) SetCompression(c Compression) error {
	if err := c.validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compression = c
	return nil
}

// Compression returns the payload compression used by WriteSnapshot.
func (f *FlatIndex) Compression() Compression {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.compression
}

// Add appends vectors; the first gets ordinal Size(). Either all vectors are added or none.
func (f *FlatIndex) Add(ctx context.Context, vectors [][]float32) error {
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(vec), f.dimensions)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, vec := range vectors {
		f.data = append(f.data, vec...)
	}
	return nil
}

// Search returns the k nearest ordinals. Equal distances are ranked by ascending ordinal.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := len(f.data) / f.dimensions
	scored := make([]Result, n)
	for i := 0; i < n; i++ {
		vec := f.data[i*f.dimensions : (i+1)*f.dimensions]
		var d float32
		if f.metric == MetricInnerProduct {
			d = InnerProduct(query, vec)
		} else {
			d = L2Squared(query, vec)
		}
		scored[i] = Result{Ordinal: int64(i), Distance: d}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return f.metric.better(scored[i].Distance, scored[j].Distance)
	})
	if k < len(scored) {
		scored = scored[:k]
	}
	return padResults(scored, k, f.metric), nil
}

// Vector returns a copy of the vector stored at ordinal.
func (f *FlatIndex) Vector(ordinal int64) ([]float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if ordinal < 0 || ordinal >= int64(len(f.data)/f.dimensions) {
		return nil, fmt.Errorf("ordinal %d out of range", ordinal)
	}
	out := make([]float32, f.dimensions)
	copy(out, f.data[int(ordinal)*f.dimensions:])
	return out, nil
}

// Truncate drops every ordinal >= n.
func (f *FlatIndex) Truncate(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	size := len(f.data) / f.dimensions
	if n < 0 || n > size {
		return fmt.Errorf("truncate to %d: index holds %d vectors", n, size)
	}
	f.data = f.data[:n*f.dimensions]
	return nil
}

// WriteSnapshot persists the whole index to path in the flat snapshot format.
func (f *FlatIndex) WriteSnapshot(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return writeFileAtomic(path, func(w io.Writer) error {
		return encodeFlat(w, f.metric, f.compression, f.dimensions, f.data)
	})
}

// Dimension returns the vector dimension.
func (f *FlatIndex) Dimension() int {
	return f.dimensions
}

// Metric returns the distance metric.
func (f *FlatIndex) Metric() Metric {
	return f.metric
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.data) / f.dimensions
}

// IsTrained is always true for a flat index.
func (f *FlatIndex) IsTrained() bool {
	return true
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}
