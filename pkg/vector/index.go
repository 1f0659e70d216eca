// Package vector provides vector indexes that assign contiguous ordinals on insertion,
// answer k-nearest-neighbor queries and persist to a single snapshot file.
package vector

import (
	"context"
	"fmt"
	"math"
)

// NoResult is the ordinal reported for result slots the index could not fill.
const NoResult int64 = -1

// Index stores fixed-dimension vectors. Add assigns ordinals Size() .. Size()+n-1 in input
// order; Search returns exactly k results ranked nearest first, padding with NoResult when
// the index holds fewer than k vectors.
type Index interface {
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Dimension() int
	Size() int
	IsTrained() bool
	Metric() Metric
	// WriteSnapshot atomically replaces the file at path with the whole index.
	WriteSnapshot(path string) error
	Close() error
}

// Trainer is implemented by indexes that must be trained before Add.
type Trainer interface {
	Train(ctx context.Context, vectors [][]float32) error
}

// Truncater is implemented by indexes that can drop every ordinal >= n.
type Truncater interface {
	Truncate(n int) error
}

// Result is a single search hit. For MetricL2 Distance is the squared L2 distance; for
// MetricInnerProduct it is the inner product.
type Result struct {
	Ordinal  int64
	Distance float32
}

// Metric selects how vectors are compared.
type Metric string

const (
	// MetricL2 ranks by ascending squared Euclidean distance.
	MetricL2 Metric = "l2"
	// MetricInnerProduct ranks by descending inner product.
	MetricInnerProduct Metric = "ip"
)

// ParseMetric returns the metric named s; empty selects MetricL2.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricL2, "":
		return MetricL2, nil
	case MetricInnerProduct:
		return MetricInnerProduct, nil
	}
	return "", fmt.Errorf("unknown metric: %s (supported: l2, ip)", s)
}

// emptyDistance is the distance reported alongside NoResult.
func (m Metric) emptyDistance() float32 {
	if m == MetricInnerProduct {
		return float32(math.Inf(-1))
	}
	return float32(math.Inf(1))
}

// better reports whether distance a ranks before b.
func (m Metric) better(a, b float32) bool {
	if m == MetricInnerProduct {
		return a > b
	}
	return a < b
}

func padResults(results []Result, k int, m Metric) []Result {
	for len(results) < k {
		results = append(results, Result{Ordinal: NoResult, Distance: m.emptyDistance()})
	}
	return results
}
