package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeFlat uses in-process brute-force search. Exact; good up to ~100k vectors.
	IndexTypeFlat IndexType = "flat"
	// IndexTypeMemory is an alias of IndexTypeFlat.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS uses FAISS through its C API.
	// Requires FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewIndex creates an empty vector index of the specified type.
// Supported types: "flat" (default, alias "memory"), "faiss".
func NewIndex(indexType string, dimensions int, metric Metric) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeFlat, IndexTypeMemory, "":
		idx, err := NewFlatIndex(dimensions, metric)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case IndexTypeFAISS:
		idx, err := NewFAISSIndex(dimensions, metric)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, faiss)", indexType)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1, MetricL2)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
