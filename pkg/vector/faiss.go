//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
#include <faiss/c_api/impl/AuxIndexStructures_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"
)

// FAISSIndex wraps a FAISS flat index through the FAISS C API. FAISS ordinals are the
// insertion positions, so no id mapping is kept; the snapshot is the native FAISS file.
type FAISSIndex struct {
	index      *C.FaissIndex
	dimensions int
	metric     Metric
	mu         sync.RWMutex
}

// NewFAISSIndex creates an IndexFlatL2 or IndexFlatIP with the given dimension.
func NewFAISSIndex(dimensions int, metric Metric) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	metric, err := ParseMetric(string(metric))
	if err != nil {
		return nil, err
	}

	var index *C.FaissIndex
	if metric == MetricInnerProduct {
		var flat *C.FaissIndexFlatIP
		if C.faiss_IndexFlatIP_new_with(&flat, C.idx_t(dimensions)) != 0 {
			return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
		}
		index = (*C.FaissIndex)(unsafe.Pointer(flat))
	} else {
		var flat *C.FaissIndexFlatL2
		if C.faiss_IndexFlatL2_new_with(&flat, C.idx_t(dimensions)) != 0 {
			return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
		}
		index = (*C.FaissIndex)(unsafe.Pointer(flat))
	}

	return &FAISSIndex{index: index, dimensions: dimensions, metric: metric}, nil
}

// faissLastError returns the last FAISS error message.
func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Add appends vectors; FAISS assigns ordinals ntotal .. ntotal+n-1.
func (f *FAISSIndex) Add(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	n := len(vectors)
	flat := make([]float32, n*f.dimensions)
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(vec), f.dimensions)
		}
		copy(flat[i*f.dimensions:(i+1)*f.dimensions], vec)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index == nil {
		return fmt.Errorf("FAISS index is closed")
	}
	if C.faiss_Index_add(f.index, C.idx_t(n), (*C.float)(unsafe.Pointer(&flat[0]))) != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	return nil
}

// Train trains the index. Flat indexes are always trained, so this only matters for
// snapshots of other FAISS index types loaded with ReadSnapshot.
func (f *FAISSIndex) Train(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	flat := make([]float32, 0, len(vectors)*f.dimensions)
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(vec), f.dimensions)
		}
		flat = append(flat, vec...)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if C.faiss_Index_train(f.index, C.idx_t(len(vectors)), (*C.float)(unsafe.Pointer(&flat[0]))) != 0 {
		return fmt.Errorf("failed to train FAISS index: %s", faissLastError())
	}
	return nil
}

// Search returns k results; FAISS reports -1 labels for unfilled slots.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	distances := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	results := make([]Result, k)
	for i := 0; i < k; i++ {
		if labels[i] < 0 {
			results[i] = Result{Ordinal: NoResult, Distance: f.metric.emptyDistance()}
			continue
		}
		results[i] = Result{Ordinal: labels[i], Distance: distances[i]}
	}
	return results, nil
}

// Truncate removes every ordinal >= n. IndexFlat compacts on removal, so removing a tail
// range leaves the remaining ordinals unchanged.
func (f *FAISSIndex) Truncate(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := int(C.faiss_Index_ntotal(f.index))
	if n < 0 || n > total {
		return fmt.Errorf("truncate to %d: index holds %d vectors", n, total)
	}
	if n == total {
		return nil
	}
	var sel *C.FaissIDSelectorRange
	if C.faiss_IDSelectorRange_new(&sel, C.idx_t(n), C.idx_t(total)) != 0 {
		return fmt.Errorf("create id selector: %s", faissLastError())
	}
	defer C.faiss_IDSelectorRange_free(sel)
	var removed C.size_t
	if C.faiss_Index_remove_ids(f.index, (*C.FaissIDSelector)(unsafe.Pointer(sel)), &removed) != 0 {
		return fmt.Errorf("remove FAISS ids: %s", faissLastError())
	}
	return nil
}

// WriteSnapshot writes the native FAISS file atomically.
func (f *FAISSIndex) WriteSnapshot(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return replaceFile(path, func(tmp string) error {
		cPath := C.CString(tmp)
		defer C.free(unsafe.Pointer(cPath))
		if C.faiss_write_index_fname(f.index, cPath) != 0 {
			return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
		}
		return syncFile(tmp)
	})
}

func readFAISSSnapshot(path string) (Index, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	var index *C.FaissIndex
	if C.faiss_read_index_fname(cPath, 0, &index) != 0 {
		return nil, fmt.Errorf("failed to load FAISS index: %s", faissLastError())
	}
	metric := MetricL2
	if C.faiss_Index_metric_type(index) == C.METRIC_INNER_PRODUCT {
		metric = MetricInnerProduct
	}
	return &FAISSIndex{
		index:      index,
		dimensions: int(C.faiss_Index_d(index)),
		metric:     metric,
	}, nil
}

// Dimension returns the vector dimension.
func (f *FAISSIndex) Dimension() int {
	return f.dimensions
}

// Metric returns the distance metric.
func (f *FAISSIndex) Metric() Metric {
	return f.metric
}

// Size returns ntotal.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.index == nil {
		return 0
	}
	return int(C.faiss_Index_ntotal(f.index))
}

// IsTrained reports the FAISS is_trained flag.
func (f *FAISSIndex) IsTrained() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.index != nil && C.faiss_Index_is_trained(f.index) != 0
}

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
