package benchmark

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/naan"
	"github.com/hyperjump/naan/pkg/filter"
	"github.com/hyperjump/naan/pkg/models"
	"github.com/hyperjump/naan/pkg/vector"
)

const (
	benchDims  = 384
	benchCount = 1000
)

func benchVectors(n, dim int) [][]float32 {
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = make([]float32, dim)
		vecs[i][0] = float32(i) / float32(n)
		vecs[i][i%dim] += 1
	}
	return vecs
}

func BenchmarkFlatIndexSearch(b *testing.B) {
	idx, err := vector.NewFlatIndex(benchDims, vector.MetricL2)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	if err := idx.Add(ctx, benchVectors(benchCount, benchDims)); err != nil {
		b.Fatal(err)
	}
	query := make([]float32, benchDims)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10)
	}
}

func BenchmarkSnapshotWrite(b *testing.B) {
	for _, c := range []vector.Compression{vector.CompressionNone, vector.CompressionZstd, vector.CompressionLZ4} {
		b.Run(string(c), func(b *testing.B) {
			idx, err := vector.NewFlatIndex(benchDims, vector.MetricL2)
			if err != nil {
				b.Fatal(err)
			}
			if err := idx.SetCompression(c); err != nil {
				b.Fatal(err)
			}
			if err := idx.Add(context.Background(), benchVectors(benchCount, benchDims)); err != nil {
				b.Fatal(err)
			}
			path := filepath.Join(b.TempDir(), "bench.faiss")
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := idx.WriteSnapshot(path); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkFilterEval(b *testing.B) {
	expr := filter.MustParse("(Genre == 'Fiction' or Genre == Poetry) and Published < 1960 and not Draft == true")
	md := models.Metadata{"Genre": "Poetry", "Published": int64(1922), "Draft": false}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = filter.Eval(expr, md)
	}
}

func BenchmarkDBAdd(b *testing.B) {
	idx, err := vector.NewFlatIndex(benchDims, vector.MetricL2)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	db, err := naan.Open(ctx, filepath.Join(b.TempDir(), "bench"), idx)
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()
	batch := benchVectors(10, benchDims)
	texts := make([]string, len(batch))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := db.Add(ctx, batch, texts, naan.WithSharedMetadata(models.Metadata{"Batch": i})); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDBSearchFiltered(b *testing.B) {
	idx, err := vector.NewFlatIndex(benchDims, vector.MetricL2)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	db, err := naan.Open(ctx, filepath.Join(b.TempDir(), "bench"), idx)
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()

	vecs := benchVectors(benchCount, benchDims)
	texts := make([]string, benchCount)
	mds := make([]models.Metadata, benchCount)
	for i := range mds {
		mds[i] = models.Metadata{"Published": int64(1900 + i%120)}
	}
	if _, err := db.Add(ctx, vecs, texts, naan.WithMetadata(mds)); err != nil {
		b.Fatal(err)
	}
	query := make([]float32, benchDims)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = db.Search(ctx, query, 20, naan.WithFilter("Published >= 1950"))
	}
}
