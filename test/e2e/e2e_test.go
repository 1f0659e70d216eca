package e2e

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/naan"
	"github.com/hyperjump/naan/pkg/config"
	"go.uber.org/zap"
)

const e2eBatchSize = 25

func newConfig(dir string) *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Database.Path = filepath.Join(dir, "library")
	cfg.Database.Consistency = config.ConsistencyStrict
	cfg.Index.Dimensions = Dimensions
	cfg.Index.SnapshotCompression = "zstd"
	return cfg
}

func TestE2E_SearchReturnsCorrectResults(t *testing.T) {
	dir := t.TempDir()
	cfg := newConfig(dir)
	ctx := context.Background()

	db, err := naan.OpenConfig(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	corpus := BuildCorpus()
	if corpus.TotalDocs == 0 {
		t.Fatal("corpus has no documents")
	}
	if corpus.TotalQueries == 0 {
		t.Fatal("corpus has no query test cases")
	}

	embs, texts, mds := corpus.Embeddings(), corpus.Texts(), corpus.Metadata()
	for start := 0; start < len(embs); start += e2eBatchSize {
		end := min(start+e2eBatchSize, len(embs))
		ids, err := db.Add(ctx, embs[start:end], texts[start:end], naan.WithMetadata(mds[start:end]))
		if err != nil {
			t.Fatalf("add batch at %d: %v", start, err)
		}
		if ids[0] != int64(start) {
			t.Fatalf("batch at %d: first ordinal %d", start, ids[0])
		}
	}

	runQueries(t, db, corpus)
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen from disk: the snapshot and the metadata store must agree and answer the same way.
	reopened, err := naan.OpenConfig(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	report, err := reopened.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Consistent() {
		t.Fatalf("reopened database inconsistent: %s", report)
	}
	stats, err := reopened.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Cardinality != int64(corpus.TotalDocs) || stats.Rows != int64(corpus.TotalDocs) {
		t.Errorf("stats cardinality=%d rows=%d, want %d", stats.Cardinality, stats.Rows, corpus.TotalDocs)
	}
	runQueries(t, reopened, corpus)
}

func runQueries(t *testing.T, db *naan.DB, corpus *Corpus) {
	t.Helper()
	ctx := context.Background()
	for _, tc := range corpus.TestCases {
		t.Run(tc.Description, func(t *testing.T) {
			var opts []naan.SearchOption
			if tc.Filter != "" {
				opts = append(opts, naan.WithFilter(tc.Filter))
			}
			docs, err := db.Search(ctx, tc.Query, tc.K, opts...)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(docs) < tc.MinResults {
				t.Errorf("got %d results, want at least %d", len(docs), tc.MinResults)
			}
			if len(docs) > tc.K {
				t.Errorf("got %d results for k=%d", len(docs), tc.K)
			}
			for i, d := range docs {
				if !tc.Want(d) {
					t.Errorf("result %d (%q) does not satisfy the query: %v", i, d.Content, d.Metadata)
				}
				if i > 0 && d.Distance < docs[i-1].Distance {
					t.Errorf("results out of order at %d: %v < %v", i, d.Distance, docs[i-1].Distance)
				}
				if want := corpus.Documents[d.VectorID].Text; d.Content != want {
					t.Errorf("result %d: ordinal %d has text %q, want %q", i, d.VectorID, d.Content, want)
				}
			}
		})
	}
}

func TestE2E_ForceRecreateDiscardsCorpus(t *testing.T) {
	dir := t.TempDir()
	cfg := newConfig(dir)
	ctx := context.Background()
	corpus := BuildCorpus()

	db, err := naan.OpenConfig(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Add(ctx, corpus.Embeddings(), corpus.Texts(), naan.WithMetadata(corpus.Metadata())); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	cfg.Database.ForceRecreate = true
	db, err = naan.OpenConfig(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if n := db.Index().Size(); n != 0 {
		t.Fatalf("expected empty index after force recreate, got %d", n)
	}
	docs, err := db.Search(ctx, TopicVector(0), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no results, got %d", len(docs))
	}
}
