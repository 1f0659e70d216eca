package e2e

import (
	"testing"

	"github.com/hyperjump/naan/pkg/filter"
)

func TestBuildCorpus_Returns100Documents(t *testing.T) {
	c := BuildCorpus()
	if c.TotalDocs != 100 {
		t.Errorf("expected 100 documents, got %d", c.TotalDocs)
	}
	if len(c.Documents) != 100 {
		t.Errorf("expected len(Documents)=100, got %d", len(c.Documents))
	}
	for i, d := range c.Documents {
		if len(d.Embedding) != Dimensions {
			t.Fatalf("document %d: embedding has %d values", i, len(d.Embedding))
		}
		if _, err := d.Metadata.Normalize(); err != nil {
			t.Fatalf("document %d: %v", i, err)
		}
	}
}

func TestBuildCorpus_QueryTestCasesExist(t *testing.T) {
	c := BuildCorpus()
	if c.TotalQueries == 0 {
		t.Fatal("expected at least one query test case")
	}
	for i, tc := range c.TestCases {
		if tc.Description == "" {
			t.Errorf("test case %d: empty description", i)
		}
		if len(tc.Query) != Dimensions {
			t.Errorf("test case %d: query has %d values", i, len(tc.Query))
		}
		if tc.Want == nil {
			t.Errorf("test case %d: no predicate", i)
		}
		if tc.Filter != "" {
			if _, err := filter.Parse(tc.Filter); err != nil {
				t.Errorf("test case %d: filter %q: %v", i, tc.Filter, err)
			}
		}
	}
}

func TestBuildCorpus_FiltersAgreeWithPredicates(t *testing.T) {
	c := BuildCorpus()
	for _, tc := range c.TestCases {
		if tc.Filter == "" {
			continue
		}
		expr := filter.MustParse(tc.Filter)
		matched := 0
		for _, d := range c.Documents {
			ok, err := filter.Eval(expr, d.Metadata)
			if err != nil {
				t.Fatalf("%s: %v", tc.Description, err)
			}
			if ok {
				matched++
			}
		}
		if matched < tc.MinResults {
			t.Errorf("%s: filter matches %d documents, test expects at least %d", tc.Description, matched, tc.MinResults)
		}
	}
}
