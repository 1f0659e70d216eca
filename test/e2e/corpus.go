// Package e2e provides end-to-end tests with a large corpus and multiple filtered queries.
package e2e

import (
	"fmt"

	"github.com/hyperjump/naan/pkg/models"
)

// Dimensions is the embedding size of the corpus.
const Dimensions = 8

// Topics name the corpus clusters. Topic t is centred on the unit vector along axis t.
var Topics = []string{
	"python", "kubernetes", "react", "golang",
	"postgres", "docker", "ml", "graphql",
}

var authors = []string{"Woolf", "Orwell", "Borges", "Calvino"}

// E2EDocument is a document entry in the E2E corpus.
type E2EDocument struct {
	Text      string
	Embedding []float32
	Metadata  models.Metadata
}

// QueryTestCase defines a query, an optional filter, and a predicate every result must
// satisfy.
type QueryTestCase struct {
	Description string
	Query       []float32
	K           int
	Filter      string
	// MinResults is the least number of results the query must return.
	MinResults int
	// Want reports whether a result is acceptable.
	Want func(doc *models.Document) bool
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []E2EDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

// BuildCorpus returns a corpus of 100 documents spread over the topics, each with scalar
// metadata, and query test cases over it.
func BuildCorpus() *Corpus {
	docs := buildDocuments(100)
	cases := buildQueryTestCases()
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

// TopicVector returns the centre of topic t.
func TopicVector(t int) []float32 {
	v := make([]float32, Dimensions)
	v[t%Dimensions] = 1
	return v
}

func buildDocuments(n int) []E2EDocument {
	docs := make([]E2EDocument, n)
	for i := 0; i < n; i++ {
		topic := i % len(Topics)
		emb := TopicVector(topic)
		// Small offset on the next axis keeps members of a topic distinct but clustered.
		emb[(topic+1)%Dimensions] = 0.01 * float32(i/len(Topics))
		docs[i] = E2EDocument{
			Text:      fmt.Sprintf("%s document %d", Topics[topic], i),
			Embedding: emb,
			Metadata: models.Metadata{
				"Topic":     Topics[topic],
				"Author":    authors[i%len(authors)],
				"Published": int64(1900 + i),
				"Rating":    float64(i%5) + 0.5,
				"Draft":     i%7 == 0,
			},
		}
	}
	return docs
}

func buildQueryTestCases() []QueryTestCase {
	topic := func(name string) func(*models.Document) bool {
		return func(d *models.Document) bool { return d.Metadata["Topic"] == name }
	}
	return []QueryTestCase{
		{
			Description: "nearest neighbours share the query topic",
			Query:       TopicVector(3),
			K:           5,
			MinResults:  5,
			Want:        topic("golang"),
		},
		{
			Description: "numeric filter on the query topic",
			Query:       TopicVector(3),
			K:           100,
			Filter:      "Published >= 1990 and Topic == 'golang'",
			MinResults:  2,
			Want: func(d *models.Document) bool {
				return d.Metadata["Published"].(int64) >= 1990 && d.Metadata["Topic"] == "golang"
			},
		},
		{
			Description: "upper bound on publication year",
			Query:       TopicVector(0),
			K:           100,
			Filter:      "Published < 1950",
			MinResults:  50,
			Want:        func(d *models.Document) bool { return d.Metadata["Published"].(int64) < 1950 },
		},
		{
			Description: "or across topics",
			Query:       TopicVector(5),
			K:           100,
			Filter:      "Topic == docker || Topic == ml",
			MinResults:  24,
			Want: func(d *models.Document) bool {
				return d.Metadata["Topic"] == "docker" || d.Metadata["Topic"] == "ml"
			},
		},
		{
			Description: "float and bool filters",
			Query:       TopicVector(1),
			K:           100,
			Filter:      "Rating > 3.0 and not Draft == true",
			MinResults:  1,
			Want: func(d *models.Document) bool {
				return d.Metadata["Rating"].(float64) > 3 && d.Metadata["Draft"] == false
			},
		},
		{
			Description: "missing key matches nothing",
			Query:       TopicVector(2),
			K:           100,
			Filter:      "Genre != 'Poetry'",
			MinResults:  0,
			Want:        func(*models.Document) bool { return false },
		},
	}
}

// Embeddings returns the corpus embeddings in document order.
func (c *Corpus) Embeddings() [][]float32 {
	out := make([][]float32, len(c.Documents))
	for i, d := range c.Documents {
		out[i] = d.Embedding
	}
	return out
}

// Texts returns the corpus texts in document order.
func (c *Corpus) Texts() []string {
	out := make([]string, len(c.Documents))
	for i, d := range c.Documents {
		out[i] = d.Text
	}
	return out
}

// Metadata returns the corpus metadata in document order.
func (c *Corpus) Metadata() []models.Metadata {
	out := make([]models.Metadata, len(c.Documents))
	for i, d := range c.Documents {
		out[i] = d.Metadata
	}
	return out
}
