// Package models defines the data structures shared by the index, the metadata store and the
// coordinator: documents and their scalar metadata.
package models

// Document is a single search hit: the row stored for a vector ordinal plus the distance the
// index reported for it. Documents are immutable once added.
type Document struct {
	VectorID  int64     `json:"vector_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	Distance  float32   `json:"distance"`
}

// Row is the metadata-store record for one vector ordinal.
type Row struct {
	Ordinal   int64
	Text      string
	Embedding []float32
	Metadata  Metadata
}

// Document converts the row into a search hit.
func (r *Row) Document(distance float32, withEmbedding bool) *Document {
	doc := &Document{
		VectorID: r.Ordinal,
		Content:  r.Text,
		Metadata: r.Metadata,
		Distance: distance,
	}
	if withEmbedding {
		doc.Embedding = r.Embedding
	}
	return doc
}
