// Package models defines core data structures for documents and search results.
package models

// Metadata is the documented metadata key set carried by each document.
// The storage layer persists it as schema-free JSON; nothing beyond these
// keys is enforced there.
type Metadata struct {
	Author    string   `json:"author"`
	CreatedAt *string  `json:"created_at"`
	ClosedAt  *string  `json:"closed_at"`
	State     string   `json:"state,omitempty"`
	Labels    []string `json:"labels"`
}

// Document represents a stored document with its embedding vector.
// Embedding is nil only transiently, before ingestion assigns it.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// ScoredDocument is a document paired with its cosine distance to a query
// vector. Lower distance is more similar.
type ScoredDocument struct {
	Document *Document
	Distance float64
}
