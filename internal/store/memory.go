package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/issuelens/issuelens/internal/models"
)

// Memory implements Store with brute-force cosine search over an in-process
// map. Suitable for tests and small corpora; the Postgres store is the
// production backend.
type Memory struct {
	dim  int
	mu   sync.RWMutex
	docs map[string]*models.Document
}

// NewMemory creates an in-memory store with the given embedding dimension.
func NewMemory(dim int) (*Memory, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	return &Memory{dim: dim, docs: make(map[string]*models.Document)}, nil
}

// Insert writes one document.
func (m *Memory) Insert(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(doc)
}

// InsertBatch writes all documents or none: duplicates and dimension
// mismatches are checked before any document is stored.
func (m *Memory) InsertBatch(ctx context.Context, docs []*models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) != m.dim {
			return fmt.Errorf("%w: document %s has %d dimensions, store expects %d",
				ErrDimensionMismatch, doc.ID, len(doc.Embedding), m.dim)
		}
		if _, ok := m.docs[doc.ID]; ok || seen[doc.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, doc.ID)
		}
		seen[doc.ID] = true
	}
	for _, doc := range docs {
		if err := m.insertLocked(doc); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) insertLocked(doc *models.Document) error {
	if len(doc.Embedding) != m.dim {
		return fmt.Errorf("%w: document %s has %d dimensions, store expects %d",
			ErrDimensionMismatch, doc.ID, len(doc.Embedding), m.dim)
	}
	if _, ok := m.docs[doc.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, doc.ID)
	}
	copied := *doc
	copied.Embedding = append([]float32(nil), doc.Embedding...)
	m.docs[doc.ID] = &copied
	return nil
}

// List returns documents ordered by id with skip/limit pagination.
func (m *Memory) List(ctx context.Context, skip, limit int) ([]*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if skip < 0 {
		skip = 0
	}
	if skip >= len(ids) || limit <= 0 {
		return nil, nil
	}
	end := skip + limit
	if end > len(ids) {
		end = len(ids)
	}
	docs := make([]*models.Document, 0, end-skip)
	for _, id := range ids[skip:end] {
		copied := *m.docs[id]
		docs = append(docs, &copied)
	}
	return docs, nil
}

// Count returns the number of stored documents.
func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

// Nearest returns up to k documents ascending by cosine distance to vec.
func (m *Memory) Nearest(ctx context.Context, vec []float32, k int) ([]*models.ScoredDocument, error) {
	if len(vec) != m.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			ErrDimensionMismatch, len(vec), m.dim)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.docs) == 0 {
		return []*models.ScoredDocument{}, nil
	}
	results := make([]*models.ScoredDocument, 0, len(m.docs))
	for _, doc := range m.docs {
		copied := *doc
		results = append(results, &models.ScoredDocument{
			Document: &copied,
			Distance: cosineDistance(vec, doc.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}

// cosineDistance is 1 - cosine similarity; zero-norm vectors are treated as
// maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
