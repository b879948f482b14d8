// Package store persists documents with their embedding vectors and serves
// nearest-neighbor queries over them.
package store

import (
	"context"
	"errors"

	"github.com/issuelens/issuelens/internal/models"
)

// ErrDuplicateID indicates an insert collided with an existing document id.
// Inserts are never upserts; the caller must reset first to re-ingest.
var ErrDuplicateID = errors.New("duplicate document id")

// ErrDimensionMismatch indicates a vector's length differs from the store's
// configured embedding dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrConnection indicates the store is unreachable.
var ErrConnection = errors.New("store connection failed")

// Store is the document store contract. Implementations own the persisted
// rows; callers hold only transient copies.
type Store interface {
	// Insert writes one document in its own transaction.
	Insert(ctx context.Context, doc *models.Document) error
	// InsertBatch writes all documents in a single transaction (one batch
	// commit). On failure nothing from the batch is persisted.
	InsertBatch(ctx context.Context, docs []*models.Document) error
	// List returns documents ordered by id, skipping skip rows and returning
	// at most limit. The explicit order key makes pagination deterministic.
	List(ctx context.Context, skip, limit int) ([]*models.Document, error)
	// Count returns the total number of stored documents.
	Count(ctx context.Context) (int, error)
	// Nearest returns up to k documents ascending by cosine distance to vec.
	// An empty store yields an empty result, not an error.
	Nearest(ctx context.Context, vec []float32, k int) ([]*models.ScoredDocument, error)
	Close() error
}
