package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/issuelens/issuelens/internal/models"
)

// uniqueViolation is the SQLSTATE for a primary key / unique constraint hit.
const uniqueViolation = "23505"

// Postgres implements Store on PostgreSQL with the pgvector extension.
// Nearest-neighbor search is delegated to pgvector's indexed cosine distance
// operator rather than scanned in-process.
type Postgres struct {
	pool *pgxpool.Pool
	dim  int
}

// NewPostgres connects to databaseURL and verifies the connection. dim is the
// embedding dimension every row must carry. Each operation acquires a pooled
// connection and releases it on all exit paths.
func NewPostgres(ctx context.Context, databaseURL string, dim int) (*Postgres, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return &Postgres{pool: pool, dim: dim}, nil
}

// Setup creates the vector extension, the documents table, and the HNSW
// cosine index. Safe to call repeatedly.
func (s *Postgres) Setup(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	return s.createTable(ctx)
}

// Reset drops and recreates the documents table.
func (s *Postgres) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DROP TABLE IF EXISTS documents"); err != nil {
		return fmt.Errorf("failed to drop documents table: %w", err)
	}
	return s.createTable(ctx)
}

func (s *Postgres) createTable(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata JSONB,
		embedding vector(%d)
	)`, s.dim)
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	index := "CREATE INDEX IF NOT EXISTS documents_embedding_idx ON documents USING hnsw (embedding vector_cosine_ops)"
	if _, err := s.pool.Exec(ctx, index); err != nil {
		return fmt.Errorf("failed to create embedding index: %w", err)
	}
	return nil
}

// Insert writes one document in its own transaction.
func (s *Postgres) Insert(ctx context.Context, doc *models.Document) error {
	return s.insert(ctx, s.pool, doc)
}

// InsertBatch writes all documents in one transaction. A failure rolls back
// the uncommitted batch; previously committed batches are untouched.
func (s *Postgres) InsertBatch(ctx context.Context, docs []*models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback(ctx)
	for _, doc := range docs {
		if err := s.insert(ctx, tx, doc); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// execer abstracts pool vs. transaction for inserts.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Postgres) insert(ctx context.Context, db execer, doc *models.Document) error {
	if len(doc.Embedding) != s.dim {
		return fmt.Errorf("%w: document %s has %d dimensions, store expects %d",
			ErrDimensionMismatch, doc.ID, len(doc.Embedding), s.dim)
	}
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	_, err = db.Exec(ctx,
		`INSERT INTO documents (id, title, content, metadata, embedding)
		 VALUES ($1, $2, $3, $4, $5)`,
		doc.ID, doc.Title, doc.Content, metadata, pgvector.NewVector(doc.Embedding),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateID, doc.ID)
		}
		return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
	}
	return nil
}

// List returns documents ordered by id with skip/limit pagination.
func (s *Postgres) List(ctx context.Context, skip, limit int) ([]*models.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, content, metadata, embedding
		 FROM documents ORDER BY id LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// Count returns the total number of stored documents.
func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// Nearest returns up to k documents ascending by cosine distance to vec.
func (s *Postgres) Nearest(ctx context.Context, vec []float32, k int) ([]*models.ScoredDocument, error) {
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			ErrDimensionMismatch, len(vec), s.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	query := pgvector.NewVector(vec)
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, content, metadata, embedding, embedding <=> $1
		 FROM documents ORDER BY embedding <=> $1 LIMIT $2`, query, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	results := make([]*models.ScoredDocument, 0, k)
	for rows.Next() {
		var (
			doc      models.Document
			metadata []byte
			emb      pgvector.Vector
			distance float64
		)
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &metadata, &emb, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		doc.Embedding = emb.Slice()
		results = append(results, &models.ScoredDocument{Document: &doc, Distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	return results, nil
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func scanDocument(rows pgx.Rows) (*models.Document, error) {
	var (
		doc      models.Document
		metadata []byte
		emb      pgvector.Vector
	)
	if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &metadata, &emb); err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	doc.Embedding = emb.Slice()
	return &doc, nil
}
