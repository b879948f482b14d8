// Package ingest runs the batched embed-and-store pipeline.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/issuelens/issuelens/internal/embedding"
	"github.com/issuelens/issuelens/internal/issues"
	"github.com/issuelens/issuelens/internal/models"
	"github.com/issuelens/issuelens/internal/store"
)

// DefaultBatchSize is the number of documents committed together.
const DefaultBatchSize = 10

// Pipeline converts issue records to documents, embeds their content, and
// writes them in fixed-size batches, one commit per batch.
type Pipeline struct {
	store     store.Store
	embedder  embedding.Embedder
	batchSize int
	logger    *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithBatchSize sets the number of documents per batch commit.
func WithBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithLogger sets a logger for per-batch progress.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline writing to s with embeddings from e.
func NewPipeline(s store.Store, e embedding.Embedder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:     s,
		embedder:  e,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests records in input order and returns the number of documents
// written. Any conversion, provider, or store error aborts the whole run and
// propagates; batches committed before the failure remain persisted, so
// re-running against the same input requires a store reset first.
func (p *Pipeline) Run(ctx context.Context, records []issues.Issue) (int, error) {
	written := 0
	for start := 0; start < len(records); start += p.batchSize {
		end := start + p.batchSize
		if end > len(records) {
			end = len(records)
		}
		docs, err := p.convert(records[start:end])
		if err != nil {
			return written, err
		}
		if err := p.embed(ctx, docs); err != nil {
			return written, err
		}
		if err := p.store.InsertBatch(ctx, docs); err != nil {
			return written, err
		}
		written += len(docs)
		p.logger.Debug("batch committed",
			zap.Int("batch_size", len(docs)),
			zap.Int("written", written),
			zap.Int("total", len(records)),
		)
	}
	return written, nil
}

func (p *Pipeline) convert(records []issues.Issue) ([]*models.Document, error) {
	docs := make([]*models.Document, 0, len(records))
	for i := range records {
		doc, err := records[i].Document()
		if err != nil {
			return nil, fmt.Errorf("failed to convert record: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (p *Pipeline) embed(ctx context.Context, docs []*models.Document) error {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("%w: got %d embeddings for %d documents",
			embedding.ErrProvider, len(embeddings), len(docs))
	}
	for i := range docs {
		docs[i].Embedding = embeddings[i]
	}
	return nil
}
