// Package search embeds free-text queries and retrieves the nearest documents.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/issuelens/issuelens/internal/embedding"
	"github.com/issuelens/issuelens/internal/models"
	"github.com/issuelens/issuelens/internal/store"
)

// DefaultPreviewChars is the content preview budget for result views.
const DefaultPreviewChars = 200

// Service answers similarity queries: embed the query text, ask the store
// for nearest neighbors, and shape the results for display. Every call
// re-embeds and re-queries; there is no cache.
type Service struct {
	store        store.Store
	embedder     embedding.Embedder
	previewChars int
	logger       *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPreviewChars sets the content preview budget for result views.
func WithPreviewChars(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.previewChars = n
		}
	}
}

// WithLogger sets a logger for query debug output.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a query service over st with embeddings from e.
func NewService(st store.Store, e embedding.Embedder, opts ...ServiceOption) *Service {
	s := &Service{
		store:        st,
		embedder:     e,
		previewChars: DefaultPreviewChars,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns up to k results ascending by cosine distance to the query.
func (s *Service) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	neighbors, err := s.store.Nearest(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	s.logger.Debug("similarity search", zap.String("query", query), zap.Int("k", k), zap.Int("hits", len(neighbors)))
	results := make([]models.SearchResult, 0, len(neighbors))
	for _, n := range neighbors {
		results = append(results, models.SearchResult{
			ID:       n.Document.ID,
			Title:    n.Document.Title,
			Content:  models.Preview(n.Document.Content, s.previewChars),
			Metadata: n.Document.Metadata,
			Distance: n.Distance,
		})
	}
	return results, nil
}
