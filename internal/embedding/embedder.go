// Package embedding provides text embedding via a remote provider.
package embedding

import (
	"context"
	"errors"
)

// ErrProvider indicates the embedding provider failed (network, auth, rate
// limit). Callers decide whether to retry; this package never does.
var ErrProvider = errors.New("embedding provider error")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
