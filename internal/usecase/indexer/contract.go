package indexer

import (
	"context"

	"github.com/kailas-cloud/docassist/internal/domain"
	"github.com/kailas-cloud/docassist/internal/domain/chunk"
)

// Index is the consumer interface for the chunk index.
type Index interface {
	Recreate(ctx context.Context) error
	Upsert(ctx context.Context, rec chunk.Record) error
}

// Embedders resolves the page-text embedder for a vectorizer name.
type Embedders interface {
	Documents(name string) (domain.Embedder, error)
}
