package ingestion

import (
	"context"
	"iter"

	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
	"github.com/kailas-cloud/docassist/internal/usecase/indexer"
)

// Documents is the consumer interface for the document store.
type Documents interface {
	List(ctx context.Context) iter.Seq2[domdoc.Document, error]
	Open(ctx context.Context, name string) ([]byte, error)
	UpdateMetadata(ctx context.Context, name string, meta domdoc.Metadata) error
}

// Indexer recreates the index and indexes single chunks.
type Indexer interface {
	Recreate(ctx context.Context) error
	Index(ctx context.Context, in indexer.Input) error
}
