package document

import (
	"context"
	"iter"

	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
)

// Store defines the object store contract for source documents.
type Store interface {
	List(ctx context.Context) iter.Seq2[domdoc.Document, error]
	Get(ctx context.Context, name string) (domdoc.Document, error)
	Names(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, name string) (bool, error)
	Put(ctx context.Context, name string, content []byte, meta domdoc.Metadata) error
	Delete(ctx context.Context, name string) error
}

// ChunkIndex removes the index records derived from a document.
type ChunkIndex interface {
	DeleteBySourceFile(ctx context.Context, sourceFile string) (int, error)
}
