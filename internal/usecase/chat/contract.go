package chat

import (
	"context"

	"github.com/kailas-cloud/docassist/internal/domain"
	"github.com/kailas-cloud/docassist/internal/domain/search/request"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
)

// Retriever runs permission-filtered retrieval.
type Retriever interface {
	Query(ctx context.Context, req *request.Request, permissions []string) ([]result.SupportingContent, error)
}

// Embedders resolves the question embedder for a vectorizer name.
type Embedders interface {
	Queries(name string) (domain.Embedder, error)
}

// PermissionResolver maps permission ids to the names stored on records.
type PermissionResolver interface {
	NamesByIDs(ctx context.Context, ids []string) ([]string, error)
}
