package retrieval

import (
	"context"

	"github.com/kailas-cloud/docassist/internal/domain/search/filter"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
)

// Searcher defines the index query contract.
type Searcher interface {
	SearchVector(
		ctx context.Context, vector []float32, filters filter.Expression, k int,
	) ([]result.Hit, error)

	SearchText(
		ctx context.Context, query string, filters filter.Expression, k int, captions bool,
	) ([]result.Hit, error)

	SupportsTextSearch(ctx context.Context) bool
}
