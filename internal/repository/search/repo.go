// Package search runs permission-filtered queries over the chunk index.
package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/docassist/internal/db"
	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
	"github.com/kailas-cloud/docassist/internal/domain/permission"
	"github.com/kailas-cloud/docassist/internal/domain/search/filter"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
	"github.com/kailas-cloud/docassist/internal/repository/chunkindex"
)

// CaptionSeparator joins extractive caption fragments.
const CaptionSeparator = " . "

const (
	captionFrags = 3
	captionLen   = 40
)

var returnFields = []string{
	chunkindex.FieldID,
	chunkindex.FieldContent,
	chunkindex.FieldSourcePage,
	chunkindex.FieldSourceFile,
	chunkindex.FieldURL,
	permission.FieldPermissions,
}

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Repo implements usecase/retrieval.Searcher.
type Repo struct {
	store     store
	indexName string
}

// New creates a search repository over the named index.
func New(s store, indexName string) *Repo {
	return &Repo{store: s, indexName: indexName}
}

// SupportsTextSearch proxies the capability check from the store.
func (r *Repo) SupportsTextSearch(ctx context.Context) bool {
	return r.store.SupportsTextSearch(ctx)
}

// SearchVector runs a KNN query restricted by filters. A nil result from the
// backend is returned as nil so callers can tell it apart from zero hits.
func (r *Repo) SearchVector(
	ctx context.Context, vector []float32, filters filter.Expression, k int,
) ([]result.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		VectorField:  chunkindex.VectorAlias,
		Filters:      filters,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.indexName, err)
	}
	return toHits(sr), nil
}

// SearchText runs a BM25 query restricted by filters. With captions the
// content field holds extractive fragments instead of the full page text.
func (r *Repo) SearchText(
	ctx context.Context, query string, filters filter.Expression, k int, captions bool,
) ([]result.Hit, error) {
	q := &db.TextQuery{
		IndexName:    r.indexName,
		TextField:    chunkindex.FieldContent,
		Query:        query,
		Filters:      filters,
		TopK:         k,
		ReturnFields: returnFields,
	}
	if captions {
		q.Summarize = &db.Summarize{
			Field:     chunkindex.FieldContent,
			Frags:     captionFrags,
			Len:       captionLen,
			Separator: CaptionSeparator,
		}
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search bm25 %s: %w", r.indexName, err)
	}
	return toHits(sr), nil
}

func toHits(sr *db.SearchResult) []result.Hit {
	if sr == nil {
		return nil
	}
	hits := make([]result.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		hits = append(hits, result.Hit{
			Key:         e.Key,
			ID:          e.Fields[chunkindex.FieldID],
			Content:     e.Fields[chunkindex.FieldContent],
			SourcePage:  e.Fields[chunkindex.FieldSourcePage],
			SourceFile:  e.Fields[chunkindex.FieldSourceFile],
			URL:         e.Fields[chunkindex.FieldURL],
			Permissions: domdoc.SplitPermissions(e.Fields[permission.FieldPermissions]),
			Score:       e.Score,
		})
	}
	return hits
}
