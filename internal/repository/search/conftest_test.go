package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docassist/internal/db"
	"github.com/kailas-cloud/docassist/internal/domain/permission"
	"github.com/kailas-cloud/docassist/internal/domain/search/filter"
)

// stubStore returns canned replies and remembers the last query of each kind.
type stubStore struct {
	reply    *db.SearchResult
	replyErr error
	text     bool

	lastKNN  *db.KNNQuery
	lastText *db.TextQuery
}

func (s *stubStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	s.lastKNN = q
	return s.reply, s.replyErr
}

func (s *stubStore) SearchBM25(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	s.lastText = q
	return s.reply, s.replyErr
}

func (s *stubStore) SupportsTextSearch(context.Context) bool { return s.text }

func newTestRepo(t *testing.T) (*Repo, *stubStore) {
	t.Helper()
	st := &stubStore{reply: &db.SearchResult{}}
	return New(st, "docassist-idx"), st
}

func permissionFilter(t *testing.T, names ...string) filter.Expression {
	t.Helper()
	e, err := permission.Filter(names, false)
	if err != nil {
		t.Fatalf("permission.Filter: %v", err)
	}
	return e
}
