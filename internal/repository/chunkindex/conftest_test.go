package chunkindex

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docassist/internal/db"
	"github.com/kailas-cloud/docassist/internal/domain/chunk"
)

const testDim = 4

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hreplaceFn         func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn          func(ctx context.Context, key string) (map[string]string, error)
	delFn              func(ctx context.Context, keys ...string) error
	scanFn             func(ctx context.Context, pattern string) ([]string, error)
	createIndexFn      func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn        func(ctx context.Context, name string) error
	indexExistsFn      func(ctx context.Context, name string) (bool, error)
	searchFilteredFn   func(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error)
	supportsTextSearch bool
	calls              []string
}

func (m *mockStore) HReplace(ctx context.Context, key string, fields map[string]string) error {
	m.calls = append(m.calls, "HReplace")
	if m.hreplaceFn != nil {
		return m.hreplaceFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.calls = append(m.calls, "Del")
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	m.calls = append(m.calls, "Scan")
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	m.calls = append(m.calls, "CreateIndex")
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	m.calls = append(m.calls, "DropIndex")
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SupportsTextSearch(_ context.Context) bool {
	return m.supportsTextSearch
}

func (m *mockStore) SearchFiltered(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
	if m.searchFilteredFn != nil {
		return m.searchFilteredFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{supportsTextSearch: true}
	repo := New(ms, Config{Name: "docassist-idx", Dimensions: testDim})
	return repo, ms
}

func testRecord(t *testing.T, perms ...string) chunk.Record {
	t.Helper()
	c := chunk.Chunk{Name: "Benefit_Options-0.pdf", SourceFile: "Benefit_Options.pdf", Page: 0}
	return chunk.NewRecord(c, "Northwind Health Plus covers dental.", perms, []float32{0.1, 0.2, 0.3, 0.4})
}
