package permission

import (
	"context"
	"strings"
	"testing"

	domperm "github.com/kailas-cloud/docassist/internal/domain/permission"
)

// memStore is an in-memory hash store implementing the consumer interface.
type memStore struct {
	hashes  map[string]map[string]string
	scanErr error
}

func (m *memStore) HReplace(_ context.Context, key string, fields map[string]string) error {
	m.hashes[key] = fields
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return m.hashes[key], nil
}

func (m *memStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
	}
	return out, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.hashes, k)
	}
	return nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func newTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	ms := &memStore{hashes: map[string]map[string]string{}}
	return New(ms), ms
}

func mustPermission(t *testing.T, id, name string, right domperm.Right) domperm.Permission {
	t.Helper()
	p, err := domperm.New(id, name, right)
	if err != nil {
		t.Fatalf("permission.New: %v", err)
	}
	return p
}
