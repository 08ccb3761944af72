// Package permission stores ACL tokens as Redis hashes.
package permission

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/docassist/internal/domain"
	domperm "github.com/kailas-cloud/docassist/internal/domain/permission"
)

const (
	fieldID    = "id"
	fieldName  = "name"
	fieldRight = "right"
)

// store is the consumer interface for permissions (ISP).
type store interface {
	HReplace(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the permission store.
type Repo struct {
	store store
}

// New creates a permission repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Put creates or replaces a permission. Names are unique across ids because
// index records and filters reference permissions by name.
func (r *Repo) Put(ctx context.Context, p domperm.Permission) error {
	all, err := r.List(ctx)
	if err != nil {
		return err
	}
	for _, other := range all {
		if other.ID() != p.ID() && other.Name() == p.Name() {
			return fmt.Errorf("permission name %q used by %s: %w", p.Name(), other.ID(), domain.ErrAlreadyExists)
		}
	}

	fields := map[string]string{
		fieldID:    p.ID(),
		fieldName:  p.Name(),
		fieldRight: string(p.Right()),
	}
	if err := r.store.HReplace(ctx, key(p.ID()), fields); err != nil {
		return fmt.Errorf("put permission %s: %w", p.ID(), err)
	}
	return nil
}

// Get returns a permission by id.
func (r *Repo) Get(ctx context.Context, id string) (domperm.Permission, error) {
	m, err := r.store.HGetAll(ctx, key(id))
	if err != nil {
		return domperm.Permission{}, fmt.Errorf("hgetall %s: %w", id, err)
	}
	if len(m) == 0 {
		return domperm.Permission{}, domain.ErrNotFound
	}
	return fromHash(m), nil
}

// NamesByIDs resolves permission ids to names in input order. Unknown ids are
// skipped: a caller never gains access through an id that does not exist.
func (r *Repo) NamesByIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall permissions: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, m := range rows {
		if name := m[fieldName]; name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// List returns every permission ordered by id.
func (r *Repo) List(ctx context.Context) ([]domperm.Permission, error) {
	keys, err := r.store.Scan(ctx, domain.PermissionKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan permissions: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall permissions: %w", err)
	}
	out := make([]domperm.Permission, 0, len(rows))
	for _, m := range rows {
		if len(m) == 0 {
			continue
		}
		out = append(out, fromHash(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

// Delete removes a permission by id.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	if err := r.store.Del(ctx, key(id)); err != nil {
		return fmt.Errorf("del %s: %w", id, err)
	}
	return nil
}

func fromHash(m map[string]string) domperm.Permission {
	return domperm.Reconstruct(m[fieldID], m[fieldName], domperm.Right(m[fieldRight]))
}

func key(id string) string {
	return domain.PermissionKeyPrefix + strings.TrimSpace(id)
}
