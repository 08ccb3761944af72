// Package chunkindex owns the chunk search index and its records.
package chunkindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/docassist/internal/db"
	"github.com/kailas-cloud/docassist/internal/domain"
	"github.com/kailas-cloud/docassist/internal/domain/chunk"
	"github.com/kailas-cloud/docassist/internal/domain/search/filter"
)

// deleteBatch bounds how many records one filtered lookup returns during deletes.
const deleteBatch = 500

// store is the consumer interface for the chunk index (ISP).
//
//nolint:interfacebloat // index repo needs hash + index management + filtered listing
type store interface {
	HReplace(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
	SearchFiltered(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error)
}

// Repo manages the chunk index lifecycle and record upserts.
type Repo struct {
	store store
	cfg   Config
}

// New creates a chunk index repository.
func New(s store, cfg Config) *Repo {
	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.EFConstruct <= 0 {
		cfg.EFConstruct = 200
	}
	return &Repo{store: s, cfg: cfg}
}

// Name returns the index name.
func (r *Repo) Name() string { return r.cfg.Name }

// Recreate drops the index, removes every chunk record and creates the index
// again with the current schema. Records are deleted explicitly because
// valkey-search has no FT.DROPINDEX DD.
func (r *Repo) Recreate(ctx context.Context) error {
	def, err := buildIndex(r.cfg, r.store.SupportsTextSearch(ctx))
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	if err := r.store.DropIndex(ctx, r.cfg.Name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.cfg.Name, err)
	}

	keys, err := r.store.Scan(ctx, domain.ChunkKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan chunks: %w", err)
	}
	if len(keys) > 0 {
		if err := r.store.Del(ctx, keys...); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", r.cfg.Name, err)
	}
	return nil
}

// Ensure creates the index when it does not exist yet.
func (r *Repo) Ensure(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.Name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.cfg.Name, err)
	}
	if exists {
		return nil
	}
	def, err := buildIndex(r.cfg, r.store.SupportsTextSearch(ctx))
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.cfg.Name, err)
	}
	return nil
}

// Upsert writes a record, replacing every field of an existing one.
func (r *Repo) Upsert(ctx context.Context, rec chunk.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
	}
	if r.cfg.Dimensions > 0 && len(rec.Embedding) != r.cfg.Dimensions {
		return fmt.Errorf("record %s: %w: got %d, want %d",
			rec.ID, domain.ErrVectorDimMismatch, len(rec.Embedding), r.cfg.Dimensions)
	}
	if err := r.store.HReplace(ctx, recordKey(rec.ID), recordToHash(rec)); err != nil {
		return fmt.Errorf("upsert %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns a stored record by id.
func (r *Repo) Get(ctx context.Context, id string) (chunk.Record, error) {
	m, err := r.store.HGetAll(ctx, recordKey(id))
	if err != nil {
		return chunk.Record{}, fmt.Errorf("hgetall %s: %w", id, err)
	}
	if len(m) == 0 {
		return chunk.Record{}, domain.ErrNotFound
	}
	return recordFromHash(m), nil
}

// DeleteBySourceFile removes every record produced from the named document
// and returns how many were deleted.
func (r *Repo) DeleteBySourceFile(ctx context.Context, sourceFile string) (int, error) {
	cond, err := filter.NewMatch(FieldSourceFile, sourceFile)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	expr, err := filter.NewExpression([]filter.Condition{cond}, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	deleted := 0
	for {
		sr, err := r.store.SearchFiltered(ctx, &db.FilterQuery{
			IndexName:    r.cfg.Name,
			KeyPrefix:    domain.ChunkKeyPrefix,
			Filters:      expr,
			Limit:        deleteBatch,
			ReturnFields: []string{FieldID},
		})
		if err != nil {
			return deleted, fmt.Errorf("find chunks of %s: %w", sourceFile, err)
		}
		if sr == nil || len(sr.Entries) == 0 {
			return deleted, nil
		}
		keys := make([]string, len(sr.Entries))
		for i, e := range sr.Entries {
			keys[i] = e.Key
		}
		if err := r.store.Del(ctx, keys...); err != nil {
			return deleted, fmt.Errorf("delete chunks of %s: %w", sourceFile, err)
		}
		deleted += len(keys)
		if len(sr.Entries) < deleteBatch {
			return deleted, nil
		}
	}
}

// Count returns the number of indexed records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	sr, err := r.store.SearchFiltered(ctx, &db.FilterQuery{
		IndexName:    r.cfg.Name,
		KeyPrefix:    domain.ChunkKeyPrefix,
		Limit:        1,
		ReturnFields: []string{FieldID},
	})
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	if sr == nil {
		return 0, nil
	}
	return sr.Total, nil
}

func recordKey(id string) string {
	return domain.ChunkKeyPrefix + id
}
