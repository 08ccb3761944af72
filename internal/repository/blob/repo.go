// Package blob stores uploaded documents and their metadata maps in Redis.
package blob

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/docassist/internal/db"
	"github.com/kailas-cloud/docassist/internal/domain"
	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
)

const (
	dataSuffix  = ":data"
	propsSuffix = ":props"
	metaSuffix  = ":meta"

	propContentType  = "content_type"
	propSize         = "size"
	propLastModified = "last_modified"
)

// store is the consumer interface for blobs (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HReplace(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo is a Redis-backed object store for source documents.
type Repo struct {
	store   store
	baseURL string
	now     func() time.Time
}

// New creates a blob repository. baseURL prefixes document URLs.
func New(s store, baseURL string) *Repo {
	return &Repo{store: s, baseURL: baseURL, now: time.Now}
}

// Put writes content, properties and the initial metadata map of a blob.
func (r *Repo) Put(ctx context.Context, name string, content []byte, meta domdoc.Metadata) error {
	if err := domdoc.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := r.store.Set(ctx, dataKey(name), content); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	props := map[string]string{
		propContentType:  domdoc.ContentTypeFor(name),
		propSize:         strconv.Itoa(len(content)),
		propLastModified: strconv.FormatInt(r.now().UnixMilli(), 10),
	}
	if err := r.store.HReplace(ctx, propsKey(name), props); err != nil {
		return fmt.Errorf("write props %s: %w", name, err)
	}
	if err := r.store.HReplace(ctx, metaKey(name), meta.ToMap()); err != nil {
		return fmt.Errorf("write metadata %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a blob with the given name is stored.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.Exists(ctx, dataKey(name))
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", name, err)
	}
	return ok, nil
}

// Open returns the blob content.
func (r *Repo) Open(ctx context.Context, name string) ([]byte, error) {
	data, err := r.store.Get(ctx, dataKey(name))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return data, nil
}

// Get returns a single document with its properties and metadata.
func (r *Repo) Get(ctx context.Context, name string) (domdoc.Document, error) {
	rows, err := r.store.HGetAllMulti(ctx, []string{propsKey(name), metaKey(name)})
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w", name, err)
	}
	if len(rows) != 2 || len(rows[0]) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return r.hydrate(name, rows[0], rows[1]), nil
}

// Names returns stored blob names in ascending order.
func (r *Repo) Names(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, domain.BlobKeyPrefix+"*"+propsSuffix)
	if err != nil {
		return nil, fmt.Errorf("scan blobs: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(k, domain.BlobKeyPrefix), propsSuffix))
	}
	slices.Sort(names)
	return names, nil
}

// List enumerates documents lazily in name order. Properties and metadata are
// loaded per document, so a long listing does not hold the whole corpus.
func (r *Repo) List(ctx context.Context) iter.Seq2[domdoc.Document, error] {
	return func(yield func(domdoc.Document, error) bool) {
		names, err := r.Names(ctx)
		if err != nil {
			yield(domdoc.Document{}, err)
			return
		}
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				yield(domdoc.Document{}, err)
				return
			}
			doc, err := r.Get(ctx, name)
			if errors.Is(err, domain.ErrDocumentNotFound) {
				// deleted while listing
				continue
			}
			if !yield(doc, err) {
				return
			}
		}
	}
}

// UpdateMetadata merges the typed metadata into the blob's metadata map.
// Keys not owned by Metadata are preserved.
func (r *Repo) UpdateMetadata(ctx context.Context, name string, meta domdoc.Metadata) error {
	exists, err := r.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}
	if err := r.store.HSet(ctx, metaKey(name), meta.ToMap()); err != nil {
		return fmt.Errorf("update metadata %s: %w", name, err)
	}
	return nil
}

// Delete removes the blob with its properties and metadata.
func (r *Repo) Delete(ctx context.Context, name string) error {
	exists, err := r.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}
	if err := r.store.Del(ctx, dataKey(name), propsKey(name), metaKey(name)); err != nil {
		return fmt.Errorf("del %s: %w", name, err)
	}
	return nil
}

func (r *Repo) hydrate(name string, props, meta map[string]string) domdoc.Document {
	size, _ := strconv.ParseInt(props[propSize], 10, 64)
	var modified time.Time
	if ms, err := strconv.ParseInt(props[propLastModified], 10, 64); err == nil {
		modified = time.UnixMilli(ms).UTC()
	}
	contentType := props[propContentType]
	if contentType == "" {
		contentType = domdoc.ContentTypeFor(name)
	}
	return domdoc.Reconstruct(
		name, contentType, size, modified,
		domdoc.URLFor(r.baseURL, name), domdoc.ParseMetadata(meta),
	)
}

func dataKey(name string) string  { return domain.BlobKeyPrefix + name + dataSuffix }
func propsKey(name string) string { return domain.BlobKeyPrefix + name + propsSuffix }
func metaKey(name string) string  { return domain.BlobKeyPrefix + name + metaSuffix }
