// Package document manages the source document corpus: listing, upload and
// removal together with the index records derived from each document.
package document

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/domain"
	dombatch "github.com/kailas-cloud/docassist/internal/domain/batch"
	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
)

// MaxUploadFiles is the maximum number of files per upload request.
const MaxUploadFiles = 100

// File is one document to upload.
type File struct {
	Name    string
	Content []byte
}

// UploadOptions apply to every file of an upload.
type UploadOptions struct {
	// Permissions are the names required to see the documents; empty means
	// visible to everyone.
	Permissions []string
	// Overwrite replaces existing documents instead of skipping them.
	Overwrite bool
}

// Service handles corpus management.
type Service struct {
	store          Store
	index          ChunkIndex
	maxUploadFiles int
	logger         *zap.Logger
}

// New creates a document service.
func New(store Store, index ChunkIndex, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, index: index, maxUploadFiles: MaxUploadFiles, logger: logger}
}

// WithMaxUploadFiles configures the maximum upload size.
func (s *Service) WithMaxUploadFiles(n int) *Service {
	if n > 0 {
		s.maxUploadFiles = n
	}
	return s
}

// GetDocuments enumerates the corpus lazily in name order.
func (s *Service) GetDocuments(ctx context.Context) iter.Seq2[domdoc.Document, error] {
	return s.store.List(ctx)
}

// List collects the whole corpus.
func (s *Service) List(ctx context.Context) ([]domdoc.Document, error) {
	var docs []domdoc.Document
	for d, err := range s.store.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, name string) (domdoc.Document, error) {
	d, err := s.store.Get(ctx, name)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// Upload stores files with NotProcessed metadata and the given permissions.
// Existing documents are skipped unless Overwrite is set. Each file gets its
// own result; one failure does not stop the rest.
func (s *Service) Upload(ctx context.Context, files []File, opts UploadOptions) []dombatch.Result {
	results := make([]dombatch.Result, len(files))

	if len(files) > s.maxUploadFiles {
		for i, f := range files {
			results[i] = dombatch.NewError(
				f.Name,
				fmt.Errorf("upload exceeds %d files: %w", s.maxUploadFiles, domain.ErrInvalidInput),
			)
		}
		return results
	}

	meta := domdoc.DefaultMetadata(opts.Permissions)
	for i, f := range files {
		results[i] = s.uploadOne(ctx, f, meta, opts.Overwrite)
	}

	ok, skipped, failed := dombatch.Counts(results)
	s.logger.Info("Documents uploaded",
		zap.Int("ok", ok),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("permissions", len(meta.Permissions)),
	)
	return results
}

func (s *Service) uploadOne(ctx context.Context, f File, meta domdoc.Metadata, overwrite bool) dombatch.Result {
	if err := domdoc.ValidateName(f.Name); err != nil {
		return dombatch.NewError(f.Name, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
	}
	if !overwrite {
		exists, err := s.store.Exists(ctx, f.Name)
		if err != nil {
			return dombatch.NewError(f.Name, err)
		}
		if exists {
			return dombatch.NewSkipped(f.Name, "already exists")
		}
	}
	if err := s.store.Put(ctx, f.Name, f.Content, meta); err != nil {
		return dombatch.NewError(f.Name, fmt.Errorf("store document: %w", err))
	}
	return dombatch.NewOK(f.Name)
}

// Remove deletes a document and every index record derived from it. It
// returns the number of removed records.
func (s *Service) Remove(ctx context.Context, name string) (int, error) {
	if err := s.store.Delete(ctx, name); err != nil {
		return 0, fmt.Errorf("delete document: %w", err)
	}
	n, err := s.index.DeleteBySourceFile(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("delete records of %s: %w", name, err)
	}
	s.logger.Info("Document removed", zap.String("document", name), zap.Int("records", n))
	return n, nil
}

// RemoveAll removes every document, reporting a result per document.
func (s *Service) RemoveAll(ctx context.Context) ([]dombatch.Result, error) {
	names, err := s.store.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	results := make([]dombatch.Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			results = append(results, dombatch.NewError(name, err))
			continue
		}
		_, err := s.Remove(ctx, name)
		switch {
		case err == nil:
			results = append(results, dombatch.NewOK(name))
		case errors.Is(err, domain.ErrDocumentNotFound):
			results = append(results, dombatch.NewSkipped(name, "already removed"))
		default:
			results = append(results, dombatch.NewError(name, err))
		}
	}
	return results, nil
}
