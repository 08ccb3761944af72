// Package ingestion drives the document corpus through page splitting and
// indexing, and keeps the shared run progress.
package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
	domingest "github.com/kailas-cloud/docassist/internal/domain/ingestion"
	"github.com/kailas-cloud/docassist/internal/metrics"
	"github.com/kailas-cloud/docassist/internal/pages"
	"github.com/kailas-cloud/docassist/internal/usecase/indexer"
)

// DefaultWorkers is the page worker pool size.
const DefaultWorkers = 4

// Service runs ingestion. At most one run is active at a time.
type Service struct {
	docs          Documents
	indexer       Indexer
	progress      *domingest.Progress
	pool          *ants.Pool
	workers       int
	policy        domingest.TerminalPolicy
	embeddingType domdoc.EmbeddingType
	vectorizer    string
	tempDir       string
	logger        *zap.Logger
	now           func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Option configures the service.
type Option func(*Service) error

// WithWorkers sets the number of pages indexed concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) error {
		if n <= 0 {
			return fmt.Errorf("workers must be positive, got %d", n)
		}
		s.workers = n
		return nil
	}
}

// WithTerminalPolicy sets how chunk failures affect the final run status.
func WithTerminalPolicy(p domingest.TerminalPolicy) Option {
	return func(s *Service) error {
		s.policy = p
		return nil
	}
}

// WithEmbeddingType sets the tag written to each processed document.
func WithEmbeddingType(t domdoc.EmbeddingType) Option {
	return func(s *Service) error {
		s.embeddingType = t
		return nil
	}
}

// WithVectorizer selects the embedding model; empty uses the default.
func WithVectorizer(name string) Option {
	return func(s *Service) error {
		s.vectorizer = name
		return nil
	}
}

// WithTempDir sets where page files are materialized.
func WithTempDir(dir string) Option {
	return func(s *Service) error {
		s.tempDir = dir
		return nil
	}
}

// WithProgress shares an existing progress object.
func WithProgress(p *domingest.Progress) Option {
	return func(s *Service) error {
		if p == nil {
			return errors.New("progress is nil")
		}
		s.progress = p
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) error {
		s.logger = l
		return nil
	}
}

// New creates an ingestion service with its worker pool. Call Close to
// release the pool.
func New(docs Documents, idx Indexer, opts ...Option) (*Service, error) {
	s := &Service{
		docs:          docs,
		indexer:       idx,
		progress:      domingest.NewProgress(),
		workers:       DefaultWorkers,
		policy:        domingest.PolicyOverwrite,
		embeddingType: domdoc.EmbeddingRedisSearch,
		logger:        zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	s.pool = pool
	return s, nil
}

// Progress returns the shared progress object.
func (s *Service) Progress() *domingest.Progress { return s.progress }

// Status returns a snapshot of the current or last run.
func (s *Service) Status() domingest.Snapshot { return s.progress.Snapshot() }

// Run ingests the whole corpus and blocks until the run ends. Chunk failures
// are recorded in progress and do not fail the run.
func (s *Service) Run(ctx context.Context) error {
	runID := uuid.NewString()
	if err := s.progress.Begin(runID, s.now()); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.setCancel(cancel)

	return s.run(ctx, runID)
}

// Start begins a run in the background and returns its id. The run outlives
// ctx cancellation; use Cancel to stop it.
func (s *Service) Start(ctx context.Context) (string, error) {
	runID := uuid.NewString()
	if err := s.progress.Begin(runID, s.now()); err != nil {
		return "", err
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.setCancel(cancel)

	go func() {
		defer cancel()
		_ = s.run(runCtx, runID)
	}()
	return runID, nil
}

// Cancel stops the active run, if any. In-flight pages finish their cleanup.
func (s *Service) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Close cancels the active run and releases the worker pool.
func (s *Service) Close() {
	s.Cancel()
	s.pool.Release()
}

func (s *Service) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

func (s *Service) run(ctx context.Context, runID string) error {
	start := s.now()
	logger := s.logger.With(zap.String("run_id", runID))
	metrics.IngestionRunning.Set(1)
	defer metrics.IngestionRunning.Set(0)

	logger.Info("Ingestion started")

	if err := s.indexer.Recreate(ctx); err != nil {
		return s.abort(logger, start, err)
	}

	docs, total, err := s.scan(ctx, logger)
	if err != nil {
		return s.abort(logger, start, err)
	}
	s.progress.SetTotalPages(total)
	logger.Info("Corpus scanned",
		zap.Int("documents", len(docs)),
		zap.Int("total_pages", total),
	)

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return s.abort(logger, start, err)
		}
		s.ingestDocument(ctx, logger, d)
	}
	if err := ctx.Err(); err != nil {
		return s.abort(logger, start, err)
	}

	status := s.progress.Finish(s.policy, s.now())
	snap := s.progress.Snapshot()
	metrics.IngestionRunDuration.WithLabelValues(string(status)).Observe(s.now().Sub(start).Seconds())
	logger.Info("Ingestion finished",
		zap.String("status", string(status)),
		zap.Int("pages", snap.PagesProcessed),
		zap.Int("chunk_failures", snap.ChunkFailures),
		zap.Duration("elapsed", s.now().Sub(start)),
	)
	return nil
}

func (s *Service) abort(logger *zap.Logger, start time.Time, err error) error {
	s.progress.Abort(err, s.now())
	metrics.IngestionRunDuration.WithLabelValues(string(domingest.Failed)).Observe(s.now().Sub(start).Seconds())
	logger.Error("Ingestion aborted", zap.Error(err))
	return fmt.Errorf("ingestion: %w", err)
}

// scan lists the corpus and counts its pages. A document whose pages cannot
// be counted contributes zero; its failure surfaces when it is processed.
func (s *Service) scan(ctx context.Context, logger *zap.Logger) ([]domdoc.Document, int, error) {
	var (
		docs  []domdoc.Document
		total int
	)
	for d, err := range s.docs.List(ctx) {
		if err != nil {
			return nil, 0, fmt.Errorf("list documents: %w", err)
		}
		data, err := s.docs.Open(ctx, d.Name())
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			logger.Warn("Page count skipped", zap.String("document", d.Name()), zap.Error(err))
			docs = append(docs, d)
			continue
		}
		n, err := pages.CountBytes(d.Name(), data)
		if err != nil {
			logger.Warn("Page count failed", zap.String("document", d.Name()), zap.Error(err))
		}
		total += n
		docs = append(docs, d)
	}
	return docs, total, nil
}

// ingestDocument marks d Processing, indexes its pages and writes Succeeded
// back. A document whose content cannot be read is written back Failed. On
// cancellation the metadata it had before the run is restored.
func (s *Service) ingestDocument(ctx context.Context, logger *zap.Logger, d domdoc.Document) {
	name := d.Name()
	before := d.Metadata()
	meta := before
	logger = logger.With(zap.String("document", name))

	meta.Status = domdoc.Processing
	s.writeBack(ctx, logger, name, meta)

	data, err := s.docs.Open(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			s.restore(ctx, logger, name, before)
			return
		}
		s.chunkFailed(logger, fmt.Errorf("open %s: %w", name, err))
		meta.Status = domdoc.Failed
		s.writeBack(ctx, logger, name, meta)
		return
	}

	var wg sync.WaitGroup
	for c, err := range pages.Split(ctx, name, bytes.NewReader(data)) {
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.chunkFailed(logger, err)
			if c.Name != "" {
				s.pageDone()
			}
			continue
		}

		in := indexer.Input{
			Chunk:       c,
			Vectorizer:  s.vectorizer,
			OriginURL:   d.URL(),
			Permissions: meta.Permissions,
		}
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			s.indexPage(ctx, logger, in)
		}); err != nil {
			wg.Done()
			s.chunkFailed(logger, fmt.Errorf("schedule %s: %w", c.Name, err))
			s.pageDone()
		}
	}
	wg.Wait()

	if ctx.Err() != nil {
		s.restore(ctx, logger, name, before)
		return
	}
	meta.Status = domdoc.Succeeded
	meta.EmbeddingType = s.embeddingType
	s.writeBack(ctx, logger, name, meta)
}

func (s *Service) indexPage(ctx context.Context, logger *zap.Logger, in indexer.Input) {
	if ctx.Err() != nil {
		return
	}
	err := s.indexMaterialized(ctx, in)
	switch {
	case err == nil:
	case errors.Is(err, indexer.ErrEmptyChunk):
		logger.Debug("Page has no text", zap.String("chunk", in.Chunk.Name))
	case ctx.Err() != nil:
		return
	default:
		s.chunkFailed(logger, err)
	}
	s.pageDone()
}

// indexMaterialized writes the page to a transient file, indexes from it and
// removes it on every path.
func (s *Service) indexMaterialized(ctx context.Context, in indexer.Input) error {
	m, err := pages.Materialize(s.tempDir, in.Chunk)
	if err != nil {
		return err
	}
	defer m.Release()

	f, err := m.Open()
	if err != nil {
		return fmt.Errorf("open temp for %s: %w", in.Chunk.Name, err)
	}
	defer func() { _ = f.Close() }()

	in.Body = f
	return s.indexer.Index(ctx, in)
}

func (s *Service) pageDone() {
	s.progress.PageDone()
	metrics.IngestionPagesTotal.Inc()
}

func (s *Service) chunkFailed(logger *zap.Logger, err error) {
	s.progress.RecordChunkFailure(err)
	metrics.IngestionChunkFailuresTotal.Inc()
	logger.Warn("Chunk failed", zap.Error(err))
}

const restoreTimeout = 2 * time.Second

// restore puts back the metadata a document had before a canceled run
// touched it. ctx is expected to be canceled already.
func (s *Service) restore(ctx context.Context, logger *zap.Logger, name string, meta domdoc.Metadata) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()
	s.writeBack(ctx, logger, name, meta)
}

func (s *Service) writeBack(ctx context.Context, logger *zap.Logger, name string, meta domdoc.Metadata) {
	if err := s.docs.UpdateMetadata(ctx, name, meta); err != nil {
		logger.Warn("Metadata update failed",
			zap.String("status", string(meta.Status)),
			zap.Error(err),
		)
	}
}
