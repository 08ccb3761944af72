// Package indexer embeds page chunks and writes them to the search index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/domain/chunk"
)

// DefaultMaxChars caps the text sent to the embedding provider per chunk.
const DefaultMaxChars = 8000

// ErrEmptyChunk is returned for a chunk without extractable text.
var ErrEmptyChunk = errors.New("chunk has no text")

// Input is one chunk to embed and index.
type Input struct {
	Chunk chunk.Chunk
	// Body is the chunk content; when nil Chunk.Content is used.
	Body io.Reader
	// Vectorizer names the embedding model; empty selects the default.
	Vectorizer  string
	OriginURL   string
	Permissions []string
}

// Service owns index recreation and single-chunk indexing.
type Service struct {
	index     Index
	embedders Embedders
	maxChars  int
	logger    *zap.Logger
}

// Option configures the service.
type Option func(*Service)

// WithMaxChars caps embedded text length.
func WithMaxChars(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates an indexer service.
func New(index Index, embedders Embedders, opts ...Option) *Service {
	s := &Service{
		index:     index,
		embedders: embedders,
		maxChars:  DefaultMaxChars,
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Recreate drops and recreates the index with an empty record set.
func (s *Service) Recreate(ctx context.Context) error {
	if err := s.index.Recreate(ctx); err != nil {
		return fmt.Errorf("recreate index: %w", err)
	}
	return nil
}

// Index embeds one chunk and upserts its record, replacing any previous
// record with the same id. Errors are returned to the caller as-is; there is
// no retry here.
func (s *Service) Index(ctx context.Context, in Input) error {
	text, err := readText(in)
	if err != nil {
		return fmt.Errorf("read chunk %s: %w", in.Chunk.Name, err)
	}
	if text == "" {
		return fmt.Errorf("%s: %w", in.Chunk.Name, ErrEmptyChunk)
	}

	emb, err := s.embedders.Documents(in.Vectorizer)
	if err != nil {
		return fmt.Errorf("resolve vectorizer: %w", err)
	}

	res, err := emb.Embed(ctx, truncate(text, s.maxChars))
	if err != nil {
		return fmt.Errorf("embed chunk %s: %w", in.Chunk.Name, err)
	}

	rec := chunk.NewRecord(in.Chunk, text, in.Permissions, res.Embedding)
	rec.URL = in.OriginURL
	if err := s.index.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("index chunk %s: %w", in.Chunk.Name, err)
	}

	s.logger.Debug("Chunk indexed",
		zap.String("chunk", in.Chunk.Name),
		zap.String("document", in.Chunk.SourceFile),
		zap.Int("permissions", len(rec.Permissions)),
		zap.Int("tokens", res.TotalTokens),
	)
	return nil
}

func readText(in Input) (string, error) {
	data := in.Chunk.Content
	if in.Body != nil {
		b, err := io.ReadAll(in.Body)
		if err != nil {
			return "", err
		}
		data = b
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(data), "")), nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
