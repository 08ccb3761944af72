// Package retrieval runs permission-filtered text, vector and hybrid queries
// and prepares the hits as supporting content.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/domain"
	"github.com/kailas-cloud/docassist/internal/domain/permission"
	"github.com/kailas-cloud/docassist/internal/domain/search/mode"
	"github.com/kailas-cloud/docassist/internal/domain/search/request"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// Service queries the chunk index on behalf of a caller.
type Service struct {
	searcher            Searcher
	includeUnrestricted bool
	logger              *zap.Logger
}

// Option configures the service.
type Option func(*Service)

// WithIncludeUnrestricted keeps documents without permissions visible to
// callers that hold permissions.
func WithIncludeUnrestricted(v bool) Option {
	return func(s *Service) { s.includeUnrestricted = v }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a retrieval service.
func New(searcher Searcher, opts ...Option) *Service {
	s := &Service{searcher: searcher, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Query returns at most req.Top() records visible to a caller holding
// permissions. Hits without a source page or content are dropped. A backend
// that returns no response yields a RetrievalError; zero hits is an empty
// result.
func (s *Service) Query(
	ctx context.Context, req *request.Request, permissions []string,
) ([]result.SupportingContent, error) {
	filters, err := permission.Filter(permissions, s.includeUnrestricted)
	if err != nil {
		return nil, fmt.Errorf("build permission filter: %w", err)
	}

	useVector := req.UseVector()
	useText := req.UseText()
	if useText && !s.searcher.SupportsTextSearch(ctx) {
		if req.Mode() == mode.Text {
			return nil, domain.ErrKeywordSearchNotSupported
		}
		s.logger.Debug("Keyword leg skipped, backend lacks text search")
		useText = false
	}
	if !useVector && !useText {
		return nil, fmt.Errorf("%w: %s retrieval needs query text or vector", domain.ErrInvalidInput, req.Mode())
	}

	k := req.Candidates()
	var vectorHits, textHits []result.Hit

	if useVector {
		hits, err := s.searcher.SearchVector(ctx, req.Vector(), filters, k)
		if err != nil {
			return nil, &domain.RetrievalError{Err: err}
		}
		if hits == nil {
			return nil, &domain.RetrievalError{}
		}
		vectorHits = s.wellFormed(hits)
	}

	if useText {
		hits, err := s.searcher.SearchText(ctx, req.Query(), filters, k, req.SemanticCaptions())
		if err != nil {
			return nil, &domain.RetrievalError{Err: err}
		}
		if hits == nil {
			return nil, &domain.RetrievalError{}
		}
		textHits = s.wellFormed(hits)
	}

	var hits []result.Hit
	switch {
	case useVector && useText:
		hits = fuseRRF(vectorHits, textHits, req.Top(), req.SemanticCaptions())
	case useVector:
		hits = truncate(vectorHits, req.Top())
	default:
		hits = truncate(textHits, req.Top())
	}

	out := make([]result.SupportingContent, 0, len(hits))
	for _, h := range hits {
		origin := h.URL
		if origin == "" {
			origin = h.SourceFile
		}
		out = append(out, result.New(h.SourcePage, lineBreaks.Replace(h.Content), origin, h.Permissions, h.Score))
	}

	s.logger.Debug("Retrieval finished",
		zap.String("mode", string(req.Mode())),
		zap.Int("permissions", len(permissions)),
		zap.Int("vector_hits", len(vectorHits)),
		zap.Int("text_hits", len(textHits)),
		zap.Int("returned", len(out)),
	)
	return out, nil
}

// wellFormed drops hits missing a source page or content.
func (s *Service) wellFormed(hits []result.Hit) []result.Hit {
	out := make([]result.Hit, 0, len(hits))
	for _, h := range hits {
		if h.SourcePage == "" || h.Content == "" {
			s.logger.Debug("Malformed hit dropped", zap.String("key", h.Key))
			continue
		}
		out = append(out, h)
	}
	return out
}

func truncate(hits []result.Hit, n int) []result.Hit {
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}
