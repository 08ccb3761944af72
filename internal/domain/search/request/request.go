package request

import (
	"fmt"

	"github.com/kailas-cloud/docassist/internal/domain/search/mode"
)

// Retrieval parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTop     = 3
	MaxTop         = 50
	// RerankCandidates is the neighbour count fetched when semantic re-ranking is on.
	RerankCandidates = 50
)

// Params are the raw retrieval inputs before validation.
type Params struct {
	Query            string
	Vector           []float32
	Mode             mode.Mode
	Top              int
	SemanticRanker   bool
	SemanticCaptions bool
}

// Request is a validated retrieval query.
type Request struct {
	query            string
	vector           []float32
	searchMode       mode.Mode
	top              int
	semanticRanker   bool
	semanticCaptions bool
}

// New validates and normalizes retrieval parameters.
// Defaults: mode=hybrid, top=3. Top is clamped to MaxTop.
func New(p Params) (Request, error) {
	if len(p.Query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	m := p.Mode
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid retrieval mode: %q", m)
	}
	top := p.Top
	if top <= 0 {
		top = DefaultTop
	}
	if top > MaxTop {
		top = MaxTop
	}

	return Request{
		query:            p.Query,
		vector:           p.Vector,
		searchMode:       m,
		top:              top,
		semanticRanker:   p.SemanticRanker,
		semanticCaptions: p.SemanticCaptions,
	}, nil
}

// Query returns the keyword query text (may be empty).
func (r *Request) Query() string { return r.query }

// Vector returns the query embedding (may be nil).
func (r *Request) Vector() []float32 { return r.vector }

// Mode returns the retrieval strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Top returns the number of records to return.
func (r *Request) Top() int { return r.top }

// SemanticRanker reports whether re-ranking over an over-fetched set is requested.
func (r *Request) SemanticRanker() bool { return r.semanticRanker }

// SemanticCaptions reports whether extractive captions replace full content.
func (r *Request) SemanticCaptions() bool { return r.semanticCaptions }

// UseVector reports whether a nearest-neighbour query runs.
func (r *Request) UseVector() bool {
	return r.searchMode.UsesVectors() && len(r.vector) > 0
}

// UseText reports whether a keyword query runs.
func (r *Request) UseText() bool {
	return r.searchMode.UsesKeywords() && r.query != ""
}

// Candidates returns the neighbour count per leg: over-fetch when re-ranking.
func (r *Request) Candidates() int {
	if r.semanticRanker {
		return max(RerankCandidates, r.top)
	}
	return r.top
}
