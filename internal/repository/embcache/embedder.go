// Package embcache caches embedding vectors in the key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/docassist/internal/db"
	"github.com/kailas-cloud/docassist/internal/domain"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder serves repeated texts from the store. Concurrent misses
// for the same text share one provider call.
type CachedEmbedder struct {
	inner   domain.Embedder
	store   store
	model   string
	dims    int
	ttl     time.Duration
	counter *prometheus.CounterVec
	logger  *zap.Logger
	flight  singleflight.Group
}

// Option configures a CachedEmbedder.
type Option func(*CachedEmbedder)

// WithTTL sets the entry lifetime. Zero keeps entries forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *CachedEmbedder) { c.ttl = ttl }
}

// WithDimensions rejects cached vectors of any other length and keys
// entries by dimension, for models with configurable output size.
func WithDimensions(n int) Option {
	return func(c *CachedEmbedder) { c.dims = n }
}

// WithCounter counts lookups on a vec labelled "result" (hit, miss).
func WithCounter(v *prometheus.CounterVec) Option {
	return func(c *CachedEmbedder) { c.counter = v }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *CachedEmbedder) { c.logger = l }
}

// New wraps inner with a cache keyed by model and text.
func New(inner domain.Embedder, s store, model string, opts ...Option) *CachedEmbedder {
	c := &CachedEmbedder{inner: inner, store: s, model: model, logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Embed returns a cached vector or asks the provider. Hits report zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss")

	// Only the caller whose closure runs is charged the tokens.
	var called bool
	v, err, _ := c.flight.Do(key, func() (any, error) {
		called = true
		res, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.save(ctx, key, res.Embedding)
		return res, nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	res, _ := v.(domain.EmbeddingResult)
	if !called {
		return domain.EmbeddingResult{Embedding: res.Embedding}, nil
	}
	return res, nil
}

func (c *CachedEmbedder) count(result string) {
	if c.counter != nil {
		c.counter.WithLabelValues(result).Inc()
	}
}

// cacheKey hashes model, dimensions and text so a model or size switch
// never serves vectors from another space.
func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(c.dims)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return domain.EmbeddingCachePrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	case len(data) == 0:
		return nil, false
	}

	vec, err := decodeVector(data)
	if err == nil && c.dims > 0 && len(vec) != c.dims {
		err = fmt.Errorf("%w: cached %d, want %d", domain.ErrVectorDimMismatch, len(vec), c.dims)
	}
	if err != nil {
		c.logger.Warn("Discarding cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, encodeVector(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

// encodeVector packs float32 values little-endian, 4 bytes each.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 0, len(v)*4)
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache entry: %d bytes", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
