// Package embedding selects vectorizers and decorates them with request
// accounting.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/docassist/internal/domain"
)

// InstrumentedEmbedder adds the tokens of every successful call to the
// TokenUsage in the request context and logs the outcome. Provider metrics
// are recorded by the transport client.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	logger *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. Log entries carry provider and model.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:  inner,
		logger: logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Embed implements domain.Embedder.
func (e *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	res, err := e.inner.Embed(ctx, text)
	elapsed := time.Since(start)

	if err != nil {
		e.logger.Log(failureLevel(err), "Embedding request failed",
			zap.Duration("duration", elapsed),
			zap.Int("text_len", len(text)),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	domain.UsageFromContext(ctx).AddEmbedding(res.TotalTokens)

	e.logger.Debug("Embedding request completed",
		zap.Duration("duration", elapsed),
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// failureLevel keeps expected failures out of the error log: callers that
// went away and providers pushing back.
func failureLevel(err error) zapcore.Level {
	switch {
	case errors.Is(err, context.Canceled):
		return zapcore.DebugLevel
	case errors.Is(err, domain.ErrRateLimited), errors.Is(err, domain.ErrTokenBudgetExceeded):
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
