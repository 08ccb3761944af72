package budget

import (
	"context"

	"github.com/kailas-cloud/docassist/internal/domain"
)

// Embedder charges embedding tokens to a Tracker.
type Embedder struct {
	inner   domain.Embedder
	tracker *Tracker
}

// NewEmbedder wraps inner. Requests are refused once the budget is spent
// and the tracker rejects.
func NewEmbedder(inner domain.Embedder, tracker *Tracker) *Embedder {
	return &Embedder{inner: inner, tracker: tracker}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := e.tracker.Check(ctx); err != nil {
		return domain.EmbeddingResult{}, err
	}
	res, err := e.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err //nolint:wrapcheck // transparent decorator
	}
	e.tracker.Record(int64(res.TotalTokens))
	return res, nil
}

// Completer charges prompt and completion tokens to a Tracker.
type Completer struct {
	inner   domain.ChatCompleter
	tracker *Tracker
}

// NewCompleter wraps inner.
func NewCompleter(inner domain.ChatCompleter, tracker *Tracker) *Completer {
	return &Completer{inner: inner, tracker: tracker}
}

// Complete implements domain.ChatCompleter.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if err := c.tracker.Check(ctx); err != nil {
		return domain.Completion{}, err
	}
	out, err := c.inner.Complete(ctx, req)
	if err != nil {
		return domain.Completion{}, err //nolint:wrapcheck // transparent decorator
	}
	c.tracker.Record(int64(out.PromptTokens + out.CompletionTokens))
	return out, nil
}
