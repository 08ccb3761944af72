package domain

import (
	"context"
	"sync"
)

type tokenUsageKey struct{}

// TokenUsage collects model token usage for a single request. The handler puts
// a pointer into the context, use cases add to it, the handler reports it in
// response headers. Adds are safe for concurrent use; read the fields once
// the request is done.
type TokenUsage struct {
	mu               sync.Mutex
	EmbeddingTokens  int
	CompletionTokens int
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *TokenUsage) {
	u := &TokenUsage{}
	return context.WithValue(ctx, tokenUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector. Returns nil if not set.
func UsageFromContext(ctx context.Context) *TokenUsage {
	u, _ := ctx.Value(tokenUsageKey{}).(*TokenUsage)
	return u
}

// AddEmbedding records embedding tokens. Safe on a nil receiver.
func (u *TokenUsage) AddEmbedding(n int) {
	if u != nil {
		u.mu.Lock()
		u.EmbeddingTokens += n
		u.mu.Unlock()
	}
}

// AddCompletion records completion tokens. Safe on a nil receiver.
func (u *TokenUsage) AddCompletion(n int) {
	if u != nil {
		u.mu.Lock()
		u.CompletionTokens += n
		u.mu.Unlock()
	}
}
