package domain

import "context"

// Embedder turns text into a vector. Decorators (cache, budget, metrics)
// wrap it and pass EmbeddingResult through unchanged.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult is one vector plus the provider's token accounting.
// Cache hits report zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
