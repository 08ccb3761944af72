// Package openai adapts OpenAI-compatible endpoints to the embedding and chat
// completion capabilities.
package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/domain"
	"github.com/kailas-cloud/docassist/internal/metrics"
)

// Embedder is an embedding provider using the OpenAI-compatible API (e.g. Azure OpenAI, Nebius).
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	guard      *Guard
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	// Guard is optional; nil calls the API unthrottled.
	Guard  *Guard
	Logger *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		guard:      cfg.Guard,
		logger:     cfg.Logger,
	}
}

// Embed implements domain.Embedder. A response whose vector length differs
// from the configured dimensions is a provider error and never reaches the index.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     e.dimensions,
	}
	model := string(e.model)

	start := time.Now()
	var resp openai.EmbeddingResponse
	err := e.call(ctx, func() error {
		var callErr error
		resp, callErr = e.client.CreateEmbeddings(ctx, req)
		return callErr //nolint:wrapcheck // classified by parseAPIError
	})
	elapsed := time.Since(start)

	if err == nil {
		err = e.checkResponse(&resp)
	} else {
		err = parseAPIError("embedding", err, domain.ErrEmbeddingProviderError)
	}
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, errorClass(err)).Inc()
		return domain.EmbeddingResult{}, err
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(elapsed.Seconds())
	if u := resp.Usage; u.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(u.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(u.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

func (e *Embedder) checkResponse(resp *openai.EmbeddingResponse) error {
	if len(resp.Data) == 0 {
		return fmt.Errorf("%w: %w", errEmptyResponse, domain.ErrEmbeddingProviderError)
	}
	if got := len(resp.Data[0].Embedding); e.dimensions > 0 && got != e.dimensions {
		return fmt.Errorf("%s returned %d dimensions, want %d: %w: %w",
			e.model, got, e.dimensions, errDimensionMismatch, domain.ErrEmbeddingProviderError)
	}
	return nil
}

func (e *Embedder) call(ctx context.Context, fn func() error) error {
	if e.guard == nil {
		return fn()
	}
	return e.guard.Do(ctx, fn)
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
