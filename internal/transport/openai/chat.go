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

// ChatConfig holds the chat completion provider settings.
type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	User    string
	Guard   *Guard
	Logger  *zap.Logger
}

// ChatClient implements domain.ChatCompleter over the chat completions API.
type ChatClient struct {
	client *openai.Client
	model  string
	user   string
	guard  *Guard
	logger *zap.Logger
}

// NewChatClient creates an OpenAI-compatible chat completion client.
func NewChatClient(cfg *ChatConfig) *ChatClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		user:   cfg.User,
		guard:  cfg.Guard,
		logger: logger,
	}
}

// Complete sends the messages and returns every choice in order. Tokens are
// added to the TokenUsage carried by ctx, if any.
func (c *ChatClient) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	creq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		N:           1,
		User:        c.user,
	}

	start := time.Now()

	var resp openai.ChatCompletionResponse
	call := func() error {
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, creq)
		return callErr //nolint:wrapcheck // classified by parseAPIError
	}
	var err error
	if c.guard != nil {
		err = c.guard.Do(ctx, call)
	} else {
		err = call()
	}

	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, req.Step, "error").Inc()
		c.logger.Error("Chat completion failed",
			zap.String("model", c.model),
			zap.String("step", req.Step),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.Completion{}, parseAPIError("chat", err, domain.ErrChatProviderError)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(c.model, req.Step, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(c.model, req.Step).Observe(duration.Seconds())
	metrics.CompletionTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.CompletionTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	domain.UsageFromContext(ctx).AddCompletion(resp.Usage.TotalTokens)

	out := domain.Completion{
		Choices:          make([]string, 0, len(resp.Choices)),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	for _, ch := range resp.Choices {
		out.Choices = append(out.Choices, ch.Message.Content)
	}

	c.logger.Debug("Chat completion done",
		zap.String("model", c.model),
		zap.String("step", req.Step),
		zap.Duration("duration", duration),
		zap.Int("choices", len(out.Choices)),
		zap.Int("prompt_tokens", out.PromptTokens),
		zap.Int("completion_tokens", out.CompletionTokens),
	)
	return out, nil
}

// HealthCheck verifies API availability via ListModels.
func (c *ChatClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
