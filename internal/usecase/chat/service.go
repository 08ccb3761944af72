// Package chat answers questions grounded in permission-filtered retrieval.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/domain"
	domchat "github.com/kailas-cloud/docassist/internal/domain/chat"
	"github.com/kailas-cloud/docassist/internal/domain/search/mode"
	"github.com/kailas-cloud/docassist/internal/domain/search/request"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
)

// Pipeline step names reported to the completion capability.
const (
	StepQueryRewrite = "query_rewrite"
	StepAnswer       = "answer"
	StepFollowUp     = "follow_up"
)

// DefaultTemperature is used when a request does not override it.
const DefaultTemperature float32 = 0.7

// Service runs the answer pipeline. It is safe for concurrent use.
type Service struct {
	retriever       Retriever
	embedders       Embedders
	completer       domain.ChatCompleter
	permissions     PermissionResolver
	prompts         Prompts
	vectorizer      string
	citationBaseURL string
	temperature     float32
	maxTokens       int
	logger          *zap.Logger
}

// Option configures the service.
type Option func(*Service)

// WithPrompts overrides templates; empty fields keep the defaults.
func WithPrompts(p Prompts) Option {
	return func(s *Service) { s.prompts = p.Merge(DefaultPrompts()) }
}

// WithVectorizer selects the question embedder; empty uses the default.
func WithVectorizer(name string) Option {
	return func(s *Service) { s.vectorizer = name }
}

// WithCitationBaseURL sets the URL attached to every response.
func WithCitationBaseURL(u string) Option {
	return func(s *Service) { s.citationBaseURL = u }
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float32) Option {
	return func(s *Service) { s.temperature = t }
}

// WithMaxTokens caps each completion; zero leaves it to the provider.
func WithMaxTokens(n int) Option {
	return func(s *Service) { s.maxTokens = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a chat service.
func New(
	retriever Retriever, embedders Embedders, completer domain.ChatCompleter,
	permissions PermissionResolver, opts ...Option,
) *Service {
	s := &Service{
		retriever:   retriever,
		embedders:   embedders,
		completer:   completer,
		permissions: permissions,
		prompts:     DefaultPrompts(),
		temperature: DefaultTemperature,
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Prompts returns the active templates.
func (s *Service) Prompts() Prompts { return s.prompts }

// Reply answers the last question in history. A follow-up failure is
// reported in Response.FollowUps and leaves the answer intact.
func (s *Service) Reply(
	ctx context.Context, history []domchat.Turn, ov domchat.Overrides,
) (*domchat.Response, error) {
	question, err := domchat.LastQuestion(history)
	if err != nil {
		return nil, err
	}

	m := ov.RetrievalMode
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: retrieval mode %q", domain.ErrInvalidInput, m)
	}

	names, err := s.ResolvePermissions(ctx, ov.PermissionIDs)
	if err != nil {
		return nil, err
	}

	var vector []float32
	if m.UsesVectors() {
		vector, err = s.embedQuestion(ctx, question)
		if err != nil {
			return nil, err
		}
	}

	var query string
	if m.UsesKeywords() {
		query, err = s.rewriteQuery(ctx, question)
		if err != nil {
			return nil, err
		}
	}

	req, err := request.New(request.Params{
		Query:            query,
		Vector:           vector,
		Mode:             m,
		Top:              ov.Top,
		SemanticRanker:   ov.SemanticRanker,
		SemanticCaptions: ov.SemanticCaptions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	records, err := s.retriever.Query(ctx, &req, names)
	if err != nil {
		return nil, err
	}

	answer, err := s.answer(ctx, history, DocumentContents(records), s.temperatureFor(ov))
	if err != nil {
		return nil, err
	}

	resp := &domchat.Response{
		Answer:          answer,
		DataPoints:      records,
		CitationBaseURL: s.citationBaseURL,
	}
	if ov.SuggestFollowupQuestions {
		resp.FollowUps = s.followUps(ctx, answer.Text)
	}

	s.logger.Debug("Chat answered",
		zap.String("mode", string(m)),
		zap.Int("turns", len(history)),
		zap.Int("sources", len(records)),
		zap.Int("follow_ups", len(resp.FollowUps.Questions)),
	)
	return resp, nil
}

// Search runs permission-filtered retrieval for query without the rewrite
// and answer steps. A missing vector is computed from query when the mode
// needs one.
func (s *Service) Search(
	ctx context.Context, query string, vector []float32, ov domchat.Overrides,
) ([]result.SupportingContent, error) {
	m := ov.RetrievalMode
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: retrieval mode %q", domain.ErrInvalidInput, m)
	}

	names, err := s.ResolvePermissions(ctx, ov.PermissionIDs)
	if err != nil {
		return nil, err
	}

	if m.UsesVectors() && len(vector) == 0 && strings.TrimSpace(query) != "" {
		vector, err = s.embedQuestion(ctx, query)
		if err != nil {
			return nil, err
		}
	}

	req, err := request.New(request.Params{
		Query:            query,
		Vector:           vector,
		Mode:             m,
		Top:              ov.Top,
		SemanticRanker:   ov.SemanticRanker,
		SemanticCaptions: ov.SemanticCaptions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return s.retriever.Query(ctx, &req, names)
}

// ResolvePermissions maps caller permission ids to names. Unknown ids grant
// nothing.
func (s *Service) ResolvePermissions(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	names, err := s.permissions.NamesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}
	return names, nil
}

// DocumentContents renders records as "title:content" lines joined by "\r",
// or NoSources when there are none.
func DocumentContents(records []result.SupportingContent) string {
	if len(records) == 0 {
		return NoSources
	}
	lines := make([]string, 0, len(records))
	for i := range records {
		lines = append(lines, records[i].Title()+":"+records[i].Content())
	}
	return strings.Join(lines, "\r")
}

func (s *Service) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	emb, err := s.embedders.Queries(s.vectorizer)
	if err != nil {
		return nil, &domain.EmbeddingError{Err: err}
	}
	res, err := emb.Embed(ctx, question)
	if err != nil {
		return nil, &domain.EmbeddingError{Err: err}
	}
	return res.Embedding, nil
}

func (s *Service) rewriteQuery(ctx context.Context, question string) (string, error) {
	c, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Step: StepQueryRewrite,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: s.prompts.QueryRewrite},
			{Role: domain.RoleUser, Content: question},
		},
		Temperature: 0,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", &domain.QueryGenerationError{Err: err}
	}
	if len(c.Choices) != 1 {
		return "", &domain.QueryGenerationError{Choices: len(c.Choices)}
	}
	return strings.TrimSpace(c.Choices[0]), nil
}

func (s *Service) answer(
	ctx context.Context, history []domchat.Turn, sources string, temperature float32,
) (domchat.Answer, error) {
	msgs := make([]domain.ChatMessage, 0, 2*len(history)+2)
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: s.prompts.AnswerSystem})
	for _, turn := range history {
		msgs = append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: turn.User})
		if turn.Bot != "" {
			msgs = append(msgs, domain.ChatMessage{Role: domain.RoleAssistant, Content: turn.Bot})
		}
	}
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: s.prompts.answerUser(sources)})

	c, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Step:        StepAnswer,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return domchat.Answer{}, fmt.Errorf("answer completion: %w", err)
	}
	if len(c.Choices) == 0 {
		return domchat.Answer{}, &domain.AnswerParseError{Err: errors.New("no completion returned")}
	}
	return parseAnswer(c.Choices[0])
}

func (s *Service) followUps(ctx context.Context, answer string) domchat.FollowUps {
	fu := domchat.FollowUps{Requested: true}

	c, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Step: StepFollowUp,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: s.prompts.FollowUpSystem},
			{Role: domain.RoleUser, Content: s.prompts.followUpUser(answer)},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	switch {
	case err != nil:
		fu.Err = fmt.Errorf("follow-up completion: %w", err)
	case len(c.Choices) == 0:
		fu.Err = &domain.FollowUpParseError{Err: errors.New("no completion returned")}
	default:
		fu.Questions, fu.Err = parseFollowUps(c.Choices[0])
	}
	if fu.Err != nil {
		s.logger.Warn("Follow-up questions unavailable", zap.Error(fu.Err))
	}
	return fu
}

func (s *Service) temperatureFor(ov domchat.Overrides) float32 {
	if ov.Temperature != nil {
		return *ov.Temperature
	}
	return s.temperature
}

// parseAnswer requires both fields as JSON strings. Nothing is filled in
// for a missing field.
func parseAnswer(raw string) (domchat.Answer, error) {
	var v struct {
		Answer   *string `json:"answer"`
		Thoughts *string `json:"thoughts"`
	}
	if err := json.Unmarshal([]byte(stripFence(raw)), &v); err != nil {
		return domchat.Answer{}, &domain.AnswerParseError{Raw: raw, Err: err}
	}
	switch {
	case v.Answer == nil:
		return domchat.Answer{}, &domain.AnswerParseError{Raw: raw, Err: errors.New(`missing "answer"`)}
	case v.Thoughts == nil:
		return domchat.Answer{}, &domain.AnswerParseError{Raw: raw, Err: errors.New(`missing "thoughts"`)}
	}
	return domchat.Answer{Text: *v.Answer, Thoughts: *v.Thoughts}, nil
}

func parseFollowUps(raw string) ([]string, error) {
	var qs []string
	if err := json.Unmarshal([]byte(stripFence(raw)), &qs); err != nil {
		return nil, &domain.FollowUpParseError{Raw: raw, Err: err}
	}
	if qs == nil {
		return nil, &domain.FollowUpParseError{Raw: raw, Err: errors.New("not a JSON array")}
	}
	return qs, nil
}

// stripFence removes a surrounding markdown code fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
