// Package app assembles the store, repositories and services shared by the
// API server and the admin CLI.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/config"
	"github.com/kailas-cloud/docassist/internal/db"
	dbRedis "github.com/kailas-cloud/docassist/internal/db/redis"
	"github.com/kailas-cloud/docassist/internal/domain"
	dombudget "github.com/kailas-cloud/docassist/internal/domain/budget"
	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
	domingest "github.com/kailas-cloud/docassist/internal/domain/ingestion"
	"github.com/kailas-cloud/docassist/internal/metrics"
	blobrepo "github.com/kailas-cloud/docassist/internal/repository/blob"
	budgetrepo "github.com/kailas-cloud/docassist/internal/repository/budget"
	"github.com/kailas-cloud/docassist/internal/repository/chunkindex"
	"github.com/kailas-cloud/docassist/internal/repository/embcache"
	permissionrepo "github.com/kailas-cloud/docassist/internal/repository/permission"
	searchrepo "github.com/kailas-cloud/docassist/internal/repository/search"
	openaitr "github.com/kailas-cloud/docassist/internal/transport/openai"
	budgetuc "github.com/kailas-cloud/docassist/internal/usecase/budget"
	chatuc "github.com/kailas-cloud/docassist/internal/usecase/chat"
	documentuc "github.com/kailas-cloud/docassist/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/docassist/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docassist/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/docassist/internal/usecase/indexer"
	ingestionuc "github.com/kailas-cloud/docassist/internal/usecase/ingestion"
	retrievaluc "github.com/kailas-cloud/docassist/internal/usecase/retrieval"
)

// App holds the wired components. Close releases them.
type App struct {
	Store       *dbRedis.Store
	Registry    *embeddinguc.Registry
	Blobs       *blobrepo.Repo
	Chunks      *chunkindex.Repo
	Permissions *permissionrepo.Repo
	Documents   *documentuc.Service
	Ingestion   *ingestionuc.Service
	Chat        *chatuc.Service
	Health      *healthuc.Service
	Budget      *budgetuc.Service
}

// New connects to the store and builds every service. Metrics must be
// registered by the caller beforehand if they are to be exported.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	flavor, err := dbRedis.ParseFlavor(cfg.Database.Driver)
	if err != nil {
		return nil, fmt.Errorf("database.driver: %w", err)
	}
	embeddingType := domdoc.EmbeddingRedisSearch
	if flavor == dbRedis.FlavorValkey {
		embeddingType = domdoc.EmbeddingValkeySearch
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Username:   cfg.Database.Username,
		Password:   cfg.Database.Password,
		DB:         cfg.Database.DB,
		Flavor:     flavor,
		ClientName: "docassist",
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("wait for database: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("addrs", cfg.Database.Addrs),
	)

	guards := buildGuards(cfg.Embedding.Providers, logger)

	trackers, err := buildTrackers(ctx, cfg.Embedding.Providers, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	registry, err := buildRegistry(cfg, store, guards, trackers, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	chatProvider := cfg.Embedding.Providers[cfg.Chat.Provider]
	chatClient := openaitr.NewChatClient(&openaitr.ChatConfig{
		APIKey:  chatProvider.APIKey,
		BaseURL: chatProvider.BaseURL,
		Model:   cfg.Chat.Model,
		Guard:   guards[cfg.Chat.Provider],
		Logger:  logger,
	})
	var completer domain.ChatCompleter = chatClient
	if t, ok := trackers[cfg.Chat.Provider]; ok {
		completer = budgetuc.NewCompleter(chatClient, t)
	}

	blobs := blobrepo.New(store, cfg.Storage.DocumentsBaseURL)
	chunks := chunkindex.New(store, chunkindex.Config{
		Name:        cfg.Index.Name,
		Dimensions:  cfg.Index.Dimensions,
		Algorithm:   db.ParseVectorAlgorithm(strings.ToUpper(cfg.Index.Algorithm)),
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	permissions := permissionrepo.New(store)

	indexer := indexeruc.New(chunks, registry,
		indexeruc.WithMaxChars(cfg.Ingestion.MaxChunkChars),
		indexeruc.WithLogger(logger.Named("indexer")),
	)

	policy, err := domingest.ParseTerminalPolicy(cfg.Ingestion.TerminalStatus)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("ingestion: %w", err)
	}
	ingestion, err := ingestionuc.New(blobs, indexer,
		ingestionuc.WithWorkers(cfg.Ingestion.Workers),
		ingestionuc.WithTerminalPolicy(policy),
		ingestionuc.WithEmbeddingType(embeddingType),
		ingestionuc.WithVectorizer(cfg.Embedding.Default),
		ingestionuc.WithTempDir(cfg.Ingestion.TempDir),
		ingestionuc.WithLogger(logger.Named("ingestion")),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create ingestion service: %w", err)
	}

	retrieval := retrievaluc.New(searchrepo.New(store, cfg.Index.Name),
		retrievaluc.WithIncludeUnrestricted(cfg.Retrieval.IncludeUnrestricted),
		retrievaluc.WithLogger(logger.Named("retrieval")),
	)

	chat := chatuc.New(retrieval, registry, completer, permissions,
		chatuc.WithPrompts(promptsFromConfig(cfg.Prompts)),
		chatuc.WithVectorizer(cfg.Embedding.Default),
		chatuc.WithCitationBaseURL(cfg.Storage.CitationBaseURL),
		chatuc.WithTemperature(cfg.Chat.Temperature),
		chatuc.WithMaxTokens(cfg.Chat.MaxTokens),
		chatuc.WithLogger(logger.Named("chat")),
	)

	budget := newBudgetService(trackers)

	var embeddingCheck healthuc.Checker
	if v, err := registry.Get(""); err == nil {
		embeddingCheck = healthCheckerOf(v.Queries)
	}

	return &App{
		Store:       store,
		Registry:    registry,
		Blobs:       blobs,
		Chunks:      chunks,
		Permissions: permissions,
		Documents:   documentuc.New(blobs, chunks, logger.Named("documents")),
		Ingestion:   ingestion,
		Chat:        chat,
		Health: healthuc.New(store,
			healthuc.WithEmbedding(embeddingCheck),
			healthuc.WithChat(chatClient),
			healthuc.WithBudget(budget),
		),
		Budget: budget,
	}, nil
}

// Close stops any active ingestion run and disconnects from the store.
func (a *App) Close() {
	a.Ingestion.Close()
	a.Store.Close()
}

// buildGuards creates one rate limiter and circuit breaker per provider so
// embeddings and completions against the same API share its quota.
func buildGuards(providers map[string]config.ProviderConfig, logger *zap.Logger) map[string]*openaitr.Guard {
	guards := make(map[string]*openaitr.Guard, len(providers))
	for name, p := range providers {
		guards[name] = openaitr.NewGuard(openaitr.GuardConfig{
			Name:              name,
			RequestsPerSecond: p.RequestsPerSecond,
			Burst:             p.Burst,
			BreakerTimeout:    time.Duration(p.BreakerTimeoutSec) * time.Second,
			Logger:            logger,
		})
	}
	return guards
}

// buildTrackers creates a token budget tracker for every provider with a
// limit and loads its spend from the store.
func buildTrackers(
	ctx context.Context, providers map[string]config.ProviderConfig, store *dbRedis.Store, logger *zap.Logger,
) (map[string]*budgetuc.Tracker, error) {
	counters := budgetrepo.New(store)
	trackers := make(map[string]*budgetuc.Tracker)
	for name, p := range providers {
		if !p.Budget.Enabled() {
			continue
		}
		action, err := dombudget.ParseAction(p.Budget.Action)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		t := budgetuc.NewTracker(name,
			budgetuc.Limits{Daily: p.Budget.DailyTokenLimit, Monthly: p.Budget.MonthlyTokenLimit},
			action,
			budgetuc.WithStore(counters),
			budgetuc.WithLogger(logger.Named("budget")),
		)
		t.Load(ctx)
		trackers[name] = t
	}
	return trackers, nil
}

func newBudgetService(trackers map[string]*budgetuc.Tracker) *budgetuc.Service {
	list := make([]*budgetuc.Tracker, 0, len(trackers))
	for _, t := range trackers {
		list = append(list, t)
	}
	return budgetuc.NewService(list...)
}

func buildRegistry(
	cfg *config.Config,
	store *dbRedis.Store,
	guards map[string]*openaitr.Guard,
	trackers map[string]*budgetuc.Tracker,
	logger *zap.Logger,
) (*embeddinguc.Registry, error) {
	ttl := time.Duration(cfg.Embedding.CacheTTLHours) * time.Hour

	vectorizers := make(map[string]embeddinguc.Vectorizer, len(cfg.Embedding.Vectorizers))
	for name, vc := range cfg.Embedding.Vectorizers {
		base := buildEmbedder(vc, cfg.Embedding.Providers[vc.Provider], guards[vc.Provider], trackers[vc.Provider], store, ttl, logger)
		vectorizers[name] = embeddinguc.Vectorizer{
			Documents: withInstruction(base, vc.DocumentInstruction),
			Queries:   withInstruction(base, vc.QueryInstruction),
		}
		logger.Info("Vectorizer configured",
			zap.String("vectorizer", name),
			zap.String("provider", vc.Provider),
			zap.String("model", vc.Model),
			zap.Int("dimensions", vc.Dimensions),
		)
	}

	registry, err := embeddinguc.NewRegistry(vectorizers, cfg.Embedding.Default)
	if err != nil {
		return nil, fmt.Errorf("embedding registry: %w", err)
	}
	return registry, nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Budget -> Cached -> Instrumented.
// Cache hits are not charged to the budget.
func buildEmbedder(
	vc config.VectorizerConfig,
	provCfg config.ProviderConfig,
	guard *openaitr.Guard,
	tracker *budgetuc.Tracker,
	store *dbRedis.Store,
	ttl time.Duration,
	logger *zap.Logger,
) domain.Embedder {
	base := openaitr.NewEmbedder(&openaitr.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vc.Model,
		Dimensions: vc.Dimensions,
		Provider:   vc.Provider,
		Guard:      guard,
		Logger:     logger,
	})

	var charged domain.Embedder = base
	if tracker != nil {
		charged = budgetuc.NewEmbedder(base, tracker)
	}
	cached := embcache.New(charged, store, vc.Model,
		embcache.WithTTL(ttl),
		embcache.WithDimensions(vc.Dimensions),
		embcache.WithCounter(metrics.EmbeddingCacheTotal),
		embcache.WithLogger(logger.Named("embcache")),
	)

	return &healthyEmbedder{
		Embedder: embeddinguc.NewInstrumentedEmbedder(cached, vc.Provider, vc.Model, logger),
		checker:  base,
	}
}

// withInstruction wraps e with an instruction prefix. The wrapper is
// outermost so the cache key includes the instruction.
func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return &healthyEmbedder{
		Embedder: &instructionEmbedder{inner: e, instruction: instruction},
		checker:  healthCheckerOf(e),
	}
}

// instructionEmbedder prepends a fixed instruction to every text.
// Asymmetric models embed pages and questions with different instructions.
type instructionEmbedder struct {
	inner       domain.Embedder
	instruction string
}

func (e *instructionEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return res, nil
}

// healthyEmbedder keeps the provider health check reachable through decorators.
type healthyEmbedder struct {
	domain.Embedder
	checker healthuc.Checker
}

func (h *healthyEmbedder) HealthCheck(ctx context.Context) error {
	if h.checker == nil {
		return nil
	}
	if err := h.checker.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding health check: %w", err)
	}
	return nil
}

func healthCheckerOf(e domain.Embedder) healthuc.Checker {
	if c, ok := e.(healthuc.Checker); ok {
		return c
	}
	return nil
}

func promptsFromConfig(p config.PromptsConfig) chatuc.Prompts {
	return chatuc.Prompts{
		QueryRewrite:   p.QueryRewrite,
		AnswerSystem:   p.AnswerSystem,
		AnswerUser:     p.AnswerUser,
		FollowUpSystem: p.FollowUpSystem,
		FollowUpUser:   p.FollowUpUser,
	}
}
