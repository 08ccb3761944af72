package chi

import (
	"context"

	dombatch "github.com/kailas-cloud/docassist/internal/domain/batch"
	dombudget "github.com/kailas-cloud/docassist/internal/domain/budget"
	domchat "github.com/kailas-cloud/docassist/internal/domain/chat"
	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
	domingest "github.com/kailas-cloud/docassist/internal/domain/ingestion"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
	chatuc "github.com/kailas-cloud/docassist/internal/usecase/chat"
	documentuc "github.com/kailas-cloud/docassist/internal/usecase/document"
	healthuc "github.com/kailas-cloud/docassist/internal/usecase/health"
)

// ChatService answers questions and runs direct retrieval.
type ChatService interface {
	Reply(ctx context.Context, history []domchat.Turn, ov domchat.Overrides) (*domchat.Response, error)
	Search(ctx context.Context, query string, vector []float32, ov domchat.Overrides) ([]result.SupportingContent, error)
	Prompts() chatuc.Prompts
}

// DocumentService manages the corpus.
type DocumentService interface {
	List(ctx context.Context) ([]domdoc.Document, error)
	Upload(ctx context.Context, files []documentuc.File, opts documentuc.UploadOptions) []dombatch.Result
	Remove(ctx context.Context, name string) (int, error)
	RemoveAll(ctx context.Context) ([]dombatch.Result, error)
}

// IngestionService starts and observes ingestion runs.
type IngestionService interface {
	Start(ctx context.Context) (string, error)
	Cancel()
	Status() domingest.Snapshot
}

// HealthService aggregates component checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// BudgetService reports provider token budgets.
type BudgetService interface {
	Report() []dombudget.Status
}
