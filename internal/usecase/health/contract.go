package health

import (
	"context"

	dombudget "github.com/kailas-cloud/docassist/internal/domain/budget"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker probes a model provider (embeddings or chat).
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// BudgetReporter exposes the token budgets of the model providers.
type BudgetReporter interface {
	Report() []dombudget.Status
}
