package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the aggregated health status.
type Status string

const (
	Healthy Status = "ok"
	// Degraded means a model provider is failing or out of budget.
	Degraded Status = "degraded"
	// Unhealthy means the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component check.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentDatabase  = "database"
	ComponentEmbedding = "embedding"
	ComponentChat      = "chat"
	ComponentBudget    = "budget"
)

// defaultCheckTimeout bounds each probe so one hung provider cannot stall
// the health endpoint.
const defaultCheckTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Components returns checked component names in order.
func (r Report) Components() []string {
	names := make([]string, 0, len(r.Checks))
	for n := range r.Checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Service runs the component checks.
type Service struct {
	db        DBPinger
	providers map[string]Checker
	budget    BudgetReporter
	timeout   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithEmbedding adds the embedding provider check.
func WithEmbedding(c Checker) Option {
	return withProvider(ComponentEmbedding, c)
}

// WithChat adds the chat completion provider check.
func WithChat(c Checker) Option {
	return withProvider(ComponentChat, c)
}

func withProvider(name string, c Checker) Option {
	return func(s *Service) {
		if c != nil {
			s.providers[name] = c
		}
	}
}

// WithBudget reports an exhausted token budget as degraded.
func WithBudget(b BudgetReporter) Option {
	return func(s *Service) { s.budget = b }
}

// WithTimeout overrides the per-check timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Service.
func New(db DBPinger, opts ...Option) *Service {
	s := &Service{db: db, providers: make(map[string]Checker), timeout: defaultCheckTimeout}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check probes the database and every provider concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.providers)+2)
		g      errgroup.Group
	)
	run := func(name string, probe func(context.Context) error) {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := CheckOK
			if probe(cctx) != nil {
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}

	run(ComponentDatabase, s.db.Ping)
	for name, c := range s.providers {
		run(name, c.HealthCheck)
	}
	_ = g.Wait()

	if s.budget != nil {
		checks[ComponentBudget] = CheckOK
		for _, st := range s.budget.Report() {
			if st.Exhausted() {
				checks[ComponentBudget] = CheckError
			}
		}
	}

	status := Healthy
	for name, res := range checks {
		switch {
		case res == CheckOK:
		case name == ComponentDatabase:
			status = Unhealthy
		case status == Healthy:
			status = Degraded
		}
	}
	return Report{Status: status, Checks: checks}
}
