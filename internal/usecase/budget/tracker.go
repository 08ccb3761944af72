// Package budget enforces per-provider token budgets shared by embeddings
// and chat completions.
package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/domain"
	dombudget "github.com/kailas-cloud/docassist/internal/domain/budget"
	"github.com/kailas-cloud/docassist/internal/metrics"
)

// Limits are the token caps of one provider. Zero means unlimited.
type Limits struct {
	Daily   int64
	Monthly int64
}

// Tracker counts tokens in memory and writes them behind to a Store.
// Check never touches the store.
type Tracker struct {
	provider string
	limits   Limits
	action   dombudget.Action
	store    Store
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	used    map[dombudget.Period]int64
	windows map[dombudget.Period]time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStore persists counters so they survive restarts and are shared
// between processes.
func WithStore(s Store) Option {
	return func(t *Tracker) { t.store = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker for provider.
func NewTracker(provider string, limits Limits, action dombudget.Action, opts ...Option) *Tracker {
	t := &Tracker{
		provider: provider,
		limits:   limits,
		action:   action,
		logger:   zap.NewNop(),
		now:      time.Now,
		used:     make(map[dombudget.Period]int64, len(dombudget.Periods)),
		windows:  make(map[dombudget.Period]time.Time, len(dombudget.Periods)),
	}
	for _, o := range opts {
		o(t)
	}
	now := t.now()
	for _, p := range dombudget.Periods {
		t.windows[p] = p.Start(now)
	}
	return t
}

// Provider returns the provider name.
func (t *Tracker) Provider() string { return t.provider }

// Load reads the current window counters from the store. Read failures are
// logged and leave the counter at zero.
func (t *Tracker) Load(ctx context.Context) {
	if t.store == nil {
		return
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range dombudget.Periods {
		key := p.Key(t.provider, now)
		val, err := t.store.Get(ctx, key)
		if err != nil {
			t.logger.Warn("Failed to load token budget", zap.String("key", key), zap.Error(err))
			continue
		}
		t.used[p] = val
	}
	t.logger.Info("Token budget loaded",
		zap.String("provider", t.provider),
		zap.Int64("daily_used", t.used[dombudget.Daily]),
		zap.Int64("monthly_used", t.used[dombudget.Monthly]),
	)
}

// Check returns domain.ErrTokenBudgetExceeded when a limit is spent and the
// action is reject. With warn it logs and lets the request through.
func (t *Tracker) Check(_ context.Context) error {
	t.mu.Lock()
	t.rollover(t.now())
	var spent []dombudget.Status
	for _, s := range t.statusLocked() {
		if s.Exhausted() {
			spent = append(spent, s)
		}
	}
	t.mu.Unlock()

	if len(spent) == 0 {
		return nil
	}
	if t.action == dombudget.ActionReject {
		return fmt.Errorf("%s %s: %w", t.provider, spent[0].Period(), domain.ErrTokenBudgetExceeded)
	}
	for _, s := range spent {
		t.logger.Warn("Token budget exceeded",
			zap.String("provider", t.provider),
			zap.String("period", string(s.Period())),
			zap.Int64("used", s.Used()),
			zap.Int64("limit", s.Limit()),
		)
	}
	return nil
}

// Record adds consumed tokens. The store write uses its own short deadline
// so a cancelled request still gets counted.
func (t *Tracker) Record(tokens int64) {
	if tokens <= 0 {
		return
	}
	now := t.now()

	t.mu.Lock()
	t.rollover(now)
	for _, p := range dombudget.Periods {
		t.used[p] += tokens
	}
	statuses := t.statusLocked()
	t.mu.Unlock()

	for _, s := range statuses {
		metrics.TokenBudgetRemaining.WithLabelValues(t.provider, string(s.Period())).Set(float64(s.Remaining()))
	}

	if t.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, p := range dombudget.Periods {
		if err := t.store.Add(ctx, p.Key(t.provider, now), tokens, p.Retention()); err != nil {
			t.logger.Warn("Failed to persist token budget",
				zap.String("provider", t.provider),
				zap.String("period", string(p)),
				zap.Error(err),
			)
		}
	}
}

// Status returns the daily and monthly budget state.
func (t *Tracker) Status() []dombudget.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(t.now())
	return t.statusLocked()
}

func (t *Tracker) statusLocked() []dombudget.Status {
	out := make([]dombudget.Status, 0, len(dombudget.Periods))
	for _, p := range dombudget.Periods {
		start := t.windows[p]
		next := start.AddDate(0, 0, 1)
		limit := t.limits.Daily
		if p == dombudget.Monthly {
			next = start.AddDate(0, 1, 0)
			limit = t.limits.Monthly
		}
		out = append(out, dombudget.NewStatus(t.provider, p, limit, t.used[p], next))
	}
	return out
}

// rollover zeroes counters whose window has ended.
func (t *Tracker) rollover(now time.Time) {
	for _, p := range dombudget.Periods {
		if start := p.Start(now); start.After(t.windows[p]) {
			t.used[p] = 0
			t.windows[p] = start
		}
	}
}
