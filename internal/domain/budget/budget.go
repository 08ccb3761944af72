// Package budget models provider token budgets.
package budget

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/docassist/internal/domain"
)

// Period is the window a token limit applies to. Windows are calendar
// days and months in UTC.
type Period string

// Budget periods.
const (
	Daily   Period = "daily"
	Monthly Period = "monthly"
)

// Periods lists every period in reporting order.
var Periods = []Period{Daily, Monthly}

// Start truncates t to the beginning of the period.
func (p Period) Start(t time.Time) time.Time {
	t = t.UTC()
	if p == Monthly {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Key is the counter key of provider for the period containing t.
func (p Period) Key(provider string, t time.Time) string {
	layout := "2006-01-02"
	if p == Monthly {
		layout = "2006-01"
	}
	return fmt.Sprintf("%s%s:%s:%s", domain.BudgetKeyPrefix, provider, p, t.UTC().Format(layout))
}

// Retention is how long a counter outlives its period start. It covers the
// longest period plus slack for clock skew.
func (p Period) Retention() time.Duration {
	if p == Monthly {
		return 62 * 24 * time.Hour
	}
	return 48 * time.Hour
}

// Action is what happens to a request once a budget is spent.
type Action string

// Budget actions.
const (
	ActionWarn   Action = "warn"
	ActionReject Action = "reject"
)

// ParseAction maps a config value to an action; empty selects warn.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case "", ActionWarn:
		return ActionWarn, nil
	case ActionReject:
		return ActionReject, nil
	default:
		return "", fmt.Errorf("unknown budget action %q", s)
	}
}

// Status is the state of one period's budget.
type Status struct {
	provider string
	period   Period
	limit    int64
	used     int64
	resetsAt time.Time
}

// NewStatus creates a Status snapshot. A zero limit means unlimited.
func NewStatus(provider string, period Period, limit, used int64, resetsAt time.Time) Status {
	return Status{provider: provider, period: period, limit: limit, used: used, resetsAt: resetsAt}
}

// Provider returns the provider the budget belongs to.
func (s Status) Provider() string { return s.provider }

// Period returns the budget window.
func (s Status) Period() Period { return s.period }

// Limit returns the token cap, 0 when unlimited.
func (s Status) Limit() int64 { return s.limit }

// Used returns tokens consumed in the current window.
func (s Status) Used() int64 { return s.used }

// ResetsAt returns the start of the next window.
func (s Status) ResetsAt() time.Time { return s.resetsAt }

// Remaining returns tokens left, or -1 when unlimited.
func (s Status) Remaining() int64 {
	if s.limit == 0 {
		return -1
	}
	return max(s.limit-s.used, 0)
}

// Exhausted reports whether a limited budget is spent.
func (s Status) Exhausted() bool {
	return s.limit > 0 && s.used >= s.limit
}
