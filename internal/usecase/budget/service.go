package budget

import (
	"slices"
	"strings"

	dombudget "github.com/kailas-cloud/docassist/internal/domain/budget"
)

// Service reports the budgets of every configured provider.
type Service struct {
	trackers []*Tracker
}

// NewService creates a Service over trackers. Nil trackers are ignored.
func NewService(trackers ...*Tracker) *Service {
	s := &Service{}
	for _, t := range trackers {
		if t != nil {
			s.trackers = append(s.trackers, t)
		}
	}
	slices.SortFunc(s.trackers, func(a, b *Tracker) int { return strings.Compare(a.provider, b.provider) })
	return s
}

// Report returns the status of each provider's budgets, ordered by provider
// then period. Empty when no budget is configured.
func (s *Service) Report() []dombudget.Status {
	out := make([]dombudget.Status, 0, len(s.trackers)*len(dombudget.Periods))
	for _, t := range s.trackers {
		out = append(out, t.Status()...)
	}
	return out
}
