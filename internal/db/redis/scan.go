package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/docassist/internal/db"
	"github.com/kailas-cloud/docassist/internal/domain/search/filter"
)

// tagSeparator matches the SEPARATOR used for TAG fields written by this store.
const tagSeparator = ","

func (s *Store) scanFiltered(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
	if q.KeyPrefix == "" {
		return nil, fmt.Errorf("key prefix is required for scan fallback")
	}

	keys, err := s.Scan(ctx, q.KeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return &db.SearchResult{}, nil
	}
	slices.Sort(keys)

	hashes, err := s.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, err
	}

	var matched []db.SearchEntry
	for i, fields := range hashes {
		if len(fields) == 0 || !matchesFilter(fields, q.Filters) {
			continue
		}
		matched = append(matched, db.SearchEntry{Key: keys[i], Fields: project(fields, q.ReturnFields)})
	}

	total := len(matched)
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)
	return &db.SearchResult{Total: total, Entries: matched[start:end]}, nil
}

func project(fields map[string]string, keep []string) map[string]string {
	if len(keep) == 0 {
		return fields
	}
	out := make(map[string]string, len(keep))
	for _, k := range keep {
		if v, ok := fields[k]; ok {
			out[k] = v
		}
	}
	return out
}

// matchesFilter evaluates expr against a raw hash with the same semantics
// the FT query produced by BuildFilter has.
func matchesFilter(fields map[string]string, expr filter.Expression) bool {
	for _, c := range expr.Must() {
		if !matchCondition(fields, c) {
			return false
		}
	}
	if should := expr.Should(); len(should) > 0 {
		if !slices.ContainsFunc(should, func(c filter.Condition) bool { return matchCondition(fields, c) }) {
			return false
		}
	}
	for _, c := range expr.MustNot() {
		if matchCondition(fields, c) {
			return false
		}
	}
	return true
}

func matchCondition(fields map[string]string, c filter.Condition) bool {
	raw, ok := fields[c.Key()]
	if !ok {
		return false
	}
	if c.IsMatch() {
		return slices.Contains(strings.Split(raw, tagSeparator), c.Match())
	}
	if c.IsRange() {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return false
		}
		return c.Range().Contains(v)
	}
	return false
}
