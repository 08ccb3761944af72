// Package filter models the boolean predicates applied to index records:
// tag matches and numeric ranges grouped into must, should and must-not.
package filter

import (
	"errors"
	"fmt"
)

// MaxConditionsPerGroup bounds a single group. It is sized for permission
// OR-groups, where one condition is emitted per permission a caller holds.
const MaxConditionsPerGroup = 256

// Expression ANDs its must conditions, requires at least one should
// condition when any are present, and excludes every must-not condition.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates group sizes.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	for _, g := range []struct {
		name  string
		conds []Condition
	}{{"must", must}, {"should", should}, {"must_not", mustNot}} {
		if len(g.conds) > MaxConditionsPerGroup {
			return Expression{}, fmt.Errorf("too many %s conditions: %d (max %d)",
				g.name, len(g.conds), MaxConditionsPerGroup)
		}
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// AnyOf is satisfied when at least one condition holds.
func AnyOf(conds ...Condition) (Expression, error) {
	return NewExpression(nil, conds, nil)
}

// AllOf is satisfied when every condition holds.
func AllOf(conds ...Condition) (Expression, error) {
	return NewExpression(conds, nil, nil)
}

func (e Expression) Must() []Condition    { return e.must }
func (e Expression) Should() []Condition  { return e.should }
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must)+len(e.should)+len(e.mustNot) == 0
}

// Condition is a tag match or a numeric range on one field.
type Condition struct {
	key   string
	match string
	rng   *Range
}

// NewMatch requires the tag field key to contain value.
func NewMatch(key, value string) (Condition, error) {
	if key == "" {
		return Condition{}, errors.New("filter key is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: value}, nil
}

// NewRange requires the numeric field key to fall within r.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, errors.New("filter key is required")
	}
	return Condition{key: key, rng: &r}, nil
}

// NewEquals requires the numeric field key to equal v.
func NewEquals(key string, v float64) (Condition, error) {
	return NewRange(key, Range{Min: Inclusive(v), Max: Inclusive(v)})
}

func (c Condition) Key() string   { return c.key }
func (c Condition) Match() string { return c.match }
func (c Condition) Range() *Range { return c.rng }
func (c Condition) IsMatch() bool { return c.match != "" }
func (c Condition) IsRange() bool { return c.rng != nil }

// Bound is one end of a Range.
type Bound struct {
	Value     float64
	Exclusive bool
}

// Inclusive returns a closed bound at v.
func Inclusive(v float64) *Bound { return &Bound{Value: v} }

// Exclusive returns an open bound at v.
func Exclusive(v float64) *Bound { return &Bound{Value: v, Exclusive: true} }

// Range is a numeric interval. A nil end is unbounded.
type Range struct {
	Min *Bound
	Max *Bound
}

// NewRangeFilter requires at least one end and rejects empty intervals.
func NewRangeFilter(lower, upper *Bound) (Range, error) {
	if lower == nil && upper == nil {
		return Range{}, errors.New("at least one range boundary is required")
	}
	if lower != nil && upper != nil {
		if lower.Value > upper.Value ||
			(lower.Value == upper.Value && (lower.Exclusive || upper.Exclusive)) {
			return Range{}, fmt.Errorf("empty range: lower bound %g above upper bound %g", lower.Value, upper.Value)
		}
	}
	return Range{Min: lower, Max: upper}, nil
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	if r.Min != nil && (v < r.Min.Value || (r.Min.Exclusive && v == r.Min.Value)) {
		return false
	}
	if r.Max != nil && (v > r.Max.Value || (r.Max.Exclusive && v == r.Max.Value)) {
		return false
	}
	return true
}
