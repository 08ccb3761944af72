package permission

import (
	"fmt"

	"github.com/kailas-cloud/docassist/internal/domain/search/filter"
)

// Index fields the filter refers to.
const (
	FieldPermissions     = "permissions"
	FieldPermissionCount = "permission_count"
)

// Filter builds the document-level ACL predicate for a caller holding names.
//
// A caller with no permissions sees only records with an empty permission set.
// A caller with permissions sees records whose set intersects theirs; with
// includeUnrestricted the empty-set clause joins that OR group.
func Filter(names []string, includeUnrestricted bool) (filter.Expression, error) {
	unrestricted, err := filter.NewEquals(FieldPermissionCount, 0)
	if err != nil {
		return filter.Expression{}, err
	}

	held := make([]filter.Condition, 0, len(names)+1)
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		c, err := filter.NewMatch(FieldPermissions, n)
		if err != nil {
			return filter.Expression{}, err
		}
		held = append(held, c)
	}

	if len(held) == 0 {
		return filter.AllOf(unrestricted)
	}
	if includeUnrestricted {
		held = append(held, unrestricted)
	}

	expr, err := filter.AnyOf(held...)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("permission filter: %w", err)
	}
	return expr, nil
}
