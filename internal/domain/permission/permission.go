// Package permission models access-control tokens and the retrieval filter they produce.
package permission

import (
	"fmt"
	"strings"
)

// Right is the access level granted by a permission.
type Right string

// Access levels.
const (
	RightRead  Right = "read"
	RightWrite Right = "write"
	RightAdmin Right = "admin"
)

// IsValid checks if the right is one of the supported values.
func (r Right) IsValid() bool {
	return r == RightRead || r == RightWrite || r == RightAdmin
}

// Permission is a named ACL token. Identity is the id; the name is what
// documents and index records carry.
type Permission struct {
	id    string
	name  string
	right Right
}

// New validates and creates a Permission. Names are stored comma-joined and
// matched as tags, so they may not contain commas.
func New(id, name string, right Right) (Permission, error) {
	if strings.TrimSpace(id) == "" {
		return Permission{}, fmt.Errorf("permission id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, fmt.Errorf("permission name is required")
	}
	if strings.Contains(name, ",") {
		return Permission{}, fmt.Errorf("permission name %q must not contain commas", name)
	}
	if right == "" {
		right = RightRead
	}
	if !right.IsValid() {
		return Permission{}, fmt.Errorf("invalid right %q", right)
	}
	return Permission{id: id, name: name, right: right}, nil
}

// Reconstruct creates a Permission without validation (storage hydration).
func Reconstruct(id, name string, right Right) Permission {
	return Permission{id: id, name: name, right: right}
}

// ID returns the permission identifier.
func (p *Permission) ID() string { return p.id }

// Name returns the ACL token.
func (p *Permission) Name() string { return p.name }

// Right returns the access level.
func (p *Permission) Right() Right { return p.right }
