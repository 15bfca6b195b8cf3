// Package rbac evaluates role grants and projects records down to permitted attributes.
package rbac

import (
	"sort"
	"strings"
)

const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ScopeOwn = "own"
	ScopeAny = "any"

	// ResourceAccount is the user account resource.
	ResourceAccount = "account"

	Wildcard       = "*"
	negationPrefix = "!"
)

// IdentityAttribute survives every projection.
const IdentityAttribute = "id"

// AccessControl answers permission queries against a grant table.
type AccessControl struct {
	grants Grants
}

// New returns an AccessControl over grants.
func New(grants Grants) *AccessControl {
	return &AccessControl{grants: grants}
}

// Can starts a permission query for role.
func (ac *AccessControl) Can(role string) Query {
	return Query{ac: ac, role: role}
}

// Query resolves permissions of one role.
type Query struct {
	ac   *AccessControl
	role string
}

func (q Query) CreateOwn(resource string) Permission { return q.Do(ActionCreate, ScopeOwn, resource) }
func (q Query) CreateAny(resource string) Permission { return q.Do(ActionCreate, ScopeAny, resource) }
func (q Query) ReadOwn(resource string) Permission   { return q.Do(ActionRead, ScopeOwn, resource) }
func (q Query) ReadAny(resource string) Permission   { return q.Do(ActionRead, ScopeAny, resource) }
func (q Query) UpdateOwn(resource string) Permission { return q.Do(ActionUpdate, ScopeOwn, resource) }
func (q Query) UpdateAny(resource string) Permission { return q.Do(ActionUpdate, ScopeAny, resource) }
func (q Query) DeleteOwn(resource string) Permission { return q.Do(ActionDelete, ScopeOwn, resource) }
func (q Query) DeleteAny(resource string) Permission { return q.Do(ActionDelete, ScopeAny, resource) }

// Do resolves action on resource within scope. An "own" request is satisfied by
// an "any" grant when the role has no dedicated "own" entry.
func (q Query) Do(action, scope, resource string) Permission {
	p := Permission{Role: q.role, Resource: resource, Action: action, Scope: scope}

	actions, ok := q.ac.grants[q.role][resource]
	if !ok {
		return p
	}
	attrs, ok := actions[action+":"+scope]
	if !ok && scope == ScopeOwn {
		attrs, ok = actions[action+":"+ScopeAny]
	}
	if !ok || len(attrs) == 0 {
		return p
	}

	p.Granted = true
	p.include = make(map[string]struct{})
	p.exclude = make(map[string]struct{})
	for _, attr := range attrs {
		switch {
		case attr == Wildcard:
			p.wildcard = true
		case strings.HasPrefix(attr, negationPrefix):
			p.exclude[strings.TrimPrefix(attr, negationPrefix)] = struct{}{}
		default:
			p.include[attr] = struct{}{}
		}
	}
	return p
}

// Permission is the outcome of a query. Filter must only be used when Granted is true.
type Permission struct {
	Granted  bool
	Role     string
	Resource string
	Action   string
	Scope    string

	wildcard bool
	include  map[string]struct{}
	exclude  map[string]struct{}
}

// Allows reports whether attr passes this permission.
func (p Permission) Allows(attr string) bool {
	if !p.Granted {
		return false
	}
	if attr == IdentityAttribute {
		return true
	}
	if _, excluded := p.exclude[attr]; excluded {
		return false
	}
	if p.wildcard {
		return true
	}
	_, included := p.include[attr]
	return included
}

// Attributes lists the configured attributes in the permission's "attr" and "!attr" notation.
func (p Permission) Attributes() []string {
	if !p.Granted {
		return nil
	}
	out := make([]string, 0, len(p.include)+len(p.exclude)+1)
	if p.wildcard {
		out = append(out, Wildcard)
	}
	for attr := range p.include {
		out = append(out, attr)
	}
	for attr := range p.exclude {
		out = append(out, negationPrefix+attr)
	}
	sort.Strings(out[boolToInt(p.wildcard):])
	return out
}

// Filter projects record down to the permitted attributes.
func (p Permission) Filter(record map[string]any) map[string]any {
	return Project(p, record)
}

// FilterAll projects every record in records.
func (p Permission) FilterAll(records []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, Project(p, r))
	}
	return out
}

// Project is Filter for records of any value type.
func Project[V any](p Permission, record map[string]V) map[string]V {
	out := make(map[string]V, len(record))
	if !p.Granted {
		return out
	}
	for attr, v := range record {
		if p.Allows(attr) {
			out[attr] = v
		}
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
