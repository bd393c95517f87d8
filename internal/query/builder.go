// Package query turns list filters and the caller identity into the
// predicate every task repository backend applies.
package query

import (
	"strings"

	"taskmanager/internal/auth"
	"taskmanager/internal/model"
)

// Filter holds the user-supplied list filters.
type Filter struct {
	Status *model.Status
	Search string
}

// Predicate restricts repository reads and writes. A zero Predicate
// matches every task.
type Predicate struct {
	Status  *model.Status
	Search  string
	OwnerID *string
}

// Build merges filters with the caller identity. Ownership scoping is
// applied last so a filter can never widen it. An anonymous caller
// (nil identity) gets no owner restriction at all.
func Build(identity *auth.Identity, f Filter) Predicate {
	var p Predicate

	if f.Status != nil {
		status := *f.Status
		p.Status = &status
	}

	p.Search = strings.TrimSpace(f.Search)

	if identity != nil {
		owner := identity.ID
		p.OwnerID = &owner
	}

	return p
}

// Scoped returns the predicate used for single-record operations:
// only ownership applies there.
func Scoped(identity *auth.Identity) Predicate {
	return Build(identity, Filter{})
}

// Matches reports whether t satisfies the predicate.
func (p Predicate) Matches(t model.Task) bool {
	if p.Status != nil && t.Status != *p.Status {
		return false
	}

	if p.Search != "" {
		needle := strings.ToLower(p.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}

	if p.OwnerID != nil {
		if t.OwnerID == nil || *t.OwnerID != *p.OwnerID {
			return false
		}
	}

	return true
}
