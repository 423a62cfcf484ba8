// Package access decides whether a caller may touch a record.
//
// Every decision reduces to the effective access set: the record's owner
// plus all resolved collaborators, either from the record's own share set
// or inherited from its parent child profile. Decisions are pure and
// fail closed: malformed ownership metadata denies, it never errors.
package access

import (
	"context"
	"slices"

	"github.com/sproutlingapp/sproutling-server/internal/errors"
)

// Sentinel errors for write-path preconditions.
var (
	// ErrAccessDenied signals a caller without owner or collaborator standing.
	ErrAccessDenied = errors.Forbidden("you do not have access to this record")
	// ErrOwnerImmutable signals an update that tried to change a record's owner.
	ErrOwnerImmutable = errors.Conflict("a record's owner cannot be changed")
)

// Resource is the minimal ownership metadata every persisted record carries.
type Resource interface {
	// Owner returns the record's owner identifier.
	Owner() string
}

// SelfShared is implemented by records that carry their own share set
// (recipes, shopping items, child profiles).
type SelfShared interface {
	Resource
	// OwnSharedWith returns the record's own share set.
	OwnSharedWith() []string
}

// ChildScoped is implemented by records that reference a child profile
// and inherit its share set.
type ChildScoped interface {
	Resource
	// ChildRef returns the ID of the profile this record belongs to.
	ChildRef() string
}

// ProfileResolver looks up a child profile's share set by ID.
// Implemented by the store; failures resolve to no access.
type ProfileResolver interface {
	ProfileSharedWith(ctx context.Context, childID string) ([]string, error)
}

// Evaluator answers access questions for records. The zero value is not
// usable; transitive resolution needs a ProfileResolver.
type Evaluator struct {
	profiles ProfileResolver
}

// NewEvaluator creates an access evaluator backed by the given resolver.
func NewEvaluator(profiles ProfileResolver) *Evaluator {
	return &Evaluator{profiles: profiles}
}

// CanAccess reports whether callerID may read and write the record.
// It returns true when the caller is the owner, appears in the record's
// own share set, or appears in the referenced profile's share set. Any
// missing or malformed metadata, including resolver failures, denies.
func (e *Evaluator) CanAccess(ctx context.Context, resource Resource, callerID string) bool {
	if resource == nil || callerID == "" {
		return false
	}

	owner := resource.Owner()
	if owner == "" {
		// A record without an owner is malformed; deny rather than guess.
		return false
	}
	if callerID == owner {
		return true
	}

	if shared, ok := resource.(SelfShared); ok {
		return slices.Contains(shared.OwnSharedWith(), callerID)
	}

	if scoped, ok := resource.(ChildScoped); ok {
		childID := scoped.ChildRef()
		if childID == "" || e.profiles == nil {
			return false
		}
		sharedWith, err := e.profiles.ProfileSharedWith(ctx, childID)
		if err != nil {
			return false
		}
		return slices.Contains(sharedWith, callerID)
	}

	return false
}

// EffectiveSharedWith resolves the record's collaborator set: the record's
// own share set when it has one, otherwise the referenced profile's share
// set at query time, otherwise empty. The result is deduplicated with the
// owner excluded, and is never nil.
func (e *Evaluator) EffectiveSharedWith(ctx context.Context, resource Resource) []string {
	if resource == nil {
		return []string{}
	}

	var raw []string
	switch r := resource.(type) {
	case SelfShared:
		raw = r.OwnSharedWith()
	case ChildScoped:
		if childID := r.ChildRef(); childID != "" && e.profiles != nil {
			resolved, err := e.profiles.ProfileSharedWith(ctx, childID)
			if err == nil {
				raw = resolved
			}
		}
	}

	owner := resource.Owner()
	effective := make([]string, 0, len(raw))
	for _, id := range raw {
		if id == "" || id == owner || slices.Contains(effective, id) {
			continue
		}
		effective = append(effective, id)
	}
	return effective
}

// AssertOwnerImmutable checks the precondition every write path must hold:
// an update may never change a record's owner. Returns ErrOwnerImmutable
// on violation. A missing owner on either side also violates.
func AssertOwnerImmutable(old, updated Resource) error {
	if old == nil || updated == nil {
		return ErrOwnerImmutable
	}
	if old.Owner() == "" || old.Owner() != updated.Owner() {
		return ErrOwnerImmutable
	}
	return nil
}
