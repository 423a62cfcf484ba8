package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/sproutlingapp/sproutling-server/internal/sse"
)

// CreateChild persists a new child profile.
func (s *Store) CreateChild(ctx context.Context, child *domain.ChildProfile) error {
	child.NormalizeSharedWith()

	if err := s.Children.Create(ctx, child.ID, child); err != nil {
		return fmt.Errorf("create child: %w", err)
	}

	s.emit(sse.NewRecordEvent(sse.EventChildCreated, sse.ChildEventData{Child: child}, childAudience(child)))
	return nil
}

// GetChild retrieves a child profile by ID. The share set is normalized
// on the way out so callers never see nil, duplicates, or the owner.
func (s *Store) GetChild(ctx context.Context, id string) (*domain.ChildProfile, error) {
	child, err := s.Children.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrChildNotFound
		}
		return nil, fmt.Errorf("get child: %w", err)
	}

	if child.IsDeleted() {
		return nil, ErrChildNotFound
	}

	child.NormalizeSharedWith()
	return child, nil
}

// UpdateChild persists profile field changes. Collaborator changes must
// go through AddCollaborator/RemoveCollaborator instead.
func (s *Store) UpdateChild(ctx context.Context, child *domain.ChildProfile) error {
	child.NormalizeSharedWith()
	child.Touch()

	if err := s.Children.Update(ctx, child.ID, child); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrChildNotFound
		}
		return fmt.Errorf("update child: %w", err)
	}

	s.emit(sse.NewRecordEvent(sse.EventChildUpdated, sse.ChildEventData{Child: child}, childAudience(child)))
	return nil
}

// AddCollaborator adds userID to the profile's share set as a conditional
// write: the read, membership check, and write happen in one transaction,
// so two devices accepting concurrently cannot double-add. Adding an
// already-present id or the owner is a no-op.
func (s *Store) AddCollaborator(ctx context.Context, childID, userID string) (*domain.ChildProfile, error) {
	var changed bool
	child, err := s.Children.UpdateIf(ctx, childID,
		func(c *domain.ChildProfile) error {
			if c.IsDeleted() {
				return ErrChildNotFound
			}
			return nil
		},
		func(c *domain.ChildProfile) {
			c.NormalizeSharedWith()
			changed = c.AddCollaborator(userID)
		},
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrChildNotFound
		}
		return nil, fmt.Errorf("add collaborator: %w", err)
	}

	if changed {
		s.emit(sse.NewRecordEvent(sse.EventChildShared, sse.ChildShareEventData{
			ChildID:    child.ID,
			UserID:     userID,
			SharedWith: child.SharedWith,
		}, childAudience(child)))
	}

	return child, nil
}

// RemoveCollaborator removes userID from the profile's share set with the
// same conditional-write safety as AddCollaborator. Removing an absent id
// is a no-op.
func (s *Store) RemoveCollaborator(ctx context.Context, childID, userID string) (*domain.ChildProfile, error) {
	var changed bool
	var priorAudience []string
	child, err := s.Children.UpdateIf(ctx, childID,
		func(c *domain.ChildProfile) error {
			if c.IsDeleted() {
				return ErrChildNotFound
			}
			return nil
		},
		func(c *domain.ChildProfile) {
			c.NormalizeSharedWith()
			priorAudience = childAudience(c)
			changed = c.RemoveCollaborator(userID)
		},
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrChildNotFound
		}
		return nil, fmt.Errorf("remove collaborator: %w", err)
	}

	if changed {
		// The removed caregiver still gets this one last event so their
		// device learns the share is gone.
		s.emit(sse.NewRecordEvent(sse.EventChildUnshared, sse.ChildShareEventData{
			ChildID:    child.ID,
			UserID:     userID,
			SharedWith: child.SharedWith,
		}, priorAudience))
	}

	return child, nil
}

// ProfileSharedWith returns the share set of a child profile.
// Implements the resolver the access evaluator uses for transitive
// resolution of child-scoped records.
func (s *Store) ProfileSharedWith(ctx context.Context, childID string) ([]string, error) {
	child, err := s.GetChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	return child.SharedWith, nil
}

// ListChildrenForCaller returns every non-deleted profile the caller owns
// or collaborates on, owned profiles first.
func (s *Store) ListChildrenForCaller(ctx context.Context, callerID string) ([]*domain.ChildProfile, error) {
	seen := make(map[string]bool)
	var children []*domain.ChildProfile

	collect := func(indexName string) error {
		for child, err := range s.Children.ListByIndex(ctx, indexName, callerID) {
			if err != nil {
				return err
			}
			if child.IsDeleted() || seen[child.ID] {
				continue
			}
			child.NormalizeSharedWith()
			seen[child.ID] = true
			children = append(children, child)
		}
		return nil
	}

	if err := collect("owner"); err != nil {
		return nil, fmt.Errorf("list owned children: %w", err)
	}
	if err := collect("collab"); err != nil {
		return nil, fmt.Errorf("list shared children: %w", err)
	}

	return children, nil
}

// childAudience returns the account IDs that should see events about a
// child profile: the owner plus every collaborator.
func childAudience(child *domain.ChildProfile) []string {
	audience := make([]string, 0, len(child.SharedWith)+1)
	audience = append(audience, child.OwnerID)
	audience = append(audience, child.SharedWith...)
	return audience
}
