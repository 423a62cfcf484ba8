package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sproutlingapp/sproutling-server/internal/access"
	"github.com/sproutlingapp/sproutling-server/internal/domain"
	domainerrors "github.com/sproutlingapp/sproutling-server/internal/errors"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

// SharingService coordinates the collaborator sets on child profiles.
// All mutations take an explicit caller and enforce that only the profile
// owner can grant or revoke access.
type SharingService struct {
	store     *store.Store
	evaluator *access.Evaluator
	logger    *slog.Logger
}

// NewSharingService creates a new sharing service.
func NewSharingService(store *store.Store, evaluator *access.Evaluator, logger *slog.Logger) *SharingService {
	return &SharingService{
		store:     store,
		evaluator: evaluator,
		logger:    logger,
	}
}

// AddCollaborator grants userID caregiver access to a child profile.
// Idempotent: adding an existing collaborator succeeds without change.
func (s *SharingService) AddCollaborator(ctx context.Context, callerID, childID, userID string) (*domain.ChildProfile, error) {
	child, err := s.getOwnedChild(ctx, callerID, childID, "only the profile owner can add caregivers")
	if err != nil {
		return nil, err
	}

	if userID == child.OwnerID {
		return nil, domainerrors.Conflict("the profile owner already has full access")
	}

	// The account must exist before it can be granted access.
	if _, err := s.store.GetAccount(ctx, userID); err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, domainerrors.NotFound("account not found")
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	updated, err := s.store.AddCollaborator(ctx, childID, userID)
	if err != nil {
		return nil, fmt.Errorf("add collaborator: %w", err)
	}

	s.logger.Info("Caregiver added",
		"child_id", childID,
		"user_id", userID,
		"added_by", callerID,
	)

	return updated, nil
}

// RemoveCollaborator revokes userID's caregiver access to a child profile.
// Idempotent: removing an absent collaborator succeeds without change.
// A collaborator may also remove themselves (leaving the share).
func (s *SharingService) RemoveCollaborator(ctx context.Context, callerID, childID, userID string) (*domain.ChildProfile, error) {
	child, err := s.store.GetChild(ctx, childID)
	if err != nil {
		if errors.Is(err, store.ErrChildNotFound) {
			return nil, domainerrors.NotFound("child profile not found")
		}
		return nil, fmt.Errorf("get child: %w", err)
	}

	if callerID != child.OwnerID && callerID != userID {
		return nil, domainerrors.Forbidden("only the profile owner can remove caregivers")
	}

	if userID == child.OwnerID {
		return nil, domainerrors.Conflict("the profile owner cannot be removed")
	}

	updated, err := s.store.RemoveCollaborator(ctx, childID, userID)
	if err != nil {
		return nil, fmt.Errorf("remove collaborator: %w", err)
	}

	s.logger.Info("Caregiver removed",
		"child_id", childID,
		"user_id", userID,
		"removed_by", callerID,
	)

	return updated, nil
}

// ListCollaborators returns the accounts with caregiver access to a child
// profile, excluding the owner. Any caregiver on the profile may list them.
func (s *SharingService) ListCollaborators(ctx context.Context, callerID, childID string) ([]*domain.Account, error) {
	child, err := s.store.GetChild(ctx, childID)
	if err != nil {
		if errors.Is(err, store.ErrChildNotFound) {
			return nil, domainerrors.NotFound("child profile not found")
		}
		return nil, fmt.Errorf("get child: %w", err)
	}

	if !s.evaluator.CanAccess(ctx, child, callerID) {
		return nil, access.ErrAccessDenied
	}

	accounts := make([]*domain.Account, 0, len(child.SharedWith))
	for _, userID := range child.SharedWith {
		account, err := s.store.GetAccount(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				// A deleted account can linger in an old share set. Skip it.
				continue
			}
			return nil, fmt.Errorf("get collaborator account: %w", err)
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

// getOwnedChild fetches a child profile and verifies the caller owns it.
func (s *SharingService) getOwnedChild(ctx context.Context, callerID, childID, denyMsg string) (*domain.ChildProfile, error) {
	child, err := s.store.GetChild(ctx, childID)
	if err != nil {
		if errors.Is(err, store.ErrChildNotFound) {
			return nil, domainerrors.NotFound("child profile not found")
		}
		return nil, fmt.Errorf("get child: %w", err)
	}

	if child.OwnerID != callerID {
		return nil, domainerrors.Forbidden(denyMsg)
	}

	return child, nil
}
