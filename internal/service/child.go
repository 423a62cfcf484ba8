package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sproutlingapp/sproutling-server/internal/access"
	"github.com/sproutlingapp/sproutling-server/internal/domain"
	domainerrors "github.com/sproutlingapp/sproutling-server/internal/errors"
	"github.com/sproutlingapp/sproutling-server/internal/id"
	"github.com/sproutlingapp/sproutling-server/internal/normalize"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

// ChildService manages child profile lifecycle. The creating caregiver
// becomes the profile owner; everyone else gets access through sharing.
type ChildService struct {
	store     *store.Store
	evaluator *access.Evaluator
	logger    *slog.Logger
}

// NewChildService creates a new child profile service.
func NewChildService(store *store.Store, evaluator *access.Evaluator, logger *slog.Logger) *ChildService {
	return &ChildService{
		store:     store,
		evaluator: evaluator,
		logger:    logger,
	}
}

// CreateChildRequest contains the data needed to create a child profile.
type CreateChildRequest struct {
	Name      string     `json:"name" validate:"required,max=100"`
	BirthDate time.Time  `json:"birth_date" validate:"required"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

// UpdateChildRequest contains mutable profile fields.
type UpdateChildRequest struct {
	Name      string     `json:"name" validate:"required,max=100"`
	BirthDate time.Time  `json:"birth_date" validate:"required"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

// CreateChild creates a new child profile owned by the caller.
func (s *ChildService) CreateChild(ctx context.Context, callerID string, req CreateChildRequest) (*domain.ChildProfile, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	childID, err := id.Generate("child")
	if err != nil {
		return nil, fmt.Errorf("generate child ID: %w", err)
	}

	child := domain.NewChildProfile(childID, callerID, normalize.DisplayName(req.Name), req.BirthDate)
	child.DueDate = req.DueDate

	if err := s.store.CreateChild(ctx, child); err != nil {
		return nil, fmt.Errorf("create child: %w", err)
	}

	s.logger.Info("Child profile created",
		"child_id", child.ID,
		"owner_id", callerID,
	)

	return child, nil
}

// GetChild returns a child profile if the caller has access to it.
func (s *ChildService) GetChild(ctx context.Context, callerID, childID string) (*domain.ChildProfile, error) {
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

	return child, nil
}

// UpdateChild updates profile fields. Any caregiver on the profile may edit
// it; ownership and the share set are not touched here.
func (s *ChildService) UpdateChild(ctx context.Context, callerID, childID string, req UpdateChildRequest) (*domain.ChildProfile, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	child, err := s.GetChild(ctx, callerID, childID)
	if err != nil {
		return nil, err
	}

	child.Name = normalize.DisplayName(req.Name)
	child.BirthDate = req.BirthDate
	child.DueDate = req.DueDate

	if err := s.store.UpdateChild(ctx, child); err != nil {
		return nil, fmt.Errorf("update child: %w", err)
	}

	return child, nil
}

// DeleteChild soft-deletes a child profile and every record scoped to it.
// Only the owner may delete a profile.
func (s *ChildService) DeleteChild(ctx context.Context, callerID, childID string) error {
	child, err := s.store.GetChild(ctx, childID)
	if err != nil {
		if errors.Is(err, store.ErrChildNotFound) {
			return domainerrors.NotFound("child profile not found")
		}
		return fmt.Errorf("get child: %w", err)
	}

	if child.OwnerID != callerID {
		return domainerrors.Forbidden("only the profile owner can delete it")
	}

	if err := domain.CascadeChildDelete(ctx, s.store, childID); err != nil {
		return fmt.Errorf("cascade delete: %w", err)
	}

	s.logger.Info("Child profile deleted",
		"child_id", childID,
		"deleted_by", callerID,
	)

	return nil
}

// ListChildren returns every profile the caller owns or collaborates on.
func (s *ChildService) ListChildren(ctx context.Context, callerID string) ([]*domain.ChildProfile, error) {
	children, err := s.store.ListChildrenForCaller(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}
