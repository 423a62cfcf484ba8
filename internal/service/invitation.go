// Package service provides the business logic layer for caregiver accounts,
// child profiles, sharing, and care records.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/sproutlingapp/sproutling-server/internal/config"
	"github.com/sproutlingapp/sproutling-server/internal/domain"
	domainerrors "github.com/sproutlingapp/sproutling-server/internal/errors"
	"github.com/sproutlingapp/sproutling-server/internal/id"
	"github.com/sproutlingapp/sproutling-server/internal/normalize"
	"github.com/sproutlingapp/sproutling-server/internal/store"
	"github.com/sproutlingapp/sproutling-server/internal/validation"
)

// validate is a shared validator instance for request validation.
var validate = validation.New()

const (
	// inviteCodeDigits is the standard invitation code length.
	inviteCodeDigits = 6
	// wideInviteCodeDigits is the fallback length once the 6-digit space
	// is too contended to allocate from.
	wideInviteCodeDigits = 8
	// maxCodeAttempts bounds collision retries per code length.
	maxCodeAttempts = 5
)

// EmailSender delivers invitation emails. Implementations may be a no-op
// when email delivery is not configured.
type EmailSender interface {
	SendInvitation(ctx context.Context, to string, inv *domain.Invitation, universalLink string) error
}

// InvitationService handles caregiver invitation creation, validation,
// acceptance, and decline.
type InvitationService struct {
	store  *store.Store
	email  EmailSender
	logger *slog.Logger
	cfg    config.InviteConfig
}

// NewInvitationService creates a new invitation service.
// email may be nil when invitation emails are disabled.
func NewInvitationService(store *store.Store, email EmailSender, logger *slog.Logger, cfg config.InviteConfig) *InvitationService {
	return &InvitationService{
		store:  store,
		email:  email,
		logger: logger,
		cfg:    cfg,
	}
}

// CreateInvitationRequest contains the data needed to invite a caregiver.
type CreateInvitationRequest struct {
	ChildID      string `json:"child_id" validate:"required"`
	InvitedEmail string `json:"invited_email" validate:"required,email"`
}

// InvitationResponse is returned after creating or looking up an invitation.
type InvitationResponse struct {
	*domain.Invitation
	DeepLink      string `json:"deep_link"`
	UniversalLink string `json:"universal_link"`
}

// InvitationPreview is returned for code validation before accepting.
// It carries just enough for the accept screen.
type InvitationPreview struct {
	InvitationID string    `json:"invitation_id"`
	ChildName    string    `json:"child_name"`
	InviterName  string    `json:"inviter_name"`
	InvitedEmail string    `json:"invited_email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CreateInvitation creates a pending invitation for a child profile.
// Only the profile owner may invite caregivers.
func (s *InvitationService) CreateInvitation(ctx context.Context, callerID string, req CreateInvitationRequest) (*InvitationResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	child, err := s.store.GetChild(ctx, req.ChildID)
	if err != nil {
		if errors.Is(err, store.ErrChildNotFound) {
			return nil, domainerrors.NotFound("child profile not found")
		}
		return nil, fmt.Errorf("get child: %w", err)
	}

	if child.OwnerID != callerID {
		return nil, domainerrors.Forbidden("only the profile owner can invite caregivers")
	}

	inviter, err := s.store.GetAccount(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("get inviter: %w", err)
	}

	invitationID, err := id.Generate("invitation")
	if err != nil {
		return nil, fmt.Errorf("generate invitation ID: %w", err)
	}

	now := time.Now()
	inv := &domain.Invitation{
		Syncable: domain.Syncable{
			ID: invitationID,
		},
		ChildID:      child.ID,
		ChildName:    child.Name,
		InviterID:    callerID,
		InviterName:  inviter.Name(),
		InvitedEmail: normalize.Email(req.InvitedEmail),
		Status:       domain.InvitationPending,
		ExpiresAt:    now.Add(s.cfg.Expiry),
	}
	inv.InitTimestamps()

	if err := s.createWithFreshCode(ctx, inv); err != nil {
		return nil, err
	}

	resp := &InvitationResponse{
		Invitation:    inv,
		DeepLink:      s.DeepLink(inv.Code),
		UniversalLink: s.UniversalLink(inv.Code),
	}

	if s.email != nil {
		if err := s.email.SendInvitation(ctx, inv.InvitedEmail, inv, resp.UniversalLink); err != nil {
			// Delivery failure doesn't invalidate the invitation. The code
			// can still be shared out of band.
			if s.logger != nil {
				s.logger.Warn("Failed to send invitation email",
					"invitation_id", inv.ID,
					"error", err,
				)
			}
		}
	}

	if s.logger != nil {
		s.logger.Info("Invitation created",
			"invitation_id", inv.ID,
			"child_id", child.ID,
			"inviter_id", callerID,
		)
	}

	return resp, nil
}

// createWithFreshCode persists the invitation, retrying with fresh codes on
// collision. After maxCodeAttempts at six digits it widens to eight digits,
// and after exhausting those it fails with a conflict rather than looping.
func (s *InvitationService) createWithFreshCode(ctx context.Context, inv *domain.Invitation) error {
	for _, digits := range []int{inviteCodeDigits, wideInviteCodeDigits} {
		for attempt := 0; attempt < maxCodeAttempts; attempt++ {
			code, err := generateInviteCode(digits)
			if err != nil {
				return fmt.Errorf("generate invite code: %w", err)
			}
			inv.Code = code

			err = s.store.CreateInvitation(ctx, inv)
			if err == nil {
				return nil
			}
			if !errors.Is(err, store.ErrInvitationCodeExists) {
				return fmt.Errorf("create invitation: %w", err)
			}

			if s.logger != nil {
				s.logger.Debug("Invitation code collision, retrying",
					"digits", digits,
					"attempt", attempt+1,
				)
			}
		}
	}

	return domainerrors.Conflict("could not allocate a unique invitation code, please try again")
}

// ValidateCode resolves an invitation code for the accept screen.
// Expired invitations are transitioned lazily at lookup time.
func (s *InvitationService) ValidateCode(ctx context.Context, code string) (*InvitationPreview, error) {
	inv, err := s.store.GetInvitationByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrInvitationNotFound) {
			return nil, domainerrors.NotFound("invitation not found")
		}
		return nil, fmt.Errorf("get invitation by code: %w", err)
	}

	if s.cfg.EnforceExpiry && inv.IsExpiredAt(time.Now()) {
		s.lazyExpire(ctx, inv.ID)
		return nil, domainerrors.Expired("this invitation has expired")
	}

	return &InvitationPreview{
		InvitationID: inv.ID,
		ChildName:    inv.ChildName,
		InviterName:  inv.InviterName,
		InvitedEmail: inv.InvitedEmail,
		ExpiresAt:    inv.ExpiresAt,
	}, nil
}

// Accept accepts a pending invitation on behalf of callerID, adding them as
// a collaborator on the invited child profile. The invitation transition and
// the share mutation succeed or fail together: if the share mutation fails,
// the transition is compensated so the invitation stays pending.
func (s *InvitationService) Accept(ctx context.Context, callerID, invitationID string) (*domain.ChildProfile, error) {
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrInvitationNotFound) {
			return nil, domainerrors.NotFound("invitation not found")
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}

	if !inv.IsPending() {
		return nil, terminalInvitationError(inv)
	}

	if inv.InviterID == callerID {
		return nil, domainerrors.Conflict("you cannot accept your own invitation")
	}

	now := time.Now()
	if s.cfg.EnforceExpiry && inv.IsExpiredAt(now) {
		s.lazyExpire(ctx, inv.ID)
		return nil, domainerrors.Expired("this invitation has expired")
	}

	// Conditional transition: only one accept can win the pending state.
	accepted, err := s.store.UpdateInvitationIfPending(ctx, invitationID, func(i *domain.Invitation) error {
		if s.cfg.EnforceExpiry && i.IsExpiredAt(now) {
			return domainerrors.Expired("this invitation has expired")
		}
		if !i.MarkAccepted(callerID, now) {
			return store.ErrInvitationNotPending
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrInvitationNotPending) {
			// Lost the race. Re-read for the accurate terminal message.
			if current, getErr := s.store.GetInvitation(ctx, invitationID); getErr == nil {
				return nil, terminalInvitationError(current)
			}
			return nil, domainerrors.Conflict("this invitation was already used")
		}
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	child, err := s.store.AddCollaborator(ctx, accepted.ChildID, callerID)
	if err != nil {
		// Compensate so "accepted" always implies the caller is a collaborator.
		if _, revertErr := s.store.RevertInvitationToPending(ctx, invitationID); revertErr != nil {
			if s.logger != nil {
				s.logger.Error("Failed to revert invitation after share failure",
					"invitation_id", invitationID,
					"error", revertErr,
				)
			}
		}
		if errors.Is(err, store.ErrChildNotFound) {
			return nil, domainerrors.NotFound("child profile not found")
		}
		return nil, fmt.Errorf("add collaborator: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Invitation accepted",
			"invitation_id", invitationID,
			"child_id", child.ID,
			"accepted_by", callerID,
		)
	}

	return child, nil
}

// Decline declines a pending invitation. Declining doesn't touch the
// profile's share set.
func (s *InvitationService) Decline(ctx context.Context, callerID, invitationID string) error {
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrInvitationNotFound) {
			return domainerrors.NotFound("invitation not found")
		}
		return fmt.Errorf("get invitation: %w", err)
	}

	if !inv.IsPending() {
		return terminalInvitationError(inv)
	}

	now := time.Now()
	_, err = s.store.UpdateInvitationIfPending(ctx, invitationID, func(i *domain.Invitation) error {
		if !i.MarkDeclined(now) {
			return store.ErrInvitationNotPending
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrInvitationNotPending) {
			if current, getErr := s.store.GetInvitation(ctx, invitationID); getErr == nil {
				return terminalInvitationError(current)
			}
			return domainerrors.Conflict("this invitation was already used")
		}
		return fmt.Errorf("decline invitation: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Invitation declined",
			"invitation_id", invitationID,
			"declined_by", callerID,
		)
	}

	return nil
}

// ListForChild returns all invitations for a child profile. Only the profile
// owner can see them.
func (s *InvitationService) ListForChild(ctx context.Context, callerID, childID string) ([]*InvitationResponse, error) {
	child, err := s.store.GetChild(ctx, childID)
	if err != nil {
		if errors.Is(err, store.ErrChildNotFound) {
			return nil, domainerrors.NotFound("child profile not found")
		}
		return nil, fmt.Errorf("get child: %w", err)
	}

	if child.OwnerID != callerID {
		return nil, domainerrors.Forbidden("only the profile owner can list invitations")
	}

	invitations, err := s.store.ListInvitationsByChild(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}

	responses := make([]*InvitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		responses = append(responses, &InvitationResponse{
			Invitation:    inv,
			DeepLink:      s.DeepLink(inv.Code),
			UniversalLink: s.UniversalLink(inv.Code),
		})
	}
	return responses, nil
}

// ExpireSweep transitions every pending invitation that has aged out.
// Returns the number of invitations expired. Races with concurrent accepts
// are benign: the sweep loses and moves on.
func (s *InvitationService) ExpireSweep(ctx context.Context, now time.Time) (int, error) {
	pending, err := s.store.ListPendingInvitations(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending invitations: %w", err)
	}

	expired := 0
	for _, inv := range pending {
		if !inv.IsExpiredAt(now) {
			continue
		}

		_, err := s.store.UpdateInvitationIfPending(ctx, inv.ID, func(i *domain.Invitation) error {
			if !i.MarkExpired(now) {
				return store.ErrInvitationNotPending
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, store.ErrInvitationNotPending) || errors.Is(err, store.ErrInvitationNotFound) {
				continue
			}
			return expired, fmt.Errorf("expire invitation %s: %w", inv.ID, err)
		}
		expired++
	}

	if expired > 0 && s.logger != nil {
		s.logger.Info("Expired stale invitations", "count", expired)
	}

	return expired, nil
}

// DeepLink returns the private-scheme link that opens the app's accept screen.
func (s *InvitationService) DeepLink(code string) string {
	return s.cfg.AppScheme + "://accept-invite?code=" + code
}

// UniversalLink returns the HTTPS link that falls back to the app store when
// the app isn't installed.
func (s *InvitationService) UniversalLink(code string) string {
	return "https://" + s.cfg.LinkHost + "/accept-invite?code=" + code
}

// lazyExpire transitions an aged-out invitation found during a read path.
// Losing a race to another writer is fine.
func (s *InvitationService) lazyExpire(ctx context.Context, invitationID string) {
	now := time.Now()
	_, err := s.store.UpdateInvitationIfPending(ctx, invitationID, func(i *domain.Invitation) error {
		if !i.MarkExpired(now) {
			return store.ErrInvitationNotPending
		}
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrInvitationNotPending) && !errors.Is(err, store.ErrInvitationNotFound) {
		if s.logger != nil {
			s.logger.Warn("Failed to lazily expire invitation",
				"invitation_id", invitationID,
				"error", err,
			)
		}
	}
}

// terminalInvitationError maps a terminal invitation state to the error the
// caller should see. The messages are deliberately distinct so a user can
// tell an expired invitation from one someone else already used.
func terminalInvitationError(inv *domain.Invitation) error {
	switch inv.Status {
	case domain.InvitationAccepted:
		return domainerrors.Conflict("this invitation was already used")
	case domain.InvitationDeclined:
		return domainerrors.Conflict("this invitation was declined")
	case domain.InvitationExpired:
		return domainerrors.Expired("this invitation has expired")
	default:
		return domainerrors.Conflict("this invitation cannot be used")
	}
}

// generateInviteCode returns a uniformly random, zero-padded numeric code of
// the given length.
func generateInviteCode(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate random code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
