package domain

import (
	"regexp"
	"time"
)

// InvitationStatus represents where an invitation sits in its lifecycle.
type InvitationStatus string

const (
	// InvitationPending means the invitation can still be accepted or declined.
	InvitationPending InvitationStatus = "pending"
	// InvitationAccepted means a caregiver joined through this invitation.
	InvitationAccepted InvitationStatus = "accepted"
	// InvitationDeclined means the recipient turned the invitation down.
	InvitationDeclined InvitationStatus = "declined"
	// InvitationExpired means the invitation aged out before being used.
	InvitationExpired InvitationStatus = "expired"
)

// IsTerminal returns true for states that permit no further transitions.
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationAccepted || s == InvitationDeclined || s == InvitationExpired
}

// CanTransitionTo reports whether the state machine allows moving to next.
// The only legal transitions are pending to accepted, declined, or expired.
func (s InvitationStatus) CanTransitionTo(next InvitationStatus) bool {
	return s == InvitationPending && next.IsTerminal()
}

var invitationCodePattern = regexp.MustCompile(`^\d{6}(\d{2})?$`)

// Invitation represents one offer to share a child profile with another
// caregiver, identified to the recipient by a short numeric code.
//
// ChildName and InviterName are cached display values so the recipient
// can see who is inviting them without being able to read the profile.
type Invitation struct {
	Syncable
	ChildID      string           `json:"child_id"`
	ChildName    string           `json:"child_name"`
	InviterID    string           `json:"inviter_id"`
	InviterName  string           `json:"inviter_name"`
	InvitedEmail string           `json:"invited_email"`
	Status       InvitationStatus `json:"status"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Code         string           `json:"code"` // 6 zero-padded digits, 8 after collision widening
	AcceptedBy   string           `json:"accepted_by,omitempty"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"` // When a terminal state was reached
}

// IsPending returns true if the invitation can still be accepted or declined.
func (i *Invitation) IsPending() bool {
	return i.Status == InvitationPending
}

// IsExpiredAt returns true if the invitation has aged out as of now.
// Expiry is inclusive: an invitation is no longer acceptable the moment
// now reaches ExpiresAt.
func (i *Invitation) IsExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// HasValidCode returns true if the code matches the required shape:
// exactly six ASCII digits, or eight after collision widening.
func (i *Invitation) HasValidCode() bool {
	return invitationCodePattern.MatchString(i.Code)
}

// MarkAccepted transitions the invitation to accepted, recording who
// joined and when. Returns false without mutating if the transition is
// not legal from the current state.
func (i *Invitation) MarkAccepted(userID string, now time.Time) bool {
	if !i.Status.CanTransitionTo(InvitationAccepted) {
		return false
	}
	i.Status = InvitationAccepted
	i.AcceptedBy = userID
	i.ResolvedAt = &now
	i.Touch()
	return true
}

// MarkDeclined transitions the invitation to declined.
// Returns false without mutating if the transition is not legal.
func (i *Invitation) MarkDeclined(now time.Time) bool {
	if !i.Status.CanTransitionTo(InvitationDeclined) {
		return false
	}
	i.Status = InvitationDeclined
	i.ResolvedAt = &now
	i.Touch()
	return true
}

// MarkExpired transitions the invitation to expired.
// Returns false without mutating if the transition is not legal.
func (i *Invitation) MarkExpired(now time.Time) bool {
	if !i.Status.CanTransitionTo(InvitationExpired) {
		return false
	}
	i.Status = InvitationExpired
	i.ResolvedAt = &now
	i.Touch()
	return true
}
