package store

import "errors"

// Sentinel errors. Services map these onto user-facing coded errors.
var (
	// ErrNotFound is returned when an entity cannot be found by ID or index.
	ErrNotFound = errors.New("entity not found")
	// ErrAlreadyExists is returned when creating an entity whose ID or unique index is taken.
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrChildNotFound is returned when a child profile cannot be found.
	ErrChildNotFound = errors.New("child profile not found")
	// ErrInvitationNotFound is returned when an invitation cannot be found by ID or code.
	ErrInvitationNotFound = errors.New("invitation not found")
	// ErrInvitationCodeExists is returned when a code is already held by a pending invitation.
	ErrInvitationCodeExists = errors.New("invitation code already in use")
	// ErrInvitationNotPending is returned when a conditional write finds the invitation no longer pending.
	ErrInvitationNotPending = errors.New("invitation is not pending")
	// ErrAccountNotFound is returned when an account cannot be found by ID or email.
	ErrAccountNotFound = errors.New("account not found")
	// ErrEmailExists is returned when registering with an email that is already in use.
	ErrEmailExists = errors.New("email already in use")
	// ErrSessionNotFound is returned when a session cannot be found by ID or token.
	ErrSessionNotFound = errors.New("session not found")
)
