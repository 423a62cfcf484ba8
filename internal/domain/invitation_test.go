package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingInvitation(now time.Time) *Invitation {
	inv := &Invitation{
		ChildID:      "child-abc",
		ChildName:    "Mia",
		InviterID:    "acct-owner",
		InviterName:  "Alex",
		InvitedEmail: "care@example.com",
		Status:       InvitationPending,
		ExpiresAt:    now.Add(7 * 24 * time.Hour),
		Code:         "042137",
	}
	inv.ID = "invite-xyz"
	inv.CreatedAt = now
	inv.UpdatedAt = now
	return inv
}

func TestInvitationStatusTransitions(t *testing.T) {
	terminal := []InvitationStatus{InvitationAccepted, InvitationDeclined, InvitationExpired}

	t.Run("pending can reach every terminal state", func(t *testing.T) {
		for _, next := range terminal {
			assert.True(t, InvitationPending.CanTransitionTo(next), "pending -> %s", next)
		}
	})

	t.Run("terminal states permit no transitions", func(t *testing.T) {
		all := append([]InvitationStatus{InvitationPending}, terminal...)
		for _, from := range terminal {
			for _, to := range all {
				assert.False(t, from.CanTransitionTo(to), "%s -> %s", from, to)
			}
		}
	})

	t.Run("pending cannot transition to itself", func(t *testing.T) {
		assert.False(t, InvitationPending.CanTransitionTo(InvitationPending))
	})
}

func TestInvitationMarkAccepted(t *testing.T) {
	now := time.Now()

	t.Run("pending invitation accepts", func(t *testing.T) {
		inv := newPendingInvitation(now)
		require.True(t, inv.MarkAccepted("acct-joiner", now))
		assert.Equal(t, InvitationAccepted, inv.Status)
		assert.Equal(t, "acct-joiner", inv.AcceptedBy)
		require.NotNil(t, inv.ResolvedAt)
		assert.Equal(t, now, *inv.ResolvedAt)
	})

	t.Run("accepted invitation refuses a second accept", func(t *testing.T) {
		inv := newPendingInvitation(now)
		require.True(t, inv.MarkAccepted("acct-joiner", now))

		later := now.Add(time.Hour)
		assert.False(t, inv.MarkAccepted("acct-other", later))
		assert.Equal(t, "acct-joiner", inv.AcceptedBy, "original acceptor is preserved")
	})

	t.Run("declined invitation refuses accept", func(t *testing.T) {
		inv := newPendingInvitation(now)
		require.True(t, inv.MarkDeclined(now))
		assert.False(t, inv.MarkAccepted("acct-joiner", now))
		assert.Equal(t, InvitationDeclined, inv.Status)
	})
}

func TestInvitationMarkDeclinedAndExpired(t *testing.T) {
	now := time.Now()

	t.Run("pending declines", func(t *testing.T) {
		inv := newPendingInvitation(now)
		require.True(t, inv.MarkDeclined(now))
		assert.Equal(t, InvitationDeclined, inv.Status)
	})

	t.Run("pending expires", func(t *testing.T) {
		inv := newPendingInvitation(now)
		require.True(t, inv.MarkExpired(now))
		assert.Equal(t, InvitationExpired, inv.Status)
	})

	t.Run("expired refuses decline", func(t *testing.T) {
		inv := newPendingInvitation(now)
		require.True(t, inv.MarkExpired(now))
		assert.False(t, inv.MarkDeclined(now))
	})
}

func TestInvitationIsExpiredAt(t *testing.T) {
	now := time.Now()
	inv := newPendingInvitation(now)

	assert.False(t, inv.IsExpiredAt(now))
	assert.False(t, inv.IsExpiredAt(inv.ExpiresAt.Add(-time.Second)))
	assert.True(t, inv.IsExpiredAt(inv.ExpiresAt), "expiry boundary is inclusive")
	assert.True(t, inv.IsExpiredAt(inv.ExpiresAt.Add(time.Hour)))
}

func TestInvitationHasValidCode(t *testing.T) {
	now := time.Now()
	tests := []struct {
		code  string
		valid bool
	}{
		{"000000", true},
		{"999999", true},
		{"042137", true},
		{"00421378", true}, // widened code space
		{"12345", false},
		{"1234567", false},
		{"123456789", false},
		{"12a456", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			inv := newPendingInvitation(now)
			inv.Code = tt.code
			assert.Equal(t, tt.valid, inv.HasValidCode())
		})
	}
}
