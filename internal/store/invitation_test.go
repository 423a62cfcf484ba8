package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
)

func newStoredInvitation(t *testing.T, s *Store, id, code string) *domain.Invitation {
	t.Helper()
	now := time.Now()
	inv := &domain.Invitation{
		ChildID:      "child-abc",
		ChildName:    "Mia",
		InviterID:    "acct-owner",
		InviterName:  "Alex",
		InvitedEmail: "care@example.com",
		Status:       domain.InvitationPending,
		ExpiresAt:    now.Add(7 * 24 * time.Hour),
		Code:         code,
	}
	inv.ID = id
	inv.CreatedAt = now
	inv.UpdatedAt = now
	require.NoError(t, s.CreateInvitation(context.Background(), inv))
	return inv
}

func TestCreateInvitationCodeUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	newStoredInvitation(t, s, "invite-1", "042137")

	t.Run("pending code collision is rejected", func(t *testing.T) {
		dup := &domain.Invitation{
			ChildID:   "child-other",
			InviterID: "acct-other",
			Status:    domain.InvitationPending,
			ExpiresAt: time.Now().Add(time.Hour),
			Code:      "042137",
		}
		dup.ID = "invite-2"
		err := s.CreateInvitation(ctx, dup)
		assert.ErrorIs(t, err, ErrInvitationCodeExists)
	})

	t.Run("code is reusable once the holder leaves pending", func(t *testing.T) {
		_, err := s.UpdateInvitationIfPending(ctx, "invite-1", func(inv *domain.Invitation) error {
			inv.MarkDeclined(time.Now())
			return nil
		})
		require.NoError(t, err)

		fresh := &domain.Invitation{
			ChildID:   "child-other",
			InviterID: "acct-other",
			Status:    domain.InvitationPending,
			ExpiresAt: time.Now().Add(time.Hour),
			Code:      "042137",
		}
		fresh.ID = "invite-3"
		assert.NoError(t, s.CreateInvitation(ctx, fresh))
	})
}

func TestGetInvitationByCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	newStoredInvitation(t, s, "invite-1", "042137")

	got, err := s.GetInvitationByCode(ctx, "042137")
	require.NoError(t, err)
	assert.Equal(t, "invite-1", got.ID)

	_, err = s.GetInvitationByCode(ctx, "999999")
	assert.ErrorIs(t, err, ErrInvitationNotFound)

	t.Run("terminal invitations are not reachable by code", func(t *testing.T) {
		_, err := s.UpdateInvitationIfPending(ctx, "invite-1", func(inv *domain.Invitation) error {
			inv.MarkAccepted("acct-joiner", time.Now())
			return nil
		})
		require.NoError(t, err)

		_, err = s.GetInvitationByCode(ctx, "042137")
		assert.ErrorIs(t, err, ErrInvitationNotFound)

		// But still reachable by ID.
		got, err := s.GetInvitation(ctx, "invite-1")
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationAccepted, got.Status)
	})
}

func TestUpdateInvitationIfPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	newStoredInvitation(t, s, "invite-1", "042137")

	inv, err := s.UpdateInvitationIfPending(ctx, "invite-1", func(inv *domain.Invitation) error {
		inv.MarkAccepted("acct-joiner", time.Now())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationAccepted, inv.Status)

	t.Run("second conditional write loses", func(t *testing.T) {
		_, err := s.UpdateInvitationIfPending(ctx, "invite-1", func(inv *domain.Invitation) error {
			inv.MarkAccepted("acct-other", time.Now())
			return nil
		})
		assert.ErrorIs(t, err, ErrInvitationNotPending)

		stored, err := s.GetInvitation(ctx, "invite-1")
		require.NoError(t, err)
		assert.Equal(t, "acct-joiner", stored.AcceptedBy, "winner is preserved")
	})

	t.Run("mutate error aborts the write", func(t *testing.T) {
		newStoredInvitation(t, s, "invite-2", "137042")

		_, err := s.UpdateInvitationIfPending(ctx, "invite-2", func(inv *domain.Invitation) error {
			inv.MarkAccepted("acct-joiner", time.Now())
			return ErrInvitationNotPending
		})
		assert.ErrorIs(t, err, ErrInvitationNotPending)

		stored, err := s.GetInvitation(ctx, "invite-2")
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationPending, stored.Status, "aborted mutation did not persist")
	})

	t.Run("missing invitation fails", func(t *testing.T) {
		_, err := s.UpdateInvitationIfPending(ctx, "invite-nope", func(*domain.Invitation) error { return nil })
		assert.ErrorIs(t, err, ErrInvitationNotFound)
	})
}

func TestListPendingInvitations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	newStoredInvitation(t, s, "invite-1", "000001")
	newStoredInvitation(t, s, "invite-2", "000002")
	newStoredInvitation(t, s, "invite-3", "000003")

	_, err := s.UpdateInvitationIfPending(ctx, "invite-2", func(inv *domain.Invitation) error {
		inv.MarkDeclined(time.Now())
		return nil
	})
	require.NoError(t, err)

	pending, err := s.ListPendingInvitations(ctx)
	require.NoError(t, err)

	var ids []string
	for _, inv := range pending {
		ids = append(ids, inv.ID)
	}
	assert.ElementsMatch(t, []string{"invite-1", "invite-3"}, ids)
}

func TestListInvitationsByChild(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	newStoredInvitation(t, s, "invite-1", "000001")
	newStoredInvitation(t, s, "invite-2", "000002")

	other := &domain.Invitation{
		ChildID:   "child-other",
		InviterID: "acct-owner",
		Status:    domain.InvitationPending,
		ExpiresAt: time.Now().Add(time.Hour),
		Code:      "000003",
	}
	other.ID = "invite-3"
	require.NoError(t, s.CreateInvitation(ctx, other))

	invitations, err := s.ListInvitationsByChild(ctx, "child-abc")
	require.NoError(t, err)
	assert.Len(t, invitations, 2)
}
