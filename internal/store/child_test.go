package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
)

func createTestChild(t *testing.T, s *Store, id, ownerID string) *domain.ChildProfile {
	t.Helper()
	child := domain.NewChildProfile(id, ownerID, "Mia", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.CreateChild(context.Background(), child))
	return child
}

func TestCreateAndGetChild(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createTestChild(t, s, "child-abc", "acct-owner")

	got, err := s.GetChild(ctx, "child-abc")
	require.NoError(t, err)
	assert.Equal(t, "Mia", got.Name)
	assert.Equal(t, "acct-owner", got.OwnerID)
	require.NotNil(t, got.SharedWith)
	assert.Empty(t, got.SharedWith)

	_, err = s.GetChild(ctx, "child-nope")
	assert.ErrorIs(t, err, ErrChildNotFound)
}

func TestAddCollaboratorConditionalWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestChild(t, s, "child-abc", "acct-owner")

	child, err := s.AddCollaborator(ctx, "child-abc", "acct-grandma")
	require.NoError(t, err)
	assert.Equal(t, []string{"acct-grandma"}, child.SharedWith)

	t.Run("second add is a no-op", func(t *testing.T) {
		child, err := s.AddCollaborator(ctx, "child-abc", "acct-grandma")
		require.NoError(t, err)
		assert.Equal(t, []string{"acct-grandma"}, child.SharedWith)
	})

	t.Run("owner is never added", func(t *testing.T) {
		child, err := s.AddCollaborator(ctx, "child-abc", "acct-owner")
		require.NoError(t, err)
		assert.Equal(t, []string{"acct-grandma"}, child.SharedWith)
	})

	t.Run("missing child fails", func(t *testing.T) {
		_, err := s.AddCollaborator(ctx, "child-nope", "acct-grandma")
		assert.ErrorIs(t, err, ErrChildNotFound)
	})
}

func TestRemoveCollaborator(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestChild(t, s, "child-abc", "acct-owner")

	_, err := s.AddCollaborator(ctx, "child-abc", "acct-grandma")
	require.NoError(t, err)

	child, err := s.RemoveCollaborator(ctx, "child-abc", "acct-grandma")
	require.NoError(t, err)
	assert.Empty(t, child.SharedWith)

	t.Run("removing again is a no-op", func(t *testing.T) {
		child, err := s.RemoveCollaborator(ctx, "child-abc", "acct-grandma")
		require.NoError(t, err)
		assert.Empty(t, child.SharedWith)
	})
}

func TestProfileSharedWith(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestChild(t, s, "child-abc", "acct-owner")

	sharedWith, err := s.ProfileSharedWith(ctx, "child-abc")
	require.NoError(t, err)
	assert.Empty(t, sharedWith)

	_, err = s.AddCollaborator(ctx, "child-abc", "acct-grandma")
	require.NoError(t, err)

	sharedWith, err = s.ProfileSharedWith(ctx, "child-abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"acct-grandma"}, sharedWith)
}

func TestListChildrenForCaller(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createTestChild(t, s, "child-own", "acct-me")
	createTestChild(t, s, "child-other", "acct-someone")
	shared := createTestChild(t, s, "child-shared", "acct-someone")
	_, err := s.AddCollaborator(ctx, shared.ID, "acct-me")
	require.NoError(t, err)

	children, err := s.ListChildrenForCaller(ctx, "acct-me")
	require.NoError(t, err)

	var ids []string
	for _, c := range children {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{"child-own", "child-shared"}, ids)
}

func TestCascadeDeleteChild(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestChild(t, s, "child-abc", "acct-owner")

	log := &domain.FeedingLog{OwnerID: "acct-owner", ChildID: "child-abc", Method: domain.FeedingBreast}
	log.ID = "feed-1"
	log.InitTimestamps()
	require.NoError(t, s.FeedingLogs.Create(ctx, log.ID, log))

	require.NoError(t, domain.CascadeChildDelete(ctx, s, "child-abc"))

	_, err := s.GetChild(ctx, "child-abc")
	assert.ErrorIs(t, err, ErrChildNotFound, "deleted profile is hidden")

	stored, err := s.FeedingLogs.Get(ctx, "feed-1")
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted(), "dependent record is soft-deleted")
}
