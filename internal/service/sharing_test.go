package service

import (
	"context"
	"testing"

	"github.com/sproutlingapp/sproutling-server/internal/access"
	domainerrors "github.com/sproutlingapp/sproutling-server/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCollaborator(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")
	grandma := createTestAccount(t, env.store, "care@example.com", "Grandma Rose")
	child := createTestChild(t, env.store, owner.ID, "Mia")

	updated, err := env.sharing.AddCollaborator(ctx, owner.ID, child.ID, grandma.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{grandma.ID}, updated.SharedWith)

	// Idempotent: adding again succeeds without duplicating.
	updated, err = env.sharing.AddCollaborator(ctx, owner.ID, child.ID, grandma.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{grandma.ID}, updated.SharedWith)
}

func TestAddCollaborator_OnlyOwner(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")
	grandma := createTestAccount(t, env.store, "care@example.com", "Grandma Rose")
	uncle := createTestAccount(t, env.store, "uncle@example.com", "Uncle Ben")
	child := createTestChild(t, env.store, owner.ID, "Mia")

	_, err := env.sharing.AddCollaborator(ctx, owner.ID, child.ID, grandma.ID)
	require.NoError(t, err)

	// A collaborator cannot grant access to someone else.
	_, err = env.sharing.AddCollaborator(ctx, grandma.ID, child.ID, uncle.ID)
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeForbidden, domainErr.Code)
}

func TestAddCollaborator_UnknownAccount(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")
	child := createTestChild(t, env.store, owner.ID, "Mia")

	_, err := env.sharing.AddCollaborator(ctx, owner.ID, child.ID, "account_missing")
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeNotFound, domainErr.Code)
}

func TestAddCollaborator_OwnerNeverInShareSet(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")
	child := createTestChild(t, env.store, owner.ID, "Mia")

	_, err := env.sharing.AddCollaborator(ctx, owner.ID, child.ID, owner.ID)
	require.Error(t, err)

	refreshed, err := env.store.GetChild(ctx, child.ID)
	require.NoError(t, err)
	assert.NotContains(t, refreshed.SharedWith, owner.ID)
	assert.NotNil(t, refreshed.SharedWith)
}

func TestRemoveCollaborator(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")
	grandma := createTestAccount(t, env.store, "care@example.com", "Grandma Rose")
	child := createTestChild(t, env.store, owner.ID, "Mia")

	_, err := env.sharing.AddCollaborator(ctx, owner.ID, child.ID, grandma.ID)
	require.NoError(t, err)

	updated, err := env.sharing.RemoveCollaborator(ctx, owner.ID, child.ID, grandma.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.SharedWith)
	assert.NotNil(t, updated.SharedWith)

	// Idempotent: removing an absent collaborator succeeds.
	_, err = env.sharing.RemoveCollaborator(ctx, owner.ID, child.ID, grandma.ID)
	require.NoError(t, err)
}

func TestRemoveCollaborator_SelfRemoval(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")
	grandma := createTestAccount(t, env.store, "care@example.com", "Grandma Rose")
	child := createTestChild(t, env.store, owner.ID, "Mia")

	_, err := env.sharing.AddCollaborator(ctx, owner.ID, child.ID, grandma.ID)
	require.NoError(t, err)

	// A collaborator may leave the share on their own.
	updated, err := env.sharing.RemoveCollaborator(ctx, grandma.ID, child.ID, grandma.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.SharedWith)
}

func TestRemoveCollaborator_OnlyOwnerRemovesOthers(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")
	grandma := createTestAccount(t, env.store, "care@example.com", "Grandma Rose")
	uncle := createTestAccount(t, env.store, "uncle@example.com", "Uncle Ben")
	child := createTestChild(t, env.store, owner.ID, "Mia")

	_, err := env.sharing.AddCollaborator(ctx, owner.ID, child.ID, grandma.ID)
	require.NoError(t, err)
	_, err = env.sharing.AddCollaborator(ctx, owner.ID, child.ID, uncle.ID)
	require.NoError(t, err)

	_, err = env.sharing.RemoveCollaborator(ctx, grandma.ID, child.ID, uncle.ID)
	require.Error(t, err)

	refreshed, err := env.store.GetChild(ctx, child.ID)
	require.NoError(t, err)
	assert.Contains(t, refreshed.SharedWith, uncle.ID)
}

func TestRemoveCollaborator_RevokesRecordAccess(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")
	grandma := createTestAccount(t, env.store, "care@example.com", "Grandma Rose")
	child := createTestChild(t, env.store, owner.ID, "Mia")

	_, err := env.sharing.AddCollaborator(ctx, owner.ID, child.ID, grandma.ID)
	require.NoError(t, err)

	// While shared, the collaborator sees child-scoped records.
	log, err := env.records.CreateFeedingLog(ctx, owner.ID, newFeedingLog(child.ID))
	require.NoError(t, err)

	_, err = env.records.GetFeedingLog(ctx, grandma.ID, log.ID)
	require.NoError(t, err)

	// After revocation, access to the records is gone too.
	_, err = env.sharing.RemoveCollaborator(ctx, owner.ID, child.ID, grandma.ID)
	require.NoError(t, err)

	_, err = env.records.GetFeedingLog(ctx, grandma.ID, log.ID)
	require.ErrorIs(t, err, access.ErrAccessDenied)
}

func TestListCollaborators(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")
	grandma := createTestAccount(t, env.store, "care@example.com", "Grandma Rose")
	stranger := createTestAccount(t, env.store, "stranger@example.com", "Pat")
	child := createTestChild(t, env.store, owner.ID, "Mia")

	_, err := env.sharing.AddCollaborator(ctx, owner.ID, child.ID, grandma.ID)
	require.NoError(t, err)

	// Both the owner and a collaborator can list.
	accounts, err := env.sharing.ListCollaborators(ctx, owner.ID, child.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, grandma.ID, accounts[0].ID)

	_, err = env.sharing.ListCollaborators(ctx, grandma.ID, child.ID)
	require.NoError(t, err)

	// A stranger cannot.
	_, err = env.sharing.ListCollaborators(ctx, stranger.ID, child.ID)
	require.ErrorIs(t, err, access.ErrAccessDenied)
}
