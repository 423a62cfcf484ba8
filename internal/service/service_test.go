package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/sproutlingapp/sproutling-server/internal/access"
	"github.com/sproutlingapp/sproutling-server/internal/auth"
	"github.com/sproutlingapp/sproutling-server/internal/config"
	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/sproutlingapp/sproutling-server/internal/id"
	"github.com/sproutlingapp/sproutling-server/internal/store"
	"github.com/stretchr/testify/require"
)

// testEnv bundles a full service stack over temporary storage.
type testEnv struct {
	store       *store.Store
	evaluator   *access.Evaluator
	auth        *AuthService
	children    *ChildService
	sharing     *SharingService
	invitations *InvitationService
	records     *RecordService
}

// defaultInviteConfig returns the invitation policy used by most tests.
func defaultInviteConfig() config.InviteConfig {
	return config.InviteConfig{
		Expiry:        7 * 24 * time.Hour,
		EnforceExpiry: true,
		AppScheme:     "sproutling",
		LinkHost:      "sproutling.app",
	}
}

// setupTest creates the service stack with temporary storage.
func setupTest(t *testing.T) *testEnv {
	return setupTestWithInviteConfig(t, defaultInviteConfig())
}

func setupTestWithInviteConfig(t *testing.T, inviteCfg config.InviteConfig) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "db")
	logger := slog.New(slog.DiscardHandler)

	s, err := store.New(dbPath, logger, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)

	tokenService, err := auth.NewTokenService(key, 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	evaluator := access.NewEvaluator(s)

	return &testEnv{
		store:       s,
		evaluator:   evaluator,
		auth:        NewAuthService(s, tokenService, logger),
		children:    NewChildService(s, evaluator, logger),
		sharing:     NewSharingService(s, evaluator, logger),
		invitations: NewInvitationService(s, nil, logger, inviteCfg),
		records:     NewRecordService(s, evaluator, store.NewNoopEmitter(), store.NewNoopSearchIndexer(), logger),
	}
}

// createTestAccount registers a caregiver directly through the store.
func createTestAccount(t *testing.T, s *store.Store, email, displayName string) *domain.Account {
	t.Helper()

	accountID, err := id.Generate("account")
	require.NoError(t, err)

	account := &domain.Account{
		Syncable: domain.Syncable{
			ID: accountID,
		},
		Email:        email,
		PasswordHash: "unused",
		DisplayName:  displayName,
		LastLoginAt:  time.Now(),
	}
	account.InitTimestamps()

	require.NoError(t, s.CreateAccount(context.Background(), account))
	return account
}

// createTestChild creates a child profile owned by ownerID.
func createTestChild(t *testing.T, s *store.Store, ownerID, name string) *domain.ChildProfile {
	t.Helper()

	childID, err := id.Generate("child")
	require.NoError(t, err)

	child := domain.NewChildProfile(childID, ownerID, name, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.CreateChild(context.Background(), child))
	return child
}
