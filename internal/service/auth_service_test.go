package service

import (
	"context"
	"testing"

	domainerrors "github.com/sproutlingapp/sproutling-server/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, RegisterRequest{
		Email:       "  Owner@Example.COM ",
		Password:    "hunter2hunter2",
		DisplayName: " Sarah ",
		DeviceName:  "Sarah's phone",
	})
	require.NoError(t, err)

	assert.Equal(t, "owner@example.com", resp.Account.Email)
	assert.Equal(t, "Sarah", resp.Account.DisplayName)
	assert.NotEmpty(t, resp.Account.ID)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotContains(t, resp.Account.PasswordHash, "hunter2")

	// Registration signs the caregiver in: the access token verifies.
	account, claims, err := env.auth.VerifyAccessToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Account.ID, account.ID)
	assert.Equal(t, resp.Account.ID, claims.AccountID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	req := RegisterRequest{
		Email:       "owner@example.com",
		Password:    "hunter2hunter2",
		DisplayName: "Sarah",
	}
	_, err := env.auth.Register(ctx, req)
	require.NoError(t, err)

	// Same address with different casing is still a duplicate.
	req.Email = "OWNER@example.com"
	_, err = env.auth.Register(ctx, req)
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeAlreadyExists, domainErr.Code)
}

func TestRegister_Validation(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing email", RegisterRequest{Password: "hunter2hunter2", DisplayName: "Sarah"}},
		{"bad email", RegisterRequest{Email: "not-an-email", Password: "hunter2hunter2", DisplayName: "Sarah"}},
		{"short password", RegisterRequest{Email: "owner@example.com", Password: "short", DisplayName: "Sarah"}},
		{"missing name", RegisterRequest{Email: "owner@example.com", Password: "hunter2hunter2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(ctx, tt.req)
			require.Error(t, err)
		})
	}
}

func TestLogin(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterRequest{
		Email:       "owner@example.com",
		Password:    "hunter2hunter2",
		DisplayName: "Sarah",
	})
	require.NoError(t, err)

	resp, err := env.auth.Login(ctx, LoginRequest{
		Email:      "owner@example.com",
		Password:   "hunter2hunter2",
		DeviceName: "Tablet",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.False(t, resp.Account.LastLoginAt.IsZero())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterRequest{
		Email:       "owner@example.com",
		Password:    "hunter2hunter2",
		DisplayName: "Sarah",
	})
	require.NoError(t, err)

	// Wrong password and unknown email produce the same error code, so
	// the response never reveals whether an address is registered.
	_, wrongPass := env.auth.Login(ctx, LoginRequest{
		Email:    "owner@example.com",
		Password: "wrong-password",
	})
	require.Error(t, wrongPass)

	_, unknownEmail := env.auth.Login(ctx, LoginRequest{
		Email:    "nobody@example.com",
		Password: "hunter2hunter2",
	})
	require.Error(t, unknownEmail)

	var errA, errB *domainerrors.Error
	require.ErrorAs(t, wrongPass, &errA)
	require.ErrorAs(t, unknownEmail, &errB)
	assert.Equal(t, errA.Code, errB.Code)
	assert.Equal(t, errA.Message, errB.Message)
}

func TestRefresh_RotatesToken(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	registered, err := env.auth.Register(ctx, RegisterRequest{
		Email:       "owner@example.com",
		Password:    "hunter2hunter2",
		DisplayName: "Sarah",
	})
	require.NoError(t, err)

	refreshed, err := env.auth.Refresh(ctx, RefreshRequest{RefreshToken: registered.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, registered.SessionID, refreshed.SessionID)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)
	assert.NotEmpty(t, refreshed.AccessToken)

	// The old refresh token died when the new one was issued.
	_, err = env.auth.Refresh(ctx, RefreshRequest{RefreshToken: registered.RefreshToken})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeUnauthorized, domainErr.Code)

	// The rotated token keeps working.
	_, err = env.auth.Refresh(ctx, RefreshRequest{RefreshToken: refreshed.RefreshToken})
	require.NoError(t, err)
}

func TestLogout(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, RegisterRequest{
		Email:       "owner@example.com",
		Password:    "hunter2hunter2",
		DisplayName: "Sarah",
	})
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, resp.SessionID))

	_, err = env.auth.Refresh(ctx, RefreshRequest{RefreshToken: resp.RefreshToken})
	require.Error(t, err)
}

func TestVerifyAccessToken_GarbageRejected(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	_, _, err := env.auth.VerifyAccessToken(ctx, "v4.local.not-a-real-token")
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeUnauthorized, domainErr.Code)
}
