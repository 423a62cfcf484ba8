package auth

import (
	"testing"
	"time"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokenService(t *testing.T) *TokenService {
	t.Helper()

	key, err := LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)

	svc, err := NewTokenService(key, 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	return svc
}

func TestHashPasswordAndVerify(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "wrong password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordRejectsOversizedInput(t *testing.T) {
	long := make([]byte, maxPasswordLength+1)
	for i := range long {
		long[i] = 'a'
	}

	_, err := HashPassword(string(long))
	assert.Error(t, err)
}

func TestLoadOrGenerateKeyIsStable(t *testing.T) {
	dir := t.TempDir()

	first, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	require.Len(t, first, keyLength)

	second, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNewTokenServiceRejectsShortKey(t *testing.T) {
	_, err := NewTokenService([]byte("too short"), time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := testTokenService(t)

	account := &domain.Account{
		Syncable:    domain.Syncable{ID: "account_test123"},
		Email:       "caregiver@example.com",
		DisplayName: "Mia",
	}

	token, err := svc.GenerateAccessToken(account)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)

	assert.Equal(t, "account_test123", claims.AccountID)
	assert.Equal(t, "caregiver@example.com", claims.Email)
	assert.Equal(t, "account_test123", claims.Subject)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.Equal(t, tokenAudience, claims.Audience)
	assert.NotEmpty(t, claims.TokenID)
}

func TestVerifyAccessTokenRejectsForeignKey(t *testing.T) {
	svc := testTokenService(t)
	other := testTokenService(t)

	account := &domain.Account{Syncable: domain.Syncable{ID: "account_abc"}, Email: "a@example.com"}

	token, err := svc.GenerateAccessToken(account)
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestRefreshTokenHashIsDeterministic(t *testing.T) {
	svc := testTokenService(t)

	token, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	other, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	assert.Equal(t, HashRefreshToken(token), HashRefreshToken(token))
	assert.NotEqual(t, HashRefreshToken(token), HashRefreshToken(other))
}
