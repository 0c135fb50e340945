package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ribbon-app/ribbon/internal/config"
)

func testJWTManager() *JWTManager {
	return NewJWTManager(config.JWTConfig{
		AccessSecret:  "test-access-secret-test-access-secret",
		RefreshSecret: "test-refresh-secret-test-refresh-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 168 * time.Hour,
	})
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	m := testJWTManager()
	userID := uuid.New()

	pair, err := m.GenerateTokenPair(userID, "gifter@example.com", "premium")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int((15 * time.Minute).Seconds()), pair.ExpiresIn)

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "gifter@example.com", claims.Email)
	assert.Equal(t, "premium", claims.Tier)

	rClaims, err := m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), rClaims.UserID)
	assert.NotEmpty(t, rClaims.ID, "refresh token must carry a unique ID for revocation")
}

func TestAccessTokenRejectedAsRefresh(t *testing.T) {
	m := testJWTManager()

	pair, err := m.GenerateTokenPair(uuid.New(), "a@b.com", "free")
	require.NoError(t, err)

	_, err = m.ValidateRefreshToken(pair.AccessToken)
	assert.Error(t, err, "tokens signed with the access secret must not validate as refresh tokens")

	_, err = m.ValidateAccessToken(pair.RefreshToken)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	m := NewJWTManager(config.JWTConfig{
		AccessSecret:  "s1",
		RefreshSecret: "s2",
		AccessExpiry:  -time.Minute,
		RefreshExpiry: time.Hour,
	})

	pair, err := m.GenerateTokenPair(uuid.New(), "a@b.com", "free")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestTamperedTokenRejected(t *testing.T) {
	m := testJWTManager()

	pair, err := m.GenerateTokenPair(uuid.New(), "a@b.com", "free")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken + "x")
	assert.Error(t, err)
}
