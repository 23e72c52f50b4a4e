package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestJWTService(t *testing.T, now func() time.Time) *JWTService {
	t.Helper()

	svc, err := NewJWTService(JWTConfig{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		Issuer:          "techno-trades",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 720 * time.Hour,
		Clock:           now,
	})
	require.NoError(t, err)
	return svc
}

func TestNewJWTServiceRequiresDistinctSecrets(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)

	_, err = NewJWTService(JWTConfig{AccessSecret: "only-access"})
	require.Error(t, err)

	_, err = NewJWTService(JWTConfig{AccessSecret: "same", RefreshSecret: "same"})
	require.EqualError(t, err, "jwt: access and refresh secrets must differ")
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(t, func() time.Time { return current })

	token, err := svc.GenerateAccessToken("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.UserID)
	require.Equal(t, "user-123", claims.Subject)
	require.Equal(t, "techno-trades", claims.Issuer)
}

func TestValidateAccessTokenExpiry(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(t, func() time.Time { return current })

	token, err := svc.GenerateAccessToken("user-123")
	require.NoError(t, err)

	// Still valid just inside the TTL.
	current = current.Add(14 * time.Minute)
	_, err = svc.ValidateAccessToken(token)
	require.NoError(t, err)

	// Shortly past expiry but within leeway.
	current = current.Add(time.Minute + 5*time.Second)
	_, err = svc.ValidateAccessToken(token)
	require.NoError(t, err)

	// Well past expiry.
	current = current.Add(time.Minute)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestValidateAccessTokenRejectsWrongSecret(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }
	svc := newTestJWTService(t, now)

	other, err := NewJWTService(JWTConfig{
		AccessSecret:  "different-access-secret",
		RefreshSecret: "different-refresh-secret",
		Issuer:        "techno-trades",
		Clock:         now,
	})
	require.NoError(t, err)

	token, err := other.GenerateAccessToken("user-123")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestValidateAccessTokenRejectsRefreshToken(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(t, func() time.Time { return current })

	refresh, err := svc.GenerateRefreshToken()
	require.NoError(t, err)

	// Signed with the other secret, so it never passes as an access token.
	_, err = svc.ValidateAccessToken(refresh)
	require.Error(t, err)
}

func TestGenerateAccessTokenRequiresUserID(t *testing.T) {
	svc := newTestJWTService(t, time.Now)

	_, err := svc.GenerateAccessToken("")
	require.Error(t, err)
}

func TestRefreshTokenLifecycle(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(t, func() time.Time { return current })

	token, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	require.NoError(t, svc.ValidateRefreshToken(token))

	other, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	require.NotEqual(t, token, other)

	current = current.Add(721 * time.Hour)
	require.Error(t, svc.ValidateRefreshToken(token))
}

func TestValidateRefreshTokenRejectsAccessToken(t *testing.T) {
	svc := newTestJWTService(t, time.Now)

	access, err := svc.GenerateAccessToken("user-123")
	require.NoError(t, err)

	require.Error(t, svc.ValidateRefreshToken(access))
	require.Error(t, svc.ValidateRefreshToken(""))
	require.Error(t, svc.ValidateRefreshToken("garbage"))
}
