package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIdentitySecret = "test-secret-key-for-jwt-signing-32-chars"

func TestNewIdentityTokenService(t *testing.T) {
	tests := []struct {
		name        string
		secretKey   string
		expectError bool
	}{
		{name: "valid secret", secretKey: testIdentitySecret},
		{name: "missing secret", secretKey: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewIdentityTokenService(tt.secretKey, "issuer")
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestIdentityTokenRoundTrip(t *testing.T) {
	svc, err := NewIdentityTokenService(testIdentitySecret, "auth.dropsource")
	require.NoError(t, err)

	email := "buyer@example.com"
	token, err := svc.Issue("user-123", &email, time.Hour)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	require.NotNil(t, claims.Email)
	assert.Equal(t, email, *claims.Email)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestIdentityTokenVerifyFailures(t *testing.T) {
	svc, err := NewIdentityTokenService(testIdentitySecret, "auth.dropsource")
	require.NoError(t, err)

	expired, err := svc.Issue("user-1", nil, -time.Minute)
	require.NoError(t, err)

	other, err := NewIdentityTokenService("another-secret-key-for-jwt-signing-32", "auth.dropsource")
	require.NoError(t, err)
	foreign, err := other.Issue("user-1", nil, time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewIdentityTokenService(testIdentitySecret, "someone-else")
	require.NoError(t, err)
	misissued, err := wrongIssuer.Issue("user-1", nil, time.Hour)
	require.NoError(t, err)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "auth.dropsource",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noSubToken, err := noSub.SignedString([]byte(testIdentitySecret))
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		expected error
	}{
		{name: "expired", token: expired, expected: ErrTokenExpired},
		{name: "wrong secret", token: foreign, expected: ErrTokenInvalid},
		{name: "wrong issuer", token: misissued, expected: ErrTokenInvalid},
		{name: "missing subject", token: noSubToken, expected: ErrTokenInvalid},
		{name: "garbage", token: "not-a-jwt", expected: ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.Verify(tt.token)
			assert.ErrorIs(t, err, tt.expected)
			assert.Nil(t, claims)
		})
	}
}

func TestIdentityTokenIssueRequiresUser(t *testing.T) {
	svc, err := NewIdentityTokenService(testIdentitySecret, "")
	require.NoError(t, err)

	_, err = svc.Issue("  ", nil, time.Hour)
	assert.Error(t, err)
}
