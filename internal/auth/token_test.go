package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/triage-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	access := domain.AccessContext{UserID: "agent-1", Role: domain.RoleAgent, CustomerID: "cust-1"}

	token, _, err := tm.GenerateToken(access)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.UserID)
	assert.Equal(t, domain.RoleAgent, claims.Role)
	assert.Equal(t, "cust-1", claims.CustomerID)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", 60)
	token, _, err := tm.GenerateToken(domain.AccessContext{UserID: "u", Role: domain.RoleEndUser, CustomerID: "c"})
	require.NoError(t, err)

	other := NewTokenManager("secret-b", 60)
	_, err = other.ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	_, err := tm.ParseToken("not-a-token")
	require.Error(t, err)
}
