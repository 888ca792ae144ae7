package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	InitJWT("test-secret", 60)

	token, err := GenerateToken("user-1", "user@example.com", "admin")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseToken_RejectsTampering(t *testing.T) {
	InitJWT("test-secret", 60)
	token, err := GenerateToken("user-1", "user@example.com", "user")
	require.NoError(t, err)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)

	InitJWT("different-secret", 60)
	_, err = ParseToken(token)
	assert.Error(t, err)
}
