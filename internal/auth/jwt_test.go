package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, 15*time.Minute)

	token, err := m.GenerateAccessToken("user-123", "reader@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "reader@example.com", claims.Email)
	assert.Equal(t, "scriptura", claims.Issuer)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	m := NewJWTManager(testSecret, 15*time.Minute)
	other := NewJWTManager("ffffffffffffffffffffffffffffffff", 15*time.Minute)

	token, err := other.GenerateAccessToken("user-123", "")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	m := NewJWTManager(testSecret, -time.Minute)

	token, err := m.GenerateAccessToken("user-123", "")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	m := NewJWTManager(testSecret, 15*time.Minute)

	for _, token := range []string{"", "not.a.jwt", "aaaa.bbbb.cccc"} {
		_, err := m.ValidateAccessToken(token)
		assert.Error(t, err, "token %q", token)
	}
}
