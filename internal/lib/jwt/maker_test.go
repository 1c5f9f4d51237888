package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/insight-console/internal/lib/jwt"
)

func TestGenerateAndParseToken(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Minute)

	token, err := maker.GenerateToken("sess-1", "uid-1", "a@x.com", "analyst")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "uid-1", claims.UserUID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "analyst", claims.Role)
}

func TestParseToken_Expired(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", -time.Minute)

	token, err := maker.GenerateToken("sess-1", "uid-1", "a@x.com", "viewer")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestParseToken_WrongKey(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Minute)
	other := jwt.NewJWTMaker("other-secret", time.Minute)

	token, err := maker.GenerateToken("sess-1", "uid-1", "a@x.com", "viewer")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Minute)
	_, err := maker.ParseToken("not-a-token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}
