package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("secret", time.Hour, 7, "alice")
	require.NoError(t, err)

	claims, err := ParseToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("secret", -time.Minute, 7, "alice")
	require.NoError(t, err)

	_, err = ParseToken("secret", tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("right", time.Hour, 7, "alice")
	require.NoError(t, err)

	_, err = ParseToken("wrong", tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParseToken("k", "not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID:   7,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseToken("secret", signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseToken_MissingExpiry(t *testing.T) {
	t.Parallel()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 7, Username: "alice"})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseToken("secret", signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
