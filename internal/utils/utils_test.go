package utils

import (
	"regexp"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexRe = regexp.MustCompile(`^[0-9a-f]+$`)

func TestUniqueCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := UniqueCode()
		require.NoError(t, err)
		assert.Len(t, code, 12)
		assert.Regexp(t, hexRe, code)
		assert.False(t, seen[code], "codes must not repeat")
		seen[code] = true
	}
}

func TestNewExternalToken(t *testing.T) {
	tok := NewExternalToken()
	_, err := uuid.Parse(tok)
	assert.NoError(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken("s3cret", 42, "EYD", 15)
	require.NoError(t, err)

	parsed, err := jwt.Parse(at.Token, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "EYD", claims["role"])

	_, err = jwt.Parse(at.Token, func(*jwt.Token) (any, error) {
		return []byte("wrong"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	assert.Error(t, err, "a different secret must not verify")
}

func TestRefreshTokenHashing(t *testing.T) {
	rt, err := NewRefreshToken(30)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)

	h := HashRefreshRaw(rt.Raw)
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashRefreshRaw(rt.Raw), "hash is deterministic")
	assert.NotEqual(t, h, HashRefreshRaw(rt.Raw+"x"))
}

func TestPasswordVerify(t *testing.T) {
	hash, err := HashPassword("molar-bear-9", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "molar-bear-9"))
	assert.False(t, VerifyPassword(hash, "molar-bear-8"))
	assert.False(t, VerifyPassword("not-a-hash", "molar-bear-9"))
}

func TestHashPasswordClampsBadCost(t *testing.T) {
	// an out-of-range configured cost falls back to the bcrypt default
	hash, err := HashPassword("molar-bear-9", 99)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "molar-bear-9"))
}
