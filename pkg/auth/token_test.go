package auth

import (
	"math"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintToken_Deterministic(t *testing.T) {
	claims := map[string]any{"access": "r", "sub": "loader"}

	first, err := MintToken("secret", claims)
	require.NoError(t, err)
	second, err := MintToken("secret", claims)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMintToken_RoundTrip(t *testing.T) {
	claims := map[string]any{"access": "m", "sub": "loader"}

	token, err := MintToken("secret", claims)
	require.NoError(t, err)

	decoded, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, claims, decoded)
}

func TestMintToken_WrongSecret(t *testing.T) {
	token, err := MintToken("secret", map[string]any{"access": "r"})
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestMintToken_EmptySecret(t *testing.T) {
	_, err := MintToken("", map[string]any{"access": "r"})
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestMintToken_Unencodable(t *testing.T) {
	_, err := MintToken("secret", map[string]any{"bad": math.NaN()})
	assert.ErrorIs(t, err, ErrEncoding)

	_, err = MintToken("secret", map[string]any{"bad": make(chan int)})
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestParseToken_Expired(t *testing.T) {
	claims := AccessClaims(AccessRead, time.Hour, time.Now().Add(-2*time.Hour))

	token, err := MintToken("secret", claims)
	require.NoError(t, err)

	_, err = ParseToken("secret", token)
	assert.Error(t, err)
}

func TestAccessClaims(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	claims := AccessClaims(AccessRead, time.Hour, now)
	assert.Equal(t, "r", claims["access"])
	assert.Equal(t, now.Add(time.Hour).Unix(), claims["exp"])

	noExpiry := AccessClaims(AccessManage, 0, now)
	assert.NotContains(t, noExpiry, "exp")
}

func TestAccessClaims_PerCollection(t *testing.T) {
	grants := []CollectionAccess{{Collection: "docs", Access: AccessWrite}}

	token, err := MintToken("secret", AccessClaims(grants, time.Hour, time.Now()))
	require.NoError(t, err)

	decoded, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"collection": "docs", "access": "rw"}}, decoded["access"])
}
