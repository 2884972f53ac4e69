package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNewAccessToken(t *testing.T) {
    access, err := NewAccessToken("secret", 42, 15, 30)
    require.NoError(t, err)
    assert.NotEmpty(t, access.Token)
    assert.WithinDuration(t, time.Now().UTC().Add(30*time.Minute), access.Exp, 5*time.Second)

    parsed, err := jwt.Parse(access.Token, func(*jwt.Token) (interface{}, error) {
        return []byte("secret"), nil
    })
    require.NoError(t, err)
    require.True(t, parsed.Valid)

    claims, ok := parsed.Claims.(jwt.MapClaims)
    require.True(t, ok)
    // JSON numbers decode as float64.
    assert.Equal(t, float64(42), claims["sub"])
    assert.Equal(t, float64(15), claims["grade"])
}

func TestNewAccessTokenWrongSecret(t *testing.T) {
    access, err := NewAccessToken("secret", 42, 0, 30)
    require.NoError(t, err)

    _, err = jwt.Parse(access.Token, func(*jwt.Token) (interface{}, error) {
        return []byte("other"), nil
    })
    assert.Error(t, err)
}

func TestPasswordRoundTrip(t *testing.T) {
    hash, err := HashPassword("hunter2", 4)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(hash, "hunter2"))
    assert.False(t, VerifyPassword(hash, "hunter3"))
}
