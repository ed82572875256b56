package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActivationCode(t *testing.T) {
	code, err := NewActivationCode(30)
	require.NoError(t, err)

	prefix, suffix, ok := strings.Cut(code, "-")
	require.True(t, ok, code)
	assert.Equal(t, "VIP30", prefix)
	assert.Len(t, suffix, codeTokenLen)
	for _, r := range suffix {
		assert.Contains(t, codeAlphabet, string(r))
	}
}

func TestNewActivationCodeUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := NewActivationCode(90)
		require.NoError(t, err)
		require.False(t, seen[code], "duplicate token %s", code)
		seen[code] = true
	}
}

func TestHashRefreshRaw(t *testing.T) {
	a := HashRefreshRaw("token-a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashRefreshRaw("token-a"))
	assert.NotEqual(t, a, HashRefreshRaw("token-b"))
}

func TestNewRefreshTokenRaw(t *testing.T) {
	r1, err := NewRefreshToken(7)
	require.NoError(t, err)
	r2, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, r1.Raw, 96)
	assert.NotEqual(t, r1.Raw, r2.Raw)
	assert.True(t, r1.Exp.After(time.Now().AddDate(0, 0, 6)))
}
