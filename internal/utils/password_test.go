package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	for _, pw := range []string{"secret-123", "pässwörd", "a", "x y z"} {
		hash, err := h.Hash(pw)
		require.NoError(t, err)
		assert.NotEqual(t, pw, hash)
		assert.True(t, h.Verify(hash, pw), "password %q should verify", pw)
		assert.False(t, h.Verify(hash, pw+"!"), "mutated password %q must not verify", pw)
	}
}

func TestHasher_RejectsGarbageHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	assert.False(t, h.Verify("not-a-bcrypt-hash", "anything"))
	assert.False(t, h.Verify("", ""))
}

func TestNewHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewHasher(0).Cost)
	assert.Equal(t, DefaultBcryptCost, NewHasher(99).Cost)
	assert.Equal(t, 10, NewHasher(10).Cost)
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 200; i++ {
		otp, err := GenerateOTP(5)
		require.NoError(t, err)
		require.Len(t, otp, 5)
		assert.Regexp(t, `^[1-9]\d{4}$`, otp)
	}

	otp, err := GenerateOTP(8)
	require.NoError(t, err)
	assert.Len(t, otp, 8)

	_, err = GenerateOTP(0)
	assert.Error(t, err)
}
