package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealerFromHex(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal("sk_live_123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "sk_live_123")

	again, err := s.Seal("sk_live_123")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "fresh nonce per seal")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk_live_123", plain)

	empty, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSealer_Rejects(t *testing.T) {
	s, err := NewSealerFromHex(testKey)
	require.NoError(t, err)
	other, err := NewSealerFromHex(strings.Repeat("ab", 32))
	require.NoError(t, err)

	sealed, err := s.Seal("secret")
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.Error(t, err)
	_, err = s.Open("!!notbase64")
	assert.Error(t, err)
	_, err = s.Open("AAAA")
	assert.Error(t, err)

	_, err = NewSealerFromHex("abcd")
	assert.Error(t, err)
	_, err = NewSealerFromHex("zz")
	assert.Error(t, err)
}
