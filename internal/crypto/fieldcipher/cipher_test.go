package fieldcipher

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	c, err := New(key, nil, nil)
	require.NoError(t, err)
	return c
}

func TestRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	for _, plaintext := range []string{
		"P-123",
		"a",
		strings.Repeat("long value ", 100),
		`{"nested":"json"}`,
		"value:with:colons",
		"unicode £ ☂ value",
	} {
		encrypted, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, encrypted)
		assert.NotContains(t, encrypted, plaintext)
		assert.Equal(t, plaintext, c.Decrypt(encrypted))
	}
}

func TestNonceFreshness(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.Encrypt("same input")
	require.NoError(t, err)
	second, err := c.Encrypt("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "same plaintext must never produce the same ciphertext")
	assert.Equal(t, "same input", c.Decrypt(first))
	assert.Equal(t, "same input", c.Decrypt(second))
}

func TestIsEncrypted(t *testing.T) {
	c := newTestCipher(t)

	encrypted, err := c.Encrypt("secret")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(encrypted))

	for _, plain := range []string{
		"",
		"plain text",
		"a:b:c",
		"one:two",
		"deadbeef:deadbeef:deadbeef", // hex, but wrong component sizes
		encrypted + ":extra",
	} {
		assert.False(t, IsEncrypted(plain), "value %q should not look encrypted", plain)
	}
}

func TestDecryptFailsOpen(t *testing.T) {
	c := newTestCipher(t)

	t.Run("plaintext passes through", func(t *testing.T) {
		assert.Equal(t, "never encrypted", c.Decrypt("never encrypted"))
		assert.Equal(t, "", c.Decrypt(""))
	})

	t.Run("tampered ciphertext returns input unchanged", func(t *testing.T) {
		encrypted, err := c.Encrypt("secret")
		require.NoError(t, err)

		// Flip a ciphertext hex digit.
		tampered := encrypted[:len(encrypted)-1]
		if strings.HasSuffix(encrypted, "0") {
			tampered += "1"
		} else {
			tampered += "0"
		}
		assert.Equal(t, tampered, c.Decrypt(tampered))
	})

	t.Run("ciphertext under a different key returns input unchanged", func(t *testing.T) {
		other := newTestCipher(t)
		encrypted, err := other.Encrypt("secret")
		require.NoError(t, err)
		assert.Equal(t, encrypted, c.Decrypt(encrypted))
	})
}

func TestEmptyInputPassesThrough(t *testing.T) {
	c := newTestCipher(t)
	encrypted, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", encrypted)
}
