package masterkey

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerate(t *testing.T) {
	t.Run("generates and persists a fresh key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keys", "master.key")

		key, err := LoadOrGenerate(path)
		require.NoError(t, err)
		require.NotNil(t, key)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Len(t, raw, KeySize)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("loads the same key on subsequent starts", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "master.key")

		first, err := LoadOrGenerate(path)
		require.NoError(t, err)
		second, err := LoadOrGenerate(path)
		require.NoError(t, err)

		k1, err := first.FieldEncryptionKey()
		require.NoError(t, err)
		k2, err := second.FieldEncryptionKey()
		require.NoError(t, err)
		assert.Equal(t, k1, k2, "derived key must be stable across restarts")
	})

	t.Run("rejects truncated key files", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "master.key")
		require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

		_, err := LoadOrGenerate(path)
		require.Error(t, err)
	})
}

func TestFieldEncryptionKeyDerivation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	key, err := LoadOrGenerate(path)
	require.NoError(t, err)

	derived, err := key.FieldEncryptionKey()
	require.NoError(t, err)
	assert.Len(t, derived, KeySize)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, raw, derived, "derived key must differ from the raw master key")
}
