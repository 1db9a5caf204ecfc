// Package masterkey loads the process-lifetime field encryption secret.
//
// The key is a single 256-bit value at a fixed, access-restricted path. It is
// generated once on first start and never rotated; rotation would require a
// re-encryption migration that this system does not implement.
package masterkey

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the raw master key length in bytes (256 bits).
const KeySize = 32

// fieldEncryptionLabel scopes the derived key. Future purposes (e.g. export
// signing) derive sibling keys under different labels from the same file.
const fieldEncryptionLabel = "hearth/field-encryption/v1"

// Key is the loaded master secret.
type Key struct {
	raw []byte
}

// LoadOrGenerate reads the master key from path, creating it with
// crypto/rand if absent. The file is written 0600 inside a 0700 directory.
func LoadOrGenerate(path string) (*Key, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		if len(raw) != KeySize {
			return nil, fmt.Errorf("master key at %s has %d bytes, want %d", path, len(raw), KeySize)
		}
		return &Key{raw: raw}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read master key: %w", err)
	}

	raw = make([]byte, KeySize)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create master key directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return nil, fmt.Errorf("persist master key: %w", err)
	}
	return &Key{raw: raw}, nil
}

// FieldEncryptionKey derives the 256-bit AES key used for sensitive field
// encryption via HKDF-SHA256.
func (k *Key) FieldEncryptionKey() ([]byte, error) {
	reader := hkdf.New(sha256.New, k.raw, nil, []byte(fieldEncryptionLabel))
	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		return nil, fmt.Errorf("derive field encryption key: %w", err)
	}
	return derived, nil
}
