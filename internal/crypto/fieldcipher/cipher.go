// Package fieldcipher implements authenticated encryption of single field
// values under the process master key.
//
// Wire format: hex(nonce) ':' hex(tag) ':' hex(ciphertext). The three-part
// shape is how encrypted values are told apart from plaintext; business code
// never inspects the format beyond IsEncrypted.
package fieldcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hearth/internal/platform/metrics"
)

const (
	nonceSize = 12
	tagSize   = 16
	delimiter = ":"
)

// Cipher encrypts and decrypts single string values with AES-256-GCM.
// Safe for concurrent use; the AEAD is stateless after construction.
type Cipher struct {
	aead    cipher.AEAD
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a Cipher from a 32-byte key.
func New(key []byte, logger *slog.Logger, m *metrics.Metrics) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init field cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Cipher{aead: aead, logger: logger, metrics: m}, nil
}

// Encrypt seals plaintext under a fresh random nonce. Encrypting the same
// value twice yields different ciphertexts. Empty input passes through.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}
	start := time.Now()

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	// GCM appends the tag to the ciphertext; split it back out so the wire
	// format carries the tag as its own segment.
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	out := hex.EncodeToString(nonce) + delimiter +
		hex.EncodeToString(tag) + delimiter +
		hex.EncodeToString(ciphertext)

	c.metrics.ObserveEncrypt(time.Since(start))
	return out, nil
}

// Decrypt reverses Encrypt. It fails open: on structural or authentication
// failure the input is returned unchanged so legacy plaintext rows keep
// working. Every fail-open is logged and counted, since pass-through cannot
// distinguish "never encrypted" from "corrupted ciphertext".
func (c *Cipher) Decrypt(value string) string {
	if value == "" {
		return value
	}
	nonce, tag, ciphertext, ok := parse(value)
	if !ok {
		// Ordinary plaintext; nothing to do.
		return value
	}
	start := time.Now()

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		c.metrics.IncDecryptFailure()
		if c.logger != nil {
			c.logger.Warn("field decrypt failed, returning value as-is",
				"error", err,
			)
		}
		return value
	}

	c.metrics.ObserveDecrypt(time.Since(start))
	return string(plaintext)
}

// IsEncrypted reports whether value structurally matches the three-part hex
// format produced by Encrypt. Used to avoid double encryption.
func IsEncrypted(value string) bool {
	_, _, _, ok := parse(value)
	return ok
}

// parse splits and decodes the three-part format. Returns ok=false for
// anything that is not exactly nonce:tag:ciphertext in hex with the right
// component sizes.
func parse(value string) (nonce, tag, ciphertext []byte, ok bool) {
	parts := strings.Split(value, delimiter)
	if len(parts) != 3 {
		return nil, nil, nil, false
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return nil, nil, nil, false
	}
	tag, err = hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return nil, nil, nil, false
	}
	ciphertext, err = hex.DecodeString(parts[2])
	if err != nil {
		return nil, nil, nil, false
	}
	return nonce, tag, ciphertext, true
}
