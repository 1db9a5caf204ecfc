// Package gateway applies the sensitive-field policy at the repository
// boundary: values are encrypted on their way into a tenant store and
// decrypted on their way out. Repositories never call the cipher directly.
package gateway

import (
	"encoding/json"
	"fmt"

	"hearth/internal/crypto/fieldcipher"
	"hearth/internal/policy"
)

// Gateway is safe for concurrent use.
type Gateway struct {
	cipher *fieldcipher.Cipher
}

func New(cipher *fieldcipher.Cipher) *Gateway {
	return &Gateway{cipher: cipher}
}

// EncryptField encrypts a flat sensitive value. Values that already carry
// the encrypted shape are passed through so re-saving a row never double
// encrypts.
func (g *Gateway) EncryptField(value string) (string, error) {
	if value == "" || fieldcipher.IsEncrypted(value) {
		return value, nil
	}
	return g.cipher.Encrypt(value)
}

// DecryptField decrypts a flat sensitive value, failing open per field.
func (g *Gateway) DecryptField(value string) string {
	if !fieldcipher.IsEncrypted(value) {
		return value
	}
	return g.cipher.Decrypt(value)
}

// EncryptJSON walks a raw JSON payload and encrypts every value under a
// globally sensitive key. nil and JSON null pass through unchanged.
func (g *Gateway) EncryptJSON(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return raw, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("parse payload for encryption: %w", err)
	}

	var transformErr error
	transformed := policy.TransformJSON(decoded, func(v string) string {
		if v == "" || fieldcipher.IsEncrypted(v) {
			return v
		}
		encrypted, err := g.cipher.Encrypt(v)
		if err != nil && transformErr == nil {
			transformErr = err
		}
		if err != nil {
			return v
		}
		return encrypted
	})
	if transformErr != nil {
		return nil, transformErr
	}

	out, err := json.Marshal(transformed)
	if err != nil {
		return nil, fmt.Errorf("serialize encrypted payload: %w", err)
	}
	return out, nil
}

// DecryptJSON reverses EncryptJSON. Failures are per-value fail-open: a
// corrupted ciphertext leaves that one value as-is and never aborts the rest
// of the payload. Unparseable payloads are returned unchanged.
func (g *Gateway) DecryptJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return raw
	}

	transformed := policy.TransformJSON(decoded, g.DecryptField)

	out, err := json.Marshal(transformed)
	if err != nil {
		return raw
	}
	return out
}
