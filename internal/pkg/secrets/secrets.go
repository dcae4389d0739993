package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecryptionFailed covers every way a stored token can fail to decrypt:
// bad key, truncated ciphertext, tampered data. Callers get one signal.
var ErrDecryptionFailed = errors.New("token decryption failed")

// Box seals and opens access tokens at rest with XChaCha20-Poly1305.
type Box struct {
	key [chacha20poly1305.KeySize]byte
}

// NewBox derives the sealing key from the configured secret string.
func NewBox(secret string) (*Box, error) {
	if secret == "" {
		return nil, errors.New("token encryption secret is empty")
	}
	b := &Box{key: sha256.Sum256([]byte(secret))}
	return b, nil
}

// Encrypt seals a plaintext token. The nonce is prepended to the ciphertext
// and the whole blob is base64-encoded for storage in a text column.
func (b *Box) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(b.key[:])
	if err != nil {
		return "", fmt.Errorf("failed to build cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a stored token blob.
func (b *Box) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	aead, err := chacha20poly1305.NewX(b.key[:])
	if err != nil {
		return "", fmt.Errorf("failed to build cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrDecryptionFailed
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
