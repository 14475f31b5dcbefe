// Package secrets provides the symmetric cipher used to protect stored
// provider API keys at rest.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrDecryptionFailed covers both malformed ciphertext and a secret
	// mismatch; the two are indistinguishable to callers on purpose.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Cipher encrypts and decrypts strings with AES-256-GCM. The ciphertext is
// base64-encoded with the nonce prefixed, so a single string column can
// hold everything needed for decryption.
type Cipher struct {
	key []byte
}

// NewCipher derives a 32-byte AES key from the deployment secret. An empty
// secret is a configuration error, not a degraded mode.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret must not be empty")
	}

	key := make([]byte, 32)
	copy(key, []byte(secret))

	return &Cipher{key: key}, nil
}

// Encrypt seals the plaintext and returns base64(nonce || ciphertext).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any tampering or secret mismatch surfaces as
// ErrDecryptionFailed.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", ErrDecryptionFailed
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// MaskSecret replaces a sensitive value with a fixed placeholder for logs.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
