// Package secrets encrypts aggregator access tokens before they are stored.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// devKey is used when no key is configured. It only protects local data.
const devKey = "moneyplanner-dev-only-key"

// Errors returned when decrypting.
var (
	ErrMalformed = errors.New("malformed ciphertext")
	ErrDecrypt   = errors.New("ciphertext failed authentication")
)

// Box seals and opens strings with a key derived from a passphrase.
type Box struct {
	key [32]byte
}

// NewBox derives a key from passphrase with SHA-256. An empty passphrase
// selects a fixed development key and logs a warning.
func NewBox(passphrase string) *Box {
	if passphrase == "" {
		slog.Default().With("component", "secrets").Warn(
			"No encryption key configured; using development key")
		passphrase = devKey
	}
	return &Box{key: sha256.Sum256([]byte(passphrase))}
}

// Seal encrypts plaintext and returns base64 of nonce followed by the sealed box.
func (b *Box) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (b *Box) Open(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrMalformed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
