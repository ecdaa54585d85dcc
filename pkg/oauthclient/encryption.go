package oauthclient

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySalt          = "oxtrust-client-secret"
	keyIterations    = 10000
	MinEncryptionKey = 16
)

var (
	ErrEmptySecret   = errors.New("client secret cannot be empty")
	ErrDecodeSecret  = errors.New("failed to decode client secret")
	ErrEncryptionKey = fmt.Errorf("encryption key must be at least %d characters long", MinEncryptionKey)
)

// SecretCodec encodes client secrets for storage and decodes them back
type SecretCodec interface {
	Encode(plaintext string) (string, error)
	Decode(encoded string) (string, error)
}

// EncryptionService encodes client secrets with AES-256-GCM under a key
// derived from a passphrase with PBKDF2.
type EncryptionService struct {
	aead cipher.AEAD
}

var _ SecretCodec = (*EncryptionService)(nil)

// NewEncryptionService derives the secret key from passphrase.
func NewEncryptionService(passphrase string) (*EncryptionService, error) {
	if len(passphrase) < MinEncryptionKey {
		return nil, ErrEncryptionKey
	}

	key := pbkdf2.Key([]byte(passphrase), []byte(keySalt), keyIterations, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &EncryptionService{aead: aead}, nil
}

// Encode seals plaintext and returns nonce||ciphertext in base64.
func (e *EncryptionService) Encode(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptySecret
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode reverses Encode. Tampered or foreign values fail with
// ErrDecodeSecret.
func (e *EncryptionService) Decode(encoded string) (string, error) {
	if encoded == "" {
		return "", ErrEmptySecret
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeSecret, err)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecodeSecret)
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeSecret, err)
	}
	return string(plaintext), nil
}

// GenerateSecret returns a random URL-safe secret of n random bytes.
func GenerateSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate client secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
