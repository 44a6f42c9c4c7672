package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	KeySize          = 32 // AES-256 key size
	SaltSize         = 32 // Random salt size in bytes, before hex encoding
	NonceSize        = 12 // GCM nonce size
	TagSize          = 16 // GCM authentication tag size
	IntegrityTagSize = 64 // HMAC-SHA512 output size

	nonceHexLen        = NonceSize * 2
	tagHexLen          = TagSize * 2
	integrityTagHexLen = IntegrityTagSize * 2

	// MinEnvelopeHexLen is the decoded length of an envelope with empty ciphertext.
	MinEnvelopeHexLen = integrityTagHexLen + nonceHexLen + tagHexLen
)

var (
	ErrKeyDerivation  = errors.New("key derivation failed")
	ErrInvalidInput   = errors.New("invalid input")
	ErrDecode         = errors.New("malformed envelope")
	ErrIntegrity      = errors.New("integrity check failed: tampered or wrong key")
	ErrAuthentication = errors.New("authentication failed")
	ErrEncryption     = errors.New("encryption failed")
)

// Kind returns the taxonomy name of a codec error, or "" for errors that
// did not originate here.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrKeyDerivation):
		return "KeyDerivationError"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInputError"
	case errors.Is(err, ErrDecode):
		return "DecodeError"
	case errors.Is(err, ErrIntegrity):
		return "IntegrityError"
	case errors.Is(err, ErrAuthentication):
		return "AuthenticationError"
	case errors.Is(err, ErrEncryption):
		return "EncryptionError"
	default:
		return ""
	}
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// GenerateSalt returns SaltSize random bytes as a hex string.
func GenerateSalt() (string, error) {
	b, err := GenerateRandom(SaltSize)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateSecret returns n random bytes as a hex string. Used for
// throwaway passphrases when none is configured.
func GenerateSecret(n int) (string, error) {
	b, err := GenerateRandom(n)
	if err != nil {
		return "", err
	}
	defer ClearBytes(b)
	return hex.EncodeToString(b), nil
}
