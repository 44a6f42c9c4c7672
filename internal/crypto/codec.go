package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Sealed is the output of Codec.Encrypt.
type Sealed struct {
	NonceHex   string // stored next to the envelope, checked again on decrypt
	Envelope   string // the value to persist
	AuthTagHex string // informational
}

// Codec seals and opens string fields with the key from a KeySource.
// It is safe for concurrent use.
type Codec struct {
	keys KeySource
}

// NewCodec creates a codec bound to keys.
func NewCodec(keys KeySource) *Codec {
	return &Codec{keys: keys}
}

// Encrypt seals plaintext into a base64 envelope.
func (c *Codec) Encrypt(plaintext string) (*Sealed, error) {
	if plaintext == "" {
		return nil, fmt.Errorf("%w: plaintext is empty", ErrInvalidInput)
	}

	key, err := c.activeKey()
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := GenerateRandom(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	// Seal appends the tag to the ciphertext
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	nonceHex := hex.EncodeToString(nonce)
	tagHex := hex.EncodeToString(tag)
	combined := nonceHex + hex.EncodeToString(ciphertext) + tagHex

	envelope := base64.StdEncoding.EncodeToString([]byte(integrityTag(key, combined) + combined))

	return &Sealed{
		NonceHex:   nonceHex,
		Envelope:   envelope,
		AuthTagHex: tagHex,
	}, nil
}

// Decrypt verifies and opens an envelope. nonceHex must be the value
// returned alongside the envelope by Encrypt.
//
// The outer HMAC is checked before the envelope is parsed any further.
func (c *Codec) Decrypt(envelope, nonceHex string) (string, error) {
	if envelope == "" || nonceHex == "" {
		return "", fmt.Errorf("%w: envelope and nonce are required", ErrInvalidInput)
	}

	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", ErrDecode, err)
	}
	data := string(raw)

	if len(data) < MinEnvelopeHexLen {
		return "", fmt.Errorf("%w: data too short (%d < %d)", ErrDecode, len(data), MinEnvelopeHexLen)
	}

	key, err := c.activeKey()
	if err != nil {
		return "", err
	}

	received := data[:integrityTagHexLen]
	combined := data[integrityTagHexLen:]

	if !ConstantTimeCompare([]byte(received), []byte(integrityTag(key, combined))) {
		return "", ErrIntegrity
	}

	envNonceHex := combined[:nonceHexLen]
	ctHex := combined[nonceHexLen : len(combined)-tagHexLen]
	tagHex := combined[len(combined)-tagHexLen:]

	nonce, err := hex.DecodeString(envNonceHex)
	if err != nil {
		return "", fmt.Errorf("%w: invalid nonce encoding", ErrDecode)
	}
	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding", ErrDecode)
	}
	tag, err := hex.DecodeString(tagHex)
	if err != nil {
		return "", fmt.Errorf("%w: invalid tag encoding", ErrDecode)
	}

	if envNonceHex != nonceHex {
		return "", fmt.Errorf("%w: IV mismatch", ErrDecode)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	return string(plaintext), nil
}

func (c *Codec) activeKey() ([]byte, error) {
	if c.keys == nil {
		return nil, fmt.Errorf("%w: no key source", ErrEncryption)
	}
	key := c.keys.Key()
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: no active key", ErrEncryption)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %v", ErrEncryption, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GCM: %v", ErrEncryption, err)
	}
	return gcm, nil
}

// integrityTag returns hex(HMAC-SHA512(key, combined)).
func integrityTag(key []byte, combined string) string {
	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(combined))
	return hex.EncodeToString(mac.Sum(nil))
}

// StaticKey is a fixed KeySource.
type StaticKey []byte

// Key returns k.
func (k StaticKey) Key() []byte {
	return k
}
