package crypto

import (
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	DefaultN         = 1 << 14
	DefaultR         = 8
	DefaultP         = 1
	DefaultMaxMemory = 32 << 20 // 32 MiB
)

// KDFParams are the scrypt cost parameters.
type KDFParams struct {
	N         int   `json:"n"`
	R         int   `json:"r"`
	P         int   `json:"p"`
	MaxMemory int64 `json:"maxMemory"`
}

// DefaultKDFParams returns the production scrypt parameters.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		N:         DefaultN,
		R:         DefaultR,
		P:         DefaultP,
		MaxMemory: DefaultMaxMemory,
	}
}

// MemoryRequired is the approximate scrypt working set in bytes.
func (p KDFParams) MemoryRequired() int64 {
	return 128 * int64(p.N) * int64(p.R)
}

// Validate checks the parameters without running the KDF.
func (p KDFParams) Validate() error {
	if p.N <= 1 || p.N&(p.N-1) != 0 {
		return fmt.Errorf("%w: N must be a power of two greater than 1, got %d", ErrKeyDerivation, p.N)
	}
	if p.R < 1 || p.P < 1 {
		return fmt.Errorf("%w: r and p must be positive, got r=%d p=%d", ErrKeyDerivation, p.R, p.P)
	}
	if p.MaxMemory <= 0 {
		return fmt.Errorf("%w: memory limit must be positive", ErrKeyDerivation)
	}
	if mem := p.MemoryRequired(); mem > p.MaxMemory {
		return fmt.Errorf("%w: requires %d bytes of memory, limit is %d", ErrKeyDerivation, mem, p.MaxMemory)
	}
	return nil
}

// DeriveKey derives a keyLen-byte key from passphrase and salt with scrypt.
// Failures are never retried with weaker parameters.
func DeriveKey(passphrase, salt []byte, keyLen int, params KDFParams) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: empty passphrase", ErrKeyDerivation)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrKeyDerivation)
	}
	if keyLen <= 0 {
		return nil, fmt.Errorf("%w: invalid key length %d", ErrKeyDerivation, keyLen)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	key, err := scrypt.Key(passphrase, salt, params.N, params.R, params.P, keyLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	return key, nil
}
