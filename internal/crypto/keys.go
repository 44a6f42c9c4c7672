package crypto

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/illarion/sealpost/internal/logger"
)

// KeySource supplies the active encryption key.
type KeySource interface {
	Key() []byte
}

type keyState struct {
	key  []byte
	salt string
}

// KeyManager owns the derived key and swaps it atomically on rotation.
type KeyManager struct {
	passphrase []byte
	params     KDFParams
	log        *slog.Logger

	active atomic.Pointer[keyState]
	mu     sync.Mutex // serializes derivation, Install and Destroy
}

// KeyManagerOption configures a KeyManager.
type KeyManagerOption func(*KeyManager)

// WithLogger sets the logger used for derivation metadata.
func WithLogger(log *slog.Logger) KeyManagerOption {
	return func(m *KeyManager) {
		m.log = log
	}
}

// NewKeyManager derives the initial key. The passphrase is copied and kept
// for later rotations.
func NewKeyManager(passphrase []byte, salt string, params KDFParams, opts ...KeyManagerOption) (*KeyManager, error) {
	m := &KeyManager{
		passphrase: append([]byte(nil), passphrase...),
		params:     params,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = logger.OrDiscard(m.log)

	key, err := m.derive(salt)
	if err != nil {
		ClearBytes(m.passphrase)
		return nil, err
	}
	m.active.Store(&keyState{key: key, salt: salt})
	return m, nil
}

// Key returns the active key. Callers must not modify it.
func (m *KeyManager) Key() []byte {
	if s := m.active.Load(); s != nil {
		return s.key
	}
	return nil
}

// Salt returns the salt the active key was derived from.
func (m *KeyManager) Salt() string {
	if s := m.active.Load(); s != nil {
		return s.salt
	}
	return ""
}

// Params returns the KDF parameters.
func (m *KeyManager) Params() KDFParams {
	return m.params
}

// Rotate derives a key from a fresh random salt and makes it active.
// The caller must persist the returned salt; data sealed under the old key
// cannot be opened without it.
func (m *KeyManager) Rotate() (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	if err := m.Replace(salt); err != nil {
		return "", err
	}
	return salt, nil
}

// Replace derives a key from salt and makes it active.
func (m *KeyManager) Replace(salt string) error {
	key, err := m.Derive(salt)
	if err != nil {
		return err
	}
	m.Install(salt, key)
	return nil
}

// Derive derives a key from the retained passphrase and salt without
// activating it. Callers that must re-seal stored data before switching
// keys pair it with Install.
func (m *KeyManager) Derive(salt string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.derive(salt)
}

// Install makes key, derived from salt, the active key.
func (m *KeyManager) Install(salt string, key []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Old key bytes may still be in use by concurrent readers, so they are
	// left to the garbage collector instead of being cleared here.
	m.active.Store(&keyState{key: append([]byte(nil), key...), salt: salt})
	m.log.Info("encryption key rotated", logger.Component("crypto"), logger.Length("salt", len(salt)))
}

// Destroy clears the retained passphrase and key.
func (m *KeyManager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	ClearBytes(m.passphrase)
	m.passphrase = nil
	if s := m.active.Swap(nil); s != nil {
		ClearBytes(s.key)
	}
}

func (m *KeyManager) derive(salt string) ([]byte, error) {
	start := time.Now()
	key, err := DeriveKey(m.passphrase, []byte(salt), KeySize, m.params)
	if err != nil {
		m.log.Error("key derivation failed",
			logger.Component("crypto"),
			logger.Length("passphrase", len(m.passphrase)),
			logger.Length("salt", len(salt)),
			logger.Error(err),
		)
		return nil, err
	}
	m.log.Debug("key derived",
		logger.Component("crypto"),
		logger.Length("passphrase", len(m.passphrase)),
		logger.Length("salt", len(salt)),
		logger.Length("key", len(key)),
		slog.Int("n", m.params.N),
		slog.Int("r", m.params.R),
		slog.Int("p", m.params.P),
		logger.Elapsed(start),
	)
	return key, nil
}
