package config

import (
	"fmt"
	"log/slog"

	"github.com/illarion/sealpost/internal/crypto"
	"github.com/illarion/sealpost/internal/logger"
)

// ephemeralPassphraseSize is the random byte count behind a generated passphrase.
const ephemeralPassphraseSize = 32

// Secrets are the resolved key material inputs.
type Secrets struct {
	Passphrase []byte
	Salt       string
	// Ephemeral is set when either value was generated for this process only.
	Ephemeral bool
}

// Clear zeroes the passphrase.
func (s *Secrets) Clear() {
	crypto.ClearBytes(s.Passphrase)
}

// ResolveSecrets returns the configured passphrase and salt. Outside of
// production a missing value is replaced with a random one and a warning is
// logged: anything sealed with it is unreadable after the process exits.
func (c *Config) ResolveSecrets(log *slog.Logger) (*Secrets, error) {
	log = logger.OrDiscard(log)
	s := &Secrets{Salt: c.Salt}

	if c.Passphrase != "" {
		s.Passphrase = []byte(c.Passphrase)
	} else {
		if c.IsProduction() {
			return nil, fmt.Errorf("%w: SEALPOST_PASSPHRASE is required in production", ErrMissingSecret)
		}
		generated, err := crypto.GenerateSecret(ephemeralPassphraseSize)
		if err != nil {
			return nil, err
		}
		s.Passphrase = []byte(generated)
		s.Ephemeral = true
		log.Warn("SEALPOST_PASSPHRASE not set, using a one-time random passphrase; sealed data will be unreadable after restart",
			logger.Component("config"))
	}

	if s.Salt == "" {
		if c.IsProduction() {
			s.Clear()
			return nil, fmt.Errorf("%w: SEALPOST_SALT is required in production", ErrMissingSecret)
		}
		salt, err := crypto.GenerateSalt()
		if err != nil {
			s.Clear()
			return nil, err
		}
		s.Salt = salt
		s.Ephemeral = true
		log.Warn("SEALPOST_SALT not set, using a random salt; persist it to keep sealed data readable",
			logger.Component("config"))
	}

	return s, nil
}
