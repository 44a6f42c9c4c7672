package core

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/illarion/sealpost/internal/crypto"
)

// PassphraseEnv is the environment variable read by PassphraseFromEnv.
const PassphraseEnv = "SEALPOST_PASSPHRASE"

// ReadPassphrase reads a passphrase from the terminal without echoing
func ReadPassphrase(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%w: stdin is not a terminal (set %s)", ErrPassphraseRequired, PassphraseEnv)
	}

	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(passphrase) == 0 {
		return nil, ErrPassphraseRequired
	}
	return passphrase, nil
}

// ReadPassphraseConfirm reads a passphrase twice and ensures they match
func ReadPassphraseConfirm() ([]byte, error) {
	first, err := ReadPassphrase("Enter passphrase: ")
	if err != nil {
		return nil, err
	}

	second, err := ReadPassphrase("Confirm passphrase: ")
	if err != nil {
		crypto.ClearBytes(first)
		return nil, err
	}
	defer crypto.ClearBytes(second)

	if !crypto.ConstantTimeCompare(first, second) {
		crypto.ClearBytes(first)
		return nil, fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

// PassphraseFromEnv returns a copy of SEALPOST_PASSPHRASE, or nil if unset
func PassphraseFromEnv() []byte {
	passphrase := os.Getenv(PassphraseEnv)
	if passphrase == "" {
		return nil
	}
	return []byte(passphrase)
}
