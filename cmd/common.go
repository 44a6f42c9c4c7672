package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/illarion/sealpost/internal/config"
	"github.com/illarion/sealpost/internal/core"
	"github.com/illarion/sealpost/internal/crypto"
	"github.com/illarion/sealpost/internal/keyring"
	"github.com/illarion/sealpost/internal/posts"
	"github.com/illarion/sealpost/internal/security"
)

// Runtime carries loaded settings into commands
type Runtime struct {
	Config *config.Config
	Log    *slog.Logger
}

// Load reads configuration from .env and the environment, exiting on error
func Load() *Runtime {
	cfg, err := config.Load()
	if err != nil {
		HandleError(err)
	}
	return &Runtime{Config: cfg, Log: cfg.Logger()}
}

// Vault returns the configured store
func (rt *Runtime) Vault() *core.Vault {
	return core.NewFromConfig(rt.Config, rt.Log)
}

// Files returns a validator confining file flags to the working directory
func (rt *Runtime) Files() *security.PathValidator {
	pv, err := security.New(".")
	if err != nil {
		HandleError(err)
	}
	return pv
}

// GetPassphrase retrieves the passphrase from the environment or prompts
// The caller is responsible for calling crypto.ClearBytes on the result
func GetPassphrase(prompt string) ([]byte, error) {
	if passphrase := core.PassphraseFromEnv(); passphrase != nil {
		return passphrase, nil
	}
	return core.ReadPassphrase(prompt)
}

// GetPassphraseForInit checks the environment first, then prompts with confirmation
func GetPassphraseForInit() ([]byte, error) {
	if passphrase := core.PassphraseFromEnv(); passphrase != nil {
		return passphrase, nil
	}
	return core.ReadPassphraseConfirm()
}

// GetPassphraseWithRetry tries the environment, then the OS keyring, then a
// prompt, and passes the passphrase to verify. A keyring entry that no longer
// verifies is removed and the user is prompted instead. The boolean reports
// whether the keyring supplied it.
func GetPassphraseWithRetry(prompt, storeID string, verify func([]byte) error) ([]byte, bool, error) {
	if passphrase := core.PassphraseFromEnv(); passphrase != nil {
		if err := verify(passphrase); err != nil {
			crypto.ClearBytes(passphrase)
			return nil, false, err
		}
		return passphrase, false, nil
	}

	if storeID != "" {
		if passphrase, err := keyring.GetPassphrase(storeID); err == nil {
			err := verify(passphrase)
			if err == nil {
				return passphrase, true, nil
			}
			crypto.ClearBytes(passphrase)
			if !errors.Is(err, core.ErrWrongPassphrase) {
				return nil, false, err
			}
			fmt.Fprintln(os.Stderr, "warning: keyring passphrase is stale, removing it")
			_ = keyring.DeletePassphrase(storeID)
		}
	}

	passphrase, err := core.ReadPassphrase(prompt)
	if err != nil {
		return nil, false, err
	}
	if err := verify(passphrase); err != nil {
		crypto.ClearBytes(passphrase)
		return nil, false, err
	}
	return passphrase, false, nil
}

// OfferToSavePassphrase asks whether to store the passphrase in the keyring
func OfferToSavePassphrase(storeID string, passphrase []byte) {
	if storeID == "" || core.PassphraseFromEnv() != nil || keyring.HasPassphrase(storeID) {
		return
	}

	fmt.Print("Save passphrase to OS keyring? [y/N]: ")
	var answer string
	fmt.Scanln(&answer)
	if !strings.EqualFold(strings.TrimSpace(answer), "y") {
		return
	}

	if err := keyring.SavePassphrase(storeID, passphrase); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save to keyring: %s\n", err)
		return
	}
	fmt.Println("Passphrase saved to keyring")
}

// Unlock opens a session over the configured store
func (rt *Runtime) Unlock(ctx context.Context) *core.Session {
	vault := rt.Vault()

	// Unlocking is the verification; the key is derived once.
	var session *core.Session
	storeID, _ := vault.GetStoreID()
	passphrase, _, err := GetPassphraseWithRetry("Enter passphrase: ", storeID, func(p []byte) error {
		var err error
		session, err = vault.Unlock(ctx, p)
		return err
	})
	if err != nil {
		HandleError(err)
	}
	crypto.ClearBytes(passphrase)
	return session
}

// HandleError prints a message for err and exits
func HandleError(err error) {
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: sealpost store not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'sealpost init' first\n")
	case errors.Is(err, core.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: store already exists\n")
		fmt.Fprintf(os.Stderr, "Use 'sealpost status' to see current state\n")
	case errors.Is(err, core.ErrWrongPassphrase):
		fmt.Fprintf(os.Stderr, "Error: wrong passphrase\n")
	case errors.Is(err, core.ErrPassphraseRequired):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	case errors.Is(err, config.ErrMissingSecret):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Set it in the environment or in .env\n")
	case errors.Is(err, posts.ErrNotFound):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use 'sealpost ls' to list posts\n")
	case errors.Is(err, security.ErrPathEscapes):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Files must be inside the current directory\n")
	default:
		if kind := crypto.Kind(err); kind != "" {
			fmt.Fprintf(os.Stderr, "Error (%s): %s\n", kind, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
	}
	os.Exit(1)
}
