package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/sealpost/internal/core"
	"github.com/illarion/sealpost/internal/crypto"
	"github.com/illarion/sealpost/internal/keyring"
)

// KeyringSave saves the passphrase to the OS keyring
func KeyringSave(rt *Runtime) {
	vault := rt.Vault()

	passphrase, err := core.ReadPassphrase("Enter passphrase: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(passphrase)

	if err := vault.VerifyPassphrase(passphrase); err != nil {
		HandleError(err)
	}

	storeID, err := vault.GetOrCreateStoreID()
	if err != nil {
		HandleError(err)
	}

	if err := keyring.SavePassphrase(storeID, passphrase); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Passphrase saved to keyring")
}

// KeyringDelete removes the passphrase from the OS keyring
func KeyringDelete(rt *Runtime) {
	storeID, err := rt.Vault().GetStoreID()
	if err != nil || !keyring.HasPassphrase(storeID) {
		fmt.Println("No passphrase stored in keyring")
		return
	}

	if err := keyring.DeletePassphrase(storeID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to delete from keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Passphrase removed from keyring")
}

// KeyringStatus checks if a passphrase is stored in the keyring
func KeyringStatus(rt *Runtime) {
	storeID, err := rt.Vault().GetStoreID()
	if err == nil && keyring.HasPassphrase(storeID) {
		fmt.Println("Passphrase: stored in keyring")
	} else {
		fmt.Println("Passphrase: not stored")
	}
}
