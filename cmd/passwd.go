package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/sealpost/internal/core"
	"github.com/illarion/sealpost/internal/crypto"
	"github.com/illarion/sealpost/internal/keyring"
)

// Passwd changes the store passphrase
func Passwd(ctx context.Context, rt *Runtime) {
	vault := rt.Vault()

	storeID, _ := vault.GetStoreID()

	current, _, err := GetPassphraseWithRetry("Enter current passphrase: ", storeID, vault.VerifyPassphrase)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(current)

	next, err := core.ReadPassphraseConfirm()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(next)

	if err := vault.ChangePassphrase(ctx, current, next); err != nil {
		HandleError(err)
	}

	if storeID != "" && keyring.HasPassphrase(storeID) {
		if err := keyring.SavePassphrase(storeID, next); err == nil {
			fmt.Println("Keyring updated with new passphrase")
		}
	}

	// Compact database after rewriting all data
	if !rt.Config.Mongo.Enabled() {
		if err := vault.Compact(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
		}
	}

	fmt.Println("passphrase changed successfully")
}
