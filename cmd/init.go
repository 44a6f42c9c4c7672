package cmd

import (
	"fmt"

	"github.com/illarion/sealpost/internal/crypto"
)

// Init creates a new store
func Init(rt *Runtime) {
	vault := rt.Vault()

	passphrase, err := GetPassphraseForInit()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(passphrase)

	if err := vault.Init(passphrase); err != nil {
		HandleError(err)
	}
	fmt.Printf("✓ Initialized %s\n", vault.Path())

	storeID, err := vault.GetOrCreateStoreID()
	if err == nil {
		OfferToSavePassphrase(storeID, passphrase)
	}
}
