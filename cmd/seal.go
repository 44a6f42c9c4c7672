package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/illarion/sealpost/internal/crypto"
)

// statelessCodec builds a codec from SEALPOST_PASSPHRASE and SEALPOST_SALT
// without touching the store.
func statelessCodec(rt *Runtime) (*crypto.Codec, *crypto.KeyManager) {
	secrets, err := rt.Config.ResolveSecrets(rt.Log)
	if err != nil {
		HandleError(err)
	}
	defer secrets.Clear()

	keys, err := crypto.NewKeyManager(secrets.Passphrase, secrets.Salt, rt.Config.KDFParams(), crypto.WithLogger(rt.Log))
	if err != nil {
		HandleError(err)
	}
	return crypto.NewCodec(keys), keys
}

// Seal encrypts text with the configured secrets and prints the envelope
func Seal(rt *Runtime, text string, asJSON bool) {
	codec, keys := statelessCodec(rt)
	defer keys.Destroy()

	sealed, err := codec.Encrypt(text)
	if err != nil {
		HandleError(err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]string{
			"nonce":    sealed.NonceHex,
			"envelope": sealed.Envelope,
			"tag":      sealed.AuthTagHex,
		}); err != nil {
			HandleError(err)
		}
		return
	}

	fmt.Printf("nonce:    %s\n", sealed.NonceHex)
	fmt.Printf("envelope: %s\n", sealed.Envelope)
	fmt.Printf("tag:      %s\n", sealed.AuthTagHex)
}

// Open decrypts an envelope with the configured secrets
func Open(rt *Runtime, envelope, nonce string) {
	codec, keys := statelessCodec(rt)
	defer keys.Destroy()

	plaintext, err := codec.Decrypt(envelope, nonce)
	if err != nil {
		HandleError(err)
	}
	fmt.Println(plaintext)
}
