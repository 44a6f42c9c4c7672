// Package crypto provides the sealed-field envelope used by sealpost.
//
// Key derivation uses scrypt with:
//   - N=2^14, r=8, p=1 by default (roughly 0.1-0.5s on commodity hardware)
//   - a 32 MiB memory ceiling; requests above it fail instead of degrading
//   - a 32-byte output key
//
// Encryption uses AES-256-GCM with:
//   - 12-byte random nonce per encryption operation
//   - 16-byte authentication tag
//   - an outer HMAC-SHA512 over the hex encoding of nonce, ciphertext and tag
//
// Envelope layout (before base64):
//
//	hex(hmac) || hex(nonce) || hex(ciphertext) || hex(tag)
//
// The HMAC is verified before anything else is parsed or decrypted.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call KeyManager.Destroy() when the key is no longer needed
package crypto
