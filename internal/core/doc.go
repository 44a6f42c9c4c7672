// Package core provides the sealpost store operations.
//
// Core operations include:
//   - Init: create a store, record salt and scrypt parameters, seal a
//     passphrase check value
//   - Unlock: derive the key and open a Session over the posts repository
//   - Session.Rotate: re-seal every post under a key from a fresh salt
//   - ChangePassphrase: re-seal every post under a new passphrase
//   - Status and Compact: operate on the store file without a passphrase
//
// Posts live in the store file by default, or in MongoDB when configured.
// Key material (salt, scrypt parameters, check value) always stays in the
// store file.
package core
