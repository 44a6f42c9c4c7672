// Package storage provides the BBolt database interface for sealpost.
//
// Database structure uses three buckets:
//   - config: KDF parameters, salt, passphrase check envelope, timestamps, store ID
//   - index: Post ID, author and timestamps (unencrypted, for ls/status)
//   - posts: Post records with sealed title and body
//
// The salt and KDF parameters are not secret; without them nothing sealed
// in the store can be opened, so rotation writes them in the same
// transaction as the resealed posts.
//
// The unencrypted index bucket lets sealpost ls and sealpost status
// work without a passphrase.
package storage
