// Package git reports git hygiene for a sealpost working directory.
//
// Checks performed:
//   - Whether the store file is tracked by git (fine, it only holds sealed data)
//   - Whether .env files that may hold the passphrase are tracked (must not be)
//   - Whether those files are covered by .gitignore (should be)
package git
