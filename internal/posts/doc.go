// Package posts stores blog posts with their title and body sealed.
//
// Only the title and body are encrypted. Author, tags and timestamps stay
// readable so posts can be listed and sorted without the key.
//
// Reads never fail because of a single bad field: a field that cannot be
// opened is replaced with DecryptionFailed, its name is recorded in
// Post.FailedFields and the error is logged.
package posts
